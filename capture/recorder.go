package capture

import (
	"slices"
	"sync"

	homie "homiedevice/library"
)

// Recorder keeps every published message in memory, in order.
// It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []homie.Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(m homie.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []homie.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.messages)
}

// Topics returns the topics in publication order.
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		topics = append(topics, m.Topic)
	}
	return topics
}

func (r *Recorder) Filter(f Filter) []homie.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []homie.Message
	for _, m := range r.messages {
		if f.matches(m) {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message on topic, the way a broker would
// hand a retained value to a new subscriber.
func (r *Recorder) Last(topic string) (homie.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Topic == topic {
			return r.messages[i], true
		}
	}
	return homie.Message{}, false
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

var _ homie.Publisher = (*Recorder)(nil)
