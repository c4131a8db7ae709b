package homie

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder collects everything a device publishes.
type recorder struct {
	publications []Message
}

func (r *recorder) Publish(m Message) {
	r.publications = append(r.publications, m)
}

func (r *recorder) count(match func(m Message) bool) int {
	n := 0
	for _, m := range r.publications {
		if match(m) {
			n++
		}
	}
	return n
}

func (r *recorder) topics() []string {
	var topics []string
	for _, m := range r.publications {
		topics = append(topics, m.Topic)
	}
	return topics
}

func (r *recorder) reset() {
	r.publications = nil
}

func topicContains(s string) func(m Message) bool {
	return func(m Message) bool { return strings.Contains(m.Topic, s) }
}

// fixture mirrors a typical device: one node with one property reading "s1".
type fixture struct {
	rec     *recorder
	rssi    int
	d       *Device
	n       *Node
	p       *Property
	capture []string
}

func newFixture(t *testing.T, settable bool, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{rec: &recorder{}, rssi: -58}
	opts = append([]Option{
		WithPublisher(f.rec),
		WithRssi(func() int { return f.rssi }),
		WithExtension("com.planetlauritsen.test:0.0.1:[4.x]"),
	}, opts...)

	var err error
	f.d, err = NewDevice("testdevice", "1.0", "TestDevice", opts...)
	require.NoError(t, err)
	f.n, err = NewNode(f.d, "node1", "Node1", "generic")
	require.NoError(t, err)
	f.p, err = NewProperty(f.n, "prop1", "Prop1", DtInteger, settable, func() string { return "s1" })
	require.NoError(t, err)
	f.p.SetWriter(func(s string) { f.capture = append(f.capture, s) })

	return f
}
