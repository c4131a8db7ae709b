package capture

import (
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	homie "homiedevice/library"
)

// FileSink appends published messages to a file in CBOR format.
// It is safe for concurrent use.
type FileSink struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
	now     func() time.Time
	err     error
}

// NewFileSink opens path for appending, creating it with 0644 if needed.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileSink{
		file:    f,
		encoder: newEncoder(f),
		now:     time.Now,
	}, nil
}

// Publish writes m.  Encoding errors do not reach the device; the first one
// is kept and reported by Err.
func (s *FileSink) Publish(m homie.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if err := s.encoder.Encode(newRecord(m, s.now())); err != nil && s.err == nil {
		s.err = err
	}
}

func (s *FileSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the file.  Later Publish calls are ignored.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

var _ homie.Publisher = (*FileSink)(nil)
