package capture

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	homie "homiedevice/library"
)

// Record is one captured message as stored on disk.
type Record struct {
	Time     time.Time `cbor:"1,keyasint"`
	Topic    string    `cbor:"2,keyasint"`
	Payload  string    `cbor:"3,keyasint,omitempty"`
	Retained bool      `cbor:"4,keyasint,omitempty"`
	Qos      byte      `cbor:"5,keyasint,omitempty"`
}

func newRecord(m homie.Message, at time.Time) Record {
	return Record{
		Time:     at,
		Topic:    m.Topic,
		Payload:  m.Payload,
		Retained: m.Retained,
		Qos:      m.Qos,
	}
}

// Message converts the record back to what was published.
func (r Record) Message() homie.Message {
	return homie.Message{
		Topic:    r.Topic,
		Payload:  r.Payload,
		Retained: r.Retained,
		Qos:      r.Qos,
	}
}

// Filter selects messages.  Empty fields match everything.
type Filter struct {
	// Prefix matches the start of the topic, e.g. a device topic base.
	Prefix string

	// Suffix matches the end of the topic, e.g. "/$unit".
	Suffix string

	// Retained filters by the retained flag.
	Retained *bool
}

func (f *Filter) matches(m homie.Message) bool {
	if f.Prefix != "" && !strings.HasPrefix(m.Topic, f.Prefix) {
		return false
	}
	if f.Suffix != "" && !strings.HasSuffix(m.Topic, f.Suffix) {
		return false
	}
	if f.Retained != nil && m.Retained != *f.Retained {
		return false
	}
	return true
}

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("capture: cbor encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("capture: cbor decoder mode: %v", err))
	}
}

func newEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

func newDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
