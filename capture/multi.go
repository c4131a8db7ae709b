package capture

import (
	homie "homiedevice/library"
)

// Multi sends every message to each of its publishers, in order.
type Multi struct {
	publishers []homie.Publisher
}

func NewMulti(publishers ...homie.Publisher) *Multi {
	return &Multi{publishers: publishers}
}

func (m *Multi) Publish(msg homie.Message) {
	for _, p := range m.publishers {
		p.Publish(msg)
	}
}

var _ homie.Publisher = (*Multi)(nil)
