package homie

// Message is one topic/payload pair on its way to the broker.
type Message struct {
	Topic    string
	Payload  string
	Retained bool
	Qos      byte
}

// NewMessage returns a retained, qos 1 message.  That is what the convention
// wants for nearly everything a device says about itself.
func NewMessage(topic, payload string) Message {
	return Message{
		Topic:    topic,
		Payload:  payload,
		Retained: true,
		Qos:      defaultQos,
	}
}
