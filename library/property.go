package homie

import (
	"fmt"
)

// Property methods

// NewProperty creates a property and registers it with its node.
// A nil reader reports whatever value was last stored.
func NewProperty(node *Node, id, name string, dataType DataType, settable bool, reader Reader) (*Property, error) {
	if node == nil {
		return nil, fmt.Errorf("property %s: %w", id, ErrNilParent)
	}

	id, err := validate(id)
	if err != nil {
		return nil, fmt.Errorf("property of node %s: %w", node.id, err)
	}
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("property %s: %w", id, err)
	}

	p := &Property{
		id:       id,
		name:     name,
		node:     node,
		settable: settable,
		retained: true,
		dataType: dataType,
		pubTopic: node.topicBase + id,
		subTopic: node.topicBase + id + "/set",
		reader:   reader,
	}
	if p.reader == nil {
		p.reader = func() string { return p.value }
	}
	node.AddProperty(p)

	return p, nil
}

func (p *Property) Id() string {
	return p.id
}

func (p *Property) Name() string {
	return p.name
}

func (p *Property) Node() *Node {
	return p.node
}

func (p *Property) DataType() DataType {
	return p.dataType
}

func (p *Property) Settable() bool {
	return p.settable
}

func (p *Property) PubTopic() string {
	return p.pubTopic
}

func (p *Property) SubTopic() string {
	return p.subTopic
}

// Format describes a range (10:15), an enum list (a,b,c) or a color space (rgb, hsv).
func (p *Property) Format() string {
	return p.format
}

func (p *Property) SetFormat(format string) {
	p.format = format
}

func (p *Property) Unit() string {
	return p.unit
}

func (p *Property) SetUnit(unit string) {
	p.unit = unit
}

func (p *Property) Retained() bool {
	return p.retained
}

func (p *Property) SetRetained(retained bool) {
	p.retained = retained
}

// SetWriter installs the function that receives writes.  It is only called
// for settable properties.
func (p *Property) SetWriter(w Writer) {
	p.writer = w
}

// Value is the value last read or set.
func (p *Property) Value() string {
	return p.value
}

// Read refreshes the value from the reader.
func (p *Property) Read() string {
	p.value = p.reader()
	return p.value
}

// SetValue stores v and passes it on to the writer, if the property is
// settable and has one.
func (p *Property) SetValue(v string) {
	p.value = v
	if p.settable && p.writer != nil {
		p.writer(v)
	}
}

func (p *Property) attribute(t, payload string) {
	p.node.device.Publish(NewMessage(p.pubTopic+"/"+t, payload))
}

// Introduce publishes the property attributes and its current value.
func (p *Property) Introduce() {
	valueFirst := p.node.device.valueFirst
	if valueFirst {
		p.Publish()
	}

	p.attribute("$name", p.name)
	p.attribute("$settable", FormatBool(p.settable))
	p.attribute("$datatype", p.dataType.String())
	if len(p.unit) > 0 {
		p.attribute("$unit", p.unit)
	}
	if len(p.format) > 0 {
		p.attribute("$format", p.format)
	}

	if !valueFirst {
		p.Publish()
	}
}

// Publish sends the current value with qos 1.
func (p *Property) Publish() {
	p.PublishQos(defaultQos)
}

func (p *Property) PublishQos(qos byte) {
	p.node.device.Publish(Message{
		Topic:    p.pubTopic,
		Payload:  p.Read(),
		Retained: p.retained,
		Qos:      qos,
	})
}
