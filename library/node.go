package homie

import (
	"fmt"
	"maps"
	"slices"
)

// Node methods

// Create a node and register it with its device.
func NewNode(device *Device, id, name, nType string) (*Node, error) {
	if device == nil {
		return nil, fmt.Errorf("node %s: %w", id, ErrNilParent)
	}

	id, err := validate(id)
	if err != nil {
		return nil, fmt.Errorf("node of device %s: %w", device.id, err)
	}
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("node %s: %w", id, err)
	}

	n := &Node{
		id:         id,
		device:     device,
		name:       name,
		nType:      nType,
		topicBase:  device.topicBase + id + "/",
		properties: make(map[string]*Property),
	}
	device.AddNode(n)

	return n, nil
}

func (n *Node) Id() string {
	return n.id
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) Type() string {
	return n.nType
}

func (n *Node) Device() *Device {
	return n.device
}

func (n *Node) TopicBase() string {
	return n.topicBase
}

// AddProperty registers p.  A property with the same id is replaced.
func (n *Node) AddProperty(p *Property) {
	n.properties[p.id] = p
}

func (n *Node) Property(id string) (*Property, bool) {
	p, ok := n.properties[id]
	return p, ok
}

// Properties returns the properties in id order.
func (n *Node) Properties() []*Property {
	props := make([]*Property, 0, len(n.properties))
	for _, id := range n.propertyIds() {
		props = append(props, n.properties[id])
	}
	return props
}

func (n *Node) propertyIds() []string {
	return slices.Sorted(maps.Keys(n.properties))
}

func (n *Node) topic(t string) string {
	return n.topicBase + t
}

func (n *Node) publish(t, payload string) {
	n.device.Publish(NewMessage(n.topic(t), payload))
}

// Introduce publishes the node attributes followed by every property.
func (n *Node) Introduce() {
	n.publish("$name", n.name)
	n.publish("$type", n.nType)

	ids := n.propertyIds()
	n.publish("$properties", joinIds(ids))
	for _, id := range ids {
		n.properties[id].Introduce()
	}
}

func (n *Node) destroy() {
	clear(n.properties)
}
