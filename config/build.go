package config

import (
	"fmt"

	homie "homiedevice/library"
)

// Build creates the device described by c.  Configured properties hold
// their value in memory: a write to a settable property is stored and
// published straight back, so controllers see it was accepted.
func (c *Config) Build(opts ...homie.Option) (*homie.Device, error) {
	opts = append([]homie.Option{
		homie.WithTopicRoot(c.TopicRoot),
		homie.WithValueFirst(c.ValueFirst),
	}, opts...)
	for _, ext := range c.Device.Extensions {
		opts = append(opts, homie.WithExtension(ext))
	}

	d, err := homie.NewDevice(c.Device.ID, c.Device.Version, c.Device.Name, opts...)
	if err != nil {
		return nil, err
	}

	for _, nc := range c.Device.Nodes {
		n, err := homie.NewNode(d, nc.ID, nc.Name, nc.Type)
		if err != nil {
			return nil, err
		}
		for _, pc := range nc.Properties {
			if err := buildProperty(n, pc); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

func buildProperty(n *homie.Node, pc PropertyConfig) error {
	dt, ok := homie.ParseDataType(pc.DataType)
	if !ok {
		return fmt.Errorf("%w: unknown datatype %q", ErrInvalidConfig, pc.DataType)
	}

	p, err := homie.NewProperty(n, pc.ID, pc.Name, dt, pc.Settable, nil)
	if err != nil {
		return err
	}
	p.SetFormat(pc.Format)
	p.SetUnit(pc.Unit)
	if pc.Retained != nil {
		p.SetRetained(*pc.Retained)
	}
	p.SetValue(pc.Value)
	if pc.Settable {
		p.SetWriter(func(string) { p.Publish() })
	}
	return nil
}
