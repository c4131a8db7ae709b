// Package config loads the description of a homie device from YAML.
//
// A description names the broker, the device and its nodes and properties:
//
//	broker: tcp://127.0.0.1:1883
//	topic_root: homie
//	wifi_period: 60s
//	device:
//	  id: garage
//	  name: Garage
//	  version: 1.2.3
//	  nodes:
//	    - id: door
//	      name: South Garage Door
//	      type: door
//	      properties:
//	        - id: isopen
//	          name: Door Contact
//	          datatype: enum
//	          format: open,closed
//	          value: closed
//
// Environment variables override the file, see ApplyEnv.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	homie "homiedevice/library"
)

const defaultTopicRoot = "homie"
const defaultVersion = "unknown"
const defaultWifiPeriod = time.Minute

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Broker      string        `yaml:"broker"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TopicRoot   string        `yaml:"topic_root"`
	WifiPeriod  time.Duration `yaml:"wifi_period"`
	ValueFirst  bool          `yaml:"value_first"`
	Interface   string        `yaml:"interface"` // network interface for $localip and $mac
	LogLevel    string        `yaml:"log_level"`
	CaptureFile string        `yaml:"capture_file"` // CBOR copy of everything published
	MetricsAddr string        `yaml:"metrics_addr"` // e.g. :9090, empty disables
	Device      DeviceConfig  `yaml:"device"`
}

type DeviceConfig struct {
	ID         string       `yaml:"id"`
	Name       string       `yaml:"name"`
	Version    string       `yaml:"version"`
	Extensions []string     `yaml:"extensions"`
	Nodes      []NodeConfig `yaml:"nodes"`
}

type NodeConfig struct {
	ID         string           `yaml:"id"`
	Name       string           `yaml:"name"`
	Type       string           `yaml:"type"`
	Properties []PropertyConfig `yaml:"properties"`
}

type PropertyConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	DataType string `yaml:"datatype"`
	Format   string `yaml:"format"`
	Unit     string `yaml:"unit"`
	Settable bool   `yaml:"settable"`
	Retained *bool  `yaml:"retained"` // default true
	Value    string `yaml:"value"`    // initial value
}

// Default returns a config for a device without nodes and a generated id.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) setDefaults() {
	if c.Broker == "" {
		c.Broker = homie.DefaultMqttBroker
	}
	if c.TopicRoot == "" {
		c.TopicRoot = defaultTopicRoot
	}
	if c.WifiPeriod <= 0 {
		c.WifiPeriod = defaultWifiPeriod
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Device.ID == "" {
		c.Device.ID = "homie-" + uuid.NewString()
	}
	if c.Device.Name == "" {
		c.Device.Name = c.Device.ID
	}
	if c.Device.Version == "" {
		c.Device.Version = defaultVersion
	}
	for i := range c.Device.Nodes {
		n := &c.Device.Nodes[i]
		if n.Name == "" {
			n.Name = n.ID
		}
		for j := range n.Properties {
			if n.Properties[j].Name == "" {
				n.Properties[j].Name = n.Properties[j].ID
			}
		}
	}
}

// ApplyEnv overrides settings from the environment:
//
//	MQTTBROKER   broker url
//	HOMIETOPIC   topic root
//	WIFIPERIOD   seconds between rssi/signal updates
//	LOGLEVEL     debug, info, warn or error
//	CAPTUREFILE  capture file path
//	METRICSADDR  listen address for /metrics
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if s, ok := lookup("MQTTBROKER"); ok {
		c.Broker = s
	}
	if s, ok := lookup("HOMIETOPIC"); ok {
		c.TopicRoot = s
	}
	if s, ok := lookup("WIFIPERIOD"); ok {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: WIFIPERIOD %q is not a positive number of seconds", ErrInvalidConfig, s)
		}
		c.WifiPeriod = time.Duration(n) * time.Second
	}
	if s, ok := lookup("LOGLEVEL"); ok {
		c.LogLevel = s
	}
	if s, ok := lookup("CAPTUREFILE"); ok {
		c.CaptureFile = s
	}
	if s, ok := lookup("METRICSADDR"); ok {
		c.MetricsAddr = s
	}
	return c.Validate()
}

// Validate checks what the library would otherwise silently accept:
// unknown data types and duplicate ids.
func (c *Config) Validate() error {
	if c.TopicRoot == "" {
		return fmt.Errorf("%w: empty topic root", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	nodes := make(map[string]bool)
	// ids are compared the way the library folds them
	for _, n := range c.Device.Nodes {
		id := strings.ToLower(n.ID)
		if id == homie.NodeWifi {
			return fmt.Errorf("%w: node id %q is reserved", ErrInvalidConfig, n.ID)
		}
		if nodes[id] {
			return fmt.Errorf("%w: duplicate node %q", ErrInvalidConfig, n.ID)
		}
		nodes[id] = true

		props := make(map[string]bool)
		for _, p := range n.Properties {
			pid := strings.ToLower(p.ID)
			if props[pid] {
				return fmt.Errorf("%w: duplicate property %q in node %q", ErrInvalidConfig, p.ID, n.ID)
			}
			props[pid] = true
			if _, ok := homie.ParseDataType(p.DataType); !ok {
				return fmt.Errorf("%w: property %s/%s has unknown datatype %q", ErrInvalidConfig, n.ID, p.ID, p.DataType)
			}
		}
	}
	return nil
}

// ClientConfig is the broker part of the config.
func (c *Config) ClientConfig() homie.ClientConfig {
	return homie.ClientConfig{
		Broker:     c.Broker,
		Username:   c.Username,
		Password:   c.Password,
		WifiPeriod: c.WifiPeriod,
	}
}
