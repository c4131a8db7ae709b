package homie

//
// This file contains code to interface with the paho mqtt client.
//

import (
	"context"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttClientIDPrefix = "homieGo"
const DefaultMqttBroker = "tcp://127.0.0.1:1883"
const defaultWifiPeriod = time.Minute
const defaultPublishTimeout = 10 * time.Second
const disconnectQuiesce = 250 // milliseconds

// ClientConfig holds the broker settings.  Zero values pick the defaults.
type ClientConfig struct {
	Broker         string
	ClientID       string // default is homieGo-<device id>
	Username       string
	Password       string
	WifiPeriod     time.Duration // how often to publish rssi and signal
	PublishTimeout time.Duration
}

// Client connects a Device to an mqtt broker.  It is the device's Publisher
// and feeds inbound set messages back into Device.OnMessage.
//
// Paho calls its handlers from its own go routines.  They only ever post to
// channels; every call into the device happens in Run.
type Client struct {
	device  *Device
	cfg     ClientConfig
	options *mqtt.ClientOptions
	client  mqtt.Client
	log     *slog.Logger

	// This channel reflects connection status changes back to Run from the event handler.
	connectChannel chan bool

	// Inbound set messages, consumed by Run.
	inbound chan Message

	// Closed when Run returns, so late handlers do not block forever.
	done chan struct{}
}

// NewClient builds the paho client for d and installs itself as the
// device's publisher.  Nothing is sent until Run is called.
func NewClient(d *Device, cfg ClientConfig) *Client {
	if cfg.Broker == "" {
		cfg.Broker = DefaultMqttBroker
	}
	if cfg.ClientID == "" {
		cfg.ClientID = mqttClientIDPrefix + "-" + d.id
	}
	if cfg.WifiPeriod <= 0 {
		cfg.WifiPeriod = defaultWifiPeriod
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}

	c := &Client{
		device:         d,
		cfg:            cfg,
		log:            d.log.With("broker", cfg.Broker, "device", d.id),
		connectChannel: make(chan bool, 1),
		inbound:        make(chan Message, 16),
		done:           make(chan struct{}),
	}
	c.options = c.clientOptions()
	c.client = mqtt.NewClient(c.options)
	d.SetPublisher(c)

	return c
}

func (c *Client) clientOptions() *mqtt.ClientOptions {
	lwt := c.device.Lwt()
	options := mqtt.NewClientOptions()

	options.AddBroker(c.cfg.Broker)
	options.SetClientID(c.cfg.ClientID)
	if c.cfg.Username != "" {
		options.SetUsername(c.cfg.Username)
		options.SetPassword(c.cfg.Password)
	}
	options.SetKeepAlive(60 * time.Second)
	options.SetCleanSession(true)
	options.SetAutoReconnect(true)
	options.SetConnectRetry(true)
	options.SetConnectRetryInterval(time.Minute)
	options.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.log.Warn("connection lost", "err", err)
		c.signalConnect(false)
	})
	options.SetOnConnectHandler(func(mqtt.Client) { c.signalConnect(true) })
	options.SetOrderMatters(false)
	options.SetWill(lwt.Topic, lwt.Payload, lwt.Qos, lwt.Retained)

	return options
}

func (c *Client) signalConnect(up bool) {
	select {
	case c.connectChannel <- up:
	case <-c.done:
	}
}

// Publish sends m to the broker.  Errors are logged, never returned.
func (c *Client) Publish(m Message) {
	token := c.client.Publish(m.Topic, m.Qos, m.Retained, m.Payload)
	go c.tokenFinalize("publish "+m.Topic, token)
}

// Check for errors on token.  If found, log them.
func (c *Client) tokenFinalize(what string, t mqtt.Token) {
	if !t.WaitTimeout(c.cfg.PublishTimeout) {
		c.log.Warn("timed out", "op", what)
		return
	}
	if err := t.Error(); err != nil {
		c.log.Error("mqtt error", "op", what, "err", err)
	}
}

// When a "set" message is received, this executes in some random go routine context.
func (c *Client) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	m := Message{
		Topic:    msg.Topic(),
		Payload:  string(msg.Payload()),
		Retained: msg.Retained(),
		Qos:      msg.Qos(),
	}
	select {
	case c.inbound <- m:
	case <-c.done:
	}
}

// Run connects to the broker and services the device until ctx is done.
// Every (re)connection subscribes to the set topics and introduces the
// device again.  On the way out the device reports itself disconnected.
func (c *Client) Run(ctx context.Context) {
	defer close(c.done)

	c.log.Info("connecting")
	go c.tokenFinalize("connect", c.client.Connect())

	ticker := time.NewTicker(c.cfg.WifiPeriod)
	defer ticker.Stop()

	for {
		select {
		case up := <-c.connectChannel:
			if up {
				c.onConnect()
			} else {
				c.device.SetLifecycleState(StateDisconnected)
			}
		case m := <-c.inbound:
			c.device.OnMessage(m)
		case <-ticker.C:
			if c.client.IsConnectionOpen() {
				c.device.PublishWifi()
			}
		case <-ctx.Done():
			c.shutdown()
			return
		}
	}
}

func (c *Client) onConnect() {
	c.log.Info("connected")

	if err := c.device.InquireNetConfig(); err != nil {
		c.log.Warn("net config inquiry failed", "err", err)
	}

	topics := []string{c.device.SubscriptionTopic()}
	if c.device.broadcastHandler != nil {
		topics = append(topics, c.device.BroadcastTopic())
	}
	for _, topic := range topics {
		go c.tokenFinalize("subscribe "+topic, c.client.Subscribe(topic, defaultQos, c.messageHandler))
	}

	c.device.Introduce()
}

func (c *Client) shutdown() {
	if c.client.IsConnectionOpen() {
		c.device.SetLifecycleState(StateDisconnected)
		m := c.device.LifecycleMessage()
		t := c.client.Publish(m.Topic, m.Qos, m.Retained, m.Payload)
		t.WaitTimeout(c.cfg.PublishTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
	c.log.Info("disconnected")
}
