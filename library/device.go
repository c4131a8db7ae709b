package homie

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Option configures a Device at construction time.
type Option func(d *Device)

// WithTopicRoot replaces the default "homie" topic root.
func WithTopicRoot(root string) Option {
	return func(d *Device) { d.topicRoot = root }
}

// WithPublisher sets the sink for outgoing messages.
func WithPublisher(p Publisher) Option {
	return func(d *Device) { d.publisher = p }
}

// WithRssi sets the source of the radio signal strength, in dBm.
func WithRssi(f func() int) Option {
	return func(d *Device) { d.rssi = f }
}

func WithNetInquirer(n NetInquirer) Option {
	return func(d *Device) { d.inquirer = n }
}

func WithHasher(h Hasher) Option {
	return func(d *Device) { d.hasher = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.log = l }
}

// WithExtension registers an extension after the default firmware one.
func WithExtension(ext string) Option {
	return func(d *Device) { d.extensions = append(d.extensions, ext) }
}

func WithImplementation(impl string) Option {
	return func(d *Device) { d.implementation = impl }
}

// WithValueFirst makes property introduction publish the value before the
// $-attributes.  Some validators insist on that order.
func WithValueFirst(v bool) Option {
	return func(d *Device) { d.valueFirst = v }
}

// NewDevice creates a device and its built-in wifi node.
func NewDevice(id, version, name string, opts ...Option) (*Device, error) {
	id, err := validate(id)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("device %s: %w", id, err)
	}

	d := &Device{
		id:             id,
		name:           name,
		version:        version,
		implementation: defaultImplementation,
		state:          StateInit,
		nodes:          make(map[string]*Node),
		extensions:     []string{defaultExtension},
		topicRoot:      defaultTopicRoot,
		rssi:           func() int { return defaultRssi },
		hasher:         sha512Hasher,
		log:            slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.topicBase = d.topicRoot + "/" + d.id + "/"
	d.psk = d.computePsk()

	if err := d.createWifiNode(); err != nil {
		return nil, err
	}

	return d, nil
}

// The wifi node reports on the radio link and network identity.
func (d *Device) createWifiNode() error {
	var err error

	if d.wifiNode, err = NewNode(d, NodeWifi, "WiFi", "WIFI"); err != nil {
		return err
	}
	d.rssiProp, err = NewProperty(d.wifiNode, PropRssi, "RSSI", DtInteger, false, func() string {
		return FormatInt(d.Rssi())
	})
	if err != nil {
		return err
	}
	d.wifiSignalProp, err = NewProperty(d.wifiNode, PropWifiSignal, "Wifi Signal", DtInteger, false, func() string {
		return FormatInt(d.WifiSignalStrength())
	})
	if err != nil {
		return err
	}
	d.wifiSignalProp.SetUnit("%")
	d.localIPProp, err = NewProperty(d.wifiNode, PropLocalIP, "Local IP", DtString, false, func() string {
		return d.localIP
	})
	if err != nil {
		return err
	}
	d.macProp, err = NewProperty(d.wifiNode, PropMac, "MAC Address", DtString, false, func() string {
		// SetMac only stores well formed addresses
		m, _ := FormatMac(d.mac)
		return m
	})
	return err
}

func sha512Hasher(data []byte) ([]byte, error) {
	sum := sha512.Sum512(data)
	return sum[:], nil
}

// The pre-shared key is the hex encoded hash of the device id.  If the hash
// fails we fall back to the id itself.
func (d *Device) computePsk() string {
	sum, err := d.hasher([]byte(d.id))
	if err != nil {
		d.log.Warn("psk derivation failed, using device id", "device", d.id, "err", err)
		return d.id
	}
	return hex.EncodeToString(sum)
}

func (d *Device) Id() string {
	return d.id
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) Version() string {
	return d.version
}

func (d *Device) TopicBase() string {
	return d.topicBase
}

func (d *Device) Psk() string {
	return d.psk
}

func (d *Device) Logger() *slog.Logger {
	return d.log
}

func (d *Device) Extensions() []string {
	return slices.Clone(d.extensions)
}

func (d *Device) AddExtension(ext string) {
	d.extensions = append(d.extensions, ext)
}

func (d *Device) SetLocalIP(ip string) {
	d.localIP = ip
}

func (d *Device) LocalIP() string {
	return d.localIP
}

// SetMac stores the mac address.  Malformed addresses are rejected and the
// previous value is kept.
func (d *Device) SetMac(mac string) error {
	if _, err := FormatMac(mac); err != nil {
		return err
	}
	d.mac = mac
	return nil
}

func (d *Device) Mac() string {
	return d.mac
}

// SetPublisher replaces the message sink.  The mqtt client uses this to bind
// itself to a device that already exists.
func (d *Device) SetPublisher(p Publisher) {
	d.publisher = p
}

// Publish hands m to the sink.  Without a sink the message is dropped.
func (d *Device) Publish(m Message) {
	if d.publisher == nil {
		d.log.Debug("no publisher, dropping message", "topic", m.Topic)
		return
	}
	d.publisher.Publish(m)
}

func (d *Device) topic(t string) string {
	return d.topicBase + t
}

func (d *Device) publish(t, payload string) {
	d.Publish(NewMessage(d.topic(t), payload))
}

// AddNode registers n.  A node with the same id is replaced.
func (d *Device) AddNode(n *Node) {
	d.nodes[n.id] = n
}

// Node looks up a node by id.
func (d *Device) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Nodes returns the nodes in id order.
func (d *Device) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.nodes))
	for _, id := range d.nodeIds() {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

func (d *Device) nodeIds() []string {
	return slices.Sorted(maps.Keys(d.nodes))
}

func (d *Device) LifecycleState() LifecycleState {
	return d.state
}

// SetLifecycleState accepts any state; callers own the transitions.
func (d *Device) SetLifecycleState(s LifecycleState) {
	d.state = s
}

func (d *Device) LifecycleTopic() string {
	return d.topic("$state")
}

func (d *Device) LifecycleMessage() Message {
	return NewMessage(d.LifecycleTopic(), d.state.String())
}

// Lwt is the last will a transport should register with the broker.
func (d *Device) Lwt() Message {
	return NewMessage(d.LifecycleTopic(), StateLost.String())
}

// SubscriptionTopic matches every inbound write to this device.
func (d *Device) SubscriptionTopic() string {
	return d.topicBase + "+/+/set"
}

// BroadcastTopic matches the broadcasts of every controller under the topic root.
func (d *Device) BroadcastTopic() string {
	return d.topicRoot + "/$broadcast/#"
}

// SetBroadcastHandler installs the function called for <root>/$broadcast/<level>
// messages.
func (d *Device) SetBroadcastHandler(h func(level, value string)) {
	d.broadcastHandler = h
}

// Rssi returns the signal strength in dBm.
func (d *Device) Rssi() int {
	return d.rssi()
}

// WifiSignalStrength maps the rssi onto 0..100.
func (d *Device) WifiSignalStrength() int {
	rssi := d.Rssi()
	switch {
	case rssi <= -100:
		return 0
	case rssi >= -50:
		return 100
	}
	return 2 * (rssi + 100)
}

// PublishWifi publishes just the radio properties.
func (d *Device) PublishWifi() {
	d.rssiProp.Publish()
	d.wifiSignalProp.Publish()
}

// InquireNetConfig asks the host for ip and mac.  It does nothing when the
// device was built without a NetInquirer.
func (d *Device) InquireNetConfig() error {
	if d.inquirer == nil {
		return nil
	}

	ip, mac, err := d.inquirer.InquireNetConfig()
	if err != nil {
		return fmt.Errorf("device %s: net config: %w", d.id, err)
	}
	d.localIP = ip
	return d.SetMac(mac)
}

// OnMessage routes an inbound <base><node>/<property>/set message to its
// property and broadcasts to the broadcast handler.  Anything else is ignored.
func (d *Device) OnMessage(m Message) {
	if level, ok := strings.CutPrefix(m.Topic, d.topicRoot+"/$broadcast/"); ok {
		if d.broadcastHandler != nil && level != "" {
			d.broadcastHandler(level, m.Payload)
		}
		return
	}

	rest, ok := strings.CutPrefix(m.Topic, d.topicBase)
	if !ok {
		return
	}
	parts := SplitTopic(rest)
	if len(parts) != 3 || parts[2] != "set" {
		return
	}

	n, ok := d.nodes[parts[0]]
	if !ok {
		return
	}
	p, ok := n.properties[parts[1]]
	if !ok || !p.settable {
		return
	}

	d.log.Debug("set", "topic", m.Topic, "value", m.Payload)
	p.SetValue(m.Payload)
}

// Introduce publishes everything about this device.
// This is done on connection to (and reconnection to) the mqtt broker.
func (d *Device) Introduce() {
	d.publish("$homie", HomieVersion)
	d.publish("$name", d.name)
	d.publish("$implementation", d.implementation)

	d.SetLifecycleState(StateInit)
	d.Publish(d.LifecycleMessage())

	d.publish("$extensions", joinIds(d.extensions))
	d.publish("$localip", d.localIPProp.Read())
	d.publish("$mac", d.macProp.Read())
	d.publish("$fw/name", d.id+"-firmware")
	d.publish("$fw/version", d.version)

	ids := d.nodeIds()
	d.publish("$nodes", joinIds(ids))
	for _, id := range ids {
		d.nodes[id].Introduce()
	}

	d.SetLifecycleState(StateReady)
	d.Publish(d.LifecycleMessage())
}

// Destroy tears down the node tree.  The device must not be used afterwards.
func (d *Device) Destroy() {
	for id, n := range d.nodes {
		n.destroy()
		delete(d.nodes, id)
	}
	d.wifiNode = nil
	d.rssiProp = nil
	d.wifiSignalProp = nil
	d.localIPProp = nil
	d.macProp = nil
	d.publisher = nil
}
