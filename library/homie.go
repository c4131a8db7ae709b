package homie

import (
	"log/slog"
)

const libraryVersion = "0.2.0"
const defaultImplementation = "homieGo-" + libraryVersion
const defaultTopicRoot = "homie"
const defaultExtension = "org.homie.legacy-firmware:0.1.1:[4.x]"
const defaultRssi = -58
const defaultQos byte = 1

// HomieVersion is the convention version announced in $homie.
const HomieVersion = "4.0.0"

// DegreeSymbol is handy for temperature units, e.g. DegreeSymbol + "C".
const DegreeSymbol = "°"

// Ids of the built-in diagnostic node and its properties.
const (
	NodeWifi       = "wifi"
	PropRssi       = "rssi"
	PropWifiSignal = "signal"
	PropLocalIP    = "localip"
	PropMac        = "mac"
)

// Type hierarchy

// These are the allowed Property data types.
type DataType int

const (
	DtInteger DataType = iota
	DtString
	DtFloat
	DtPercent
	DtBoolean
	DtEnum
	DtColor
	DtDateTime
	DtDuration
)

var dataTypeNames = [...]string{
	DtInteger:  "integer",
	DtString:   "string",
	DtFloat:    "float",
	DtPercent:  "percent",
	DtBoolean:  "boolean",
	DtEnum:     "enum",
	DtColor:    "color",
	DtDateTime: "datetime",
	DtDuration: "duration",
}

// String returns the $datatype payload for the type.
func (dt DataType) String() string {
	if dt < 0 || int(dt) >= len(dataTypeNames) {
		return "unknown"
	}
	return dataTypeNames[dt]
}

// ParseDataType maps a $datatype label back to its DataType.
func ParseDataType(label string) (DataType, bool) {
	for i, n := range dataTypeNames {
		if n == label {
			return DataType(i), true
		}
	}
	return 0, false
}

// LifecycleState is the value of the device $state attribute.
type LifecycleState int

const (
	StateInit LifecycleState = iota
	StateReady
	StateDisconnected
	StateSleeping
	StateLost
	StateAlert
)

var lifecycleNames = [...]string{
	StateInit:         "init",
	StateReady:        "ready",
	StateDisconnected: "disconnected",
	StateSleeping:     "sleeping",
	StateLost:         "lost",
	StateAlert:        "alert",
}

func (s LifecycleState) String() string {
	if s < 0 || int(s) >= len(lifecycleNames) {
		return "unknown"
	}
	return lifecycleNames[s]
}

// Reader produces the current value of a property.
type Reader func() string

// Writer accepts a value written to a settable property.
type Writer func(value string)

// Publisher is the sink every outgoing message goes through.
// Implementations must not fail the caller on transport errors.
type Publisher interface {
	Publish(m Message)
}

// PublisherFunc adapts a plain function to a Publisher.
type PublisherFunc func(m Message)

func (f PublisherFunc) Publish(m Message) { f(m) }

// NetInquirer supplies the local IP and MAC address of the host.
type NetInquirer interface {
	InquireNetConfig() (ip, mac string, err error)
}

// Hasher derives the auxiliary secret from the device id.
type Hasher func(data []byte) ([]byte, error)

type Property struct {
	id       string
	name     string
	node     *Node
	settable bool // hardwired attribute
	retained bool
	dataType DataType
	format   string
	unit     string
	value    string
	pubTopic string
	subTopic string
	reader   Reader
	writer   Writer
}

type Node struct {
	id         string
	device     *Device
	name       string
	nType      string
	topicBase  string
	properties map[string]*Property
}

type Device struct {
	id             string
	name           string // Friendly name
	version        string // firmware version
	implementation string
	state          LifecycleState
	nodes          map[string]*Node // indexed by node ID
	extensions     []string
	topicRoot      string // default is "homie"
	topicBase      string
	valueFirst     bool // publish the property value before its attributes

	localIP string
	mac     string
	psk     string

	publisher        Publisher
	broadcastHandler func(level, value string)
	rssi             func() int
	inquirer         NetInquirer
	hasher           Hasher
	log              *slog.Logger

	wifiNode       *Node
	rssiProp       *Property
	wifiSignalProp *Property
	localIPProp    *Property
	macProp        *Property
}
