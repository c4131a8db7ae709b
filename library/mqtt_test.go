package homie

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessage stands in for what paho hands to a subscription handler.
type fakeMessage struct {
	topic   string
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

func TestClientOptions(t *testing.T) {
	f := newFixture(t, true)
	c := NewClient(f.d, ClientConfig{Username: "dev", Password: "secret"})

	o := c.options
	assert.Equal(t, "homieGo-testdevice", o.ClientID)
	require.Len(t, o.Servers, 1)
	assert.Equal(t, "tcp://127.0.0.1:1883", o.Servers[0].String())
	assert.Equal(t, "dev", o.Username)
	assert.True(t, o.WillEnabled)
	assert.Equal(t, "homie/testdevice/$state", o.WillTopic)
	assert.Equal(t, []byte("lost"), o.WillPayload)
	assert.True(t, o.WillRetained)
	assert.Equal(t, byte(1), o.WillQos)
	assert.True(t, o.AutoReconnect)
	assert.Equal(t, defaultWifiPeriod, c.cfg.WifiPeriod)
}

func TestClientBecomesPublisher(t *testing.T) {
	f := newFixture(t, true)
	c := NewClient(f.d, ClientConfig{Broker: "tcp://broker:1883", ClientID: "custom"})

	assert.Same(t, c, f.d.publisher)
	assert.Equal(t, "custom", c.options.ClientID)
}

func TestMessageHandlerQueuesSet(t *testing.T) {
	f := newFixture(t, true)
	c := NewClient(f.d, ClientConfig{})

	c.messageHandler(nil, fakeMessage{topic: "homie/testdevice/node1/prop1/set", payload: "42"})

	m := <-c.inbound
	assert.Equal(t, "homie/testdevice/node1/prop1/set", m.Topic)
	assert.Equal(t, "42", m.Payload)

	// nothing reached the device yet, that is Run's job
	assert.Empty(t, f.capture)
	f.d.OnMessage(m)
	assert.Equal(t, []string{"42"}, f.capture)
}

func TestHandlersDoNotBlockAfterRun(t *testing.T) {
	f := newFixture(t, true)
	c := NewClient(f.d, ClientConfig{})
	close(c.done)

	for i := 0; i < cap(c.inbound)+2; i++ {
		c.messageHandler(nil, fakeMessage{topic: "x", payload: "y"})
	}
	c.signalConnect(true)
	c.signalConnect(false)
}

// syncRecorder keeps the last payload seen per topic.
type syncRecorder struct {
	mu     sync.Mutex
	topics map[string]string
}

func (r *syncRecorder) handler(_ mqtt.Client, msg mqtt.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[msg.Topic()] = string(msg.Payload())
}

func (r *syncRecorder) get(topic string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.topics[topic]
	return v, ok
}

// Talks to a real broker.  Set MQTT_TEST_BROKER, e.g. tcp://127.0.0.1:1883.
func TestLiveIntroduction(t *testing.T) {
	broker := os.Getenv("MQTT_TEST_BROKER")
	if broker == "" {
		t.Skip("MQTT_TEST_BROKER not set")
	}

	id := "test-" + uuid.NewString()
	d, err := NewDevice(id, "1.0", "Live Test", WithTopicRoot("testing"))
	require.NoError(t, err)
	n, err := NewNode(d, "switch", "Switch", "relay")
	require.NoError(t, err)
	on := "false"
	p, err := NewProperty(n, "on", "On", DtBoolean, true, func() string { return on })
	require.NoError(t, err)
	p.SetWriter(func(v string) {
		on = v
		p.Publish()
	})

	rec := &syncRecorder{topics: make(map[string]string)}
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("fw-test-" + uuid.NewString())
	observer := mqtt.NewClient(opts)
	token := observer.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	defer observer.Disconnect(250)
	token = observer.Subscribe("testing/"+id+"/#", 1, rec.handler)
	require.True(t, token.WaitTimeout(5*time.Second))

	c := NewClient(d, ClientConfig{Broker: broker})
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(finished)
	}()

	assert.Eventually(t, func() bool {
		v, _ := rec.get("testing/" + id + "/$state")
		return v == "ready"
	}, 5*time.Second, 50*time.Millisecond)
	v, _ := rec.get("testing/" + id + "/switch/$properties")
	assert.Equal(t, "on", v)

	observer.Publish("testing/"+id+"/switch/on/set", 1, false, "true").Wait()
	assert.Eventually(t, func() bool {
		v, _ := rec.get("testing/" + id + "/switch/on")
		return v == "true"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	<-finished
	assert.Equal(t, "true", p.Value())
	assert.Eventually(t, func() bool {
		v, _ := rec.get("testing/" + id + "/$state")
		return v == "disconnected"
	}, 5*time.Second, 50*time.Millisecond)

	// clean up the retained topics
	for _, topic := range []string{"$state", "$homie", "$name", "switch/on"} {
		observer.Publish("testing/"+id+"/"+topic, 1, true, "").Wait()
	}
}
