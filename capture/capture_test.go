package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	homie "homiedevice/library"
)

func newDevice(t *testing.T, p homie.Publisher) *homie.Device {
	t.Helper()

	d, err := homie.NewDevice("device123", "1.2.3", "My Device", homie.WithPublisher(p))
	require.NoError(t, err)
	n, err := homie.NewNode(d, "dht22", "DHT22 Temp/RH Sensor", "DHT22")
	require.NoError(t, err)
	temp, err := homie.NewProperty(n, "tempf", "Temperature in Fahrenheit", homie.DtFloat, false, func() string {
		return homie.FormatFloat(72)
	})
	require.NoError(t, err)
	temp.SetUnit(homie.DegreeSymbol + "F")
	return d
}

func TestRecorderCapturesIntroduction(t *testing.T) {
	rec := NewRecorder()
	d := newDevice(t, rec)

	d.Introduce()

	topics := rec.Topics()
	require.NotEmpty(t, topics)
	assert.Equal(t, "homie/device123/$homie", topics[0])
	assert.Equal(t, "homie/device123/$state", topics[len(topics)-1])

	last, ok := rec.Last(d.LifecycleTopic())
	require.True(t, ok)
	assert.Equal(t, "ready", last.Payload)

	units := rec.Filter(Filter{Suffix: "/$unit"})
	require.Len(t, units, 2) // tempf and the wifi signal
	assert.Equal(t, "°F", units[0].Payload)

	nodes := rec.Filter(Filter{Prefix: "homie/device123/dht22/"})
	assert.NotEmpty(t, nodes)

	_, ok = rec.Last("homie/nobody/$state")
	assert.False(t, ok)

	rec.Reset()
	assert.Zero(t, rec.Len())
}

func TestRecorderFilterRetained(t *testing.T) {
	rec := NewRecorder()
	rec.Publish(homie.NewMessage("a", "1"))
	rec.Publish(homie.Message{Topic: "b", Payload: "2", Qos: 0})

	no := false
	got := rec.Filter(Filter{Retained: &no})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Topic)
}

func TestFileSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.hcap")

	sink, err := NewFileSink(path)
	require.NoError(t, err)
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return at }

	rec := NewRecorder()
	d := newDevice(t, NewMulti(rec, sink))
	d.Introduce()
	d.PublishWifi()
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Err())

	// publishing after close is ignored
	sink.Publish(homie.NewMessage("late", "x"))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	records, err := r.All()
	require.NoError(t, err)
	require.Len(t, records, rec.Len())
	for i, m := range rec.Messages() {
		assert.Equal(t, m, records[i].Message())
		assert.True(t, at.Equal(records[i].Time))
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.hcap")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	d := newDevice(t, sink)
	d.Introduce()
	require.NoError(t, sink.Close())

	r, err := NewFilteredReader(path, Filter{Prefix: "homie/device123/wifi/rssi"})
	require.NoError(t, err)
	defer r.Close()

	records, err := r.All()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "homie/device123/wifi/rssi", records[3].Topic)
	assert.Equal(t, "-58", records[3].Payload)
}

func TestNewFileSinkBadPath(t *testing.T) {
	_, err := NewFileSink(filepath.Join(t.TempDir(), "missing", "x.hcap"))
	assert.Error(t, err)

	_, err = NewReader(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
