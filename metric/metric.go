// Package metric counts what a device publishes, for Prometheus.
package metric

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	homie "homiedevice/library"
)

// Metrics holds the collectors shared by every counted device.
type Metrics struct {
	MessagesPublished *prometheus.CounterVec
	PayloadBytes      *prometheus.CounterVec
	LifecycleState    *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "homie",
				Subsystem: "messages",
				Name:      "published_total",
				Help:      "Total number of messages published",
			},
			[]string{"device", "kind"},
		),
		PayloadBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "homie",
				Subsystem: "messages",
				Name:      "payload_bytes_total",
				Help:      "Total payload bytes published",
			},
			[]string{"device"},
		),
		LifecycleState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "homie",
				Subsystem: "device",
				Name:      "state",
				Help:      "1 for the last announced $state of the device, 0 otherwise",
			},
			[]string{"device", "state"},
		),
	}

	for _, c := range []prometheus.Collector{m.MessagesPublished, m.PayloadBytes, m.LifecycleState} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Publisher counts messages on their way to next.
type Publisher struct {
	next    homie.Publisher
	metrics *Metrics
	device  string
}

func NewPublisher(next homie.Publisher, m *Metrics, device string) *Publisher {
	return &Publisher{next: next, metrics: m, device: device}
}

func (p *Publisher) Publish(msg homie.Message) {
	kind := Kind(msg.Topic)
	p.metrics.MessagesPublished.WithLabelValues(p.device, kind).Inc()
	p.metrics.PayloadBytes.WithLabelValues(p.device).Add(float64(len(msg.Payload)))
	if strings.HasSuffix(msg.Topic, "/$state") {
		p.setState(msg.Payload)
	}

	p.next.Publish(msg)
}

func (p *Publisher) setState(state string) {
	for s := homie.StateInit; s <= homie.StateAlert; s++ {
		v := 0.0
		if s.String() == state {
			v = 1
		}
		p.metrics.LifecycleState.WithLabelValues(p.device, s.String()).Set(v)
	}
}

// Kind classifies a topic as "state", "attribute" ($-prefixed level) or "value".
func Kind(topic string) string {
	last := topic[strings.LastIndexByte(topic, '/')+1:]
	switch {
	case last == "$state":
		return "state"
	case strings.HasPrefix(last, "$"), strings.Contains(topic, "/$fw/"):
		return "attribute"
	}
	return "value"
}

var _ homie.Publisher = (*Publisher)(nil)
