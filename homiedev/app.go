package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"homiedevice/capture"
	"homiedevice/config"
	homie "homiedevice/library"
	"homiedevice/metric"
)

// app is one configured device and everything it publishes through.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	device   *homie.Device
	client   *homie.Client
	registry *prometheus.Registry
	sink     *capture.FileSink
	server   *http.Server
}

func newApp(cfg *config.Config, log *slog.Logger, tracePublish bool) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}

	var err error
	a.device, err = cfg.Build(
		homie.WithLogger(log),
		homie.WithNetInquirer(homie.HostNetInquirer{Name: cfg.Interface}),
	)
	if err != nil {
		return nil, err
	}
	a.device.SetBroadcastHandler(func(level, value string) {
		log.Info("broadcast", "level", level, "value", value)
	})

	// NewClient binds itself as the publisher; wrap it afterwards.
	a.client = homie.NewClient(a.device, cfg.ClientConfig())
	next, err := a.publishChain(a.client, tracePublish)
	if err != nil {
		a.close()
		return nil, err
	}
	a.device.SetPublisher(next)

	return a, nil
}

// publishChain puts metrics, capture and tracing in front of the transport.
func (a *app) publishChain(transport homie.Publisher, trace bool) (homie.Publisher, error) {
	sinks := []homie.Publisher{transport}

	if a.cfg.CaptureFile != "" {
		s, err := capture.NewFileSink(a.cfg.CaptureFile)
		if err != nil {
			return nil, err
		}
		a.sink = s
		sinks = append(sinks, s)
	}
	if trace {
		sinks = append(sinks, homie.PublisherFunc(func(m homie.Message) {
			a.log.Debug("publish", "topic", m.Topic, "payload", m.Payload, "retained", m.Retained)
		}))
	}

	m, err := metric.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}
	return metric.NewPublisher(capture.NewMulti(sinks...), m, a.device.Id()), nil
}

func (a *app) serveMetrics() {
	if a.cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metric.Handler(a.registry))
	a.server = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info("serving metrics", "addr", a.cfg.MetricsAddr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", "err", err)
		}
	}()
}

func (a *app) run(ctx context.Context) {
	a.serveMetrics()
	a.client.Run(ctx)
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.server.Shutdown(ctx)
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.log.Warn("capture file", "err", err)
		}
	}
	a.device.Destroy()
}
