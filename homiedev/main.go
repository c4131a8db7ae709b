// Homiedev publishes a homie device described by a YAML file.
//
// Usage:
//
//	homiedev [-d] [-D] [-config device.yaml]
//
// Environment overrides: MQTTBROKER, HOMIETOPIC, WIFIPERIOD, LOGLEVEL,
// CAPTUREFILE, METRICSADDR, NETINTERFACE and DEBUGRUNLENGTH (seconds, only
// with -d or -D).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"homiedevice/config"
)

const defaultDebugRunLength = "10" // in seconds

var (
	debug      bool
	debugV     bool
	configFile string
)

func init() {
	flag.BoolVar(&debug, "d", false, "debugging")
	flag.BoolVar(&debugV, "D", false, "extreme debugging")
	flag.StringVar(&configFile, "config", "", "device description")
}

func loadConfig() (*config.Config, error) {
	var (
		c   *config.Config
		err error
	)
	if configFile != "" {
		c, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		c = config.Default()
	}

	if debug {
		c.LogLevel = "debug"
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if i, ok := os.LookupEnv("NETINTERFACE"); ok {
		c.Interface = i
	}
	return c, nil
}

func debugRunLength() time.Duration {
	s := defaultDebugRunLength
	if d, ok := os.LookupEnv("DEBUGRUNLENGTH"); ok {
		s = d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		n, _ = strconv.Atoi(defaultDebugRunLength)
	}
	return time.Duration(n) * time.Second
}

func main() {
	flag.Parse()
	if debugV {
		debug = true
	}

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("homiedev: bad configuration", "err", err)
		os.Exit(1)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if debug {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, debugRunLength())
		defer cancel()
	}

	a, err := newApp(cfg, log, debugV)
	if err != nil {
		log.Error("homiedev: setup failed", "err", err)
		os.Exit(1)
	}
	defer a.close()

	log.Info("homiedev: running", "device", a.device.Id(), "broker", cfg.Broker)
	a.run(ctx)
	log.Info("homiedev: stopped")
}
