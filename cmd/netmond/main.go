package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/strmtools/netmond/internal/api"
	"github.com/strmtools/netmond/internal/netmon"
	"github.com/strmtools/netmond/internal/relay"
	"github.com/strmtools/netmond/internal/runtime"
	"github.com/strmtools/netmond/pkg/cli"
)

func main() {
	// Parse command line flags
	cfg := cli.ParseFlags()

	// Configure logging
	setLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})

	log.Infof("Config: IPFile=%s", cfg.IPFile)
	log.Infof("Config: PIDFile=%s", cfg.PIDFile)
	log.Infof("Config: PollInterval=%s", cfg.PollInterval)
	log.Infof("Config: API=%v MDNS=%v", cfg.EnableAPI, cfg.EnableMDNS)
	log.Infof("Config: LogLevel=%s", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	monitor := netmon.NewMonitor(cfg.PollInterval)
	watcher := netmon.NewWatcher(monitor)
	relaySvc := relay.NewService(monitor, relay.NewSignaler(cfg.PIDFile), cfg.IPFile)

	// Wire subscriptions BEFORE starting the monitor to avoid missing anything.
	relaySvc.Attach()

	var apiSvc *api.Service
	if cfg.EnableAPI {
		apiSvc = api.NewService(cfg.Host, cfg.Port, cfg.EnableMDNS, monitor)
		apiSvc.Attach()
	}

	super := runtime.NewSupervisor()
	super.Add("relay", relaySvc.Start, relaySvc.Close)
	super.Add("monitor", func(ctx context.Context) error {
		monitor.Start()
		<-ctx.Done()
		monitor.Stop()
		return nil
	}, nil)
	super.Add("watcher", watcher.Start, nil)
	if apiSvc != nil {
		super.Add("api", apiSvc.Start, apiSvc.Close)
	}

	if err := super.Run(ctx); err != nil {
		log.WithError(err).Error("netmond exited with error")
		os.Exit(1)
	}
}

func setLogLevel(level string) {
	switch level {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}
