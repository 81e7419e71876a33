package relay

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/strmtools/netmond/internal/netmon"
)

// ipSource is the slice of the interface monitor this service needs.
type ipSource interface {
	Subscribe(netmon.ChangeCallback)
	SaveIPList(path string) error
}

// Service keeps the relay's IP list file in sync with the interface monitor
// and signals the relay whenever the usable address set changes.
type Service struct {
	monitor  ipSource
	signaler *Signaler
	ipFile   string
}

func NewService(monitor ipSource, signaler *Signaler, ipFile string) *Service {
	return &Service{
		monitor:  monitor,
		signaler: signaler,
		ipFile:   ipFile,
	}
}

// Attach subscribes to the monitor. Call before the monitor starts so no
// change is missed.
func (s *Service) Attach() {
	s.monitor.Subscribe(s.onChange)
}

// Start writes the initial IP list from a fresh detection, so a relay
// launched right after startup never sees a stale list, then blocks until ctx
// is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if dir := filepath.Dir(s.ipFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if err := s.monitor.SaveIPList(s.ipFile); err != nil {
		return err
	}

	log.WithField("path", s.ipFile).Info("Relay IP list service started")
	<-ctx.Done()
	return nil
}

// Close is a no-op; the monitor subscription lives for the monitor's
// lifetime.
func (s *Service) Close() error {
	return nil
}

// onChange runs on the monitor's poll loop for every detected change. The IP
// list is rewritten from a fresh detection and the relay is told to re-read
// it.
func (s *Service) onChange(interfaces []netmon.NetworkInterface) {
	log.WithField("addresses", netmon.RelevantIPs(interfaces)).Info("Refreshing relay IP list")

	if err := s.monitor.SaveIPList(s.ipFile); err != nil {
		log.WithError(err).WithField("path", s.ipFile).Error("Failed to rewrite relay IP list")
		return
	}
	s.signaler.Reload()
}
