//go:build linux

package netmon

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// Watcher listens for kernel interface events and pokes the monitor so a
// detection pass runs immediately instead of waiting out the poll interval.
// The poll loop stays the source of truth; the watcher only shortens latency.
type Watcher struct {
	monitor *Monitor
}

// NewWatcher creates a Linux watcher backed by netlink.
func NewWatcher(m *Monitor) *Watcher {
	return &Watcher{monitor: m}
}

// Start subscribes to netlink link and address updates and blocks until ctx
// is cancelled. A subscription failure is returned to the caller; the monitor
// keeps polling without the watcher.
func (w *Watcher) Start(ctx context.Context) error {
	linkCh := make(chan netlink.LinkUpdate)
	linkDone := make(chan struct{})

	addrCh := make(chan netlink.AddrUpdate)
	addrDone := make(chan struct{})

	if err := netlink.LinkSubscribe(linkCh, linkDone); err != nil {
		return err
	}

	if err := netlink.AddrSubscribe(addrCh, addrDone); err != nil {
		close(linkDone)
		return err
	}

	defer close(linkDone)
	defer close(addrDone)

	log.Debug("Netlink interface watcher started")

	for {
		select {
		case <-ctx.Done():
			return nil

		case update := <-linkCh:
			log.WithField("interface", update.Link.Attrs().Name).Trace("Netlink link update")
			w.monitor.Poke()

		case update := <-addrCh:
			log.WithField("address", update.LinkAddress.IP.String()).Trace("Netlink address update")
			w.monitor.Poke()
		}
	}
}
