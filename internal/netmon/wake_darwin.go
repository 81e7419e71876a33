//go:build darwin

package netmon

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Routing message types that indicate an interface or address change.
const (
	rtmNewAddr = 0x0c // RTM_NEWADDR
	rtmDelAddr = 0x0d // RTM_DELADDR
	rtmIfInfo  = 0x0e // RTM_IFINFO
)

// Watcher listens on an AF_ROUTE socket for interface events and pokes the
// monitor so a detection pass runs immediately instead of waiting out the
// poll interval.
type Watcher struct {
	monitor *Monitor
}

// NewWatcher creates a macOS watcher backed by a raw route socket.
func NewWatcher(m *Monitor) *Watcher {
	return &Watcher{monitor: m}
}

// Start reads routing messages until ctx is cancelled. Read errors after
// cancellation are expected (the socket is closed from under the read).
func (w *Watcher) Start(ctx context.Context) error {
	fd, err := unix.Socket(unix.AF_ROUTE, unix.SOCK_RAW, unix.AF_UNSPEC)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		unix.Close(fd)
	}()

	log.Debug("Route socket interface watcher started")

	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(fd, buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.WithError(err).Warn("Error reading from route socket")
				continue
			}
		}
		if n < 4 {
			continue
		}

		// Message type lives at offset 3 of the rt_msghdr.
		switch buf[3] {
		case rtmNewAddr, rtmDelAddr, rtmIfInfo:
			w.monitor.Poke()
		}
	}
}
