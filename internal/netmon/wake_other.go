//go:build !linux && !darwin

package netmon

import "context"

// Watcher is a no-op on platforms without a kernel event source; the poll
// interval alone bounds detection latency there.
type Watcher struct {
	monitor *Monitor
}

func NewWatcher(m *Monitor) *Watcher {
	return &Watcher{monitor: m}
}

func (w *Watcher) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
