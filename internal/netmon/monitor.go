package netmon

import (
	"bufio"
	"os"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultPollInterval is how long the monitor sleeps between enumeration
// passes unless configured otherwise.
const DefaultPollInterval = 5 * time.Second

// Monitor tracks which network interfaces are usable for outbound traffic and
// notifies subscribers exactly when that set changes. The host constructs one
// Monitor and hands it to every component that needs it.
type Monitor struct {
	pollInterval time.Duration
	enumerate    enumerateFunc
	wakeCh       chan struct{}

	mu         sync.Mutex
	interfaces []NetworkInterface
	callbacks  []ChangeCallback
	running    bool
	stopCh     chan struct{}
}

// NewMonitor creates a stopped monitor polling at the given interval.
// A non-positive interval selects DefaultPollInterval.
func NewMonitor(pollInterval time.Duration) *Monitor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Monitor{
		pollInterval: pollInterval,
		enumerate:    enumerateInterfaces,
		wakeCh:       make(chan struct{}, 1),
	}
}

// Start launches the background poll loop. The loop outlives the call; the
// caller never joins it. Calling Start on a running monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	go m.pollLoop(m.stopCh)
	log.WithField("interval", m.pollInterval).Info("Network interface monitoring started")
}

// Stop flags the poll loop to exit. It does not wait for an in-flight
// iteration to finish. Calling Stop on a stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
	log.Info("Network interface monitoring stopped")
}

// Subscribe registers a callback invoked with the new snapshot on every
// detected change. Callbacks run synchronously on the poll loop, in
// registration order. Subscriptions live for the monitor's lifetime; there is
// no unsubscribe.
func (m *Monitor) Subscribe(cb ChangeCallback) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, cb)
	m.mu.Unlock()
}

// Snapshot returns the most recently stored detection result, or an empty
// slice if no detection has stored one yet.
func (m *Monitor) Snapshot() []NetworkInterface {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NetworkInterface, len(m.interfaces))
	copy(out, m.interfaces)
	return out
}

// DetectInterfaces performs one enumeration pass right now. It does not touch
// the stored snapshot and does not fire callbacks. An enumeration error
// yields an empty result; a transient failure must never kill monitoring.
func (m *Monitor) DetectInterfaces() []NetworkInterface {
	interfaces, err := m.enumerate()
	if err != nil {
		log.WithError(err).Warn("Failed to enumerate network interfaces")
		return []NetworkInterface{}
	}
	return interfaces
}

// SaveIPList forces a fresh detection, stores it as the current snapshot, and
// writes the relevant addresses to path, one per line. An empty relevant set
// is not an error: the file is truncated and left empty, and the relay falls
// back to binding all interfaces. Fails only if the file cannot be written.
func (m *Monitor) SaveIPList(path string) error {
	current := m.DetectInterfaces()

	m.mu.Lock()
	m.interfaces = current
	m.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ips := RelevantIPs(current)
	if len(ips) == 0 {
		log.Info("No usable network interfaces found; leaving IP list empty")
		return nil
	}

	w := bufio.NewWriter(f)
	for _, ip := range ips {
		w.WriteString(ip)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"addresses": ips,
		"path":      path,
	}).Info("Wrote IP list")
	return nil
}

// Poke asks the poll loop to run its next iteration immediately instead of
// waiting out the poll interval. Safe to call whether or not the monitor is
// running. The platform watcher uses this to turn kernel events into prompt
// detections.
func (m *Monitor) Poke() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}

func (m *Monitor) pollLoop(stop <-chan struct{}) {
	var previous []string
	for {
		previous = m.pollOnce(previous)

		timer := time.NewTimer(m.pollInterval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-m.wakeCh:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// pollOnce runs one detection pass and fires callbacks if the relevant
// address set differs from previous. Returns the new relevant set, sorted.
func (m *Monitor) pollOnce(previous []string) []string {
	current := m.DetectInterfaces()
	relevant := RelevantIPs(current)
	sort.Strings(relevant)

	if !addressSetChanged(previous, relevant) {
		return relevant
	}

	m.mu.Lock()
	m.interfaces = current
	callbacks := make([]ChangeCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	log.WithField("addresses", relevant).Info("Usable network address set changed")

	// Callbacks run outside the lock so they may call back into the monitor.
	for _, cb := range callbacks {
		cb(current)
	}
	return relevant
}

// addressSetChanged reports whether two sorted relevant-address sets differ
// in membership. Interface reordering with the same addresses is not a
// change.
func addressSetChanged(previous, current []string) bool {
	if len(previous) != len(current) {
		return true
	}
	for i := range previous {
		if previous[i] != current[i] {
			return true
		}
	}
	return false
}
