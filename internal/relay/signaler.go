package relay

import (
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Signaler tells the relay process to reload its IP list by sending it
// SIGHUP. The relay writes its pid to a pidfile when it starts; a missing or
// stale pidfile means there is nothing to signal, which is not an error.
type Signaler struct {
	pidFile string
}

// NewSignaler creates a signaler reading the relay pid from pidFile. An empty
// pidFile disables signalling.
func NewSignaler(pidFile string) *Signaler {
	return &Signaler{pidFile: pidFile}
}

// Reload sends SIGHUP to the relay if it is running.
func (s *Signaler) Reload() {
	if s.pidFile == "" {
		return
	}

	data, err := os.ReadFile(s.pidFile)
	if err != nil {
		log.WithError(err).Debug("No relay pidfile; skipping reload signal")
		return
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		log.WithField("pidfile", s.pidFile).Warn("Relay pidfile does not contain a pid")
		return
	}

	if err := unix.Kill(pid, unix.SIGHUP); err != nil {
		log.WithError(err).WithField("pid", pid).Debug("Failed to signal relay")
		return
	}

	log.WithField("pid", pid).Info("Sent HUP to relay to reload IP list")
}
