package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmdmdm-nz/zeroconf"
	log "github.com/sirupsen/logrus"

	"github.com/strmtools/netmond/internal/netmon"
	"github.com/strmtools/netmond/internal/runtime"
)

// Monitor is the slice of the interface monitor the API serves.
type Monitor interface {
	Snapshot() []netmon.NetworkInterface
	DetectInterfaces() []netmon.NetworkInterface
	Subscribe(netmon.ChangeCallback)
}

// Service serves the observation API: current snapshot, relevant addresses,
// on-demand detection, and a websocket stream of change events.
type Service struct {
	host string
	port int
	mdns bool

	monitor Monitor
	events  *runtime.Broadcaster[ChangeEvent]
}

func NewService(host string, port int, mdns bool, monitor Monitor) *Service {
	return &Service{
		host:    host,
		port:    port,
		mdns:    mdns,
		monitor: monitor,
		events:  runtime.NewBroadcaster[ChangeEvent](),
	}
}

// Attach subscribes to the monitor so change events reach websocket clients.
// Call before the monitor starts. The publish happens inside the monitor
// callback, so clients see notifications in detection order.
func (s *Service) Attach() {
	s.monitor.Subscribe(func(interfaces []netmon.NetworkInterface) {
		s.events.Publish(ChangeEvent{
			Addresses:  netmon.RelevantIPs(interfaces),
			Interfaces: interfaces,
			DetectedAt: time.Now().UTC(),
		})
	})
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.routes(),
	}

	if s.mdns {
		mdnsServer, err := zeroconf.Register("netmond", "_netmond._tcp", "local.", s.port, []string{"txtvers=1"}, nil)
		if err != nil {
			log.WithError(err).Warn("Failed to register mDNS service")
		} else {
			defer mdnsServer.Shutdown()
			log.Info("Registered _netmond._tcp over mDNS")
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.Infof("Netmond API listening on %s", srv.Addr)
	defer log.Info("Stopping netmond API")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// Close terminates the websocket event stream for every connected client.
func (s *Service) Close() error {
	return s.events.Close()
}

func (s *Service) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/interfaces", s.handleInterfaces)
	mux.HandleFunc("/ips", s.handleIPs)
	mux.HandleFunc("/detect", s.handleDetect)
	mux.HandleFunc("/ws/events", s.handleEvents)
	return mux
}

// handleInterfaces returns the most recently stored snapshot.
func (s *Service) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.monitor.Snapshot())
}

// handleIPs returns the relevant addresses of the stored snapshot; this is
// what the relay's IP list file contains.
func (s *Service) handleIPs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, netmon.RelevantIPs(s.monitor.Snapshot()))
}

// handleDetect performs an on-demand enumeration pass, bypassing the stored
// snapshot. Hosts call this before launching a relay to guarantee freshness.
func (s *Service) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.monitor.DetectInterfaces())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
