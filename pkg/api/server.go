package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rgeorge2/hank/pkg/deploy"
	"github.com/rgeorge2/hank/pkg/log"
	"github.com/rgeorge2/hank/pkg/metrics"
	"github.com/rgeorge2/hank/pkg/storage"
	"github.com/rgeorge2/hank/pkg/types"
)

// RingGroupLister lists the ring groups the coordinator knows about
type RingGroupLister interface {
	ListRingGroups() ([]*types.RingGroup, error)
}

// StatusReporter reports a ring group's convergence
type StatusReporter interface {
	Status(ringGroup string) (*deploy.Status, error)
}

// Server serves health, readiness, metrics and ring group status over HTTP
type Server struct {
	ringGroups RingGroupLister
	status     StatusReporter
	mux        *http.ServeMux

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a new API server. Either source may be nil; the server then
// reports itself not ready.
func NewServer(ringGroups RingGroupLister, status StatusReporter) *Server {
	mux := http.NewServeMux()
	s := &Server{
		ringGroups: ringGroups,
		status:     status,
		mux:        mux,
	}

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/ready", s.readyHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/status/{ringGroup}", s.ringGroupStatusHandler)

	return s
}

// Handler returns the HTTP handler for embedding in other servers
func (s *Server) Handler() http.Handler {
	return Instrument(ReadOnly(s.mux))
}

// Start serves on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	server := s.server
	s.mu.Unlock()

	metrics.UpdateComponent(metrics.ComponentAPI, true, "")
	log.Logger.Info().Str("addr", addr).Msg("API server listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
		return err
	}
	return nil
}

// Shutdown gracefully stops a started server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// StatusResponse lists the status of every ring group
type StatusResponse struct {
	RingGroups []*deploy.Status `json:"ring_groups"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// healthHandler is a liveness check: 200 while no component reports unhealthy
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := metrics.GetHealth()

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{
		Status:    health.Status,
		Timestamp: health.Timestamp,
		Version:   health.Version,
		Uptime:    health.Uptime,
	})
}

// readyHandler reports ready once the store answers and every critical
// component is up
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness := metrics.GetReadiness()

	checks := make(map[string]string, len(readiness.Components)+1)
	for name, state := range readiness.Components {
		checks[name] = state
	}
	ready := readiness.Status == "ready"
	message := readiness.Message

	if s.ringGroups == nil {
		checks["store"] = "not initialized"
		ready = false
		message = "store not initialized"
	} else if _, err := s.ringGroups.ListRingGroups(); err != nil {
		checks["store"] = "error: " + err.Error()
		ready = false
		message = "store not accessible"
	} else {
		checks["store"] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if s.ringGroups == nil || s.status == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store not initialized"})
		return
	}

	groups, err := s.ringGroups.ListRingGroups()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	resp := StatusResponse{RingGroups: make([]*deploy.Status, 0, len(groups))}
	for _, rg := range groups {
		st, err := s.status.Status(rg.Name)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		resp.RingGroups = append(resp.RingGroups, st)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) ringGroupStatusHandler(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store not initialized"})
		return
	}

	st, err := s.status.Status(r.PathValue("ringGroup"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
