package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage"
)

// Checker reports connectivity of a backing service.
type Checker interface {
	Health(ctx context.Context) error
}

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	ledger   storage.LedgerRepository
	checkers map[string]Checker
	server   *http.Server
}

// NewServer creates a new health server.
func NewServer(ledger storage.LedgerRepository, checkers map[string]Checker, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		ledger:   ledger,
		checkers: checkers,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ledger", s.handleLedger)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	details := make(map[string]string)

	for name, checker := range s.checkers {
		if err := checker.Health(r.Context()); err != nil {
			status = "critical"
			details[name] = err.Error()
		} else {
			details[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "critical" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":   status,
		"services": details,
	})
}

// handleLedger reports outstanding failures partitioned by cause so an
// operator can choose between automatic retry and manual repair.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	retryable, dataErrors := domain.PartitionByCause(snapshot)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"outstanding": len(snapshot),
		"retryable":   retryable,
		"data_errors": dataErrors,
	})
}
