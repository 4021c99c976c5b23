// Package httpapi serves the read API over harvested records.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/you/fanharvest/internal/core"
)

// Store is the slice of the local sink the API reads from.
type Store interface {
	CountMessages(ctx context.Context, accountID string) (int64, error)
	ListMessages(ctx context.Context, accountID string, limit int) ([]core.Message, error)
	ListPayments(ctx context.Context, accountID string, limit int) ([]core.Payment, error)
}

type Server struct {
	httpServer *http.Server
	store      Store
	metrics    *Metrics
	limiters   *limiterPool
	accessLog  bool
}

type Options struct {
	Addr      string
	RateRPS   int
	RateBurst int
	AccessLog bool
	// ExtraGatherers are additional metric registries to expose on /metrics.
	ExtraGatherers []prometheus.Gatherer
}

func New(store Store, opts Options) *Server {
	srv := &Server{
		store:     store,
		metrics:   newMetrics(),
		limiters:  newLimiterPool(opts.RateRPS, opts.RateBurst),
		accessLog: opts.AccessLog,
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", srv.instrument("healthz", http.HandlerFunc(srv.handleHealthz)))
	mux.Handle("/count", srv.instrument("count", http.HandlerFunc(srv.handleCount)))
	mux.Handle("/messages", srv.instrument("messages", http.HandlerFunc(srv.handleMessages)))
	mux.Handle("/payments", srv.instrument("payments", http.HandlerFunc(srv.handlePayments)))
	mux.Handle("/metrics", srv.metrics.Handler(opts.ExtraGatherers...))

	srv.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return srv
}

// ListenAndServe blocks serving the API.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountMessages(r.Context(), r.URL.Query().Get("account"))
	if err != nil {
		http.Error(w, "count error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"count": count})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	filters, err := ParseFilters(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := s.store.ListMessages(r.Context(), filters.AccountID, filters.Limit)
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []core.Message{}
	}
	writeJSON(w, rows)
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	filters, err := ParseFilters(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := s.store.ListPayments(r.Context(), filters.AccountID, filters.Limit)
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []core.Payment{}
	}
	writeJSON(w, rows)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
