// Package server exposes the store's read contracts as a JSON API for
// the dashboard.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/database"
)

// Server is the HTTP server for the dashboard read contracts.
type Server struct {
	db  *database.DB
	mux *http.ServeMux
	now func() time.Time
}

// New creates a new Server.
func New(db *database.DB) *Server {
	s := &Server{db: db, mux: http.NewServeMux(), now: time.Now}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/records/recent", s.handleRecentRecords)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/stats/hourly", s.handleHourlyCounts)
	s.mux.HandleFunc("/api/topics/summary", s.handleTopicSummary)
	s.mux.HandleFunc("/api/sources", s.handleSourceStats)
	s.mux.HandleFunc("/api/signals", s.handleSignals)
	s.mux.HandleFunc("/api/insights/active", s.handleActiveInsights)
	s.mux.HandleFunc("/api/batches", s.handleBatches)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) handleRecentRecords(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 500)
	records, err := s.db.GetRecentRecords(limit)
	if err != nil {
		s.fail(w, "recent records", err)
		return
	}
	writeJSON(w, map[string]any{"records": records})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		s.fail(w, "stats", err)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleHourlyCounts(w http.ResponseWriter, r *http.Request) {
	since := s.now().Add(-time.Duration(queryInt(r, "hours", 24, 24*7)) * time.Hour)
	counts, err := s.db.GetHourlyCounts(since)
	if err != nil {
		s.fail(w, "hourly counts", err)
		return
	}
	writeJSON(w, map[string]any{"hours": counts})
}

func (s *Server) handleTopicSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.db.GetTopicSummary(s.now().Add(-24 * time.Hour))
	if err != nil {
		s.fail(w, "topic summary", err)
		return
	}
	writeJSON(w, map[string]any{"topics": summary})
}

func (s *Server) handleSourceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetSourceStats()
	if err != nil {
		s.fail(w, "source stats", err)
		return
	}
	writeJSON(w, map[string]any{"sources": stats})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	since := s.now().Add(-time.Duration(queryInt(r, "hours", 24, 24*30)) * time.Hour)
	signals, err := s.db.GetSignalsSince(since)
	if err != nil {
		s.fail(w, "signals", err)
		return
	}
	writeJSON(w, map[string]any{"signals": signals})
}

func (s *Server) handleActiveInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.db.GetActiveInsights(s.now())
	if err != nil {
		s.fail(w, "active insights", err)
		return
	}
	writeJSON(w, map[string]any{"insights": insights})
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.db.GetRecentBatches(queryInt(r, "limit", 20, 200))
	if err != nil {
		s.fail(w, "batches", err)
		return
	}
	writeJSON(w, map[string]any{"batches": batches})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok"})
}

func (s *Server) fail(w http.ResponseWriter, what string, err error) {
	log.Printf("server: %s: %v", what, err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func queryInt(r *http.Request, key string, fallback, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, port int) error {
	srv := New(db)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
