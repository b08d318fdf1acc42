// Package api serves the blink analysis HTTP interface: JSON endpoints for
// stored runs plus HTML chart pages rendered with go-echarts.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/blink.report/internal/db"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const defaultRunLimit = 50

type Server struct {
	db *db.DB
}

func NewServer(database *db.DB) *Server {
	return &Server{db: database}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/", s.runSubresource)
	mux.HandleFunc("/runs/", s.runChart)
	mux.HandleFunc("/", s.indexPage)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		log.Printf("failed to encode error response: %v", err)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := defaultRunLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.db.ListRuns(r.Context(), limit)
	if err != nil {
		log.Printf("failed to list runs: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	s.writeJSON(w, runs)
}

// runSubresource dispatches /api/runs/{id}, /api/runs/{id}/events and
// /api/runs/{id}/samples.
func (s *Server) runSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	runID := parts[0]
	if runID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing run ID")
		return
	}

	switch {
	case len(parts) == 1:
		s.showRun(w, r, runID)
	case len(parts) == 2 && parts[1] == "events":
		s.listRunEvents(w, r, runID)
	case len(parts) == 2 && parts[1] == "samples":
		s.listRunSamples(w, r, runID)
	default:
		s.writeJSONError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, db.ErrRunNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Run not found")
			return
		}
		log.Printf("failed to load run %s: %v", runID, err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to load run")
		return
	}
	s.writeJSON(w, run)
}

func (s *Server) listRunEvents(w http.ResponseWriter, r *http.Request, runID string) {
	events, err := s.db.RunEvents(r.Context(), runID)
	if err != nil {
		log.Printf("failed to load events for run %s: %v", runID, err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}
	s.writeJSON(w, events)
}

func (s *Server) listRunSamples(w http.ResponseWriter, r *http.Request, runID string) {
	samples, err := s.db.RunSamples(r.Context(), runID)
	if err != nil {
		log.Printf("failed to load samples for run %s: %v", runID, err)
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	s.writeJSON(w, samples)
}
