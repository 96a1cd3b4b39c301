// Package api exposes the read-only query surface consumed by the web
// front end.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"calstore/internal/store"
)

// Server handles HTTP requests for the calendar query API
type Server struct {
	store  *store.Store
	addr   string
	logger *zap.Logger
}

// New creates a new API server
func New(s *store.Store, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: s, addr: addr, logger: logger}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /events", s.listEvents)
	mux.HandleFunc("GET /ignored/series", s.listIgnoredSeries)
	mux.HandleFunc("GET /ignored/events", s.listIgnoredOccurrences)
	mux.HandleFunc("GET /health", s.health)

	s.logger.Info("starting server", zap.String("addr", s.addr))
	return http.ListenAndServe(s.addr, withCORS(mux))
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	daysAhead, err := windowParam(r, "days_ahead", 30)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	daysBack, err := windowParam(r, "days_back", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.store.QueryEvents(daysBack, daysAhead, r.URL.Query().Get("source"))
	if err != nil {
		s.logger.Error("query events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) listIgnoredSeries(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListIgnoredSeries()
	if err != nil {
		s.logger.Error("list ignored series", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) listIgnoredOccurrences(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListIgnoredOccurrences()
	if err != nil {
		s.logger.Error("list ignored occurrences", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// windowParam reads a day-count query parameter, enforcing the
// 0..365 contract shared with the CLI before any storage access.
func windowParam(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, InvalidParamError{Name: name, Value: raw}
	}
	if n < 0 || n > 365 {
		return 0, InvalidParamError{Name: name, Value: raw}
	}
	return n, nil
}

// InvalidParamError reports a query parameter outside its contract.
type InvalidParamError struct {
	Name  string
	Value string
}

func (e InvalidParamError) Error() string {
	return e.Name + " must be an integer between 0 and 365, got " + strconv.Quote(e.Value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
