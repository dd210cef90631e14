package server

import (
	"encoding/json"
	"net/http"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
	"github.com/zeusync/methodwatch/internal/core/observability/metrics"
	"github.com/zeusync/methodwatch/internal/core/stats"
	"github.com/zeusync/methodwatch/internal/server/middlewares"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/statistics", s.handleAll)
	mux.HandleFunc("DELETE /api/statistics", s.handleClear)
	mux.Handle("GET /api/statistics/stream", s.hub)
	mux.HandleFunc("GET /api/statistics/{key...}", s.handleOne)
	mux.HandleFunc("GET /api/server", s.handleServerStats)

	if s.metrics != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(s.metrics))
	}
	if s.config.DemoRoutes {
		s.mountDemo(mux)
	}

	return middlewares.Logging(s.logger)(mux)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) registry() (*stats.Registry, error) {
	reg := s.watcher.Registry()
	if reg == nil || !reg.Enabled() {
		return nil, stats.ErrStatisticsDisabled
	}
	return reg, nil
}

func (s *Server) handleAll(w http.ResponseWriter, _ *http.Request) {
	reg, err := s.registry()
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reg.All())
}

func (s *Server) handleOne(w http.ResponseWriter, r *http.Request) {
	reg, err := s.registry()
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	snap, ok := reg.Get(r.PathValue("key"))
	if !ok {
		s.writeError(w, http.StatusNotFound, stats.ErrKeyNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	reg, err := s.registry()
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	reg.Clear()
	s.logger.Info("Statistics cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleServerStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.GetStats())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", log.Error(err))
	}
}

func (s *Server) writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Warn("Failed to write response", log.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
