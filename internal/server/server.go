// Package server exposes the tuner's ask/tell protocol and session management
// over HTTP for the lab control layer.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/config"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/controller"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
)

// Server bridges HTTP requests to the two-phase controller. The controller
// serializes its own state; the server is stateless beyond metrics.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	ctrl    *controller.Controller
	metrics *metrics
}

// NewServer creates a server around an existing controller.
func NewServer(cfg *config.Config, ctrl *controller.Controller, reg prometheus.Registerer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		ctrl:    ctrl,
		metrics: newMetrics(reg),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/phase/start", s.handlePhaseStart)
		r.Post("/ask", s.handleAsk)
		r.Post("/tell", s.handleTell)
		r.Get("/status", s.handleStatus)
		r.Get("/pareto", s.handlePareto)
		r.Post("/state/save", s.handleStateSave)
		r.Post("/state/load", s.handleStateLoad)
	})
}

// handlePhaseStart starts (or restarts) a pipeline phase.
func (s *Server) handlePhaseStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase string `json:"phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ctrl.StartPhase(controller.Phase(req.Phase)); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"phase": req.Phase})
}

// handleAsk returns the next candidate parameter set.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	params, meta, err := s.ctrl.Ask()
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"params": params,
		"meta":   meta,
	})
}

// handleTell reports the measurement record for the outstanding candidate.
func (s *Server) handleTell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Measurements optimization.Measurements `json:"measurements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	phase := string(s.ctrl.Phase())
	if err := s.ctrl.Tell(req.Measurements); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.metrics.iterations.WithLabelValues(phase).Inc()

	st := s.ctrl.GetStatus()
	if st.TrustRegionLength != nil {
		s.metrics.trustRegionLength.Set(*st.TrustRegionLength)
	}
	if st.BestValue != nil {
		s.metrics.bestCost.Set(*st.BestValue)
	}
	if st.ParetoSize != nil {
		s.metrics.paretoSize.Set(float64(*st.ParetoSize))
	}

	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.ctrl.GetStatus())
}

func (s *Server) handlePareto(w http.ResponseWriter, r *http.Request) {
	points := s.ctrl.ParetoFront()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"size":   len(points),
		"points": points,
	})
}

func (s *Server) handleStateSave(w http.ResponseWriter, r *http.Request) {
	path := s.statePath(r)
	if err := s.ctrl.SaveState(path); err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleStateLoad(w http.ResponseWriter, r *http.Request) {
	path := s.statePath(r)
	if err := s.ctrl.LoadState(path); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.ctrl.GetStatus())
}

// statePath resolves the target file: an explicit ?path= wins, otherwise the
// configured default.
func (s *Server) statePath(r *http.Request) string {
	if p := r.URL.Query().Get("path"); p != "" {
		return p
	}
	return s.cfg.State.Path
}

// statusFor maps protocol violations to 409 and everything else to 400.
func statusFor(err error) int {
	if errors.Is(err, optimization.ErrSuggestPending) || errors.Is(err, optimization.ErrNoPendingSuggest) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}
