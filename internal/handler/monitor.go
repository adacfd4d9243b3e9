package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/andres10976/slotwatch/internal/service/monitor"
)

type monitorEngine interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (*monitor.Status, error)
	ValidateLive(ctx context.Context) (*monitor.Summary, error)
}

type MonitorHandler struct {
	engine monitorEngine
}

func NewMonitorHandler(engine monitorEngine) *MonitorHandler {
	return &MonitorHandler{engine: engine}
}

func (h *MonitorHandler) RegisterRoutes(r chi.Router) {
	r.Get("/monitor/status", h.Status)
	r.Post("/monitor/start", h.Start)
	r.Post("/monitor/stop", h.Stop)
	r.Get("/monitor/validate", h.Validate)
}

func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Status(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("monitor status")
		writeError(w, http.StatusInternalServerError, "failed to get monitor status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	err := h.engine.Start(r.Context())
	var verr *monitor.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Monitoring started"})
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, monitor.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "monitoring is already running")
	case errors.Is(err, monitor.ErrStoppedDuringStart):
		writeError(w, http.StatusConflict, "monitoring was stopped while starting")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("monitor start")
		writeError(w, http.StatusInternalServerError, "failed to start monitoring")
	}
}

// Stop is idempotent; stopping an idle engine still reports success.
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Stop(r.Context()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("monitor stop")
		writeError(w, http.StatusInternalServerError, "failed to stop monitoring")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Monitoring stopped"})
}

func (h *MonitorHandler) Validate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.ValidateLive(r.Context())
	var verr *monitor.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, summary)
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("monitor validate")
		writeError(w, http.StatusInternalServerError, "failed to validate configuration")
	}
}
