package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/service/setup"
)

type configEditor interface {
	Config(ctx context.Context) (*model.MonitoringConfig, error)
	SetSourceCluster(ctx context.Context, clusterID int64) (*model.MonitoringConfig, error)
	SetDestination(ctx context.Context, clusterID, warehouseID int64) (*model.MonitoringConfig, error)
	SetWindow(ctx context.Context, w model.Window) (*model.MonitoringConfig, error)
	PutItem(ctx context.Context, sku int64, quantity int) (*model.MonitoringConfig, error)
	RemoveItem(ctx context.Context, sku int64) (*model.MonitoringConfig, error)
}

type ConfigHandler struct {
	setup configEditor
}

func NewConfigHandler(setup configEditor) *ConfigHandler {
	return &ConfigHandler{setup: setup}
}

func (h *ConfigHandler) RegisterRoutes(r chi.Router) {
	r.Get("/config", h.Get)
	r.Put("/config/cluster", h.SetCluster)
	r.Put("/config/destination", h.SetDestination)
	r.Put("/config/window", h.SetWindow)
	r.Put("/config/items/{sku}", h.PutItem)
	r.Delete("/config/items/{sku}", h.RemoveItem)
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.setup.Config(r.Context())
	h.respond(w, r, cfg, err)
}

func (h *ConfigHandler) SetCluster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClusterID int64 `json:"cluster_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClusterID <= 0 {
		writeError(w, http.StatusBadRequest, "cluster_id is required")
		return
	}
	cfg, err := h.setup.SetSourceCluster(r.Context(), req.ClusterID)
	h.respond(w, r, cfg, err)
}

func (h *ConfigHandler) SetDestination(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClusterID   int64 `json:"cluster_id"`
		WarehouseID int64 `json:"warehouse_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClusterID <= 0 || req.WarehouseID <= 0 {
		writeError(w, http.StatusBadRequest, "cluster_id and warehouse_id are required")
		return
	}
	cfg, err := h.setup.SetDestination(r.Context(), req.ClusterID, req.WarehouseID)
	h.respond(w, r, cfg, err)
}

// SetWindow accepts {"window": "09:00-10:00"}.
func (h *ConfigHandler) SetWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Window string `json:"window"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	win, err := model.ParseWindow(req.Window)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := h.setup.SetWindow(r.Context(), win)
	h.respond(w, r, cfg, err)
}

func (h *ConfigHandler) PutItem(w http.ResponseWriter, r *http.Request) {
	sku, ok := skuParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg, err := h.setup.PutItem(r.Context(), sku, req.Quantity)
	h.respond(w, r, cfg, err)
}

func (h *ConfigHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sku, ok := skuParam(w, r)
	if !ok {
		return
	}
	cfg, err := h.setup.RemoveItem(r.Context(), sku)
	h.respond(w, r, cfg, err)
}

func (h *ConfigHandler) respond(w http.ResponseWriter, r *http.Request, cfg *model.MonitoringConfig, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, cfg)
	case errors.Is(err, setup.ErrInvalidQuantity),
		errors.Is(err, model.ErrInvalidWindow),
		errors.Is(err, model.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("config edit")
		writeError(w, http.StatusInternalServerError, "failed to update configuration")
	}
}

func skuParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sku, err := strconv.ParseInt(chi.URLParam(r, "sku"), 10, 64)
	if err != nil || sku <= 0 {
		writeError(w, http.StatusBadRequest, "invalid sku")
		return 0, false
	}
	return sku, true
}
