package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/repository"
)

type favoriteStore interface {
	List(ctx context.Context) ([]model.FavoriteWarehouse, error)
	Add(ctx context.Context, id int64, name string) (*model.FavoriteWarehouse, error)
	Remove(ctx context.Context, id int64) error
}

type FavoritesHandler struct {
	repo favoriteStore
}

func NewFavoritesHandler(repo favoriteStore) *FavoritesHandler {
	return &FavoritesHandler{repo: repo}
}

func (h *FavoritesHandler) RegisterRoutes(r chi.Router) {
	r.Get("/favorites", h.List)
	r.Post("/favorites", h.Add)
	r.Delete("/favorites/{id}", h.Remove)
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list favorites")
		return
	}
	if favorites == nil {
		favorites = []model.FavoriteWarehouse{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favorites})
}

func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if req.ID <= 0 || name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	fav, err := h.repo.Add(r.Context(), req.ID, name)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusConflict, "warehouse is already a favorite")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to add favorite")
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid warehouse id")
		return
	}

	if err := h.repo.Remove(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "favorite not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to remove favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
