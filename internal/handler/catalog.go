package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/andres10976/slotwatch/internal/model"
)

type clusterLister interface {
	Clusters(ctx context.Context, ids ...int64) ([]model.Cluster, error)
}

// catalogSource is the uncached side of the marketplace: searches and the
// seller's own product list.
type catalogSource interface {
	SearchDropOffPoints(ctx context.Context, query string) ([]model.DropOffPoint, error)
	ProductList(ctx context.Context) ([]model.Product, error)
}

// CatalogHandler exposes read-only marketplace lookups used while setting up
// the configuration.
type CatalogHandler struct {
	clusters clusterLister
	source   catalogSource
}

func NewCatalogHandler(clusters clusterLister, source catalogSource) *CatalogHandler {
	return &CatalogHandler{clusters: clusters, source: source}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/clusters", h.Clusters)
	r.Get("/dropoff-points", h.DropOffPoints)
	r.Get("/products", h.Products)
}

func (h *CatalogHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.clusters.Clusters(r.Context())
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("list clusters")
		writeUpstreamError(w, err, "failed to list clusters")
		return
	}
	if clusters == nil {
		clusters = []model.Cluster{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

func (h *CatalogHandler) DropOffPoints(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("search"))
	if len([]rune(query)) < 3 {
		writeError(w, http.StatusBadRequest, "search must be at least 3 characters")
		return
	}
	points, err := h.source.SearchDropOffPoints(r.Context(), query)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("search drop-off points")
		writeUpstreamError(w, err, "failed to search drop-off points")
		return
	}
	if points == nil {
		points = []model.DropOffPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

// Products lists the seller's products so SKUs can be picked for the item list.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.source.ProductList(r.Context())
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("list products")
		writeUpstreamError(w, err, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}
