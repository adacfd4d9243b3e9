package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/service/marketplace"
)

// Reasons reported for an incomplete configuration, in check order.
const (
	ReasonSourceCluster        = "source cluster not selected"
	ReasonDestinationWarehouse = "destination warehouse not selected"
	ReasonWindow               = "time window not set"
	ReasonItems                = "no items added"
	ReasonDestinationCluster   = "destination cluster not selected"
)

// ValidationError lists why a configuration cannot be monitored.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Reasons, "; ")
}

// Validate checks that every field monitoring needs is present. It returns
// a *ValidationError listing all missing fields, or nil.
func Validate(cfg *model.MonitoringConfig) error {
	var reasons []string
	if cfg.SourceCluster == nil {
		reasons = append(reasons, ReasonSourceCluster)
	}
	if cfg.DestinationWarehouse == nil {
		reasons = append(reasons, ReasonDestinationWarehouse)
	}
	if cfg.Window == nil || cfg.Window.Validate() != nil {
		reasons = append(reasons, ReasonWindow)
	}
	if len(cfg.Items) == 0 {
		reasons = append(reasons, ReasonItems)
	}
	if cfg.DestinationCluster == nil {
		reasons = append(reasons, ReasonDestinationCluster)
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// Validate checks the stored configuration without contacting the upstream.
func (e *Engine) Validate(ctx context.Context) error {
	cfg, err := e.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return Validate(cfg)
}

// invalidator is implemented by catalogs that cache reference data.
type invalidator interface {
	Invalidate(ctx context.Context) error
}

type ProductLine struct {
	SKU      int64  `json:"sku" yaml:"sku"`
	Name     string `json:"name" yaml:"name"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// Summary is the resolved, human-readable form of a configuration.
type Summary struct {
	SourceCluster      string        `json:"source_cluster" yaml:"source_cluster"`
	DestinationCluster string        `json:"destination_cluster" yaml:"destination_cluster"`
	Warehouse          string        `json:"warehouse" yaml:"warehouse"`
	Window             string        `json:"window" yaml:"window"`
	Products           []ProductLine `json:"products" yaml:"products"`
}

// ValidateLive resolves every reference of the stored configuration against
// the upstream. Unknown references are reported as a *ValidationError, as
// is an upstream failure. Nothing is written.
func (e *Engine) ValidateLive(ctx context.Context) (*Summary, error) {
	cfg, err := e.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	// Resolve against the current upstream, not a cached copy. A Redis
	// failure during invalidation disables the cache, which has the same effect.
	if inv, ok := e.catalog.(invalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("catalog cache not invalidated")
		}
	}

	var reasons []string
	s := &Summary{Window: cfg.Window.String()}

	src, err := e.catalog.Cluster(ctx, *cfg.SourceCluster)
	switch {
	case errors.Is(err, marketplace.ErrNotFound):
		reasons = append(reasons, fmt.Sprintf("source cluster %d not found", *cfg.SourceCluster))
	case err != nil:
		return nil, upstreamFailure(err)
	default:
		s.SourceCluster = src.Name
	}

	dst, err := e.catalog.Cluster(ctx, *cfg.DestinationCluster)
	switch {
	case errors.Is(err, marketplace.ErrNotFound):
		reasons = append(reasons, fmt.Sprintf("destination cluster %d not found", *cfg.DestinationCluster))
	case err != nil:
		return nil, upstreamFailure(err)
	default:
		s.DestinationCluster = dst.Name
		if w, ok := dst.Warehouse(*cfg.DestinationWarehouse); ok {
			s.Warehouse = w.Name
		} else {
			reasons = append(reasons, fmt.Sprintf("warehouse %d not found in cluster %s", *cfg.DestinationWarehouse, dst.Name))
		}
	}

	products, err := e.catalog.Products(ctx, cfg.SKUs())
	if err != nil && !errors.Is(err, marketplace.ErrNotFound) {
		return nil, upstreamFailure(err)
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.SKU] = p.Name
	}
	for _, it := range cfg.Items {
		name, ok := names[it.SKU]
		if !ok {
			reasons = append(reasons, fmt.Sprintf("sku %d not found", it.SKU))
			continue
		}
		s.Products = append(s.Products, ProductLine{SKU: it.SKU, Name: name, Quantity: it.Quantity})
	}

	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}
	return s, nil
}

func upstreamFailure(err error) error {
	var apiErr *marketplace.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &ValidationError{Reasons: []string{"marketplace: " + apiErr.Message}}
	}
	return &ValidationError{Reasons: []string{"marketplace: " + err.Error()}}
}
