// Package setup is the only place the monitoring configuration is edited.
// Any edit made while monitoring runs stops the engine first, so a running
// engine never works from settings that changed under it.
package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andres10976/slotwatch/internal/model"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

type ConfigStore interface {
	Get(ctx context.Context) (*model.MonitoringConfig, error)
	Update(ctx context.Context, fn func(*model.MonitoringConfig) error) (*model.MonitoringConfig, error)
}

// Engine is the part of the monitoring engine an edit must coordinate with.
// WithStopped stops monitoring if it runs and keeps Start out until fn returns.
type Engine interface {
	WithStopped(ctx context.Context, fn func(ctx context.Context) error) (bool, error)
}

type Service struct {
	store  ConfigStore
	engine Engine
	logger zerolog.Logger
}

func New(store ConfigStore, engine Engine, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		engine: engine,
		logger: logger.With().Str("component", "setup").Logger(),
	}
}

func (s *Service) Config(ctx context.Context) (*model.MonitoringConfig, error) {
	return s.store.Get(ctx)
}

// SetSourceCluster selects the cluster the draft is calculated for.
func (s *Service) SetSourceCluster(ctx context.Context, clusterID int64) (*model.MonitoringConfig, error) {
	return s.edit(ctx, "source_cluster", func(c *model.MonitoringConfig) error {
		c.SourceCluster = &clusterID
		invalidateDraft(c)
		return nil
	})
}

// SetDestination selects the drop-off point and the cluster it belongs to.
func (s *Service) SetDestination(ctx context.Context, clusterID, warehouseID int64) (*model.MonitoringConfig, error) {
	return s.edit(ctx, "destination", func(c *model.MonitoringConfig) error {
		c.DestinationCluster = &clusterID
		c.DestinationWarehouse = &warehouseID
		invalidateDraft(c)
		return nil
	})
}

func (s *Service) SetWindow(ctx context.Context, w model.Window) (*model.MonitoringConfig, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return s.edit(ctx, "window", func(c *model.MonitoringConfig) error {
		c.Window = &w
		return nil
	})
}

// PutItem queues quantity units of sku. Re-specifying a SKU replaces its
// quantity and moves it to the end of the list.
func (s *Service) PutItem(ctx context.Context, sku int64, quantity int) (*model.MonitoringConfig, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	return s.edit(ctx, "items", func(c *model.MonitoringConfig) error {
		c.PutItem(sku, quantity)
		invalidateDraft(c)
		return nil
	})
}

// RemoveItem drops sku. Removing a SKU that is not queued is not an error.
func (s *Service) RemoveItem(ctx context.Context, sku int64) (*model.MonitoringConfig, error) {
	return s.edit(ctx, "items", func(c *model.MonitoringConfig) error {
		if c.RemoveItem(sku) {
			invalidateDraft(c)
		}
		return nil
	})
}

func (s *Service) edit(ctx context.Context, field string, fn func(*model.MonitoringConfig) error) (*model.MonitoringConfig, error) {
	var (
		cfg       *model.MonitoringConfig
		updateErr error
	)
	stopped, err := s.engine.WithStopped(ctx, func(ctx context.Context) error {
		cfg, updateErr = s.store.Update(ctx, fn)
		return updateErr
	})
	if stopped {
		s.logger.Info().Str("field", field).Msg("configuration changed, monitoring stopped")
	}
	if updateErr != nil {
		return nil, fmt.Errorf("updating %s: %w", field, updateErr)
	}
	if err != nil {
		return nil, fmt.Errorf("stopping monitoring: %w", err)
	}
	return cfg, nil
}

// invalidateDraft forgets a draft calculated from superseded inputs.
func invalidateDraft(c *model.MonitoringConfig) {
	c.DraftID = nil
	c.DraftOperationID = ""
}
