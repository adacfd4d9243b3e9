package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/andres10976/slotwatch/internal/schedule"
	"github.com/andres10976/slotwatch/internal/service/marketplace"
)

// refreshDraft is the draft refresh task. A failed refresh keeps the
// previously stored draft id.
func (e *Engine) refreshDraft(ctx context.Context) {
	err := e.doRefreshDraft(ctx)
	if err != nil && ctx.Err() == nil {
		e.logger.Error().Err(err).Msg("draft refresh failed")
	}
	e.recordTick(taskDraftRefresh, err)
}

func (e *Engine) doRefreshDraft(ctx context.Context) error {
	cfg, err := e.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Active {
		return nil
	}
	if err := Validate(cfg); err != nil {
		e.logger.Warn().Err(err).Msg("skipping draft refresh")
		return nil
	}

	operationID, err := e.upstream.CreateDraft(ctx, marketplace.DraftRequest{
		ClusterIDs:         []int64{*cfg.SourceCluster},
		DropOffWarehouseID: *cfg.DestinationWarehouse,
		Items:              cfg.Items,
	})
	if err != nil {
		var exhausted *marketplace.ExhaustedError
		if errors.As(err, &exhausted) {
			e.metrics.ObserveRateLimitExhausted()
			e.notifier.NotifyRateLimitExhausted(context.WithoutCancel(ctx), exhausted.Message)
		}
		return fmt.Errorf("creating draft: %w", err)
	}

	var info *marketplace.DraftInfo
	err = schedule.PollUntil(ctx, e.clock, e.opts.PollAttempts, e.opts.PollDelay,
		func(ctx context.Context, attempt int) (bool, error) {
			i, err := e.upstream.DraftInfo(ctx, operationID)
			if err != nil {
				return false, err
			}
			info = i
			e.logger.Debug().
				Str("operation_id", operationID).
				Int("attempt", attempt).
				Str("status", string(i.Status)).
				Msg("draft status")
			return i.Status.Final(), nil
		})
	if err != nil {
		return fmt.Errorf("waiting for draft %s: %w", operationID, err)
	}
	if info.Status != marketplace.DraftStatusSuccess || info.DraftID == 0 {
		return fmt.Errorf("draft %s calculation failed: %s", operationID, info.ErrorSummary())
	}

	if err := e.store.SetDraft(ctx, info.DraftID, operationID); err != nil {
		return fmt.Errorf("storing draft id: %w", err)
	}
	e.logger.Info().
		Int64("draft_id", info.DraftID).
		Str("operation_id", operationID).
		Msg("draft refreshed")
	return nil
}
