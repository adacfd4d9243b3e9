package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/schedule"
	"github.com/andres10976/slotwatch/internal/service/marketplace"
	"github.com/andres10976/slotwatch/internal/service/matcher"
)

// probeSlots is the slot probe task.
func (e *Engine) probeSlots(ctx context.Context) {
	err := e.doProbeSlots(ctx)
	if err != nil && ctx.Err() == nil {
		e.logger.Error().Err(err).Msg("slot probe failed")
	}
	e.recordTick(taskSlotProbe, err)
}

func (e *Engine) doProbeSlots(ctx context.Context) error {
	cfg, err := e.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Active || cfg.DraftID == nil || cfg.Window == nil ||
		cfg.DestinationCluster == nil || cfg.DestinationWarehouse == nil {
		e.logger.Debug().Msg("probe skipped, no draft yet or incomplete config")
		return nil
	}
	draftID, window := *cfg.DraftID, *cfg.Window

	warehouses, err := e.catalog.FulfillmentWarehouses(ctx, *cfg.DestinationCluster)
	if err != nil {
		return fmt.Errorf("listing candidates: %w", err)
	}
	from, to := e.probeRange(window)

	var (
		match    model.Match
		failures int
	)
	hit, err := schedule.Scan(ctx, e.clock, warehouses, e.opts.CandidateGap,
		func(ctx context.Context, warehouseID int64) bool {
			candidates, err := e.upstream.Timeslots(ctx, marketplace.TimeslotQuery{
				DraftID:      draftID,
				WarehouseIDs: []int64{warehouseID},
				From:         from,
				To:           to,
			})
			if err != nil {
				failures++
				if ctx.Err() == nil {
					e.logger.Warn().Err(err).Int64("warehouse_id", warehouseID).Msg("timeslot query failed")
				}
				return false
			}
			m, ok := matcher.Match(window, candidates)
			if ok {
				match = m
			}
			return ok
		})
	if err != nil {
		return err
	}
	if hit < 0 {
		e.logger.Debug().
			Int("candidates", len(warehouses)).
			Int("failures", failures).
			Str("window", window.String()).
			Msg("no matching slot")
		return nil
	}

	e.logger.Info().
		Int64("warehouse_id", match.WarehouseID).
		Str("date", match.Date).
		Str("from", match.Interval.From).
		Str("to", match.Interval.To).
		Msg("matching slot found")
	return e.commit(ctx, draftID, match)
}

// commit books the matched slot. Once the request is sent it is not
// cancelled by Stop.
func (e *Engine) commit(ctx context.Context, draftID int64, m model.Match) error {
	if ctx.Err() != nil {
		return nil
	}
	cfg, err := e.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("re-checking config: %w", err)
	}
	if !cfg.Active {
		e.logger.Info().Msg("monitoring stopped before supply creation")
		return nil
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.SupplyTimeout)
	defer cancel()

	operationID, err := e.upstream.CreateSupply(sctx, marketplace.SupplyRequest{
		DraftID:     draftID,
		WarehouseID: m.WarehouseID,
		Interval:    m.Interval,
	})
	if err != nil {
		err = fmt.Errorf("creating supply: %w", err)
		e.notifier.NotifyError(sctx, "slot "+m.Interval.From+" matched but the supply was not created", err)
		return err
	}

	e.metrics.ObserveSupplyCreated()
	e.logger.Info().
		Str("operation_id", operationID).
		Int64("draft_id", draftID).
		Int64("warehouse_id", m.WarehouseID).
		Msg("supply created")

	e.stopFromTick(sctx)
	e.notifier.NotifySuccess(sctx, operationID, draftID, m.Interval)
	return nil
}

// probeRange is [today at window start, today+horizon at window end) in
// the configured location.
func (e *Engine) probeRange(w model.Window) (time.Time, time.Time) {
	now := e.clock.Now().In(e.opts.Location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.opts.Location)
	from := midnight.Add(time.Duration(w.Start) * time.Minute)
	to := midnight.AddDate(0, 0, e.opts.HorizonDays).Add(time.Duration(w.End) * time.Minute)
	return from, to
}
