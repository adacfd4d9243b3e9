// Package monitor implements the monitoring engine: it keeps a fresh supply
// draft, probes the delivery points of the destination cluster for a slot
// equal to the configured window, and books the first one it finds.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/schedule"
	"github.com/andres10976/slotwatch/internal/service/marketplace"
)

var (
	ErrAlreadyRunning     = errors.New("monitoring already running")
	ErrStoppedDuringStart = errors.New("monitoring stopped before it finished starting")
)

const (
	taskDraftRefresh = "draft_refresh"
	taskSlotProbe    = "slot_probe"
)

// Upstream is the part of the marketplace API the engine drives.
type Upstream interface {
	CreateDraft(ctx context.Context, req marketplace.DraftRequest) (string, error)
	DraftInfo(ctx context.Context, operationID string) (*marketplace.DraftInfo, error)
	Timeslots(ctx context.Context, q marketplace.TimeslotQuery) ([]model.Candidate, error)
	CreateSupply(ctx context.Context, req marketplace.SupplyRequest) (string, error)
}

// Catalog resolves reference data. Implementations may cache.
type Catalog interface {
	Cluster(ctx context.Context, id int64) (*model.Cluster, error)
	FulfillmentWarehouses(ctx context.Context, clusterID int64) ([]int64, error)
	Products(ctx context.Context, skus []int64) ([]model.Product, error)
}

type ConfigStore interface {
	Get(ctx context.Context) (*model.MonitoringConfig, error)
	SetActive(ctx context.Context, active bool) error
	SetDraft(ctx context.Context, draftID int64, operationID string) error
}

type Notifier interface {
	NotifySuccess(ctx context.Context, operationID string, draftID int64, iv model.Interval)
	NotifyRateLimitExhausted(ctx context.Context, message string)
	NotifyError(ctx context.Context, what string, err error)
}

type Metrics interface {
	ObserveTick(task string, err error)
	ObserveRateLimitExhausted()
	ObserveSupplyCreated()
	SetActive(active bool)
}

type Options struct {
	DraftPeriod   time.Duration
	ProbePeriod   time.Duration
	PollAttempts  int
	PollDelay     time.Duration
	CandidateGap  time.Duration
	HorizonDays   int
	SupplyTimeout time.Duration
	// Location is the timezone the daily window is anchored in.
	Location *time.Location
}

func DefaultOptions() Options {
	return Options{
		DraftPeriod:   25 * time.Minute,
		ProbePeriod:   30 * time.Second,
		PollAttempts:  5,
		PollDelay:     5 * time.Second,
		CandidateGap:  2 * time.Second,
		HorizonDays:   27,
		SupplyTimeout: 30 * time.Second,
		Location:      time.Local,
	}
}

// Deps are the collaborators of an Engine. Metrics and Clock are optional.
type Deps struct {
	Upstream Upstream
	Catalog  Catalog
	Store    ConfigStore
	Notifier Notifier
	Metrics  Metrics
	Clock    clockwork.Clock
	Logger   zerolog.Logger
}

// Engine is the monitoring state machine. It is Stopped until Start
// succeeds and Active until Stop, or until a supply has been created.
type Engine struct {
	upstream Upstream
	catalog  Catalog
	store    ConfigStore
	notifier Notifier
	metrics  Metrics
	clock    clockwork.Clock
	sched    *schedule.Scheduler
	opts     Options
	logger   zerolog.Logger

	mu  sync.Mutex
	run *run

	statsMu sync.Mutex
	stats   stats
}

// run holds the task handles of one Active period. handles is set under
// Engine.mu, before the run can be detached.
type run struct {
	ctx     context.Context
	cancel  context.CancelFunc
	initial chan struct{}
	handles []*schedule.Handle
}

type runKey struct{}

// bind tags every tick context with the run it belongs to.
func (r *run) bind(job schedule.Job) schedule.Job {
	return func(ctx context.Context) {
		job(context.WithValue(ctx, runKey{}, r))
	}
}

// wait blocks until the initial refresh and every in-flight tick of r
// have returned, or ctx ends.
func (r *run) wait(ctx context.Context) error {
	select {
	case <-r.initial:
	case <-ctx.Done():
		return ctx.Err()
	}
	for _, h := range r.handles {
		if err := h.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for %s: %w", h.Name(), err)
		}
	}
	return nil
}

type stats struct {
	lastDraftAt time.Time
	lastProbeAt time.Time
	lastError   string
}

func New(deps Deps, opts Options) *Engine {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	def := DefaultOptions()
	if opts.DraftPeriod <= 0 {
		opts.DraftPeriod = def.DraftPeriod
	}
	if opts.ProbePeriod <= 0 {
		opts.ProbePeriod = def.ProbePeriod
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = def.PollAttempts
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = def.HorizonDays
	}
	if opts.SupplyTimeout <= 0 {
		opts.SupplyTimeout = def.SupplyTimeout
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}

	logger := deps.Logger.With().Str("component", "engine").Logger()
	return &Engine{
		upstream: deps.Upstream,
		catalog:  deps.Catalog,
		store:    deps.Store,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		sched:    schedule.New(deps.Clock, deps.Logger),
		opts:     opts,
		logger:   logger,
	}
}

// Start validates the stored configuration, marks it active, runs one
// draft refresh and schedules the periodic tasks. The tasks outlive ctx;
// only Stop ends them. ErrStoppedDuringStart is returned when Stop won the
// race against the initial refresh.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.run != nil {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	cfg, err := e.store.Get(ctx)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("loading config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.store.SetActive(ctx, true); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("activating: %w", err)
	}

	r := &run{initial: make(chan struct{})}
	r.ctx, r.cancel = context.WithCancel(context.WithValue(context.Background(), runKey{}, r))
	e.run = r
	e.mu.Unlock()

	e.metrics.SetActive(true)
	e.logger.Info().
		Dur("draft_period", e.opts.DraftPeriod).
		Dur("probe_period", e.opts.ProbePeriod).
		Msg("monitoring started")

	e.refreshDraft(r.ctx)
	close(r.initial)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != r {
		return ErrStoppedDuringStart
	}
	r.handles = []*schedule.Handle{
		e.sched.Every(taskDraftRefresh, e.opts.DraftPeriod, r.bind(e.refreshDraft)),
		e.sched.Every(taskSlotProbe, e.opts.ProbePeriod, r.bind(e.probeSlots)),
	}
	return nil
}

// Stop cancels both tasks and persists active=false as one step with
// respect to Start, then waits, bounded by ctx, for in-flight ticks to
// return. Stopping a stopped engine is a no-op apart from clearing the
// persisted flag.
func (e *Engine) Stop(ctx context.Context) error {
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	e.mu.Lock()
	r := e.detachLocked()
	err := e.deactivate(dbCtx)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	if err := r.wait(ctx); err != nil {
		return err
	}
	e.logger.Info().Msg("monitoring stopped")
	return nil
}

// Shutdown cancels the tasks for process exit. Unlike Stop it leaves the
// persisted active flag alone, so the next process can resume monitoring.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	r := e.detachLocked()
	e.mu.Unlock()
	if r == nil {
		return nil
	}
	e.metrics.SetActive(false)
	if err := r.wait(ctx); err != nil {
		return err
	}
	e.logger.Info().Msg("monitoring suspended for shutdown")
	return nil
}

// WithStopped stops monitoring if it is running and calls fn before any
// Start can proceed, so fn never observes or produces an active
// configuration. It reports whether monitoring was stopped. When stopping
// fails fn is not called.
func (e *Engine) WithStopped(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	e.mu.Lock()
	r := e.detachLocked()
	if r != nil {
		dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err := e.deactivate(dbCtx)
		cancel()
		if err != nil {
			e.mu.Unlock()
			return true, err
		}
	}
	err := fn(ctx)
	e.mu.Unlock()

	if r != nil {
		if werr := r.wait(ctx); werr != nil {
			e.logger.Warn().Err(werr).Msg("stopped tasks still finishing")
		}
		e.logger.Info().Msg("monitoring stopped")
	}
	return r != nil, err
}

// stopFromTick is Stop for use inside a task. It does not wait, since the
// calling tick is one of the goroutines Stop would wait for. A tick of a
// run that has already been replaced leaves the current run alone.
func (e *Engine) stopFromTick(ctx context.Context) {
	r, _ := ctx.Value(runKey{}).(*run)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != r {
		return
	}
	e.detachLocked()
	if err := e.deactivate(ctx); err != nil {
		e.logger.Error().Err(err).Msg("failed to persist stop")
		return
	}
	e.logger.Info().Msg("monitoring stopped after supply creation")
}

// detachLocked cancels the current run and forgets it. e.mu must be held.
func (e *Engine) detachLocked() *run {
	r := e.run
	if r == nil {
		return nil
	}
	e.run = nil
	r.cancel()
	for _, h := range r.handles {
		h.Cancel()
	}
	return r
}

func (e *Engine) deactivate(ctx context.Context) error {
	e.metrics.SetActive(false)
	if err := e.store.SetActive(ctx, false); err != nil {
		return fmt.Errorf("deactivating: %w", err)
	}
	return nil
}

// Running reports whether task handles exist.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run != nil
}

type Status struct {
	Running          bool                    `json:"running"`
	Config           *model.MonitoringConfig `json:"config"`
	Missing          []string                `json:"missing,omitempty"`
	LastDraftRefresh *time.Time              `json:"last_draft_refresh,omitempty"`
	LastProbe        *time.Time              `json:"last_probe,omitempty"`
	LastError        string                  `json:"last_error,omitempty"`
}

func (e *Engine) Status(ctx context.Context) (*Status, error) {
	cfg, err := e.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	s := &Status{Running: e.Running(), Config: cfg}

	var verr *ValidationError
	if errors.As(Validate(cfg), &verr) {
		s.Missing = verr.Reasons
	}

	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	s.LastDraftRefresh = timePtr(e.stats.lastDraftAt)
	s.LastProbe = timePtr(e.stats.lastProbeAt)
	s.LastError = e.stats.lastError
	return s, nil
}

func (e *Engine) recordTick(task string, err error) {
	e.metrics.ObserveTick(task, err)

	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	now := e.clock.Now()
	switch task {
	case taskDraftRefresh:
		e.stats.lastDraftAt = now
	case taskSlotProbe:
		e.stats.lastProbeAt = now
	}
	if err != nil {
		e.stats.lastError = task + ": " + err.Error()
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type nopMetrics struct{}

func (nopMetrics) ObserveTick(string, error)  {}
func (nopMetrics) ObserveRateLimitExhausted() {}
func (nopMetrics) ObserveSupplyCreated()      {}
func (nopMetrics) SetActive(bool)             {}
