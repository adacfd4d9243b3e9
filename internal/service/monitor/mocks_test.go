package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/service/marketplace"
)

// --- mocks ---

type mockUpstream struct {
	createDraftFn  func(ctx context.Context, req marketplace.DraftRequest) (string, error)
	draftInfoFn    func(ctx context.Context, operationID string) (*marketplace.DraftInfo, error)
	timeslotsFn    func(ctx context.Context, q marketplace.TimeslotQuery) ([]model.Candidate, error)
	createSupplyFn func(ctx context.Context, req marketplace.SupplyRequest) (string, error)
}

func (m *mockUpstream) CreateDraft(ctx context.Context, req marketplace.DraftRequest) (string, error) {
	return m.createDraftFn(ctx, req)
}
func (m *mockUpstream) DraftInfo(ctx context.Context, operationID string) (*marketplace.DraftInfo, error) {
	return m.draftInfoFn(ctx, operationID)
}
func (m *mockUpstream) Timeslots(ctx context.Context, q marketplace.TimeslotQuery) ([]model.Candidate, error) {
	return m.timeslotsFn(ctx, q)
}
func (m *mockUpstream) CreateSupply(ctx context.Context, req marketplace.SupplyRequest) (string, error) {
	return m.createSupplyFn(ctx, req)
}

type mockCatalog struct {
	clusterFn  func(ctx context.Context, id int64) (*model.Cluster, error)
	fulfillFn  func(ctx context.Context, clusterID int64) ([]int64, error)
	productsFn func(ctx context.Context, skus []int64) ([]model.Product, error)
}

func (m *mockCatalog) Cluster(ctx context.Context, id int64) (*model.Cluster, error) {
	return m.clusterFn(ctx, id)
}
func (m *mockCatalog) FulfillmentWarehouses(ctx context.Context, clusterID int64) ([]int64, error) {
	return m.fulfillFn(ctx, clusterID)
}
func (m *mockCatalog) Products(ctx context.Context, skus []int64) ([]model.Product, error) {
	return m.productsFn(ctx, skus)
}

// memStore is an in-memory ConfigStore.
type memStore struct {
	mu  sync.Mutex
	cfg *model.MonitoringConfig
}

func (s *memStore) Get(context.Context) (*model.MonitoringConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone(), nil
}

func (s *memStore) SetActive(_ context.Context, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Active = active
	return nil
}

func (s *memStore) SetDraft(_ context.Context, draftID int64, operationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.DraftID = &draftID
	s.cfg.DraftOperationID = operationID
	return nil
}

func (s *memStore) snapshot() *model.MonitoringConfig {
	c, _ := s.Get(context.Background())
	return c
}

type success struct {
	operationID string
	draftID     int64
	interval    model.Interval
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []success
	exhausted []string
	errors    []string
}

func (n *recordingNotifier) NotifySuccess(_ context.Context, operationID string, draftID int64, iv model.Interval) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, success{operationID, draftID, iv})
}

func (n *recordingNotifier) NotifyRateLimitExhausted(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exhausted = append(n.exhausted, message)
}

func (n *recordingNotifier) NotifyError(_ context.Context, what string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, what+": "+err.Error())
}

func (n *recordingNotifier) counts() (int, int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes), len(n.exhausted), len(n.errors)
}

// --- helpers ---

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func completeConfig() *model.MonitoringConfig {
	w, _ := model.ParseWindow("09:00-10:00")
	return &model.MonitoringConfig{
		SourceCluster:        model.Int64(154),
		DestinationWarehouse: model.Int64(2),
		DestinationCluster:   model.Int64(4039),
		Window:               &w,
		Items:                []model.Item{{SKU: 11, Quantity: 4}},
	}
}

func activeConfig(draftID int64) *model.MonitoringConfig {
	c := completeConfig()
	c.Active = true
	c.DraftID = &draftID
	return c
}

func testOptions() Options {
	o := DefaultOptions()
	o.PollDelay = 0
	o.CandidateGap = 0
	o.Location = time.UTC
	return o
}

type harness struct {
	engine   *Engine
	upstream *mockUpstream
	catalog  *mockCatalog
	store    *memStore
	notifier *recordingNotifier
	clock    *clockwork.FakeClock
}

func newHarness(cfg *model.MonitoringConfig) *harness {
	h := &harness{
		upstream: &mockUpstream{},
		catalog:  &mockCatalog{},
		store:    &memStore{cfg: cfg},
		notifier: &recordingNotifier{},
		clock:    clockwork.NewFakeClockAt(testNow),
	}
	h.engine = New(Deps{
		Upstream: h.upstream,
		Catalog:  h.catalog,
		Store:    h.store,
		Notifier: h.notifier,
		Clock:    h.clock,
		Logger:   zerolog.Nop(),
	}, testOptions())
	return h
}

func slotAt(day, from, to string) model.Interval {
	return model.Interval{
		From: day + "T" + from + ":00+03:00",
		To:   day + "T" + to + ":00+03:00",
	}
}
