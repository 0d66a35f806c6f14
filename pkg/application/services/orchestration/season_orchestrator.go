package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/application/services/allocation"
	"github.com/vsinha/seasonplan/pkg/application/services/demand"
	"github.com/vsinha/seasonplan/pkg/application/services/markdown"
	"github.com/vsinha/seasonplan/pkg/application/services/shared"
	"github.com/vsinha/seasonplan/pkg/application/services/variance"
	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/domain/repositories"
	"github.com/vsinha/seasonplan/pkg/domain/services"
	"github.com/vsinha/seasonplan/pkg/infrastructure/events"
)

// SeasonOrchestrator owns the lifecycle of every season and sequences the planning components.
// Seasons are independent: each has its own lock, and operations on one season never wait on another.
type SeasonOrchestrator struct {
	stores  repositories.StoreRepository
	history repositories.HistoryRepository
	seasons repositories.SeasonRepository

	forecaster demand.CategoryForecaster
	decomposer *demand.Decomposer
	allocator  *allocation.Engine
	events     events.EventStore
	pool       *shared.WorkerPool
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	registry map[entities.SeasonID]*season
}

// Option configures a SeasonOrchestrator
type Option func(*SeasonOrchestrator)

// WithLogger sets the structured logger shared by all components
func WithLogger(logger *slog.Logger) Option {
	return func(o *SeasonOrchestrator) { o.logger = logger }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(o *SeasonOrchestrator) { o.now = now }
}

// WithForecaster sets the category-level forecasting capability
func WithForecaster(f demand.CategoryForecaster) Option {
	return func(o *SeasonOrchestrator) { o.forecaster = f }
}

// WithEventStore sets the audit event sink
func WithEventStore(store events.EventStore) Option {
	return func(o *SeasonOrchestrator) { o.events = store }
}

// WithWorkerPool sets the pool used for per-store computations
func WithWorkerPool(pool *shared.WorkerPool) Option {
	return func(o *SeasonOrchestrator) { o.pool = pool }
}

// NewSeasonOrchestrator wires the planning components over the given repositories
func NewSeasonOrchestrator(
	stores repositories.StoreRepository,
	history repositories.HistoryRepository,
	seasons repositories.SeasonRepository,
	opts ...Option,
) *SeasonOrchestrator {
	o := &SeasonOrchestrator{
		stores:     stores,
		history:    history,
		seasons:    seasons,
		forecaster: demand.NewBaselineForecaster(),
		pool:       shared.NewWorkerPool(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		registry:   make(map[entities.SeasonID]*season),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.events == nil {
		o.events = events.NewInMemoryEventStore(o.logger)
	}
	o.decomposer = demand.NewDecomposer(
		demand.WithLogger(o.logger),
		demand.WithWorkerPool(o.pool),
		demand.WithClock(o.now),
	)
	o.allocator = allocation.NewEngine(
		allocation.WithLogger(o.logger),
		allocation.WithClock(o.now),
	)
	return o
}

// Events returns the audit event store
func (o *SeasonOrchestrator) Events() events.EventStore {
	return o.events
}

// season is the aggregate state of one season; every field is guarded by mu
type season struct {
	mu sync.Mutex

	id     entities.SeasonID
	config entities.SeasonConfig
	logger *slog.Logger

	phase       entities.Phase
	week        entities.Week
	pending     entities.ApprovalKind
	blocked     *entities.PlanningError
	abortReason string

	stores   []*entities.Store
	history  []*entities.HistoricalSale
	forecast *entities.DemandForecast
	plan     *entities.AllocationPlan
	proposed *entities.AllocationPlan
	ledger   shared.InventoryLedger
	markdown *entities.MarkdownDecision
	summary  *entities.SeasonSummary

	monitor *variance.Monitor
	pricing *markdown.Engine

	escalated []entities.Week
	dataGaps  []entities.Week
	oversold  []entities.Week
}

// StartSeason validates the config, decomposes demand and plans the initial allocation.
// A season whose planning fails is still registered in the Blocked phase; its id is returned
// together with the typed error so the reason stays queryable.
func (o *SeasonOrchestrator) StartSeason(ctx context.Context, cfg entities.SeasonConfig) (entities.SeasonID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg = cfg.Normalize()
	cfg.Demand.ClusterTargets = maps.Clone(cfg.Demand.ClusterTargets)
	cfg.Markdown.Tiers = append([]entities.MarkdownTier(nil), cfg.Markdown.Tiers...)
	if err := cfg.Validate(); err != nil {
		return "", entities.WrapPlanningError(entities.KindInvalidInput, err, "invalid season config")
	}

	id := entities.NewSeasonID()
	logger := o.logger.With("season", id)
	pricing, err := markdown.NewEngine(cfg.Markdown, markdown.WithLogger(logger), markdown.WithClock(o.now))
	if err != nil {
		return "", err
	}
	s := &season{
		id:      id,
		config:  cfg,
		logger:  logger,
		phase:   entities.PhasePreSeason,
		ledger:  shared.NewInventoryLedger(),
		monitor: variance.NewMonitor(cfg.Variance, variance.WithLogger(logger), variance.WithClock(o.now)),
		pricing: pricing,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o.publish(s, events.SeasonStartedEvent, events.SeasonStarted{Category: cfg.Category, Weeks: cfg.Weeks})
	err = o.planSeason(ctx, s)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return "", err
	}

	o.mu.Lock()
	o.registry[id] = s
	o.mu.Unlock()

	if err != nil {
		return id, o.block(s, err)
	}
	if s.pending == entities.ApprovalManufacturingOrder {
		o.publish(s, events.ApprovalRequestedEvent, events.ApprovalRequested{
			Kind:        entities.ApprovalManufacturingOrder,
			Recommended: decimal.NewFromInt(int64(s.proposed.ManufacturingOrder)),
		})
		s.logger.Info("manufacturing order awaits approval", "order", s.proposed.ManufacturingOrder)
		return id, nil
	}
	if err := o.commitPlan(s, s.proposed); err != nil {
		return id, o.block(s, err)
	}
	return id, nil
}

// planSeason runs the pre-season components; it leaves the proposed plan on the season
func (o *SeasonOrchestrator) planSeason(ctx context.Context, s *season) error {
	cfg := s.config

	stores, err := o.stores.GetAllStores()
	if err != nil {
		return fmt.Errorf("failed to load stores: %w", err)
	}
	if len(stores) == 0 {
		return entities.NewPlanningError(entities.KindInsufficientData, "no store reference data loaded")
	}
	history, err := o.history.GetSales(cfg.Category)
	if err != nil {
		return fmt.Errorf("failed to load sales history: %w", err)
	}
	s.stores = stores
	s.history = history

	total := cfg.CategoryTotal
	if total == 0 {
		total, err = o.forecaster.ForecastCategoryTotal(ctx, cfg.Category, history, cfg.Demand)
		if err != nil {
			return err
		}
	}

	forecast, err := o.decomposer.Decompose(ctx, demand.Input{
		SeasonID:      s.id,
		CategoryTotal: total,
		Stores:        stores,
		History:       history,
		Policy:        cfg.Demand,
	})
	if err != nil {
		return err
	}
	if err := o.acceptForecast(s, forecast); err != nil {
		return err
	}

	o.transition(s, entities.PhaseInitialAllocation)
	plan, err := o.allocator.PlanInitialAllocation(ctx, forecast, cfg.Allocation)
	if err != nil {
		return err
	}
	if err := services.ValidatePlan(plan, cfg.Allocation).Err(); err != nil {
		return err
	}
	s.proposed = plan
	if cfg.RequireOrderApproval {
		s.pending = entities.ApprovalManufacturingOrder
	}
	return nil
}

// ApproveManufacturingOrder releases the manufacturing gate.
// A positive quantity overrides the recommended order; zero accepts it.
func (o *SeasonOrchestrator) ApproveManufacturingOrder(ctx context.Context, id entities.SeasonID, qty entities.Quantity) (*entities.AllocationPlan, error) {
	s, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.writable(); err != nil {
		return nil, err
	}
	if s.pending != entities.ApprovalManufacturingOrder {
		return nil, entities.NewPlanningError(entities.KindInvalidPhase, "no manufacturing order awaits approval").WithSeason(id)
	}
	if qty < 0 {
		return nil, entities.NewPlanningError(entities.KindInvalidInput, "manufacturing order cannot be negative, got %d", qty).WithSeason(id)
	}

	// an infeasible override is rejected and the gate stays open for another quantity
	plan := s.proposed
	if qty > 0 && qty != plan.ManufacturingOrder {
		plan, err = o.allocator.PlanForOrder(ctx, s.forecast, s.config.Allocation, qty)
		if err == nil {
			err = services.ValidatePlan(plan, s.config.Allocation).Err()
		}
		if err != nil {
			s.logger.Warn("manufacturing order override rejected", "order", qty, "error", err)
			return nil, entities.WrapPlanningError(entities.KindInvalidInput, err,
				"manufacturing order %d cannot be allocated", qty).
				WithSeason(id).WithContext("recommended", s.proposed.ManufacturingOrder)
		}
	}

	s.pending = entities.ApprovalNone
	o.publish(s, events.ApprovalGrantedEvent, events.ApprovalGranted{
		Kind:     entities.ApprovalManufacturingOrder,
		Approved: decimal.NewFromInt(int64(plan.ManufacturingOrder)),
	})
	if err := o.commitPlan(s, plan); err != nil {
		return nil, o.block(s, err)
	}
	return plan.Clone(), nil
}

// AbortSeason ends a season early. It waits for any in-flight operation on the season.
func (o *SeasonOrchestrator) AbortSeason(ctx context.Context, id entities.SeasonID, reason string) error {
	s, err := o.lookup(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.phase.Terminal() {
		return entities.NewPlanningError(entities.KindSeasonClosed, "season already %s", s.phase).WithSeason(id)
	}
	from := s.phase
	s.abortReason = reason
	s.pending = entities.ApprovalNone
	o.transition(s, entities.PhaseAborted)
	o.publish(s, events.SeasonAbortedEvent, events.SeasonAborted{Phase: from, Reason: reason})
	s.logger.Warn("season aborted", "from", from.String(), "reason", reason)
	return nil
}

// commitPlan persists the initial plan and opens the season for actuals
func (o *SeasonOrchestrator) commitPlan(s *season, plan *entities.AllocationPlan) error {
	if err := o.savePlan(s, plan); err != nil {
		return err
	}
	s.proposed = nil
	s.ledger = shared.NewInventoryLedgerFromPlan(plan)
	o.transition(s, entities.PhaseInSeason)
	s.logger.Info("season in progress",
		"order", plan.ManufacturingOrder,
		"initial_shipments", plan.TotalInitialShipments(),
		"holdback", plan.Holdback)
	return nil
}

// acceptForecast validates and persists a forecast version
func (o *SeasonOrchestrator) acceptForecast(s *season, forecast *entities.DemandForecast) error {
	if err := services.ValidateForecast(forecast).Err(); err != nil {
		return err
	}
	if err := o.seasons.SaveForecast(forecast); err != nil {
		return fmt.Errorf("failed to save forecast: %w", err)
	}
	s.forecast = forecast
	o.publish(s, events.ForecastCreatedEvent, events.ForecastCreated{
		Version:       forecast.Version,
		Reason:        forecast.Reason,
		CategoryTotal: forecast.CategoryTotal,
	})
	return nil
}

// savePlan validates and persists a plan version
func (o *SeasonOrchestrator) savePlan(s *season, plan *entities.AllocationPlan) error {
	if err := services.ValidatePlan(plan, s.config.Allocation).Err(); err != nil {
		return err
	}
	if err := o.seasons.SavePlan(plan); err != nil {
		return fmt.Errorf("failed to save allocation plan: %w", err)
	}
	s.plan = plan
	o.publish(s, events.PlanCreatedEvent, events.PlanCreated{
		Version:            plan.Version,
		ForecastVersion:    plan.ForecastVersion,
		ManufacturingOrder: plan.ManufacturingOrder,
		RemainingHoldback:  plan.RemainingHoldback,
	})
	return nil
}

// block halts the season and returns the cause tagged with the season id
func (o *SeasonOrchestrator) block(s *season, err error) error {
	var pe *entities.PlanningError
	if !errors.As(err, &pe) {
		pe = entities.WrapPlanningError(entities.KindSeasonBlocked, err, "planning step failed")
	}
	tagged := *pe
	tagged.SeasonID = s.id
	s.blocked = &tagged

	from := s.phase
	o.transition(s, entities.PhaseBlocked)
	o.publish(s, events.SeasonBlockedEvent, events.SeasonBlocked{Phase: from, Kind: tagged.Kind, Reason: tagged.Error()})
	s.logger.Error("season blocked", "phase", from.String(), "kind", string(tagged.Kind), "error", err)
	return &tagged
}

func (o *SeasonOrchestrator) transition(s *season, to entities.Phase) {
	if s.phase == to {
		return
	}
	from := s.phase
	s.phase = to
	o.publish(s, events.PhaseChangedEvent, events.PhaseChanged{From: from, To: to, Week: s.week})
	s.logger.Debug("phase changed", "from", from.String(), "to", to.String(), "week", s.week)
}

func (o *SeasonOrchestrator) publish(s *season, eventType string, data interface{}) {
	if err := o.events.AppendEvent(string(s.id), events.NewEvent(eventType, string(s.id), data, o.now())); err != nil {
		s.logger.Warn("failed to publish event", "type", eventType, "error", err)
	}
}

func (o *SeasonOrchestrator) lookup(id entities.SeasonID) (*season, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.registry[id]
	if !ok {
		return nil, entities.NewPlanningError(entities.KindNotFound, "unknown season").WithSeason(id)
	}
	return s, nil
}

// writable rejects operations on seasons that can no longer change
func (s *season) writable() error {
	switch {
	case s.phase.Terminal():
		return entities.NewPlanningError(entities.KindSeasonClosed, "season is %s", s.phase).WithSeason(s.id)
	case s.phase == entities.PhaseBlocked:
		return entities.WrapPlanningError(entities.KindSeasonBlocked, s.blocked, "season is blocked").WithSeason(s.id)
	}
	return nil
}
