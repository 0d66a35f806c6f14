package allocation

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/domain/services"
)

// Engine turns demand forecasts into manufacturing, initial shipment and replenishment plans.
// It is stateless; plans are returned as new versions and never modified in place.
type Engine struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an allocation engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ManufacturingOrder returns ceil(total × (1 + safetyStockPct))
func ManufacturingOrder(total entities.Quantity, safetyStockPct decimal.Decimal) entities.Quantity {
	return ceilQty(decimal.NewFromInt(int64(total)).Mul(decimal.NewFromInt(1).Add(safetyStockPct)))
}

// PlanInitialAllocation sizes the manufacturing order from the forecast and splits it into
// initial store shipments and DC holdback
func (e *Engine) PlanInitialAllocation(ctx context.Context, forecast *entities.DemandForecast, policy entities.AllocationPolicy) (*entities.AllocationPlan, error) {
	if forecast == nil {
		return nil, entities.NewPlanningError(entities.KindInvalidInput, "forecast is required")
	}
	return e.PlanForOrder(ctx, forecast, policy, ManufacturingOrder(forecast.CategoryTotal, policy.SafetyStockPct))
}

// PlanForOrder splits an explicitly chosen manufacturing order, as when a planner
// approves a quantity different from the recommendation
func (e *Engine) PlanForOrder(ctx context.Context, forecast *entities.DemandForecast, policy entities.AllocationPolicy, order entities.Quantity) (*entities.AllocationPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if forecast == nil {
		return nil, entities.NewPlanningError(entities.KindInvalidInput, "forecast is required")
	}
	if order < 0 {
		return nil, entities.NewPlanningError(entities.KindInvalidInput, "manufacturing order cannot be negative, got %d", order)
	}

	window := policy.Cadence.WindowWeeks(forecast.Weeks)
	buffer := decimal.NewFromInt(1).Add(policy.ShipmentBuffer)

	shipments := make([]entities.StoreQuantity, len(forecast.Stores))
	raw := make([]entities.Quantity, len(forecast.Stores))
	var shipped entities.Quantity
	for i, s := range forecast.Stores {
		qty := ceilQty(decimal.NewFromInt(int64(s.WindowQty(1, entities.Week(window)))).Mul(buffer))
		raw[i] = qty
		shipped += qty
		shipments[i] = entities.StoreQuantity{StoreID: s.StoreID, Quantity: qty}
	}

	plan := &entities.AllocationPlan{
		Version:            1,
		SeasonID:           forecast.SeasonID,
		ForecastVersion:    forecast.Version,
		ManufacturingOrder: order,
		CreatedAt:          e.now(),
	}

	holdback := order - shipped
	pct := fraction(holdback, order)
	if order > 0 && (pct.LessThan(policy.HoldbackMin) || pct.GreaterThan(policy.HoldbackMax)) {
		target := entities.Quantity(decimal.NewFromInt(int64(order)).Mul(policy.HoldbackPct).Round(0).IntPart())
		weights := services.QuantityWeights(raw)
		if shipped == 0 {
			// nothing due in the first window; spread by season demand
			for i, s := range forecast.Stores {
				weights[i] = decimal.NewFromInt(int64(s.SeasonTotal))
			}
		}
		scaled := services.Apportion(order-target, weights)
		for i := range shipments {
			shipments[i].Quantity = scaled[i]
		}
		e.logger.Info("initial shipments scaled to honor holdback bounds",
			"season", forecast.SeasonID,
			"order", order,
			"unscaled_shipments", shipped,
			"unscaled_holdback_pct", pct.StringFixed(4),
			"target_holdback_pct", policy.HoldbackPct.String(),
			"scaled_shipments", order-target)
		shipped = order - target
		holdback = target
		pct = fraction(holdback, order)
		plan.Scaled = true
	}

	plan.InitialShipments = shipments
	plan.Holdback = holdback
	plan.HoldbackPct = pct
	plan.RemainingHoldback = holdback
	plan.Schedule = projectSchedule(forecast, window, entities.Week(window))

	e.logger.Debug("initial allocation planned",
		"season", forecast.SeasonID,
		"forecast_version", forecast.Version,
		"order", order,
		"shipments", shipped,
		"holdback", holdback,
		"holdback_pct", pct.StringFixed(4))
	return plan, nil
}

// Revise re-projects the replenishment schedule for a new forecast.
// The manufacturing order, initial shipments and executed cycles are kept.
func (e *Engine) Revise(ctx context.Context, plan *entities.AllocationPlan, forecast *entities.DemandForecast, policy entities.AllocationPolicy, closedWeek entities.Week) (*entities.AllocationPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if plan == nil || forecast == nil {
		return nil, entities.NewPlanningError(entities.KindInvalidInput, "plan and forecast are required")
	}

	next := plan.Clone()
	next.Version = plan.Version + 1
	next.ForecastVersion = forecast.Version
	next.CreatedAt = e.now()
	next.Schedule = projectSchedule(forecast, policy.Cadence.WindowWeeks(forecast.Weeks), closedWeek)

	e.logger.Debug("allocation plan revised",
		"season", plan.SeasonID,
		"version", next.Version,
		"forecast_version", forecast.Version,
		"closed_week", closedWeek,
		"windows", len(next.Schedule))
	return next, nil
}

// projectSchedule lists the forecast demand of every cadence window starting after the given week
func projectSchedule(forecast *entities.DemandForecast, window int, after entities.Week) []entities.ScheduledReplenishment {
	var schedule []entities.ScheduledReplenishment
	if window <= 0 || window >= forecast.Weeks {
		return schedule
	}
	for start := entities.Week(1 + window); int(start) <= forecast.Weeks; start += entities.Week(window) {
		if start <= after {
			continue
		}
		end := windowEnd(start, window, forecast.Weeks)
		entry := entities.ScheduledReplenishment{Week: start}
		for _, s := range forecast.Stores {
			if qty := s.WindowQty(start, end); qty > 0 {
				entry.Lines = append(entry.Lines, entities.StoreQuantity{StoreID: s.StoreID, Quantity: qty})
			}
		}
		schedule = append(schedule, entry)
	}
	return schedule
}

func windowEnd(start entities.Week, window, weeks int) entities.Week {
	end := start + entities.Week(window) - 1
	if int(end) > weeks {
		end = entities.Week(weeks)
	}
	return end
}

func ceilQty(d decimal.Decimal) entities.Quantity {
	q := entities.Quantity(d.Ceil().IntPart())
	if q < 0 {
		return 0
	}
	return q
}

func fraction(part, whole entities.Quantity) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(whole)))
}
