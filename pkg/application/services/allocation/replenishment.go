package allocation

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/domain/services"
)

// ReplenishmentInput is everything one replenishment cycle reads
type ReplenishmentInput struct {
	Plan       *entities.AllocationPlan
	Forecast   *entities.DemandForecast // latest forecast; closed weeks it locked read as actual
	Actuals    []entities.ActualsRecord
	ClosedWeek entities.Week
	OnHand     map[entities.StoreID]entities.Quantity
	Policy     entities.AllocationPolicy
}

// VarianceFactor returns actual ÷ forecast for one store-week clamped to [lo, hi].
// A zero forecast yields a neutral factor of one.
func VarianceFactor(actual, forecast entities.Quantity, lo, hi decimal.Decimal) decimal.Decimal {
	if forecast <= 0 {
		return decimal.NewFromInt(1)
	}
	f := decimal.NewFromInt(int64(actual)).Div(decimal.NewFromInt(int64(forecast)))
	if f.LessThan(lo) {
		return lo
	}
	if f.GreaterThan(hi) {
		return hi
	}
	return f
}

// PlanReplenishment computes and executes the replenishment for the window after the closed week.
// Shipments are capped by the remaining DC holdback; uncovered need is recorded as shortfall.
// The returned plan is a new version carrying the executed cycle.
func (e *Engine) PlanReplenishment(ctx context.Context, in ReplenishmentInput) (*entities.ReplenishmentCycle, *entities.AllocationPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if in.Plan == nil || in.Forecast == nil {
		return nil, nil, entities.NewPlanningError(entities.KindInvalidInput, "plan and forecast are required")
	}
	weeks := in.Forecast.Weeks
	if in.ClosedWeek < 1 || int(in.ClosedWeek) >= weeks {
		return nil, nil, entities.NewPlanningError(entities.KindInvalidInput,
			"no replenishment window follows week %d of a %d week season", in.ClosedWeek, weeks)
	}

	window := in.Policy.Cadence.WindowWeeks(weeks)
	start := in.ClosedWeek + 1
	end := windowEnd(start, window, weeks)

	lastWeek := make(map[entities.StoreID]entities.Quantity)
	reported := make(map[entities.StoreID]bool)
	for _, r := range in.Actuals {
		if r.Week == in.ClosedWeek {
			lastWeek[r.StoreID] = r.Units
			reported[r.StoreID] = true
		}
	}

	cycle := &entities.ReplenishmentCycle{
		ClosedWeek:      in.ClosedWeek,
		WindowStart:     start,
		WindowEnd:       end,
		ForecastVersion: in.Forecast.Version,
		Lines:           make([]entities.ReplenishmentLine, len(in.Forecast.Stores)),
	}

	needs := make([]entities.Quantity, len(in.Forecast.Stores))
	var totalNeed entities.Quantity
	for i, s := range in.Forecast.Stores {
		vf := decimal.NewFromInt(1)
		if reported[s.StoreID] {
			vf = VarianceFactor(lastWeek[s.StoreID], s.WeekQty(in.ClosedWeek), in.Policy.VarianceFactorMin, in.Policy.VarianceFactorMax)
		}
		target := s.WindowQty(start, end)
		onHand := in.OnHand[s.StoreID]
		need := ceilQty(decimal.NewFromInt(int64(target)).Mul(vf)) - onHand
		if need < 0 {
			need = 0
		}
		needs[i] = need
		totalNeed += need
		cycle.Lines[i] = entities.ReplenishmentLine{
			StoreID:        s.StoreID,
			Target:         target,
			VarianceFactor: vf,
			OnHand:         onHand,
			Requested:      need,
		}
	}

	available := in.Plan.RemainingHoldback
	shipped := needs
	if totalNeed > available {
		shipped = services.Apportion(available, services.QuantityWeights(needs))
	}

	var released entities.Quantity
	for i := range cycle.Lines {
		line := &cycle.Lines[i]
		line.Shipped = shipped[i]
		released += shipped[i]
		if line.Shipped < line.Requested {
			cycle.Shortfalls = append(cycle.Shortfalls, entities.CapacityShortfall{
				StoreID:   line.StoreID,
				Week:      start,
				Requested: line.Requested,
				Shipped:   line.Shipped,
				ShortQty:  line.Requested - line.Shipped,
			})
		}
	}

	next := in.Plan.Clone()
	next.Version = in.Plan.Version + 1
	next.ForecastVersion = in.Forecast.Version
	next.CreatedAt = e.now()
	next.RemainingHoldback = in.Plan.RemainingHoldback - released
	next.Cycles = append(next.Cycles, *cycle)
	next.Schedule = projectSchedule(in.Forecast, window, end)

	if len(cycle.Shortfalls) > 0 {
		e.logger.Warn("replenishment capped by DC holdback",
			"season", in.Plan.SeasonID,
			"closed_week", in.ClosedWeek,
			"requested", totalNeed,
			"available", available,
			"short_stores", len(cycle.Shortfalls))
	}
	e.logger.Debug("replenishment planned",
		"season", in.Plan.SeasonID,
		"closed_week", in.ClosedWeek,
		"window_start", start,
		"window_end", end,
		"shipped", released,
		"remaining_holdback", next.RemainingHoldback)
	return cycle, next, nil
}
