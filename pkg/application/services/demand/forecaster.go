package demand

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// CategoryForecaster produces the category-level season total.
// Forecasting methods are consumed through this interface and not fitted here.
type CategoryForecaster interface {
	ForecastCategoryTotal(
		ctx context.Context,
		category string,
		history []*entities.HistoricalSale,
		policy entities.DemandPolicy,
	) (entities.Quantity, error)
}

// BaselineForecaster projects the prior-period weekly run rate over the new season
type BaselineForecaster struct{}

// NewBaselineForecaster creates a baseline forecaster
func NewBaselineForecaster() *BaselineForecaster {
	return &BaselineForecaster{}
}

var _ CategoryForecaster = (*BaselineForecaster)(nil)

// ForecastCategoryTotal returns weekly average × season weeks × (1 + growth)
func (f *BaselineForecaster) ForecastCategoryTotal(
	ctx context.Context,
	category string,
	history []*entities.HistoricalSale,
	policy entities.DemandPolicy,
) (entities.Quantity, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	type isoWeek struct{ year, week int }
	weeks := make(map[isoWeek]bool)
	var units entities.Quantity
	for _, h := range history {
		if h.Category != category {
			continue
		}
		y, w := h.Date.ISOWeek()
		weeks[isoWeek{y, w}] = true
		units += h.Units
	}

	if len(weeks) == 0 || len(weeks) < policy.MinHistoryWeeks {
		return 0, entities.NewPlanningError(entities.KindInsufficientData,
			"category %s has %d weeks of history, need at least %d", category, len(weeks), max(policy.MinHistoryWeeks, 1))
	}

	weekly := decimal.NewFromInt(int64(units)).Div(decimal.NewFromInt(int64(len(weeks))))
	total := weekly.
		Mul(decimal.NewFromInt(int64(policy.Weeks))).
		Mul(decimal.NewFromInt(1).Add(policy.GrowthPct)).
		Round(0)
	if total.IsNegative() {
		return 0, nil
	}
	return entities.Quantity(total.IntPart()), nil
}
