package variance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func defaultMonitor(boundary entities.BoundaryMode) *Monitor {
	policy := entities.DefaultSeasonConfig("test").Variance
	policy.Boundary = boundary
	return NewMonitor(policy)
}

func TestPct(t *testing.T) {
	tests := []struct {
		name     string
		forecast entities.Quantity
		actual   entities.Quantity
		want     string
	}{
		{"on forecast", 500, 500, "0"},
		{"above", 1000, 1310, "0.31"},
		{"below", 1000, 800, "0.2"},
		{"zero forecast and sales", 0, 0, "0"},
		{"zero forecast with sales", 0, 12, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pct(tt.forecast, tt.actual)
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestMonitor_Check(t *testing.T) {
	tests := []struct {
		name     string
		forecast entities.Quantity
		actual   entities.Quantity
		boundary entities.BoundaryMode
		want     entities.VarianceAction
	}{
		{"zero variance", 1000, 1000, entities.Exclusive, entities.ActionNone},
		{"31% over a 20% threshold", 1000, 1310, entities.Exclusive, entities.ActionReforecastTriggered},
		{"exactly 20% exclusive escalates", 1000, 1200, entities.Exclusive, entities.ActionEscalatedForReview},
		{"exactly 20% inclusive triggers", 1000, 1200, entities.Inclusive, entities.ActionReforecastTriggered},
		{"between thresholds", 1000, 880, entities.Exclusive, entities.ActionEscalatedForReview},
		{"exactly review threshold exclusive", 1000, 1100, entities.Exclusive, entities.ActionNone},
		{"below review threshold", 1000, 1050, entities.Exclusive, entities.ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := defaultMonitor(tt.boundary).Check(1, tt.forecast, tt.actual)
			assert.Equal(t, tt.want, event.Action)
			assert.Equal(t, entities.Week(1), event.Week)
		})
	}
}

func TestAccumulate_ExcludesMissingStores(t *testing.T) {
	forecast := &entities.DemandForecast{Weeks: 3, Stores: []entities.StoreForecast{
		{StoreID: "A", Weekly: []entities.Quantity{10, 10, 10}},
		{StoreID: "B", Weekly: []entities.Quantity{20, 20, 20}},
		{StoreID: "C", Weekly: []entities.Quantity{5, 5, 5}},
	}}
	actuals := []entities.ActualsRecord{
		{StoreID: "A", Week: 1, Units: 12},
		{StoreID: "B", Week: 1, Units: 18},
		{StoreID: "C", Week: 1, Units: 5},
		{StoreID: "A", Week: 2, Units: 13},
		{StoreID: "B", Week: 2, Units: 25},
		{StoreID: "Z", Week: 2, Units: 99},
		{StoreID: "A", Week: 3, Units: 100},
	}

	cum := Accumulate(forecast, actuals, 2)
	assert.Equal(t, entities.Quantity(73), cum.Actual)
	assert.Equal(t, entities.Quantity(65), cum.Forecast)
	assert.Equal(t, 2, cum.ReportingStores)
	assert.Equal(t, []entities.StoreID{"C"}, cum.MissingStores)

	assert.Equal(t, Cumulative{}, Accumulate(nil, actuals, 2))
}
