package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

func validForecast() *entities.DemandForecast {
	return &entities.DemandForecast{
		Version:       1,
		Weeks:         2,
		CategoryTotal: 10,
		Clusters: []entities.ClusterForecast{
			{ClusterID: "C1", Share: dec("0.6"), Total: 6, Stores: []entities.StoreID{"S1"}},
			{ClusterID: "C2", Share: dec("0.4"), Total: 4, Stores: []entities.StoreID{"S2", "S3"}},
		},
		Stores: []entities.StoreForecast{
			{StoreID: "S1", ClusterID: "C1", Factor: dec("1"), SeasonTotal: 6, Weekly: []entities.Quantity{3, 3}},
			{StoreID: "S2", ClusterID: "C2", Factor: dec("0.5"), SeasonTotal: 2, Weekly: []entities.Quantity{1, 1}},
			{StoreID: "S3", ClusterID: "C2", Factor: dec("0.5"), SeasonTotal: 2, Weekly: []entities.Quantity{2, 0}},
		},
	}
}

func TestValidateForecast_Valid(t *testing.T) {
	result := ValidateForecast(validForecast())
	assert.True(t, result.Valid(), "unexpected errors: %v", result.Errors)
	assert.NoError(t, result.Err())
}

func TestValidateForecast_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *entities.DemandForecast)
		expect string
	}{
		{"shares", func(f *entities.DemandForecast) { f.Clusters[1].Share = dec("0.5") }, "cluster shares sum to 1.1"},
		{"weekly drift", func(f *entities.DemandForecast) { f.Stores[0].Weekly[1] = 4 }, "store S1 weekly sum 7 differs from season total 6"},
		{"factors", func(f *entities.DemandForecast) { f.Stores[1].Factor = dec("0.4") }, "store factors in cluster C2 sum to 0.9"},
		{"weeks", func(f *entities.DemandForecast) { f.Stores[2].Weekly = []entities.Quantity{2} }, "store S3 has 1 weekly values, expected 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForecast()
			tt.mutate(f)
			result := ValidateForecast(f)
			require.False(t, result.Valid())
			assert.Contains(t, result.Errors, findPrefix(result.Errors, tt.expect))
			assert.True(t, errors.Is(result.Err(), entities.ErrInvariantViolation))
		})
	}
}

func findPrefix(errs []string, prefix string) string {
	for _, e := range errs {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			return e
		}
	}
	return "<missing: " + prefix + ">"
}

func TestValidatePlan(t *testing.T) {
	policy := entities.DefaultSeasonConfig("tops").Allocation
	plan := &entities.AllocationPlan{
		ManufacturingOrder: 100,
		InitialShipments:   []entities.StoreQuantity{{StoreID: "S1", Quantity: 20}, {StoreID: "S2", Quantity: 15}},
		Holdback:           65,
		HoldbackPct:        decimal.NewFromInt(65).Div(decimal.NewFromInt(100)),
		RemainingHoldback:  60,
		Cycles: []entities.ReplenishmentCycle{
			{Lines: []entities.ReplenishmentLine{{StoreID: "S1", Shipped: 5}}},
		},
	}
	assert.True(t, ValidatePlan(plan, policy).Valid())

	plan.Holdback = 80
	plan.HoldbackPct = dec("0.80")
	result := ValidatePlan(plan, policy)
	assert.False(t, result.Valid())
	assert.Len(t, result.Errors, 3)
}
