package demand

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
	testhelpers "github.com/vsinha/seasonplan/pkg/infrastructure/testing"
)

func TestBaselineForecaster_ProjectsRunRate(t *testing.T) {
	stores := testhelpers.BuildRegionalStores()
	history := testhelpers.BuildHistory(stores, testhelpers.Category, 8)
	policy := entities.DefaultSeasonConfig(testhelpers.Category).Normalize().Demand

	// every week sells the total size of all stores / 100 = 980 units
	total, err := NewBaselineForecaster().ForecastCategoryTotal(context.Background(), testhelpers.Category, history, policy)
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(980*12), total)

	policy.GrowthPct = decimal.RequireFromString("0.10")
	total, err = NewBaselineForecaster().ForecastCategoryTotal(context.Background(), testhelpers.Category, history, policy)
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(12936), total)
}

func TestBaselineForecaster_InsufficientHistory(t *testing.T) {
	stores := testhelpers.BuildRegionalStores()
	policy := entities.DefaultSeasonConfig(testhelpers.Category).Normalize().Demand

	_, err := NewBaselineForecaster().ForecastCategoryTotal(context.Background(), testhelpers.Category,
		testhelpers.BuildHistory(stores, testhelpers.Category, 3), policy)
	assert.ErrorIs(t, err, entities.ErrInsufficientData)

	_, err = NewBaselineForecaster().ForecastCategoryTotal(context.Background(), "swim",
		testhelpers.BuildHistory(stores, testhelpers.Category, 8), policy)
	assert.ErrorIs(t, err, entities.ErrInsufficientData)
}
