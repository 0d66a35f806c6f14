package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

func TestSeasonRepository_ForecastVersionsAreAppendOnly(t *testing.T) {
	repo := NewSeasonRepository()
	id := entities.NewSeasonID()

	require.NoError(t, repo.SaveForecast(&entities.DemandForecast{SeasonID: id, Version: 1}))
	require.NoError(t, repo.SaveForecast(&entities.DemandForecast{SeasonID: id, Version: 2}))
	assert.Error(t, repo.SaveForecast(&entities.DemandForecast{SeasonID: id, Version: 2}))

	forecasts, err := repo.GetForecasts(id)
	require.NoError(t, err)
	require.Len(t, forecasts, 2)
	assert.Equal(t, 1, forecasts[0].Version)
	assert.Equal(t, 2, forecasts[1].Version)
}

func TestSeasonRepository_PlanVersionsAreAppendOnly(t *testing.T) {
	repo := NewSeasonRepository()
	id := entities.NewSeasonID()

	require.NoError(t, repo.SavePlan(&entities.AllocationPlan{SeasonID: id, Version: 1}))
	assert.Error(t, repo.SavePlan(&entities.AllocationPlan{SeasonID: id, Version: 1}))

	plans, err := repo.GetPlans(id)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestSeasonRepository_ActualsRejectDuplicates(t *testing.T) {
	repo := NewSeasonRepository()
	id := entities.NewSeasonID()

	first := []entities.ActualsRecord{{StoreID: "S001", Week: 1, Units: 10}, {StoreID: "S002", Week: 1, Units: 5}}
	require.NoError(t, repo.AppendActuals(id, first))

	// a batch containing a duplicate is rejected as a whole
	err := repo.AppendActuals(id, []entities.ActualsRecord{{StoreID: "S003", Week: 1, Units: 1}, {StoreID: "S001", Week: 1, Units: 2}})
	assert.Error(t, err)

	actuals, err := repo.GetActuals(id)
	require.NoError(t, err)
	assert.Len(t, actuals, 2)
}

func TestSeasonRepository_SeasonsAreIsolated(t *testing.T) {
	repo := NewSeasonRepository()
	a, b := entities.NewSeasonID(), entities.NewSeasonID()

	require.NoError(t, repo.AppendVariance(a, entities.VarianceEvent{Week: 1}))
	require.NoError(t, repo.SaveMarkdown(a, entities.MarkdownDecision{CheckpointWeek: 6}))

	va, _ := repo.GetVarianceHistory(a)
	vb, _ := repo.GetVarianceHistory(b)
	assert.Len(t, va, 1)
	assert.Empty(t, vb)

	ma, _ := repo.GetMarkdowns(a)
	mb, _ := repo.GetMarkdowns(b)
	assert.Len(t, ma, 1)
	assert.Empty(t, mb)

	// returned slices are copies
	va[0].Week = 99
	again, _ := repo.GetVarianceHistory(a)
	assert.Equal(t, entities.Week(1), again[0].Week)
}

func TestSeasonRepository_StoredVersionsAreCopies(t *testing.T) {
	repo := NewSeasonRepository()
	id := entities.NewSeasonID()

	forecast := &entities.DemandForecast{
		SeasonID: id,
		Version:  1,
		Stores:   []entities.StoreForecast{{StoreID: "S001", Weekly: []entities.Quantity{10, 20}}},
	}
	plan := &entities.AllocationPlan{
		SeasonID:         id,
		Version:          1,
		Holdback:         65,
		InitialShipments: []entities.StoreQuantity{{StoreID: "S001", Quantity: 35}},
	}
	require.NoError(t, repo.SaveForecast(forecast))
	require.NoError(t, repo.SavePlan(plan))

	// mutations after save and after read must not reach the stored history
	forecast.Stores[0].Weekly[0] = 999
	plan.Holdback = -1

	forecasts, err := repo.GetForecasts(id)
	require.NoError(t, err)
	forecasts[0].Stores[0].Weekly[1] = 999
	plans, err := repo.GetPlans(id)
	require.NoError(t, err)
	plans[0].InitialShipments[0].Quantity = 0

	forecasts, _ = repo.GetForecasts(id)
	plans, _ = repo.GetPlans(id)
	assert.Equal(t, []entities.Quantity{10, 20}, forecasts[0].Stores[0].Weekly)
	assert.Equal(t, entities.Quantity(65), plans[0].Holdback)
	assert.Equal(t, entities.Quantity(35), plans[0].InitialShipments[0].Quantity)
}
