package demand

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/domain/services"
	testhelpers "github.com/vsinha/seasonplan/pkg/infrastructure/testing"
)

var fixedNow = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

func newTestDecomposer() *Decomposer {
	return NewDecomposer(WithClock(func() time.Time { return fixedNow }))
}

func regionalInput(total entities.Quantity) Input {
	stores := testhelpers.BuildRegionalStores()
	cfg := testhelpers.BuildSeasonConfig(total)
	return Input{
		SeasonID:      entities.NewSeasonID(),
		CategoryTotal: total,
		Stores:        stores,
		History:       testhelpers.BuildHistory(stores, testhelpers.Category, 12),
		Policy:        cfg.Demand,
	}
}

func actualsFor(f *entities.DemandForecast, through entities.Week, pct string) []entities.ActualsRecord {
	scale := decimal.RequireFromString(pct)
	var out []entities.ActualsRecord
	for w := entities.Week(1); w <= through; w++ {
		for _, s := range f.Stores {
			units := decimal.NewFromInt(int64(s.WeekQty(w))).Mul(scale).Round(0).IntPart()
			out = append(out, entities.ActualsRecord{StoreID: s.StoreID, Week: w, Units: entities.Quantity(units)})
		}
	}
	return out
}

func TestDecomposer_ClusterTargets(t *testing.T) {
	forecast, err := newTestDecomposer().Decompose(context.Background(), regionalInput(8000))
	require.NoError(t, err)

	want := map[entities.ClusterID]entities.Quantity{"C1": 3200, "C2": 2800, "C3": 2000}
	require.Len(t, forecast.Clusters, 3)
	for _, c := range forecast.Clusters {
		assert.Equal(t, want[c.ClusterID], c.Total, "cluster %s", c.ClusterID)
	}
	assert.Equal(t, entities.Quantity(8000), forecast.CategoryTotal)
	assert.Equal(t, 1, forecast.Version)
	assert.Equal(t, entities.ReasonInitial, forecast.Reason)
	assert.NoError(t, services.ValidateForecast(forecast).Err())
}

func TestDecomposer_StoreTotalsFollowFactors(t *testing.T) {
	forecast, err := newTestDecomposer().Decompose(context.Background(), regionalInput(8000))
	require.NoError(t, err)

	// history is proportional to size, so factors equal size shares within a cluster
	want := map[entities.StoreID]entities.Quantity{
		"S001": 1280, "S002": 1024, "S003": 896,
		"S004": 1027, "S005": 933, "S006": 840,
		"S007": 777, "S008": 667, "S009": 556,
	}
	for _, s := range forecast.Stores {
		assert.Equal(t, want[s.StoreID], s.SeasonTotal, "store %s", s.StoreID)
		assert.Len(t, s.Weekly, 12)
		assert.Equal(t, s.SeasonTotal, entities.SumQuantities(s.Weekly))
	}
}

func TestDecomposer_SumPropertyAcrossTotals(t *testing.T) {
	d := newTestDecomposer()
	for _, total := range []entities.Quantity{1, 7, 99, 1001, 8000, 123457} {
		forecast, err := d.Decompose(context.Background(), regionalInput(total))
		require.NoError(t, err)
		assert.Equal(t, total, forecast.StoreWeeklySum(), "total %d", total)
		assert.True(t, services.ValidateForecast(forecast).Valid(), "total %d", total)
	}
}

func TestDecomposer_Idempotent(t *testing.T) {
	in := regionalInput(8000)
	a, err := newTestDecomposer().Decompose(context.Background(), in)
	require.NoError(t, err)
	b, err := newTestDecomposer().Decompose(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecomposer_ZeroTotal(t *testing.T) {
	forecast, err := newTestDecomposer().Decompose(context.Background(), regionalInput(0))
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(0), forecast.CategoryTotal)
	for _, s := range forecast.Stores {
		assert.Equal(t, entities.Quantity(0), s.SeasonTotal)
	}
	assert.True(t, services.ValidateForecast(forecast).Valid())
}

func TestDecomposer_NoHistoryFallsBackToAttributes(t *testing.T) {
	stores := testhelpers.BuildUnclusteredStores(6)
	policy := entities.DefaultSeasonConfig("swim").Normalize().Demand

	forecast, err := newTestDecomposer().Decompose(context.Background(), Input{
		SeasonID:      entities.NewSeasonID(),
		CategoryTotal: 6000,
		Stores:        stores,
		Policy:        policy,
	})
	require.NoError(t, err)

	for _, s := range forecast.Stores {
		assert.True(t, s.HistoricalFactor.IsZero(), "store %s", s.StoreID)
		assert.True(t, s.Factor.Equal(s.AttributeFactor), "store %s", s.StoreID)
	}
	assert.Equal(t, entities.Quantity(6000), forecast.CategoryTotal)
	assert.True(t, services.ValidateForecast(forecast).Valid())
}

func TestDecomposer_RejectsBadInput(t *testing.T) {
	d := newTestDecomposer()

	in := regionalInput(100)
	in.CategoryTotal = -1
	_, err := d.Decompose(context.Background(), in)
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	in = regionalInput(100)
	in.Stores = nil
	_, err = d.Decompose(context.Background(), in)
	assert.ErrorIs(t, err, entities.ErrInsufficientData)

	in = regionalInput(100)
	delete(in.Policy.ClusterTargets, "C3")
	_, err = d.Decompose(context.Background(), in)
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}

func TestDecomposer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestDecomposer().Decompose(ctx, regionalInput(8000))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlendFactor(t *testing.T) {
	got := BlendFactor(decimal.RequireFromString("0.0548"), decimal.RequireFromString("0.0555"), decimal.RequireFromString("0.7"))
	assert.True(t, got.Equal(decimal.RequireFromString("0.05501")), "got %s", got)

	// weight 1 is history only, weight 0 is attributes only
	assert.True(t, BlendFactor(decimal.NewFromInt(1), decimal.Zero, decimal.NewFromInt(1)).Equal(decimal.NewFromInt(1)))
	assert.True(t, BlendFactor(decimal.NewFromInt(1), decimal.Zero, decimal.Zero).IsZero())
}

func TestRedecompose_VarianceScalesRemaining(t *testing.T) {
	d := newTestDecomposer()
	in := regionalInput(8000)
	prior, err := d.Decompose(context.Background(), in)
	require.NoError(t, err)

	actuals := actualsFor(prior, 2, "1.31")
	next, err := d.Redecompose(context.Background(), RedecomposeInput{
		Prior:      prior,
		Stores:     in.Stores,
		History:    in.History,
		Actuals:    actuals,
		ClosedWeek: 2,
		Reason:     entities.ReasonVariance,
		Policy:     in.Policy,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, next.Version)
	assert.Equal(t, entities.ReasonVariance, next.Reason)
	assert.Equal(t, entities.Week(2), next.LockedWeeks)
	assert.NoError(t, services.ValidateForecast(next).Err())

	var actualCum, forecastCum entities.Quantity
	for _, r := range actuals {
		actualCum += r.Units
		sf, _ := prior.Store(r.StoreID)
		forecastCum += sf.WeekQty(r.Week)
	}
	ratio := decimal.NewFromInt(int64(actualCum)).Div(decimal.NewFromInt(int64(forecastCum)))
	wantRemaining := decimal.NewFromInt(int64(prior.RemainingTotal(2))).Mul(ratio).Round(0).IntPart()
	assert.Equal(t, entities.Quantity(wantRemaining), next.RemainingTotal(2))
	assert.Equal(t, actualCum+next.RemainingTotal(2), next.CategoryTotal)

	// closed weeks are locked to actuals
	for _, r := range actuals {
		sf, ok := next.Store(r.StoreID)
		require.True(t, ok)
		assert.Equal(t, r.Units, sf.WeekQty(r.Week))
	}

	// clustering is reused
	assert.Equal(t, prior.ClusterAssignments(), next.ClusterAssignments())
}

func TestRedecompose_RatioIsClamped(t *testing.T) {
	d := newTestDecomposer()
	in := regionalInput(8000)
	prior, err := d.Decompose(context.Background(), in)
	require.NoError(t, err)

	next, err := d.Redecompose(context.Background(), RedecomposeInput{
		Prior:      prior,
		Stores:     in.Stores,
		History:    in.History,
		Actuals:    actualsFor(prior, 1, "5"),
		ClosedWeek: 1,
		Reason:     entities.ReasonVariance,
		Policy:     in.Policy,
	})
	require.NoError(t, err)
	assert.Equal(t, prior.RemainingTotal(1)*2, next.RemainingTotal(1))
}

func TestRedecompose_MarkdownLift(t *testing.T) {
	d := newTestDecomposer()
	in := regionalInput(8000)
	prior, err := d.Decompose(context.Background(), in)
	require.NoError(t, err)

	next, err := d.Redecompose(context.Background(), RedecomposeInput{
		Prior:      prior,
		Stores:     in.Stores,
		History:    in.History,
		Actuals:    actualsFor(prior, 6, "1"),
		ClosedWeek: 6,
		Reason:     entities.ReasonMarkdown,
		Lift:       decimal.RequireFromString("0.25"),
		Policy:     in.Policy,
	})
	require.NoError(t, err)

	want := decimal.NewFromInt(int64(prior.RemainingTotal(6))).Mul(decimal.RequireFromString("1.25")).Round(0).IntPart()
	assert.Equal(t, entities.Quantity(want), next.RemainingTotal(6))
	assert.True(t, next.DemandLift.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, entities.ReasonMarkdown, next.Reason)
	assert.True(t, services.ValidateForecast(next).Valid())
}

func TestRedecompose_MissingActualKeepsPriorWeek(t *testing.T) {
	d := newTestDecomposer()
	in := regionalInput(8000)
	prior, err := d.Decompose(context.Background(), in)
	require.NoError(t, err)

	var actuals []entities.ActualsRecord
	for _, r := range actualsFor(prior, 1, "1") {
		if r.StoreID != "S009" {
			actuals = append(actuals, r)
		}
	}
	next, err := d.Redecompose(context.Background(), RedecomposeInput{
		Prior: prior, Stores: in.Stores, History: in.History, Actuals: actuals,
		ClosedWeek: 1, Reason: entities.ReasonVariance, Policy: in.Policy,
	})
	require.NoError(t, err)

	before, _ := prior.Store("S009")
	after, _ := next.Store("S009")
	assert.Equal(t, before.WeekQty(1), after.WeekQty(1))
}

func TestRedecompose_RejectsBadInput(t *testing.T) {
	d := newTestDecomposer()
	_, err := d.Redecompose(context.Background(), RedecomposeInput{})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	in := regionalInput(800)
	prior, err := d.Decompose(context.Background(), in)
	require.NoError(t, err)
	_, err = d.Redecompose(context.Background(), RedecomposeInput{Prior: prior, Stores: in.Stores, ClosedWeek: 13, Policy: in.Policy})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	_, err = d.Redecompose(context.Background(), RedecomposeInput{Prior: prior, Stores: in.Stores[:3], ClosedWeek: 1, Policy: in.Policy})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}
