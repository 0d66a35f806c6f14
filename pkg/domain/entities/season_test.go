package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeasonConfig_IsValid(t *testing.T) {
	cfg := DefaultSeasonConfig("outerwear").Normalize()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 12, cfg.Demand.Weeks)
	assert.Equal(t, 12, cfg.Allocation.Weeks)
	assert.Equal(t, Week(6), cfg.CheckpointWeek)
}

func TestSeasonConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SeasonConfig)
		wantErr string
	}{
		{"empty category", func(c *SeasonConfig) { c.Category = "" }, "category"},
		{"zero weeks", func(c *SeasonConfig) { c.Weeks = 0 }, "season length"},
		{"checkpoint past end", func(c *SeasonConfig) { c.CheckpointWeek = 13 }, "checkpoint week"},
		{"negative total", func(c *SeasonConfig) { c.CategoryTotal = -1 }, "category total"},
		{"no clusters", func(c *SeasonConfig) { c.Demand.ClusterCount = 0 }, "cluster count"},
		{"weight above one", func(c *SeasonConfig) { c.Demand.HistoricalWeight = decimal.NewFromInt(2) }, "historical weight"},
		{"targets off", func(c *SeasonConfig) {
			c.Demand.ClusterTargets = map[ClusterID]decimal.Decimal{"C1": decimal.RequireFromString("0.5")}
		}, "sum to 1"},
		{"holdback outside bounds", func(c *SeasonConfig) {
			c.Allocation.HoldbackPct = decimal.RequireFromString("0.9")
		}, "holdback target"},
		{"inverted factor cap", func(c *SeasonConfig) {
			c.Allocation.VarianceFactorMin = decimal.NewFromInt(3)
		}, "variance factor cap"},
		{"no tiers", func(c *SeasonConfig) { c.Markdown.Tiers = nil }, "markdown tier"},
		{"decreasing depth", func(c *SeasonConfig) {
			c.Markdown.Tiers[2].Depth = decimal.RequireFromString("0.05")
		}, "must not decrease"},
		{"zero variance threshold", func(c *SeasonConfig) { c.Variance.Threshold = decimal.Zero }, "variance threshold"},
		{"review above threshold", func(c *SeasonConfig) {
			c.Variance.ReviewThreshold = decimal.RequireFromString("0.5")
		}, "review threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSeasonConfig("outerwear")
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPhase_Terminal(t *testing.T) {
	assert.True(t, PhaseSeasonEnd.Terminal())
	assert.True(t, PhaseAborted.Terminal())
	assert.False(t, PhaseBlocked.Terminal())
	assert.False(t, PhaseInSeason.Terminal())

	text, err := PhaseMidSeasonPricing.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "MidSeasonPricing", string(text))
}

func TestMarkdownDecision_EffectiveDepth(t *testing.T) {
	d := MarkdownDecision{RecommendedDepth: decimal.RequireFromString("0.20")}
	assert.True(t, d.EffectiveDepth().Equal(decimal.RequireFromString("0.20")))
	assert.True(t, d.HasMarkdown())

	d.Approved = true
	d.ApprovedDepth = decimal.Zero
	assert.True(t, d.EffectiveDepth().IsZero())
	assert.False(t, d.HasMarkdown())
}

func TestDemandForecast_Clone(t *testing.T) {
	f := &DemandForecast{
		Version:  2,
		Clusters: []ClusterForecast{{ClusterID: "C1", Total: 30, Stores: []StoreID{"S001"}}},
		Stores:   []StoreForecast{{StoreID: "S001", ClusterID: "C1", SeasonTotal: 30, Weekly: []Quantity{10, 20}}},
	}
	cp := f.Clone()
	require.Equal(t, f, cp)

	cp.Stores[0].Weekly[0] = 0
	cp.Clusters[0].Stores[0] = "S999"
	assert.Equal(t, Quantity(10), f.Stores[0].Weekly[0])
	assert.Equal(t, StoreID("S001"), f.Clusters[0].Stores[0])
}
