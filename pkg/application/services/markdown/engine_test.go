package markdown

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T, boundary entities.BoundaryMode) *Engine {
	t.Helper()
	policy := entities.DefaultSeasonConfig("test").Markdown
	policy.Boundary = boundary
	e, err := NewEngine(policy)
	require.NoError(t, err)
	return e
}

func TestEngine_Depth(t *testing.T) {
	tests := []struct {
		name     string
		gap      string
		boundary entities.BoundaryMode
		want     string
	}{
		{"on target", "0", entities.Inclusive, "0"},
		{"ahead of target", "-0.10", entities.Inclusive, "0"},
		{"small gap", "0.02", entities.Inclusive, "0.10"},
		{"gap at 5% inclusive", "0.05", entities.Inclusive, "0.20"},
		{"gap at 5% exclusive", "0.05", entities.Exclusive, "0.10"},
		{"middle tier", "0.10", entities.Inclusive, "0.20"},
		{"gap at 15% inclusive", "0.15", entities.Inclusive, "0.30"},
		{"gap at 15% exclusive", "0.15", entities.Exclusive, "0.20"},
		{"large gap", "0.40", entities.Exclusive, "0.30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestEngine(t, tt.boundary).Depth(dec(tt.gap))
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestEngine_EvaluateAtTierBoundary(t *testing.T) {
	// 55% sold against a 60% target
	d := newTestEngine(t, entities.Inclusive).Evaluate(dec("0.55"), dec("0.60"), 6)
	assert.True(t, d.Gap.Equal(dec("0.05")))
	assert.True(t, d.RecommendedDepth.Equal(dec("0.20")))
	assert.True(t, d.DemandLift.Equal(dec("0.10")))
	assert.True(t, d.HasMarkdown())
	assert.False(t, d.Approved)
}

func TestEngine_DepthIsMonotonic(t *testing.T) {
	for _, mode := range []entities.BoundaryMode{entities.Inclusive, entities.Exclusive} {
		e := newTestEngine(t, mode)
		prev := decimal.Zero
		for g := 0; g <= 100; g++ {
			depth := e.Depth(decimal.New(int64(g), -2))
			assert.True(t, depth.GreaterThanOrEqual(prev), "mode %s gap %d%%", mode, g)
			prev = depth
		}
	}
}

func TestEngine_NoMarkdown(t *testing.T) {
	e := newTestEngine(t, entities.Inclusive)

	d := e.Evaluate(dec("0.70"), dec("0.60"), 6)
	assert.False(t, d.HasMarkdown())
	assert.Contains(t, d.Reason, "meets target")

	d = e.Evaluate(dec("0.10"), dec("0.60"), 0)
	assert.False(t, d.HasMarkdown())
	assert.Contains(t, d.Reason, "no weeks remain")
}

func TestEngine_ApproveOverride(t *testing.T) {
	e := newTestEngine(t, entities.Inclusive)
	d := e.Evaluate(dec("0.40"), dec("0.60"), 6)
	require.True(t, d.RecommendedDepth.Equal(dec("0.30")))

	approved, err := e.Approve(d, dec("0.25"), "hold margin")
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	assert.True(t, approved.EffectiveDepth().Equal(dec("0.25")))
	assert.True(t, approved.DemandLift.Equal(dec("0.125")))
	assert.Equal(t, "hold margin", approved.Advisory)

	_, err = e.Approve(d, dec("1.5"), "")
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}

func TestSellThrough(t *testing.T) {
	assert.True(t, SellThrough(4840, 8800).Equal(dec("0.55")))
	assert.True(t, SellThrough(10, 0).IsZero())
}

func TestNewEngine_RejectsBadTiers(t *testing.T) {
	_, err := NewEngine(entities.MarkdownPolicy{})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	_, err = NewEngine(entities.MarkdownPolicy{Tiers: []entities.MarkdownTier{
		{MinGap: dec("0.1"), Depth: dec("0.1")},
		{MinGap: dec("0.1"), Depth: dec("0.2")},
	}})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}
