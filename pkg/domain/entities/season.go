package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Phase is a state of the seasonal workflow
type Phase int

const (
	PhasePreSeason Phase = iota
	PhaseInitialAllocation
	PhaseInSeason
	PhaseMidSeasonPricing
	PhaseSeasonEnd
	PhaseBlocked
	PhaseAborted
)

// String method for Phase enum
func (p Phase) String() string {
	switch p {
	case PhasePreSeason:
		return "PreSeason"
	case PhaseInitialAllocation:
		return "InitialAllocation"
	case PhaseInSeason:
		return "InSeason"
	case PhaseMidSeasonPricing:
		return "MidSeasonPricing"
	case PhaseSeasonEnd:
		return "SeasonEnd"
	case PhaseBlocked:
		return "Blocked"
	case PhaseAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// MarshalText renders the phase name in JSON output
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether no further transitions are possible
func (p Phase) Terminal() bool {
	return p == PhaseSeasonEnd || p == PhaseAborted
}

// ApprovalKind names a human-in-the-loop gate
type ApprovalKind int

const (
	ApprovalNone ApprovalKind = iota
	ApprovalManufacturingOrder
	ApprovalMarkdown
)

// String method for ApprovalKind enum
func (a ApprovalKind) String() string {
	switch a {
	case ApprovalNone:
		return "none"
	case ApprovalManufacturingOrder:
		return "manufacturing_order"
	case ApprovalMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// MarshalText renders the approval kind in JSON output
func (a ApprovalKind) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// DemandPolicy parameterizes the demand decomposer
type DemandPolicy struct {
	Weeks            int
	Archetype        Archetype
	ClusterCount     int
	ClusterTargets   map[ClusterID]decimal.Decimal // optional, overrides historical cluster shares
	HistoricalWeight decimal.Decimal               // blend weight of the historical factor
	MinHistoryWeeks  int
	GrowthPct        decimal.Decimal
	ReforecastMin    decimal.Decimal // clamp on the cumulative actual/forecast ratio
	ReforecastMax    decimal.Decimal
}

// AllocationPolicy parameterizes the allocation engine
type AllocationPolicy struct {
	Weeks             int
	Cadence           Cadence
	SafetyStockPct    decimal.Decimal
	HoldbackPct       decimal.Decimal // target used when shipments must be rescaled
	HoldbackMin       decimal.Decimal
	HoldbackMax       decimal.Decimal
	ShipmentBuffer    decimal.Decimal
	VarianceFactorMin decimal.Decimal
	VarianceFactorMax decimal.Decimal
}

// MarkdownTier maps a minimum sell-through gap to a markdown depth
type MarkdownTier struct {
	MinGap decimal.Decimal
	Depth  decimal.Decimal
}

// MarkdownPolicy parameterizes the markdown decision engine
type MarkdownPolicy struct {
	SellThroughTarget decimal.Decimal
	Tiers             []MarkdownTier // ascending by MinGap; the first tier applies to any positive gap
	Boundary          BoundaryMode
	Elasticity        decimal.Decimal
}

// VariancePolicy parameterizes the variance monitor
type VariancePolicy struct {
	Threshold       decimal.Decimal
	ReviewThreshold decimal.Decimal
	Boundary        BoundaryMode
}

// SeasonConfig is the full parameter set of one season
type SeasonConfig struct {
	Category                string
	Weeks                   int
	StartDate               time.Time
	CheckpointWeek          Week
	CategoryTotal           Quantity // optional override of the category forecaster
	RequireOrderApproval    bool
	RequireMarkdownApproval bool
	Demand                  DemandPolicy
	Allocation              AllocationPolicy
	Markdown                MarkdownPolicy
	Variance                VariancePolicy
}

// DefaultMarkdownTiers returns the standard 10/20/30 percent ladder
func DefaultMarkdownTiers() []MarkdownTier {
	return []MarkdownTier{
		{MinGap: decimal.Zero, Depth: decimal.RequireFromString("0.10")},
		{MinGap: decimal.RequireFromString("0.05"), Depth: decimal.RequireFromString("0.20")},
		{MinGap: decimal.RequireFromString("0.15"), Depth: decimal.RequireFromString("0.30")},
	}
}

// DefaultSeasonConfig returns a twelve week weekly-replenished season
func DefaultSeasonConfig(category string) SeasonConfig {
	const weeks = 12
	return SeasonConfig{
		Category:                category,
		Weeks:                   weeks,
		StartDate:               time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
		CheckpointWeek:          6,
		RequireOrderApproval:    false,
		RequireMarkdownApproval: false,
		Demand: DemandPolicy{
			Weeks:            weeks,
			Archetype:        ArchetypeFlat,
			ClusterCount:     3,
			HistoricalWeight: decimal.RequireFromString("0.7"),
			MinHistoryWeeks:  4,
			GrowthPct:        decimal.Zero,
			ReforecastMin:    decimal.RequireFromString("0.5"),
			ReforecastMax:    decimal.RequireFromString("2.0"),
		},
		Allocation: AllocationPolicy{
			Weeks:             weeks,
			Cadence:           CadenceWeekly,
			SafetyStockPct:    decimal.RequireFromString("0.10"),
			HoldbackPct:       decimal.RequireFromString("0.65"),
			HoldbackMin:       decimal.RequireFromString("0.60"),
			HoldbackMax:       decimal.RequireFromString("0.70"),
			ShipmentBuffer:    decimal.RequireFromString("0.10"),
			VarianceFactorMin: decimal.RequireFromString("0.5"),
			VarianceFactorMax: decimal.RequireFromString("2.0"),
		},
		Markdown: MarkdownPolicy{
			SellThroughTarget: decimal.RequireFromString("0.60"),
			Tiers:             DefaultMarkdownTiers(),
			Boundary:          Inclusive,
			Elasticity:        decimal.RequireFromString("0.5"),
		},
		Variance: VariancePolicy{
			Threshold:       decimal.RequireFromString("0.20"),
			ReviewThreshold: decimal.RequireFromString("0.10"),
			Boundary:        Exclusive,
		},
	}
}

// Normalize copies season-wide settings into the component policies
func (c SeasonConfig) Normalize() SeasonConfig {
	c.Demand.Weeks = c.Weeks
	c.Allocation.Weeks = c.Weeks
	return c
}

// Validate checks the cross-field rules a season must satisfy
func (c SeasonConfig) Validate() error {
	if c.Category == "" {
		return fmt.Errorf("category cannot be empty")
	}
	if c.Weeks <= 0 {
		return fmt.Errorf("season length must be positive, got %d", c.Weeks)
	}
	if c.CheckpointWeek < 1 || int(c.CheckpointWeek) > c.Weeks {
		return fmt.Errorf("checkpoint week %d outside season of %d weeks", c.CheckpointWeek, c.Weeks)
	}
	if c.CategoryTotal < 0 {
		return fmt.Errorf("category total cannot be negative, got %d", c.CategoryTotal)
	}
	if c.Demand.ClusterCount <= 0 {
		return fmt.Errorf("cluster count must be positive, got %d", c.Demand.ClusterCount)
	}
	if !isFraction(c.Demand.HistoricalWeight) {
		return fmt.Errorf("historical weight must be within [0, 1], got %s", c.Demand.HistoricalWeight)
	}
	if len(c.Demand.ClusterTargets) > 0 {
		sum := decimal.Zero
		for id, share := range c.Demand.ClusterTargets {
			if share.IsNegative() {
				return fmt.Errorf("cluster target for %s cannot be negative, got %s", id, share)
			}
			sum = sum.Add(share)
		}
		if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(ShareTolerance) {
			return fmt.Errorf("cluster targets must sum to 1, got %s", sum)
		}
	}
	if !c.Demand.ReforecastMin.IsPositive() || c.Demand.ReforecastMin.GreaterThan(c.Demand.ReforecastMax) {
		return fmt.Errorf("reforecast clamp min %s exceeds max %s", c.Demand.ReforecastMin, c.Demand.ReforecastMax)
	}

	a := c.Allocation
	if a.SafetyStockPct.IsNegative() {
		return fmt.Errorf("safety stock cannot be negative, got %s", a.SafetyStockPct)
	}
	if a.ShipmentBuffer.IsNegative() {
		return fmt.Errorf("shipment buffer cannot be negative, got %s", a.ShipmentBuffer)
	}
	if !isFraction(a.HoldbackMin) || !isFraction(a.HoldbackMax) || a.HoldbackMin.GreaterThan(a.HoldbackMax) {
		return fmt.Errorf("holdback bounds [%s, %s] are invalid", a.HoldbackMin, a.HoldbackMax)
	}
	if a.HoldbackPct.LessThan(a.HoldbackMin) || a.HoldbackPct.GreaterThan(a.HoldbackMax) {
		return fmt.Errorf("holdback target %s outside bounds [%s, %s]", a.HoldbackPct, a.HoldbackMin, a.HoldbackMax)
	}
	if !a.VarianceFactorMin.IsPositive() || a.VarianceFactorMin.GreaterThan(a.VarianceFactorMax) {
		return fmt.Errorf("variance factor cap [%s, %s] is invalid", a.VarianceFactorMin, a.VarianceFactorMax)
	}

	m := c.Markdown
	if len(m.Tiers) == 0 {
		return fmt.Errorf("at least one markdown tier is required")
	}
	for i := 1; i < len(m.Tiers); i++ {
		if !m.Tiers[i].MinGap.GreaterThan(m.Tiers[i-1].MinGap) {
			return fmt.Errorf("markdown tiers must be strictly ascending by gap")
		}
		if m.Tiers[i].Depth.LessThan(m.Tiers[i-1].Depth) {
			return fmt.Errorf("markdown tier depths must not decrease")
		}
	}
	for _, t := range m.Tiers {
		if !isFraction(t.Depth) {
			return fmt.Errorf("markdown depth must be within [0, 1], got %s", t.Depth)
		}
	}
	if !isFraction(m.SellThroughTarget) {
		return fmt.Errorf("sell-through target must be within [0, 1], got %s", m.SellThroughTarget)
	}
	if m.Elasticity.IsNegative() {
		return fmt.Errorf("elasticity cannot be negative, got %s", m.Elasticity)
	}

	v := c.Variance
	if !v.Threshold.IsPositive() {
		return fmt.Errorf("variance threshold must be positive, got %s", v.Threshold)
	}
	if v.ReviewThreshold.IsNegative() || v.ReviewThreshold.GreaterThan(v.Threshold) {
		return fmt.Errorf("review threshold %s must be within [0, %s]", v.ReviewThreshold, v.Threshold)
	}
	return nil
}

func isFraction(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(1))
}
