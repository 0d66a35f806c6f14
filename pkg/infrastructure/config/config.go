// Package config reads season parameter files.
//
// A season file is YAML. Fractions are written as decimal strings ("0.65") so no value passes
// through a binary float. Any field left out keeps its default.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

const dateLayout = "2006-01-02"

// File models one season YAML file
type File struct {
	Category                string `yaml:"category" validate:"required"`
	Weeks                   int    `yaml:"weeks" validate:"required,min=1,max=104"`
	StartDate               string `yaml:"start_date" validate:"omitempty,datetime=2006-01-02"`
	CheckpointWeek          int    `yaml:"checkpoint_week" validate:"omitempty,min=1,ltefield=Weeks"`
	CategoryTotal           int64  `yaml:"category_total" validate:"min=0"`
	RequireOrderApproval    bool   `yaml:"require_order_approval"`
	RequireMarkdownApproval bool   `yaml:"require_markdown_approval"`

	Demand     DemandConfig     `yaml:"demand"`
	Allocation AllocationConfig `yaml:"allocation"`
	Markdown   MarkdownConfig   `yaml:"markdown"`
	Variance   VarianceConfig   `yaml:"variance"`
	Data       DataConfig       `yaml:"data"`
}

// DemandConfig holds the demand decomposition settings
type DemandConfig struct {
	Archetype        string            `yaml:"archetype" validate:"omitempty,oneof=flat ramped bell"`
	ClusterCount     int               `yaml:"cluster_count" validate:"min=1,max=50"`
	ClusterTargets   map[string]string `yaml:"cluster_targets" validate:"omitempty,dive,keys,required,endkeys,numeric"`
	HistoricalWeight string            `yaml:"historical_weight" validate:"numeric"`
	MinHistoryWeeks  int               `yaml:"min_history_weeks" validate:"min=0"`
	GrowthPct        string            `yaml:"growth_pct" validate:"numeric"`
	ReforecastMin    string            `yaml:"reforecast_min" validate:"numeric"`
	ReforecastMax    string            `yaml:"reforecast_max" validate:"numeric"`
}

// AllocationConfig holds the manufacturing and replenishment settings
type AllocationConfig struct {
	Cadence           string `yaml:"cadence" validate:"oneof=none weekly biweekly"`
	SafetyStockPct    string `yaml:"safety_stock_pct" validate:"numeric"`
	HoldbackPct       string `yaml:"holdback_pct" validate:"numeric"`
	HoldbackMin       string `yaml:"holdback_min" validate:"numeric"`
	HoldbackMax       string `yaml:"holdback_max" validate:"numeric"`
	ShipmentBuffer    string `yaml:"shipment_buffer" validate:"numeric"`
	VarianceFactorMin string `yaml:"variance_factor_min" validate:"numeric"`
	VarianceFactorMax string `yaml:"variance_factor_max" validate:"numeric"`
}

// TierConfig is one markdown ladder step
type TierConfig struct {
	MinGap string `yaml:"min_gap" validate:"required,numeric"`
	Depth  string `yaml:"depth" validate:"required,numeric"`
}

// MarkdownConfig holds the checkpoint pricing settings
type MarkdownConfig struct {
	SellThroughTarget string       `yaml:"sell_through_target" validate:"numeric"`
	Tiers             []TierConfig `yaml:"tiers" validate:"required,min=1,dive"`
	Boundary          string       `yaml:"boundary" validate:"oneof=inclusive exclusive"`
	Elasticity        string       `yaml:"elasticity" validate:"numeric"`
}

// VarianceConfig holds the variance monitor settings
type VarianceConfig struct {
	Threshold       string `yaml:"threshold" validate:"numeric"`
	ReviewThreshold string `yaml:"review_threshold" validate:"numeric"`
	Boundary        string `yaml:"boundary" validate:"oneof=inclusive exclusive"`
}

// DataConfig points at the CSV inputs of a simulation; relative paths resolve against the file
type DataConfig struct {
	Stores  string `yaml:"stores"`
	History string `yaml:"history"`
	Actuals string `yaml:"actuals"`
}

// DefaultFile returns a File carrying the default season parameters
func DefaultFile() *File {
	d := entities.DefaultSeasonConfig("")
	f := &File{
		Weeks:     d.Weeks,
		StartDate: d.StartDate.Format(dateLayout),
		Demand: DemandConfig{
			Archetype:        d.Demand.Archetype.String(),
			ClusterCount:     d.Demand.ClusterCount,
			HistoricalWeight: d.Demand.HistoricalWeight.String(),
			MinHistoryWeeks:  d.Demand.MinHistoryWeeks,
			GrowthPct:        d.Demand.GrowthPct.String(),
			ReforecastMin:    d.Demand.ReforecastMin.String(),
			ReforecastMax:    d.Demand.ReforecastMax.String(),
		},
		Allocation: AllocationConfig{
			Cadence:           d.Allocation.Cadence.String(),
			SafetyStockPct:    d.Allocation.SafetyStockPct.String(),
			HoldbackPct:       d.Allocation.HoldbackPct.String(),
			HoldbackMin:       d.Allocation.HoldbackMin.String(),
			HoldbackMax:       d.Allocation.HoldbackMax.String(),
			ShipmentBuffer:    d.Allocation.ShipmentBuffer.String(),
			VarianceFactorMin: d.Allocation.VarianceFactorMin.String(),
			VarianceFactorMax: d.Allocation.VarianceFactorMax.String(),
		},
		Markdown: MarkdownConfig{
			SellThroughTarget: d.Markdown.SellThroughTarget.String(),
			Boundary:          d.Markdown.Boundary.String(),
			Elasticity:        d.Markdown.Elasticity.String(),
		},
		Variance: VarianceConfig{
			Threshold:       d.Variance.Threshold.String(),
			ReviewThreshold: d.Variance.ReviewThreshold.String(),
			Boundary:        d.Variance.Boundary.String(),
		},
	}
	for _, t := range d.Markdown.Tiers {
		f.Markdown.Tiers = append(f.Markdown.Tiers, TierConfig{MinGap: t.MinGap.String(), Depth: t.Depth.String()})
	}
	return f
}

// ToSeasonConfig converts the file into a normalized SeasonConfig.
// An unset checkpoint week defaults to the middle of the season.
func (f *File) ToSeasonConfig() (entities.SeasonConfig, error) {
	cfg := entities.DefaultSeasonConfig(f.Category)
	p := &parser{}

	cfg.Weeks = f.Weeks
	cfg.CheckpointWeek = entities.Week(f.CheckpointWeek)
	if cfg.CheckpointWeek == 0 {
		cfg.CheckpointWeek = entities.Week(max(f.Weeks/2, 1))
	}
	if f.StartDate != "" {
		start, err := time.Parse(dateLayout, f.StartDate)
		if err != nil {
			return cfg, fmt.Errorf("invalid start_date: %w", err)
		}
		cfg.StartDate = start
	}
	cfg.CategoryTotal = entities.Quantity(f.CategoryTotal)
	cfg.RequireOrderApproval = f.RequireOrderApproval
	cfg.RequireMarkdownApproval = f.RequireMarkdownApproval

	archetype, err := entities.ParseArchetype(f.Demand.Archetype)
	if err != nil {
		return cfg, err
	}
	cfg.Demand.Archetype = archetype
	cfg.Demand.ClusterCount = f.Demand.ClusterCount
	cfg.Demand.MinHistoryWeeks = f.Demand.MinHistoryWeeks
	cfg.Demand.HistoricalWeight = p.decimal("demand.historical_weight", f.Demand.HistoricalWeight)
	cfg.Demand.GrowthPct = p.decimal("demand.growth_pct", f.Demand.GrowthPct)
	cfg.Demand.ReforecastMin = p.decimal("demand.reforecast_min", f.Demand.ReforecastMin)
	cfg.Demand.ReforecastMax = p.decimal("demand.reforecast_max", f.Demand.ReforecastMax)
	if len(f.Demand.ClusterTargets) > 0 {
		cfg.Demand.ClusterTargets = make(map[entities.ClusterID]decimal.Decimal, len(f.Demand.ClusterTargets))
		for id, share := range f.Demand.ClusterTargets {
			cfg.Demand.ClusterTargets[entities.ClusterID(id)] = p.decimal("demand.cluster_targets."+id, share)
		}
	}

	cadence, err := entities.ParseCadence(f.Allocation.Cadence)
	if err != nil {
		return cfg, err
	}
	a := f.Allocation
	cfg.Allocation.Cadence = cadence
	cfg.Allocation.SafetyStockPct = p.decimal("allocation.safety_stock_pct", a.SafetyStockPct)
	cfg.Allocation.HoldbackPct = p.decimal("allocation.holdback_pct", a.HoldbackPct)
	cfg.Allocation.HoldbackMin = p.decimal("allocation.holdback_min", a.HoldbackMin)
	cfg.Allocation.HoldbackMax = p.decimal("allocation.holdback_max", a.HoldbackMax)
	cfg.Allocation.ShipmentBuffer = p.decimal("allocation.shipment_buffer", a.ShipmentBuffer)
	cfg.Allocation.VarianceFactorMin = p.decimal("allocation.variance_factor_min", a.VarianceFactorMin)
	cfg.Allocation.VarianceFactorMax = p.decimal("allocation.variance_factor_max", a.VarianceFactorMax)

	if cfg.Markdown.Boundary, err = entities.ParseBoundaryMode(f.Markdown.Boundary); err != nil {
		return cfg, err
	}
	cfg.Markdown.SellThroughTarget = p.decimal("markdown.sell_through_target", f.Markdown.SellThroughTarget)
	cfg.Markdown.Elasticity = p.decimal("markdown.elasticity", f.Markdown.Elasticity)
	cfg.Markdown.Tiers = make([]entities.MarkdownTier, len(f.Markdown.Tiers))
	for i, t := range f.Markdown.Tiers {
		cfg.Markdown.Tiers[i] = entities.MarkdownTier{
			MinGap: p.decimal(fmt.Sprintf("markdown.tiers[%d].min_gap", i), t.MinGap),
			Depth:  p.decimal(fmt.Sprintf("markdown.tiers[%d].depth", i), t.Depth),
		}
	}

	if cfg.Variance.Boundary, err = entities.ParseBoundaryMode(f.Variance.Boundary); err != nil {
		return cfg, err
	}
	cfg.Variance.Threshold = p.decimal("variance.threshold", f.Variance.Threshold)
	cfg.Variance.ReviewThreshold = p.decimal("variance.review_threshold", f.Variance.ReviewThreshold)

	if p.err != nil {
		return cfg, p.err
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid season parameters: %w", err)
	}
	return cfg, nil
}

// parser keeps the first decimal conversion error
type parser struct {
	err error
}

func (p *parser) decimal(field, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: invalid decimal %q", field, value)
	}
	return d
}
