package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarkdownDecision records the checkpoint price review outcome
type MarkdownDecision struct {
	CheckpointWeek    Week            `json:"checkpoint_week"`
	SellThroughActual decimal.Decimal `json:"sell_through_actual"`
	SellThroughTarget decimal.Decimal `json:"sell_through_target"`
	Gap               decimal.Decimal `json:"gap"`
	RecommendedDepth  decimal.Decimal `json:"recommended_depth"`
	ApprovedDepth     decimal.Decimal `json:"approved_depth"`
	Approved          bool            `json:"approved"`
	DemandLift        decimal.Decimal `json:"demand_lift"`
	RemainingWeeks    int             `json:"remaining_weeks"`
	Reason            string          `json:"reason"`
	Advisory          string          `json:"advisory,omitempty"` // free-text note, never used for the decision
	DecidedAt         time.Time       `json:"decided_at"`
}

// HasMarkdown reports whether the effective depth reduces price
func (d MarkdownDecision) HasMarkdown() bool {
	return d.EffectiveDepth().IsPositive()
}

// EffectiveDepth returns the approved depth when approved, else the recommendation
func (d MarkdownDecision) EffectiveDepth() decimal.Decimal {
	if d.Approved {
		return d.ApprovedDepth
	}
	return d.RecommendedDepth
}

// VarianceAction is the outcome of a variance check
type VarianceAction int

const (
	ActionNone VarianceAction = iota
	ActionReforecastTriggered
	ActionEscalatedForReview
)

// String method for VarianceAction enum
func (a VarianceAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionReforecastTriggered:
		return "reforecast_triggered"
	case ActionEscalatedForReview:
		return "escalated_for_review"
	default:
		return "unknown"
	}
}

// MarshalText renders the action name in JSON output
func (a VarianceAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// VarianceEvent is one entry of the append-only variance audit trail
type VarianceEvent struct {
	Week               Week            `json:"week"`
	ForecastCumulative Quantity        `json:"forecast_cumulative"`
	ActualCumulative   Quantity        `json:"actual_cumulative"`
	VariancePct        decimal.Decimal `json:"variance_pct"`
	Action             VarianceAction  `json:"action"`
	ReportingStores    int             `json:"reporting_stores"`
	MissingStores      []StoreID       `json:"missing_stores,omitempty"`
	CheckedAt          time.Time       `json:"checked_at"`
}

// SeasonSummary is the season-end analysis
type SeasonSummary struct {
	UnitsSold          Quantity        `json:"units_sold"`
	ManufacturingOrder Quantity        `json:"manufacturing_order"`
	SellThrough        decimal.Decimal `json:"sell_through"`
	InitialForecast    Quantity        `json:"initial_forecast"`
	ForecastError      decimal.Decimal `json:"forecast_error"`
	Reforecasts        int             `json:"reforecasts"`
	MarkdownDepth      decimal.Decimal `json:"markdown_depth"`
	RemainingHoldback  Quantity        `json:"remaining_holdback"`
	EndingOnHand       Quantity        `json:"ending_on_hand"`
	ShortfallUnits     Quantity        `json:"shortfall_units"`
}
