package dto

import (
	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// SeasonStatus is the read-only projection returned by status queries
type SeasonStatus struct {
	SeasonID        entities.SeasonID     `json:"season_id"`
	Category        string                `json:"category"`
	Phase           entities.Phase        `json:"phase"`
	CurrentWeek     entities.Week         `json:"current_week"` // last closed week, 0 before the first submission
	Weeks           int                   `json:"weeks"`
	BlockedReason   string                `json:"blocked_reason,omitempty"`
	BlockedKind     entities.ErrorKind    `json:"blocked_kind,omitempty"`
	PendingApproval entities.ApprovalKind `json:"pending_approval"`
	ProposedOrder   entities.Quantity     `json:"proposed_order,omitempty"` // awaiting manufacturing approval
	ForecastVersion int                   `json:"forecast_version"`
	PlanVersion     int                   `json:"plan_version"`
	EscalatedWeeks  []entities.Week       `json:"escalated_weeks,omitempty"`
	DataGapWeeks    []entities.Week       `json:"data_gap_weeks,omitempty"`
	OversoldWeeks   []entities.Week       `json:"oversold_weeks,omitempty"` // weeks with sales above on-hand stock
	AbortReason     string                `json:"abort_reason,omitempty"`
}

// SubmitResult reports everything one actuals submission caused
type SubmitResult struct {
	Week          entities.Week                `json:"week"`
	Phase         entities.Phase               `json:"phase"`
	Variance      entities.VarianceEvent       `json:"variance"`
	Reforecast    *entities.DemandForecast     `json:"reforecast,omitempty"`
	RevisedPlan   *entities.AllocationPlan     `json:"revised_plan,omitempty"`
	Cycle         *entities.ReplenishmentCycle `json:"cycle,omitempty"`
	Markdown      *entities.MarkdownDecision   `json:"markdown,omitempty"`
	DataGaps      []entities.StoreID           `json:"data_gaps,omitempty"`
	Oversold      []entities.StoreQuantity     `json:"oversold,omitempty"` // units sold beyond on-hand, by store
	Summary       *entities.SeasonSummary      `json:"summary,omitempty"`
	DeferredCycle bool                         `json:"deferred_cycle"` // replenishment waits for markdown approval
}
