package events

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

const (
	SeasonStartedEvent = "season.started"
	SeasonBlockedEvent = "season.blocked"
	SeasonAbortedEvent = "season.aborted"
	SeasonEndedEvent   = "season.ended"
	PhaseChangedEvent  = "season.phase_changed"

	ForecastCreatedEvent = "forecast.created"
	PlanCreatedEvent     = "plan.created"

	ActualsRecordedEvent   = "actuals.recorded"
	VarianceCheckedEvent   = "variance.checked"
	ReplenishedEvent       = "replenishment.executed"
	ShortfallRecordedEvent = "shortfall.recorded"

	ApprovalRequestedEvent = "approval.requested"
	ApprovalGrantedEvent   = "approval.granted"
	MarkdownDecidedEvent   = "markdown.decided"
)

// AllSeasonEvents lists every event type the orchestrator publishes
var AllSeasonEvents = []string{
	SeasonStartedEvent, SeasonBlockedEvent, SeasonAbortedEvent, SeasonEndedEvent, PhaseChangedEvent,
	ForecastCreatedEvent, PlanCreatedEvent,
	ActualsRecordedEvent, VarianceCheckedEvent, ReplenishedEvent, ShortfallRecordedEvent,
	ApprovalRequestedEvent, ApprovalGrantedEvent, MarkdownDecidedEvent,
}

type SeasonStarted struct {
	Category string `json:"category"`
	Weeks    int    `json:"weeks"`
}

type SeasonBlocked struct {
	Phase  entities.Phase     `json:"phase"`
	Kind   entities.ErrorKind `json:"kind"`
	Reason string             `json:"reason"`
}

type SeasonAborted struct {
	Phase  entities.Phase `json:"phase"`
	Reason string         `json:"reason"`
}

type SeasonEnded struct {
	Summary entities.SeasonSummary `json:"summary"`
}

type PhaseChanged struct {
	From entities.Phase `json:"from"`
	To   entities.Phase `json:"to"`
	Week entities.Week  `json:"week"`
}

type ForecastCreated struct {
	Version       int                     `json:"version"`
	Reason        entities.ForecastReason `json:"reason"`
	CategoryTotal entities.Quantity       `json:"category_total"`
}

type PlanCreated struct {
	Version            int               `json:"version"`
	ForecastVersion    int               `json:"forecast_version"`
	ManufacturingOrder entities.Quantity `json:"manufacturing_order"`
	RemainingHoldback  entities.Quantity `json:"remaining_holdback"`
}

type ActualsRecorded struct {
	Week    entities.Week     `json:"week"`
	Records int               `json:"records"`
	Units   entities.Quantity `json:"units"`
}

type VarianceChecked struct {
	Event entities.VarianceEvent `json:"event"`
}

type Replenished struct {
	Cycle entities.ReplenishmentCycle `json:"cycle"`
}

type ShortfallRecorded struct {
	Shortfalls []entities.CapacityShortfall `json:"shortfalls"`
}

type ApprovalRequested struct {
	Kind        entities.ApprovalKind `json:"kind"`
	Recommended decimal.Decimal       `json:"recommended"`
}

type ApprovalGranted struct {
	Kind     entities.ApprovalKind `json:"kind"`
	Approved decimal.Decimal       `json:"approved"`
}

type MarkdownDecided struct {
	Decision entities.MarkdownDecision `json:"decision"`
}
