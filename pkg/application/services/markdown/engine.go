package markdown

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// Engine recommends a markdown depth from the sell-through gap at the checkpoint week
type Engine struct {
	policy entities.MarkdownPolicy
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a markdown engine for one season's policy
func NewEngine(policy entities.MarkdownPolicy, opts ...Option) (*Engine, error) {
	if len(policy.Tiers) == 0 {
		return nil, entities.NewPlanningError(entities.KindInvalidInput, "markdown policy has no tiers")
	}
	for i := 1; i < len(policy.Tiers); i++ {
		if !policy.Tiers[i].MinGap.GreaterThan(policy.Tiers[i-1].MinGap) {
			return nil, entities.NewPlanningError(entities.KindInvalidInput, "markdown tiers must be strictly ascending by gap")
		}
	}
	e := &Engine{
		policy: policy,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SellThrough returns sold ÷ manufactured, zero when nothing was manufactured
func SellThrough(sold, manufactured entities.Quantity) decimal.Decimal {
	if manufactured <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(sold)).Div(decimal.NewFromInt(int64(manufactured)))
}

// Depth returns the tier depth for a positive gap, zero otherwise.
// A gap equal to a tier boundary falls into the higher tier under Inclusive mode.
func (e *Engine) Depth(gap decimal.Decimal) decimal.Decimal {
	if !gap.IsPositive() {
		return decimal.Zero
	}
	depth := e.policy.Tiers[0].Depth
	for _, tier := range e.policy.Tiers[1:] {
		if !e.policy.Boundary.Crosses(gap, tier.MinGap) {
			break
		}
		depth = tier.Depth
	}
	return depth
}

// Lift returns the expected demand lift of a markdown depth
func (e *Engine) Lift(depth decimal.Decimal) decimal.Decimal {
	return depth.Mul(e.policy.Elasticity)
}

// Evaluate produces the checkpoint decision. A non-positive gap or an exhausted season
// records an explicit no-markdown decision.
func (e *Engine) Evaluate(sellThroughActual, sellThroughTarget decimal.Decimal, remainingWeeks int) entities.MarkdownDecision {
	gap := sellThroughTarget.Sub(sellThroughActual)
	decision := entities.MarkdownDecision{
		SellThroughActual: sellThroughActual,
		SellThroughTarget: sellThroughTarget,
		Gap:               gap,
		RecommendedDepth:  decimal.Zero,
		ApprovedDepth:     decimal.Zero,
		DemandLift:        decimal.Zero,
		RemainingWeeks:    remainingWeeks,
		DecidedAt:         e.now(),
	}

	switch {
	case remainingWeeks <= 0:
		decision.Reason = "no weeks remain after the checkpoint"
	case !gap.IsPositive():
		decision.Reason = fmt.Sprintf("sell-through %s meets target %s", pct(sellThroughActual), pct(sellThroughTarget))
	default:
		decision.RecommendedDepth = e.Depth(gap)
		decision.DemandLift = e.Lift(decision.RecommendedDepth)
		decision.Reason = fmt.Sprintf("sell-through %s is %s below target %s",
			pct(sellThroughActual), pct(gap), pct(sellThroughTarget))
	}

	e.logger.Info("markdown evaluated",
		"sell_through", sellThroughActual.StringFixed(4),
		"target", sellThroughTarget.StringFixed(4),
		"gap", gap.StringFixed(4),
		"depth", decision.RecommendedDepth.String(),
		"remaining_weeks", remainingWeeks)
	return decision
}

// Approve records a human decision, which may override the recommended depth
func (e *Engine) Approve(decision entities.MarkdownDecision, depth decimal.Decimal, note string) (entities.MarkdownDecision, error) {
	if depth.IsNegative() || depth.GreaterThan(decimal.NewFromInt(1)) {
		return decision, entities.NewPlanningError(entities.KindInvalidInput, "markdown depth must be within [0, 1], got %s", depth)
	}
	decision.Approved = true
	decision.ApprovedDepth = depth
	decision.DemandLift = e.Lift(depth)
	if note != "" {
		decision.Advisory = note
	}
	decision.DecidedAt = e.now()
	return decision, nil
}

func pct(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}
