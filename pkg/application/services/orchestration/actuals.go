package orchestration

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/application/dto"
	"github.com/vsinha/seasonplan/pkg/application/services/allocation"
	"github.com/vsinha/seasonplan/pkg/application/services/demand"
	"github.com/vsinha/seasonplan/pkg/application/services/markdown"
	"github.com/vsinha/seasonplan/pkg/application/services/variance"
	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/infrastructure/events"
)

// SubmitActuals closes a week with the realized sales of each reporting store.
// Actuals are recorded before the variance check; a triggered re-forecast and plan revision
// complete before the week's replenishment reads them. Stores missing from the submission are
// reported as data gaps and never filled in.
func (o *SeasonOrchestrator) SubmitActuals(ctx context.Context, id entities.SeasonID, week entities.Week, units []entities.StoreUnits) (*dto.SubmitResult, error) {
	s, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.writable(); err != nil {
		return nil, err
	}
	if s.pending != entities.ApprovalNone {
		return nil, entities.NewPlanningError(entities.KindPendingApproval, "%s approval is pending", s.pending).WithSeason(id)
	}
	if err := s.acceptsWeek(week); err != nil {
		return nil, err
	}

	records, gaps, err := o.buildRecords(s, week, units)
	if err != nil {
		return nil, err
	}
	if err := o.seasons.AppendActuals(id, records); err != nil {
		return nil, entities.WrapPlanningError(entities.KindOutOfOrderActuals, err, "actuals rejected").WithSeason(id)
	}

	// the week is closed from here on; finish every dependent step even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	var sold entities.Quantity
	var oversold []entities.StoreQuantity
	for _, r := range records {
		if onHand := s.ledger.OnHand(r.StoreID); r.Units > onHand {
			oversold = append(oversold, entities.StoreQuantity{StoreID: r.StoreID, Quantity: r.Units - onHand})
		}
		s.ledger.Sell(r.StoreID, r.Units)
		sold += r.Units
	}
	s.week = week
	o.publish(s, events.ActualsRecordedEvent, events.ActualsRecorded{Week: week, Records: len(records), Units: sold})

	result := &dto.SubmitResult{Week: week, DataGaps: gaps, Oversold: oversold}
	if len(gaps) > 0 {
		s.dataGaps = append(s.dataGaps, week)
		s.logger.Warn("actuals missing for some stores", "week", week, "missing", len(gaps))
	}
	if len(oversold) > 0 {
		s.oversold = append(s.oversold, week)
		s.logger.Warn("sales exceed on-hand stock", "week", week, "stores", len(oversold))
	}

	actuals, err := o.seasons.GetActuals(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read actuals: %w", err)
	}

	if err := o.checkVariance(ctx, s, actuals, result); err != nil {
		return result, o.block(s, err)
	}

	if week == s.config.CheckpointWeek {
		deferred, err := o.evaluateCheckpoint(ctx, s, actuals, result)
		if err != nil {
			return result, o.block(s, err)
		}
		if deferred {
			result.DeferredCycle = true
			result.Phase = s.phase
			return result, nil
		}
	}

	if int(week) == s.config.Weeks {
		o.endSeason(s)
		result.Summary = copySummary(s.summary)
		result.Phase = s.phase
		return result, nil
	}

	if err := o.replenish(ctx, s, actuals, result); err != nil {
		return result, o.block(s, err)
	}
	result.Phase = s.phase
	return result, nil
}

// ApproveMarkdown releases the markdown gate with the approved depth, which may differ from
// the recommendation, and runs the re-forecast and replenishment the checkpoint deferred
func (o *SeasonOrchestrator) ApproveMarkdown(ctx context.Context, id entities.SeasonID, depth decimal.Decimal, note string) (*dto.SubmitResult, error) {
	s, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.writable(); err != nil {
		return nil, err
	}
	if s.pending != entities.ApprovalMarkdown || s.markdown == nil {
		return nil, entities.NewPlanningError(entities.KindInvalidPhase, "no markdown awaits approval").WithSeason(id)
	}

	decision, err := s.pricing.Approve(*s.markdown, depth, note)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	s.pending = entities.ApprovalNone
	o.publish(s, events.ApprovalGrantedEvent, events.ApprovalGranted{Kind: entities.ApprovalMarkdown, Approved: depth})

	actuals, err := o.seasons.GetActuals(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read actuals: %w", err)
	}
	result := &dto.SubmitResult{Week: s.week}
	if err := o.applyMarkdown(ctx, s, decision, actuals, result); err != nil {
		return result, o.block(s, err)
	}
	if int(s.week) == s.config.Weeks {
		o.endSeason(s)
		result.Summary = copySummary(s.summary)
	} else if err := o.replenish(ctx, s, actuals, result); err != nil {
		return result, o.block(s, err)
	}
	result.Phase = s.phase
	return result, nil
}

// acceptsWeek enforces that weeks close strictly in order
func (s *season) acceptsWeek(week entities.Week) error {
	next := s.week + 1
	switch {
	case week <= s.week:
		return entities.NewPlanningError(entities.KindOutOfOrderActuals, "week %d is already closed", week).
			WithSeason(s.id).WithContext("open_week", next)
	case int(week) > s.config.Weeks:
		return entities.NewPlanningError(entities.KindOutOfOrderActuals, "week %d is outside the %d week season", week, s.config.Weeks).
			WithSeason(s.id)
	case week > next:
		return entities.NewPlanningError(entities.KindOutOfOrderActuals, "week %d is in the future, open week is %d", week, next).
			WithSeason(s.id).WithContext("open_week", next)
	}
	return nil
}

// buildRecords validates a submission and lists forecast stores that did not report
func (o *SeasonOrchestrator) buildRecords(s *season, week entities.Week, units []entities.StoreUnits) ([]entities.ActualsRecord, []entities.StoreID, error) {
	seen := make(map[entities.StoreID]bool, len(units))
	records := make([]entities.ActualsRecord, 0, len(units))
	recordedAt := o.now()
	for _, u := range units {
		if _, ok := s.forecast.Store(u.StoreID); !ok {
			return nil, nil, entities.NewPlanningError(entities.KindInvalidInput, "store %s is not part of this season", u.StoreID).WithSeason(s.id)
		}
		if seen[u.StoreID] {
			return nil, nil, entities.NewPlanningError(entities.KindInvalidInput, "store %s reported twice for week %d", u.StoreID, week).WithSeason(s.id)
		}
		seen[u.StoreID] = true
		rec, err := entities.NewActualsRecord(u.StoreID, week, u.Units, recordedAt)
		if err != nil {
			return nil, nil, entities.WrapPlanningError(entities.KindInvalidInput, err, "invalid actuals record").WithSeason(s.id)
		}
		records = append(records, *rec)
	}

	var gaps []entities.StoreID
	for _, sf := range s.forecast.Stores {
		if !seen[sf.StoreID] {
			gaps = append(gaps, sf.StoreID)
		}
	}
	return records, gaps, nil
}

// checkVariance records the variance event and re-forecasts when it is triggered
func (o *SeasonOrchestrator) checkVariance(ctx context.Context, s *season, actuals []entities.ActualsRecord, result *dto.SubmitResult) error {
	cum := variance.Accumulate(s.forecast, actuals, s.week)
	event := s.monitor.Check(s.week, cum.Forecast, cum.Actual)
	event.ReportingStores = cum.ReportingStores
	event.MissingStores = cum.MissingStores
	result.Variance = event

	if err := o.seasons.AppendVariance(s.id, event); err != nil {
		return fmt.Errorf("failed to record variance: %w", err)
	}
	o.publish(s, events.VarianceCheckedEvent, events.VarianceChecked{Event: event})

	switch event.Action {
	case entities.ActionEscalatedForReview:
		s.escalated = append(s.escalated, s.week)
		s.logger.Warn("forecast escalated for review", "week", s.week, "variance_pct", event.VariancePct.StringFixed(4))
	case entities.ActionReforecastTriggered:
		if int(s.week) >= s.config.Weeks {
			return nil
		}
		return o.reforecast(ctx, s, actuals, entities.ReasonVariance, decimal.Zero, result)
	}
	return nil
}

// reforecast produces a new forecast version and the plan revision that follows it
func (o *SeasonOrchestrator) reforecast(
	ctx context.Context,
	s *season,
	actuals []entities.ActualsRecord,
	reason entities.ForecastReason,
	lift decimal.Decimal,
	result *dto.SubmitResult,
) error {
	forecast, err := o.decomposer.Redecompose(ctx, demand.RedecomposeInput{
		Prior:      s.forecast,
		Stores:     s.stores,
		History:    s.history,
		Actuals:    actuals,
		ClosedWeek: s.week,
		Reason:     reason,
		Lift:       lift,
		Policy:     s.config.Demand,
	})
	if err != nil {
		return err
	}
	if err := o.acceptForecast(s, forecast); err != nil {
		return err
	}
	result.Reforecast = forecast.Clone()

	plan, err := o.allocator.Revise(ctx, s.plan, forecast, s.config.Allocation, s.week)
	if err != nil {
		return err
	}
	if err := o.savePlan(s, plan); err != nil {
		return err
	}
	result.RevisedPlan = plan.Clone()
	return nil
}

// evaluateCheckpoint runs the markdown decision. It reports whether the season now waits for
// a markdown approval.
func (o *SeasonOrchestrator) evaluateCheckpoint(ctx context.Context, s *season, actuals []entities.ActualsRecord, result *dto.SubmitResult) (bool, error) {
	o.transition(s, entities.PhaseMidSeasonPricing)

	sellThrough := markdown.SellThrough(s.ledger.GetTotalSold(), s.plan.ManufacturingOrder)
	decision := s.pricing.Evaluate(sellThrough, s.config.Markdown.SellThroughTarget, s.config.Weeks-int(s.week))
	decision.CheckpointWeek = s.week

	if decision.HasMarkdown() && s.config.RequireMarkdownApproval {
		if err := o.recordMarkdown(s, decision); err != nil {
			return false, err
		}
		result.Markdown = copyDecision(s.markdown)
		s.pending = entities.ApprovalMarkdown
		o.publish(s, events.ApprovalRequestedEvent, events.ApprovalRequested{
			Kind:        entities.ApprovalMarkdown,
			Recommended: decision.RecommendedDepth,
		})
		s.logger.Info("markdown awaits approval", "depth", decision.RecommendedDepth.String())
		return true, nil
	}
	return false, o.applyMarkdown(ctx, s, decision, actuals, result)
}

// applyMarkdown records the decision, re-forecasts the remaining weeks with the lift of any
// markdown taken, and resumes the season
func (o *SeasonOrchestrator) applyMarkdown(ctx context.Context, s *season, decision entities.MarkdownDecision, actuals []entities.ActualsRecord, result *dto.SubmitResult) error {
	if err := o.recordMarkdown(s, decision); err != nil {
		return err
	}
	result.Markdown = copyDecision(s.markdown)

	if decision.HasMarkdown() && int(s.week) < s.config.Weeks {
		if err := o.reforecast(ctx, s, actuals, entities.ReasonMarkdown, decision.DemandLift, result); err != nil {
			return err
		}
	}
	o.transition(s, entities.PhaseInSeason)
	return nil
}

func (o *SeasonOrchestrator) recordMarkdown(s *season, decision entities.MarkdownDecision) error {
	if err := o.seasons.SaveMarkdown(s.id, decision); err != nil {
		return fmt.Errorf("failed to record markdown decision: %w", err)
	}
	s.markdown = &decision
	o.publish(s, events.MarkdownDecidedEvent, events.MarkdownDecided{Decision: decision})
	return nil
}

// replenish executes the cadence cycle for the closed week if one is due
func (o *SeasonOrchestrator) replenish(ctx context.Context, s *season, actuals []entities.ActualsRecord, result *dto.SubmitResult) error {
	if !s.config.Allocation.Cadence.IsTick(s.week) {
		return nil
	}
	cycle, plan, err := o.allocator.PlanReplenishment(ctx, allocation.ReplenishmentInput{
		Plan:       s.plan,
		Forecast:   s.forecast,
		Actuals:    actuals,
		ClosedWeek: s.week,
		OnHand:     s.ledger.Snapshot(),
		Policy:     s.config.Allocation,
	})
	if err != nil {
		return err
	}
	if err := o.savePlan(s, plan); err != nil {
		return err
	}
	for _, line := range cycle.Lines {
		if line.Shipped > 0 {
			s.ledger.Receive(line.StoreID, line.Shipped)
		}
	}
	result.Cycle = cycle.Clone()
	o.publish(s, events.ReplenishedEvent, events.Replenished{Cycle: *cycle})
	if len(cycle.Shortfalls) > 0 {
		o.publish(s, events.ShortfallRecordedEvent, events.ShortfallRecorded{Shortfalls: cycle.Shortfalls})
	}
	return nil
}

// endSeason computes the season-end analysis and closes the season
func (o *SeasonOrchestrator) endSeason(s *season) {
	summary := &entities.SeasonSummary{
		UnitsSold:          s.ledger.GetTotalSold(),
		ManufacturingOrder: s.plan.ManufacturingOrder,
		RemainingHoldback:  s.plan.RemainingHoldback,
		EndingOnHand:       s.ledger.GetTotalOnHand(),
		MarkdownDepth:      decimal.Zero,
	}
	summary.SellThrough = markdown.SellThrough(summary.UnitsSold, summary.ManufacturingOrder)

	if forecasts, err := o.seasons.GetForecasts(s.id); err == nil && len(forecasts) > 0 {
		summary.InitialForecast = forecasts[0].CategoryTotal
		summary.Reforecasts = len(forecasts) - 1
	}
	summary.ForecastError = variance.Pct(summary.InitialForecast, summary.UnitsSold)
	if s.markdown != nil {
		summary.MarkdownDepth = s.markdown.EffectiveDepth()
	}
	for _, sf := range s.plan.Shortfalls() {
		summary.ShortfallUnits += sf.ShortQty
	}

	s.summary = summary
	o.transition(s, entities.PhaseSeasonEnd)
	o.publish(s, events.SeasonEndedEvent, events.SeasonEnded{Summary: *summary})
	s.logger.Info("season ended",
		"units_sold", summary.UnitsSold,
		"sell_through", summary.SellThrough.StringFixed(4),
		"forecast_error", summary.ForecastError.StringFixed(4),
		"reforecasts", summary.Reforecasts,
		"ending_on_hand", summary.EndingOnHand)
}
