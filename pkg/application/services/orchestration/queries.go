package orchestration

import (
	"sort"

	"github.com/vsinha/seasonplan/pkg/application/dto"
	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// GetStatus returns the phase, progress and any blocking reason of a season
func (o *SeasonOrchestrator) GetStatus(id entities.SeasonID) (*dto.SeasonStatus, error) {
	s, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &dto.SeasonStatus{
		SeasonID:        s.id,
		Category:        s.config.Category,
		Phase:           s.phase,
		CurrentWeek:     s.week,
		Weeks:           s.config.Weeks,
		PendingApproval: s.pending,
		EscalatedWeeks:  append([]entities.Week(nil), s.escalated...),
		DataGapWeeks:    append([]entities.Week(nil), s.dataGaps...),
		OversoldWeeks:   append([]entities.Week(nil), s.oversold...),
		AbortReason:     s.abortReason,
	}
	if s.blocked != nil {
		status.BlockedReason = s.blocked.Error()
		status.BlockedKind = s.blocked.Kind
	}
	if s.proposed != nil && s.pending == entities.ApprovalManufacturingOrder {
		status.ProposedOrder = s.proposed.ManufacturingOrder
	}
	if s.forecast != nil {
		status.ForecastVersion = s.forecast.Version
	}
	if s.plan != nil {
		status.PlanVersion = s.plan.Version
	}
	return status, nil
}

// ListSeasons returns the ids of every registered season in sorted order
func (o *SeasonOrchestrator) ListSeasons() []entities.SeasonID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]entities.SeasonID, 0, len(o.registry))
	for id := range o.registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetForecast returns a copy of the current forecast version
func (o *SeasonOrchestrator) GetForecast(id entities.SeasonID) (*entities.DemandForecast, error) {
	s, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forecast == nil {
		return nil, entities.NewPlanningError(entities.KindNotFound, "no forecast produced").WithSeason(id)
	}
	return s.forecast.Clone(), nil
}

// GetForecastHistory returns every forecast version, oldest first
func (o *SeasonOrchestrator) GetForecastHistory(id entities.SeasonID) ([]*entities.DemandForecast, error) {
	if _, err := o.lookup(id); err != nil {
		return nil, err
	}
	return o.seasons.GetForecasts(id)
}

// GetAllocationPlan returns the current plan, or the proposed plan while the
// manufacturing order awaits approval
func (o *SeasonOrchestrator) GetAllocationPlan(id entities.SeasonID) (*entities.AllocationPlan, error) {
	s, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.plan != nil:
		return s.plan.Clone(), nil
	case s.proposed != nil:
		return s.proposed.Clone(), nil
	}
	return nil, entities.NewPlanningError(entities.KindNotFound, "no allocation plan produced").WithSeason(id)
}

// GetPlanHistory returns every committed plan version, oldest first
func (o *SeasonOrchestrator) GetPlanHistory(id entities.SeasonID) ([]*entities.AllocationPlan, error) {
	if _, err := o.lookup(id); err != nil {
		return nil, err
	}
	return o.seasons.GetPlans(id)
}

// GetMarkdownDecision returns the latest checkpoint decision
func (o *SeasonOrchestrator) GetMarkdownDecision(id entities.SeasonID) (*entities.MarkdownDecision, error) {
	s, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markdown == nil {
		return nil, entities.NewPlanningError(entities.KindNotFound, "checkpoint week %d not reached", s.config.CheckpointWeek).WithSeason(id)
	}
	return copyDecision(s.markdown), nil
}

// GetVarianceHistory returns the variance audit trail
func (o *SeasonOrchestrator) GetVarianceHistory(id entities.SeasonID) ([]entities.VarianceEvent, error) {
	if _, err := o.lookup(id); err != nil {
		return nil, err
	}
	return o.seasons.GetVarianceHistory(id)
}

// GetActuals returns every recorded actuals record
func (o *SeasonOrchestrator) GetActuals(id entities.SeasonID) ([]entities.ActualsRecord, error) {
	if _, err := o.lookup(id); err != nil {
		return nil, err
	}
	return o.seasons.GetActuals(id)
}

// GetSummary returns the season-end analysis
func (o *SeasonOrchestrator) GetSummary(id entities.SeasonID) (*entities.SeasonSummary, error) {
	s, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return nil, entities.NewPlanningError(entities.KindNotFound, "season has not ended").WithSeason(id)
	}
	return copySummary(s.summary), nil
}

func copyDecision(d *entities.MarkdownDecision) *entities.MarkdownDecision {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

func copySummary(s *entities.SeasonSummary) *entities.SeasonSummary {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
