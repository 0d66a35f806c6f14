package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/domain/repositories"
)

type seasonHistory struct {
	forecasts []*entities.DemandForecast
	plans     []*entities.AllocationPlan
	actuals   []entities.ActualsRecord
	actualKey map[actualsKey]bool
	variance  []entities.VarianceEvent
	markdowns []entities.MarkdownDecision
}

type actualsKey struct {
	store entities.StoreID
	week  entities.Week
}

// SeasonRepository keeps the append-only history of every season in memory
type SeasonRepository struct {
	mu      sync.RWMutex
	seasons map[entities.SeasonID]*seasonHistory
}

// NewSeasonRepository creates a new in-memory season repository
func NewSeasonRepository() *SeasonRepository {
	return &SeasonRepository{
		seasons: make(map[entities.SeasonID]*seasonHistory),
	}
}

// Verify interface compliance
var _ repositories.SeasonRepository = (*SeasonRepository)(nil)

func (r *SeasonRepository) history(id entities.SeasonID) *seasonHistory {
	h, exists := r.seasons[id]
	if !exists {
		h = &seasonHistory{actualKey: make(map[actualsKey]bool)}
		r.seasons[id] = h
	}
	return h
}

// SaveForecast appends a copy of a forecast version; versions must increase
func (r *SeasonRepository) SaveForecast(forecast *entities.DemandForecast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.history(forecast.SeasonID)
	if n := len(h.forecasts); n > 0 && forecast.Version <= h.forecasts[n-1].Version {
		return fmt.Errorf("forecast version %d already stored for season %s", forecast.Version, forecast.SeasonID)
	}
	h.forecasts = append(h.forecasts, forecast.Clone())
	return nil
}

// GetForecasts returns every forecast version of a season, oldest first
func (r *SeasonRepository) GetForecasts(seasonID entities.SeasonID) ([]*entities.DemandForecast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, exists := r.seasons[seasonID]
	if !exists {
		return nil, nil
	}
	out := make([]*entities.DemandForecast, len(h.forecasts))
	for i, f := range h.forecasts {
		out[i] = f.Clone()
	}
	return out, nil
}

// SavePlan appends a copy of a plan version; versions must increase
func (r *SeasonRepository) SavePlan(plan *entities.AllocationPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.history(plan.SeasonID)
	if n := len(h.plans); n > 0 && plan.Version <= h.plans[n-1].Version {
		return fmt.Errorf("plan version %d already stored for season %s", plan.Version, plan.SeasonID)
	}
	h.plans = append(h.plans, plan.Clone())
	return nil
}

// GetPlans returns every plan version of a season, oldest first
func (r *SeasonRepository) GetPlans(seasonID entities.SeasonID) ([]*entities.AllocationPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, exists := r.seasons[seasonID]
	if !exists {
		return nil, nil
	}
	out := make([]*entities.AllocationPlan, len(h.plans))
	for i, p := range h.plans {
		out[i] = p.Clone()
	}
	return out, nil
}

// AppendActuals records closed-week sales; a (store, week) pair is accepted once
func (r *SeasonRepository) AppendActuals(seasonID entities.SeasonID, records []entities.ActualsRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.history(seasonID)
	for _, rec := range records {
		if h.actualKey[actualsKey{rec.StoreID, rec.Week}] {
			return fmt.Errorf("actuals for store %s week %d already recorded", rec.StoreID, rec.Week)
		}
	}
	for _, rec := range records {
		h.actualKey[actualsKey{rec.StoreID, rec.Week}] = true
		h.actuals = append(h.actuals, rec)
	}
	return nil
}

// GetActuals returns all recorded actuals of a season in arrival order
func (r *SeasonRepository) GetActuals(seasonID entities.SeasonID) ([]entities.ActualsRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, exists := r.seasons[seasonID]
	if !exists {
		return nil, nil
	}
	return append([]entities.ActualsRecord(nil), h.actuals...), nil
}

// AppendVariance records a variance check
func (r *SeasonRepository) AppendVariance(seasonID entities.SeasonID, event entities.VarianceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.history(seasonID)
	event.MissingStores = append([]entities.StoreID(nil), event.MissingStores...)
	h.variance = append(h.variance, event)
	return nil
}

// GetVarianceHistory returns the variance audit trail of a season
func (r *SeasonRepository) GetVarianceHistory(seasonID entities.SeasonID) ([]entities.VarianceEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, exists := r.seasons[seasonID]
	if !exists {
		return nil, nil
	}
	out := make([]entities.VarianceEvent, len(h.variance))
	for i, e := range h.variance {
		e.MissingStores = append([]entities.StoreID(nil), e.MissingStores...)
		out[i] = e
	}
	return out, nil
}

// SaveMarkdown records a markdown decision or its approval
func (r *SeasonRepository) SaveMarkdown(seasonID entities.SeasonID, decision entities.MarkdownDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.history(seasonID)
	h.markdowns = append(h.markdowns, decision)
	return nil
}

// GetMarkdowns returns every markdown record of a season, oldest first
func (r *SeasonRepository) GetMarkdowns(seasonID entities.SeasonID) ([]entities.MarkdownDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, exists := r.seasons[seasonID]
	if !exists {
		return nil, nil
	}
	return append([]entities.MarkdownDecision(nil), h.markdowns...), nil
}
