package memory

import (
	"sort"
	"sync"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/domain/repositories"
)

// HistoryRepository provides in-memory prior-period sales
type HistoryRepository struct {
	mu         sync.RWMutex
	byCategory map[string][]entities.HistoricalSale
}

// NewHistoryRepository creates a new in-memory history repository
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{
		byCategory: make(map[string][]entities.HistoricalSale),
	}
}

// Verify interface compliance
var _ repositories.HistoryRepository = (*HistoryRepository)(nil)

// LoadSales appends sales observations
func (r *HistoryRepository) LoadSales(sales []*entities.HistoricalSale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sales {
		r.byCategory[s.Category] = append(r.byCategory[s.Category], *s)
	}
	return nil
}

// GetSales returns the sales of a category ordered by date then store
func (r *HistoryRepository) GetSales(category string) ([]*entities.HistoricalSale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sales := r.byCategory[category]
	out := make([]*entities.HistoricalSale, len(sales))
	for i := range sales {
		s := sales[i]
		out[i] = &s
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StoreID < out[j].StoreID
	})
	return out, nil
}
