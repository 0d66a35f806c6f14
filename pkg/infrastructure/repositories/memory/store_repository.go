package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/domain/repositories"
)

// StoreRepository provides in-memory store reference data.
// It is shared read-only by every season once loaded.
type StoreRepository struct {
	mu        sync.RWMutex
	stores    []entities.Store
	storesMap map[entities.StoreID]int
}

// NewStoreRepository creates a new in-memory store repository
func NewStoreRepository(expectedStores int) *StoreRepository {
	return &StoreRepository{
		stores:    make([]entities.Store, 0, expectedStores),
		storesMap: make(map[entities.StoreID]int, expectedStores),
	}
}

// Verify interface compliance
var _ repositories.StoreRepository = (*StoreRepository)(nil)

// LoadStores loads stores into the repository, replacing duplicates by id
func (r *StoreRepository) LoadStores(stores []*entities.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range stores {
		if s == nil || s.ID == "" {
			return fmt.Errorf("store id cannot be empty")
		}
		if index, exists := r.storesMap[s.ID]; exists {
			r.stores[index] = *s
			continue
		}
		r.storesMap[s.ID] = len(r.stores)
		r.stores = append(r.stores, *s)
	}
	return nil
}

// GetStore returns one store's attributes
func (r *StoreRepository) GetStore(id entities.StoreID) (*entities.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	index, exists := r.storesMap[id]
	if !exists {
		return nil, fmt.Errorf("store not found: %s", id)
	}
	s := r.stores[index]
	return &s, nil
}

// GetAllStores returns copies of all stores sorted by id
func (r *StoreRepository) GetAllStores() ([]*entities.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.Store, 0, len(r.stores))
	for i := range r.stores {
		s := r.stores[i]
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
