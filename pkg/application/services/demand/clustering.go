package demand

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// ClusterAssignment maps stores onto a fixed, ordered set of clusters
type ClusterAssignment struct {
	Order   []entities.ClusterID
	ByStore map[entities.StoreID]entities.ClusterID
}

// Members returns the stores of a cluster sorted by id
func (a ClusterAssignment) Members(id entities.ClusterID) []entities.StoreID {
	var out []entities.StoreID
	for store, cluster := range a.ByStore {
		if cluster == id {
			out = append(out, store)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AssignClusters groups stores into at most k clusters.
// Preassigned cluster ids are honored when every store carries one; otherwise stores are
// ranked by a composite attribute score (size, income index, tier) and cut into k groups
// of near-equal count, highest-scoring group first.
func AssignClusters(stores []*entities.Store, k int) (ClusterAssignment, error) {
	if len(stores) == 0 {
		return ClusterAssignment{}, entities.NewPlanningError(entities.KindInsufficientData, "no stores to cluster")
	}
	if k <= 0 {
		return ClusterAssignment{}, entities.NewPlanningError(entities.KindInvalidInput, "cluster count must be positive, got %d", k)
	}

	preassigned := 0
	for _, s := range stores {
		if s.ClusterID != "" {
			preassigned++
		}
	}
	switch {
	case preassigned == len(stores):
		return presetClusters(stores), nil
	case preassigned > 0:
		return ClusterAssignment{}, entities.NewPlanningError(entities.KindInvalidInput,
			"%d of %d stores carry a cluster id; assign all or none", preassigned, len(stores))
	}

	ranked := rankStores(stores)
	if k > len(ranked) {
		k = len(ranked)
	}

	assignment := ClusterAssignment{
		Order:   make([]entities.ClusterID, k),
		ByStore: make(map[entities.StoreID]entities.ClusterID, len(ranked)),
	}
	base, extra := len(ranked)/k, len(ranked)%k
	next := 0
	for c := 0; c < k; c++ {
		id := entities.ClusterID(fmt.Sprintf("C%d", c+1))
		assignment.Order[c] = id
		size := base
		if c < extra {
			size++
		}
		for _, s := range ranked[next : next+size] {
			assignment.ByStore[s.ID] = id
		}
		next += size
	}
	return assignment, nil
}

func presetClusters(stores []*entities.Store) ClusterAssignment {
	assignment := ClusterAssignment{ByStore: make(map[entities.StoreID]entities.ClusterID, len(stores))}
	seen := make(map[entities.ClusterID]bool)
	for _, s := range stores {
		assignment.ByStore[s.ID] = s.ClusterID
		if !seen[s.ClusterID] {
			seen[s.ClusterID] = true
			assignment.Order = append(assignment.Order, s.ClusterID)
		}
	}
	sort.Slice(assignment.Order, func(i, j int) bool { return assignment.Order[i] < assignment.Order[j] })
	return assignment
}

type scoredStore struct {
	*entities.Store
	score decimal.Decimal
}

// rankStores orders stores by descending composite score, ties broken by id
func rankStores(stores []*entities.Store) []scoredStore {
	var maxSize int64
	maxIncome := decimal.Zero
	maxTier := 0
	for _, s := range stores {
		if s.SizeSqFt > maxSize {
			maxSize = s.SizeSqFt
		}
		if s.IncomeIndex.GreaterThan(maxIncome) {
			maxIncome = s.IncomeIndex
		}
		if s.Tier > maxTier {
			maxTier = s.Tier
		}
	}

	three := decimal.NewFromInt(3)
	ranked := make([]scoredStore, len(stores))
	for i, s := range stores {
		size := decimal.Zero
		if maxSize > 0 {
			size = decimal.NewFromInt(s.SizeSqFt).Div(decimal.NewFromInt(maxSize))
		}
		income := decimal.Zero
		if maxIncome.IsPositive() {
			income = s.IncomeIndex.Div(maxIncome)
		}
		tier := decimal.Zero
		if maxTier > 0 {
			tier = decimal.NewFromInt(int64(maxTier - s.Tier + 1)).Div(decimal.NewFromInt(int64(maxTier)))
		}
		ranked[i] = scoredStore{Store: s, score: size.Add(income).Add(tier).Div(three)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].score.Equal(ranked[j].score) {
			return ranked[i].score.GreaterThan(ranked[j].score)
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
