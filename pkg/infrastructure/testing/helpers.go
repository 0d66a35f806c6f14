package testing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/infrastructure/repositories/memory"
)

// Category is the product category used across test fixtures
const Category = "outerwear"

// HistoryStart is the first day of the prior-period fixture history
var HistoryStart = time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

// BuildRegionalStores builds nine stores preassigned to clusters C1, C2 and C3
func BuildRegionalStores() []*entities.Store {
	fixtures := []struct {
		id      entities.StoreID
		name    string
		size    int64
		income  string
		tier    int
		cluster entities.ClusterID
	}{
		{"S001", "Flagship Downtown", 20000, "1.40", 1, "C1"},
		{"S002", "Harbor Point", 16000, "1.30", 1, "C1"},
		{"S003", "Uptown Galleria", 14000, "1.25", 1, "C1"},
		{"S004", "Riverside", 11000, "1.05", 2, "C2"},
		{"S005", "Maple Commons", 10000, "1.00", 2, "C2"},
		{"S006", "Westgate", 9000, "0.95", 2, "C2"},
		{"S007", "Pine Valley", 7000, "0.85", 3, "C3"},
		{"S008", "Cedar Crossing", 6000, "0.80", 3, "C3"},
		{"S009", "Lakeshore Outlet", 5000, "0.75", 3, "C3"},
	}

	stores := make([]*entities.Store, 0, len(fixtures))
	for _, s := range fixtures {
		store, err := entities.NewStore(s.id, s.name, s.size, decimal.RequireFromString(s.income), s.tier)
		if err != nil {
			panic(err)
		}
		store.ClusterID = s.cluster
		stores = append(stores, store)
	}
	return stores
}

// BuildUnclusteredStores builds n stores without cluster ids, largest first
func BuildUnclusteredStores(n int) []*entities.Store {
	stores := make([]*entities.Store, 0, n)
	for i := 0; i < n; i++ {
		store, err := entities.NewStore(
			entities.StoreID(fmt.Sprintf("S%03d", i+1)),
			fmt.Sprintf("Store %d", i+1),
			int64(20000-i*1000),
			decimal.RequireFromString("1.5").Sub(decimal.New(int64(i), -1)),
			1+i*3/max(n, 1),
		)
		if err != nil {
			panic(err)
		}
		stores = append(stores, store)
	}
	return stores
}

// BuildHistory builds weekly prior-period sales where each store sells its size / 100 units per week
func BuildHistory(stores []*entities.Store, category string, weeks int) []*entities.HistoricalSale {
	sales := make([]*entities.HistoricalSale, 0, len(stores)*weeks)
	for w := 0; w < weeks; w++ {
		date := HistoryStart.AddDate(0, 0, 7*w)
		for _, s := range stores {
			sales = append(sales, &entities.HistoricalSale{
				Date:     date,
				StoreID:  s.ID,
				Category: category,
				Units:    entities.Quantity(s.SizeSqFt / 100),
			})
		}
	}
	return sales
}

// BuildSeasonConfig builds the default twelve week config with Scenario-style cluster targets
func BuildSeasonConfig(categoryTotal entities.Quantity) entities.SeasonConfig {
	cfg := entities.DefaultSeasonConfig(Category)
	cfg.CategoryTotal = categoryTotal
	cfg.Demand.ClusterTargets = map[entities.ClusterID]decimal.Decimal{
		"C1": decimal.RequireFromString("0.40"),
		"C2": decimal.RequireFromString("0.35"),
		"C3": decimal.RequireFromString("0.25"),
	}
	return cfg.Normalize()
}

// BuildRepositories builds loaded store and history repositories plus an empty season repository
func BuildRepositories() (*memory.StoreRepository, *memory.HistoryRepository, *memory.SeasonRepository) {
	stores := BuildRegionalStores()

	storeRepo := memory.NewStoreRepository(len(stores))
	if err := storeRepo.LoadStores(stores); err != nil {
		panic(err)
	}

	historyRepo := memory.NewHistoryRepository()
	if err := historyRepo.LoadSales(BuildHistory(stores, Category, 12)); err != nil {
		panic(err)
	}

	return storeRepo, historyRepo, memory.NewSeasonRepository()
}

// WeekActuals builds an actuals submission where every store sold its weekly forecast scaled by pct
func WeekActuals(forecast *entities.DemandForecast, week entities.Week, pct decimal.Decimal) []entities.StoreUnits {
	out := make([]entities.StoreUnits, 0, len(forecast.Stores))
	for _, s := range forecast.Stores {
		units := decimal.NewFromInt(int64(s.WeekQty(week))).Mul(pct).Round(0).IntPart()
		out = append(out, entities.StoreUnits{StoreID: s.StoreID, Units: entities.Quantity(units)})
	}
	return out
}
