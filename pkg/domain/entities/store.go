package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Store holds the reference attributes used to cluster and weight a store
type Store struct {
	ID          StoreID
	Name        string
	SizeSqFt    int64           // capacity-like attribute
	IncomeIndex decimal.Decimal // income proxy, 1.0 = national average
	Tier        int             // historical performance tier, 1 = best
	ClusterID   ClusterID       // optional preassigned cluster
}

// NewStore creates a validated Store
func NewStore(id StoreID, name string, sizeSqFt int64, incomeIndex decimal.Decimal, tier int) (*Store, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("store id cannot be empty")
	}
	if sizeSqFt <= 0 {
		return nil, fmt.Errorf("store size must be positive, got %d", sizeSqFt)
	}
	if incomeIndex.IsNegative() {
		return nil, fmt.Errorf("income index cannot be negative, got %s", incomeIndex)
	}
	if tier <= 0 {
		return nil, fmt.Errorf("tier must be positive, got %d", tier)
	}

	return &Store{
		ID:          id,
		Name:        name,
		SizeSqFt:    sizeSqFt,
		IncomeIndex: incomeIndex,
		Tier:        tier,
	}, nil
}

// HistoricalSale is one prior-period sales observation
type HistoricalSale struct {
	Date     time.Time
	StoreID  StoreID
	Category string
	Units    Quantity
}

// StoreUnits is one store's realized sales for a submitted week
type StoreUnits struct {
	StoreID StoreID  `json:"store_id"`
	Units   Quantity `json:"units"`
}

// ActualsRecord is the realized sales of one store in one closed week
type ActualsRecord struct {
	StoreID    StoreID   `json:"store_id"`
	Week       Week      `json:"week"`
	Units      Quantity  `json:"units"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewActualsRecord creates a validated ActualsRecord
func NewActualsRecord(storeID StoreID, week Week, units Quantity, recordedAt time.Time) (*ActualsRecord, error) {
	if string(storeID) == "" {
		return nil, fmt.Errorf("store id cannot be empty")
	}
	if week <= 0 {
		return nil, fmt.Errorf("week must be positive, got %d", week)
	}
	if units < 0 {
		return nil, fmt.Errorf("units cannot be negative, got %d", units)
	}

	return &ActualsRecord{
		StoreID:    storeID,
		Week:       week,
		Units:      units,
		RecordedAt: recordedAt,
	}, nil
}
