package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastReason records why a forecast version was produced
type ForecastReason int

const (
	ReasonInitial ForecastReason = iota
	ReasonVariance
	ReasonMarkdown
)

// String method for ForecastReason enum
func (r ForecastReason) String() string {
	switch r {
	case ReasonInitial:
		return "initial"
	case ReasonVariance:
		return "variance"
	case ReasonMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// MarshalText renders the reason name in JSON output
func (r ForecastReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// StoreForecast is one store's slice of a category forecast
type StoreForecast struct {
	StoreID          StoreID         `json:"store_id"`
	ClusterID        ClusterID       `json:"cluster_id"`
	HistoricalFactor decimal.Decimal `json:"historical_factor"`
	AttributeFactor  decimal.Decimal `json:"attribute_factor"`
	Factor           decimal.Decimal `json:"factor"`
	SeasonTotal      Quantity        `json:"season_total"`
	Weekly           []Quantity      `json:"weekly"`
}

// WeekQty returns the forecast for a 1-based week, zero outside the season
func (s StoreForecast) WeekQty(w Week) Quantity {
	if w < 1 || int(w) > len(s.Weekly) {
		return 0
	}
	return s.Weekly[w-1]
}

// WindowQty returns the forecast for weeks [from, to] inclusive
func (s StoreForecast) WindowQty(from, to Week) Quantity {
	var total Quantity
	for w := from; w <= to; w++ {
		total += s.WeekQty(w)
	}
	return total
}

// ClusterForecast is one cluster's share of the category total
type ClusterForecast struct {
	ClusterID       ClusterID       `json:"cluster_id"`
	HistoricalShare decimal.Decimal `json:"historical_share"`
	Share           decimal.Decimal `json:"share"`
	Total           Quantity        `json:"total"`
	Stores          []StoreID       `json:"stores"`
}

// DemandForecast is an immutable decomposition of a category season total
type DemandForecast struct {
	Version       int               `json:"version"`
	SeasonID      SeasonID          `json:"season_id"`
	Reason        ForecastReason    `json:"reason"`
	Weeks         int               `json:"weeks"`
	CategoryTotal Quantity          `json:"category_total"`
	LockedWeeks   Week              `json:"locked_weeks"` // weeks already replaced by actuals
	DemandLift    decimal.Decimal   `json:"demand_lift"`
	Clusters      []ClusterForecast `json:"clusters"`
	Stores        []StoreForecast   `json:"stores"` // sorted by StoreID
	CreatedAt     time.Time         `json:"created_at"`
}

// Store looks up one store's forecast
func (f *DemandForecast) Store(id StoreID) (StoreForecast, bool) {
	for _, s := range f.Stores {
		if s.StoreID == id {
			return s, true
		}
	}
	return StoreForecast{}, false
}

// Cluster looks up one cluster's forecast
func (f *DemandForecast) Cluster(id ClusterID) (ClusterForecast, bool) {
	for _, c := range f.Clusters {
		if c.ClusterID == id {
			return c, true
		}
	}
	return ClusterForecast{}, false
}

// WeeklyTotal returns the category forecast for a single week
func (f *DemandForecast) WeeklyTotal(w Week) Quantity {
	var total Quantity
	for _, s := range f.Stores {
		total += s.WeekQty(w)
	}
	return total
}

// RemainingTotal returns the category forecast for weeks after the given week
func (f *DemandForecast) RemainingTotal(after Week) Quantity {
	var total Quantity
	for _, s := range f.Stores {
		total += s.WindowQty(after+1, Week(f.Weeks))
	}
	return total
}

// StoreWeeklySum returns the sum of every store's weekly quantities
func (f *DemandForecast) StoreWeeklySum() Quantity {
	var total Quantity
	for _, s := range f.Stores {
		total += SumQuantities(s.Weekly)
	}
	return total
}

// ClusterAssignments returns the store to cluster mapping of this forecast
func (f *DemandForecast) ClusterAssignments() map[StoreID]ClusterID {
	out := make(map[StoreID]ClusterID, len(f.Stores))
	for _, s := range f.Stores {
		out[s.StoreID] = s.ClusterID
	}
	return out
}

// Clone returns a deep copy; stored versions are never shared with callers
func (f *DemandForecast) Clone() *DemandForecast {
	cp := *f
	cp.Clusters = make([]ClusterForecast, len(f.Clusters))
	for i, c := range f.Clusters {
		c.Stores = append([]StoreID(nil), c.Stores...)
		cp.Clusters[i] = c
	}
	cp.Stores = make([]StoreForecast, len(f.Stores))
	for i, s := range f.Stores {
		s.Weekly = append([]Quantity(nil), s.Weekly...)
		cp.Stores[i] = s
	}
	return &cp
}
