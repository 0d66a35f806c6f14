package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity represents an integer count of sellable units
type Quantity int64

// StoreID identifies a store in the reference dataset
type StoreID string

// ClusterID identifies a group of stores sharing a demand-allocation factor
type ClusterID string

// Week is a 1-based week index within a season
type Week int

// ShareTolerance is the allowed deviation when checking that shares sum to one
var ShareTolerance = decimal.New(1, -9)

// Cadence represents how often replenishment shipments leave the DC
type Cadence int

const (
	CadenceNone Cadence = iota
	CadenceWeekly
	CadenceBiweekly
)

// String method for Cadence enum
func (c Cadence) String() string {
	switch c {
	case CadenceNone:
		return "none"
	case CadenceWeekly:
		return "weekly"
	case CadenceBiweekly:
		return "biweekly"
	default:
		return "unknown"
	}
}

// WindowWeeks returns the number of weeks covered by one replenishment window.
// A season without replenishment is covered by a single window.
func (c Cadence) WindowWeeks(seasonWeeks int) int {
	switch c {
	case CadenceWeekly:
		return 1
	case CadenceBiweekly:
		return 2
	default:
		return seasonWeeks
	}
}

// IsTick reports whether closing the given week triggers a replenishment cycle
func (c Cadence) IsTick(closed Week) bool {
	switch c {
	case CadenceWeekly:
		return true
	case CadenceBiweekly:
		return closed%2 == 0
	default:
		return false
	}
}

// ParseCadence converts a config string into a Cadence
func ParseCadence(s string) (Cadence, error) {
	switch s {
	case "", "none":
		return CadenceNone, nil
	case "weekly":
		return CadenceWeekly, nil
	case "biweekly":
		return CadenceBiweekly, nil
	default:
		return CadenceNone, fmt.Errorf("unknown replenishment cadence %q", s)
	}
}

// Archetype selects the seasonal curve used to spread a store total over weeks
type Archetype int

const (
	ArchetypeFlat Archetype = iota
	ArchetypeRamped
	ArchetypeBell
)

// String method for Archetype enum
func (a Archetype) String() string {
	switch a {
	case ArchetypeFlat:
		return "flat"
	case ArchetypeRamped:
		return "ramped"
	case ArchetypeBell:
		return "bell"
	default:
		return "unknown"
	}
}

// ParseArchetype converts a config string into an Archetype
func ParseArchetype(s string) (Archetype, error) {
	switch s {
	case "", "flat":
		return ArchetypeFlat, nil
	case "ramped":
		return ArchetypeRamped, nil
	case "bell":
		return ArchetypeBell, nil
	default:
		return ArchetypeFlat, fmt.Errorf("unknown season archetype %q", s)
	}
}

// BoundaryMode decides which side of a threshold an exactly-equal value falls on
type BoundaryMode int

const (
	// Exclusive: a value crosses a boundary only when strictly greater than it.
	Exclusive BoundaryMode = iota
	// Inclusive: a value equal to the boundary already crosses it.
	Inclusive
)

// String method for BoundaryMode enum
func (m BoundaryMode) String() string {
	if m == Inclusive {
		return "inclusive"
	}
	return "exclusive"
}

// Crosses reports whether value is past boundary under this mode
func (m BoundaryMode) Crosses(value, boundary decimal.Decimal) bool {
	if m == Inclusive {
		return value.GreaterThanOrEqual(boundary)
	}
	return value.GreaterThan(boundary)
}

// ParseBoundaryMode converts a config string into a BoundaryMode
func ParseBoundaryMode(s string) (BoundaryMode, error) {
	switch s {
	case "", "exclusive":
		return Exclusive, nil
	case "inclusive":
		return Inclusive, nil
	default:
		return Exclusive, fmt.Errorf("unknown boundary mode %q", s)
	}
}

// SumQuantities returns the total of a quantity slice
func SumQuantities(qs []Quantity) Quantity {
	var total Quantity
	for _, q := range qs {
		total += q
	}
	return total
}
