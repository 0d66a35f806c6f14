package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoreQuantity pairs a store with a unit quantity
type StoreQuantity struct {
	StoreID  StoreID  `json:"store_id"`
	Quantity Quantity `json:"quantity"`
}

// ScheduledReplenishment is the projected shipment plan for one cadence tick
type ScheduledReplenishment struct {
	Week  Week            `json:"week"` // first week of the window covered
	Lines []StoreQuantity `json:"lines"`
}

// ReplenishmentLine is the computed replenishment for one store in one cycle
type ReplenishmentLine struct {
	StoreID        StoreID         `json:"store_id"`
	Target         Quantity        `json:"target"`
	VarianceFactor decimal.Decimal `json:"variance_factor"`
	OnHand         Quantity        `json:"on_hand"`
	Requested      Quantity        `json:"requested"`
	Shipped        Quantity        `json:"shipped"`
}

// ReplenishmentCycle is an executed replenishment decision
type ReplenishmentCycle struct {
	ClosedWeek      Week                `json:"closed_week"`
	WindowStart     Week                `json:"window_start"`
	WindowEnd       Week                `json:"window_end"`
	ForecastVersion int                 `json:"forecast_version"`
	Lines           []ReplenishmentLine `json:"lines"`
	Shortfalls      []CapacityShortfall `json:"shortfalls,omitempty"`
}

// TotalShipped returns the units released from the DC in this cycle
func (c ReplenishmentCycle) TotalShipped() Quantity {
	var total Quantity
	for _, l := range c.Lines {
		total += l.Shipped
	}
	return total
}

// CapacityShortfall records replenishment need the DC holdback could not cover
type CapacityShortfall struct {
	StoreID   StoreID  `json:"store_id"`
	Week      Week     `json:"week"`
	Requested Quantity `json:"requested"`
	Shipped   Quantity `json:"shipped"`
	ShortQty  Quantity `json:"short_qty"`
}

// AllocationPlan is an immutable manufacturing and distribution plan.
// InitialShipments and Holdback always add up to ManufacturingOrder.
type AllocationPlan struct {
	Version            int                      `json:"version"`
	SeasonID           SeasonID                 `json:"season_id"`
	ForecastVersion    int                      `json:"forecast_version"`
	ManufacturingOrder Quantity                 `json:"manufacturing_order"`
	InitialShipments   []StoreQuantity          `json:"initial_shipments"`
	Holdback           Quantity                 `json:"holdback"`
	HoldbackPct        decimal.Decimal          `json:"holdback_pct"`
	RemainingHoldback  Quantity                 `json:"remaining_holdback"`
	Schedule           []ScheduledReplenishment `json:"schedule"`
	Cycles             []ReplenishmentCycle     `json:"cycles"`
	Scaled             bool                     `json:"scaled"` // shipments were rescaled to honor holdback bounds
	CreatedAt          time.Time                `json:"created_at"`
}

// TotalInitialShipments returns the units shipped at season start
func (p *AllocationPlan) TotalInitialShipments() Quantity {
	var total Quantity
	for _, s := range p.InitialShipments {
		total += s.Quantity
	}
	return total
}

// InitialShipment returns one store's initial shipment
func (p *AllocationPlan) InitialShipment(id StoreID) Quantity {
	for _, s := range p.InitialShipments {
		if s.StoreID == id {
			return s.Quantity
		}
	}
	return 0
}

// Shortfalls returns every shortfall recorded across executed cycles
func (p *AllocationPlan) Shortfalls() []CapacityShortfall {
	var out []CapacityShortfall
	for _, c := range p.Cycles {
		out = append(out, c.Shortfalls...)
	}
	return out
}

// Clone returns a deep copy suitable for producing the next version
func (p *AllocationPlan) Clone() *AllocationPlan {
	cp := *p
	cp.InitialShipments = append([]StoreQuantity(nil), p.InitialShipments...)
	cp.Schedule = make([]ScheduledReplenishment, len(p.Schedule))
	for i, s := range p.Schedule {
		cp.Schedule[i] = ScheduledReplenishment{Week: s.Week, Lines: append([]StoreQuantity(nil), s.Lines...)}
	}
	cp.Cycles = make([]ReplenishmentCycle, len(p.Cycles))
	for i, c := range p.Cycles {
		c.Lines = append([]ReplenishmentLine(nil), c.Lines...)
		c.Shortfalls = append([]CapacityShortfall(nil), c.Shortfalls...)
		cp.Cycles[i] = c
	}
	return &cp
}

// Clone returns a deep copy of the cycle
func (c *ReplenishmentCycle) Clone() *ReplenishmentCycle {
	cp := *c
	cp.Lines = append([]ReplenishmentLine(nil), c.Lines...)
	cp.Shortfalls = append([]CapacityShortfall(nil), c.Shortfalls...)
	return &cp
}
