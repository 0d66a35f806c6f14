package shared

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// InventoryPosition holds the running stock position of one store
type InventoryPosition struct {
	Received entities.Quantity
	Sold     entities.Quantity
}

// OnHand returns the units still in the store, never below zero
func (p InventoryPosition) OnHand() entities.Quantity {
	if p.Sold >= p.Received {
		return 0
	}
	return p.Received - p.Sold
}

// InventoryLedger tracks store positions by store id
type InventoryLedger map[entities.StoreID]*InventoryPosition

// NewInventoryLedger creates an empty ledger
func NewInventoryLedger() InventoryLedger {
	return make(InventoryLedger)
}

// NewInventoryLedgerFromPlan seeds the ledger with a plan's initial shipments
func NewInventoryLedgerFromPlan(plan *entities.AllocationPlan) InventoryLedger {
	ledger := make(InventoryLedger, len(plan.InitialShipments))
	for _, s := range plan.InitialShipments {
		ledger.Receive(s.StoreID, s.Quantity)
	}
	return ledger
}

// Get retrieves the position of a store, nil if unknown
func (l InventoryLedger) Get(id entities.StoreID) *InventoryPosition {
	return l[id]
}

// Has checks if a store has a position
func (l InventoryLedger) Has(id entities.StoreID) bool {
	_, exists := l[id]
	return exists
}

func (l InventoryLedger) position(id entities.StoreID) *InventoryPosition {
	pos, exists := l[id]
	if !exists {
		pos = &InventoryPosition{}
		l[id] = pos
	}
	return pos
}

// Receive books units arriving at a store
func (l InventoryLedger) Receive(id entities.StoreID, qty entities.Quantity) {
	l.position(id).Received += qty
}

// Sell books units sold by a store
func (l InventoryLedger) Sell(id entities.StoreID, qty entities.Quantity) {
	l.position(id).Sold += qty
}

// OnHand returns the on-hand units of a store
func (l InventoryLedger) OnHand(id entities.StoreID) entities.Quantity {
	if pos, ok := l[id]; ok {
		return pos.OnHand()
	}
	return 0
}

// Snapshot returns an immutable copy of on-hand units by store
func (l InventoryLedger) Snapshot() map[entities.StoreID]entities.Quantity {
	out := make(map[entities.StoreID]entities.Quantity, len(l))
	for id, pos := range l {
		out[id] = pos.OnHand()
	}
	return out
}

// Clone returns a deep copy of the ledger
func (l InventoryLedger) Clone() InventoryLedger {
	out := make(InventoryLedger, len(l))
	for id, pos := range l {
		cp := *pos
		out[id] = &cp
	}
	return out
}

// GetTotalOnHand returns on-hand units across all stores
func (l InventoryLedger) GetTotalOnHand() entities.Quantity {
	var total entities.Quantity
	for _, pos := range l {
		total += pos.OnHand()
	}
	return total
}

// GetTotalSold returns units sold across all stores
func (l InventoryLedger) GetTotalSold() entities.Quantity {
	var total entities.Quantity
	for _, pos := range l {
		total += pos.Sold
	}
	return total
}

// Stores returns the tracked store ids in sorted order
func (l InventoryLedger) Stores() []entities.StoreID {
	ids := make([]entities.StoreID, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// String returns a string representation of the ledger for debugging
func (l InventoryLedger) String() string {
	if len(l) == 0 {
		return "InventoryLedger{empty}"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "InventoryLedger{%d stores:\n", len(l))
	for _, id := range l.Stores() {
		pos := l[id]
		fmt.Fprintf(&b, "  %s: received=%d, sold=%d, onHand=%d\n", id, pos.Received, pos.Sold, pos.OnHand())
	}
	b.WriteString("}")
	return b.String()
}
