package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// ValidationResult contains the invariant violations found in a snapshot
type ValidationResult struct {
	Errors []string
}

// Valid reports whether no violations were found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err converts the result into an invariant-violation error, nil when valid
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return entities.NewPlanningError(entities.KindInvariantViolation, "%s", strings.Join(r.Errors, "; "))
}

func (r *ValidationResult) addf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ValidateForecast checks share partitions and quantity conservation of a forecast
func ValidateForecast(f *entities.DemandForecast) *ValidationResult {
	result := &ValidationResult{Errors: make([]string, 0)}
	if f == nil {
		result.addf("forecast is nil")
		return result
	}

	one := decimal.NewFromInt(1)
	clusterShares := decimal.Zero
	var clusterTotals entities.Quantity
	for _, c := range f.Clusters {
		if c.Share.IsNegative() {
			result.addf("cluster %s has negative share %s", c.ClusterID, c.Share)
		}
		clusterShares = clusterShares.Add(c.Share)
		clusterTotals += c.Total
	}
	if len(f.Clusters) > 0 && clusterShares.Sub(one).Abs().GreaterThan(entities.ShareTolerance) {
		result.addf("cluster shares sum to %s, expected 1", clusterShares)
	}
	if clusterTotals != f.CategoryTotal {
		result.addf("cluster totals sum to %d, expected category total %d", clusterTotals, f.CategoryTotal)
	}

	factorSums := make(map[entities.ClusterID]decimal.Decimal)
	storeTotals := make(map[entities.ClusterID]entities.Quantity)
	for _, s := range f.Stores {
		if len(s.Weekly) != f.Weeks {
			result.addf("store %s has %d weekly values, expected %d", s.StoreID, len(s.Weekly), f.Weeks)
		}
		for i, q := range s.Weekly {
			if q < 0 {
				result.addf("store %s week %d has negative quantity %d", s.StoreID, i+1, q)
			}
		}
		if sum := entities.SumQuantities(s.Weekly); sum != s.SeasonTotal {
			result.addf("store %s weekly sum %d differs from season total %d", s.StoreID, sum, s.SeasonTotal)
		}
		factorSums[s.ClusterID] = factorSums[s.ClusterID].Add(s.Factor)
		storeTotals[s.ClusterID] += s.SeasonTotal
	}
	for _, c := range f.Clusters {
		if len(c.Stores) == 0 {
			continue
		}
		if sum := factorSums[c.ClusterID]; sum.Sub(one).Abs().GreaterThan(entities.ShareTolerance) {
			result.addf("store factors in cluster %s sum to %s, expected 1", c.ClusterID, sum)
		}
		if storeTotals[c.ClusterID] != c.Total {
			result.addf("store totals in cluster %s sum to %d, expected %d", c.ClusterID, storeTotals[c.ClusterID], c.Total)
		}
	}

	if sum := f.StoreWeeklySum(); sum != f.CategoryTotal {
		result.addf("store weekly quantities sum to %d, expected category total %d", sum, f.CategoryTotal)
	}
	return result
}

// ValidatePlan checks conservation and holdback bounds of an allocation plan
func ValidatePlan(p *entities.AllocationPlan, policy entities.AllocationPolicy) *ValidationResult {
	result := &ValidationResult{Errors: make([]string, 0)}
	if p == nil {
		result.addf("plan is nil")
		return result
	}

	for _, s := range p.InitialShipments {
		if s.Quantity < 0 {
			result.addf("store %s has negative initial shipment %d", s.StoreID, s.Quantity)
		}
	}
	if sum := p.TotalInitialShipments() + p.Holdback; sum != p.ManufacturingOrder {
		result.addf("shipments plus holdback equal %d, expected manufacturing order %d", sum, p.ManufacturingOrder)
	}
	if p.ManufacturingOrder > 0 {
		if p.HoldbackPct.LessThan(policy.HoldbackMin) || p.HoldbackPct.GreaterThan(policy.HoldbackMax) {
			result.addf("holdback fraction %s outside bounds [%s, %s]", p.HoldbackPct.StringFixed(4), policy.HoldbackMin, policy.HoldbackMax)
		}
	}

	var released entities.Quantity
	for _, c := range p.Cycles {
		released += c.TotalShipped()
	}
	if p.RemainingHoldback != p.Holdback-released {
		result.addf("remaining holdback %d differs from holdback %d less released %d", p.RemainingHoldback, p.Holdback, released)
	}
	if p.RemainingHoldback < 0 {
		result.addf("remaining holdback is negative: %d", p.RemainingHoldback)
	}
	return result
}
