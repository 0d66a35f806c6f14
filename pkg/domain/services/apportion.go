package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// RoundWithDrift splits total by shares, rounding each part half away from zero.
// The rounding drift is assigned to the part with the largest raw value (lowest index on ties),
// so the parts always add up to total. When the drift would drive that part negative,
// as with small totals over many parts, the split falls back to Apportion.
func RoundWithDrift(total entities.Quantity, shares []decimal.Decimal) ([]entities.Quantity, error) {
	out := make([]entities.Quantity, len(shares))
	if len(shares) == 0 {
		if total != 0 {
			return nil, fmt.Errorf("cannot split %d units across zero parts", total)
		}
		return out, nil
	}

	t := decimal.NewFromInt(int64(total))
	var sum entities.Quantity
	largest := 0
	largestRaw := decimal.Zero
	for i, share := range shares {
		raw := t.Mul(share)
		out[i] = entities.Quantity(raw.Round(0).IntPart())
		sum += out[i]
		if i == 0 || raw.GreaterThan(largestRaw) {
			largest = i
			largestRaw = raw
		}
	}

	if out[largest]+total-sum < 0 {
		if total < 0 {
			return nil, fmt.Errorf("cannot split negative total %d", total)
		}
		return Apportion(total, shares), nil
	}
	out[largest] += total - sum
	return out, nil
}

// Apportion splits total proportionally to weights using the largest remainder method.
// Zero or empty weights spread the total evenly. The result always sums to total.
func Apportion(total entities.Quantity, weights []decimal.Decimal) []entities.Quantity {
	n := len(weights)
	out := make([]entities.Quantity, n)
	if n == 0 || total <= 0 {
		return out
	}

	sum := decimal.Zero
	for _, w := range weights {
		if w.IsPositive() {
			sum = sum.Add(w)
		}
	}

	type remainder struct {
		index int
		frac  decimal.Decimal
	}
	rems := make([]remainder, n)
	t := decimal.NewFromInt(int64(total))
	var assigned entities.Quantity
	for i, w := range weights {
		var raw decimal.Decimal
		switch {
		case sum.IsZero():
			raw = t.Div(decimal.NewFromInt(int64(n)))
		case w.IsPositive():
			raw = t.Mul(w).Div(sum)
		default:
			raw = decimal.Zero
		}
		whole := raw.Floor()
		out[i] = entities.Quantity(whole.IntPart())
		assigned += out[i]
		rems[i] = remainder{index: i, frac: raw.Sub(whole)}
	}

	sort.SliceStable(rems, func(a, b int) bool {
		if !rems[a].frac.Equal(rems[b].frac) {
			return rems[a].frac.GreaterThan(rems[b].frac)
		}
		return rems[a].index < rems[b].index
	})
	for k := 0; assigned < total; k = (k + 1) % n {
		out[rems[k].index]++
		assigned++
	}
	return out
}

// QuantityWeights converts quantities into decimal weights for Apportion
func QuantityWeights(qs []entities.Quantity) []decimal.Decimal {
	out := make([]decimal.Decimal, len(qs))
	for i, q := range qs {
		out[i] = decimal.NewFromInt(int64(q))
	}
	return out
}
