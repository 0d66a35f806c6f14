package services

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// CurveWeights returns the relative weekly demand weights of a season archetype.
// Weights are unnormalized; Apportion takes care of scaling.
func CurveWeights(archetype entities.Archetype, weeks int) []decimal.Decimal {
	if weeks <= 0 {
		return nil
	}
	weights := make([]decimal.Decimal, weeks)

	switch archetype {
	case entities.ArchetypeRamped:
		// linear ramp over the first third of the season, flat afterwards
		ramp := (weeks + 2) / 3
		for i := range weights {
			if i < ramp {
				weights[i] = decimal.NewFromInt(int64(i + 1)).Div(decimal.NewFromInt(int64(ramp)))
			} else {
				weights[i] = decimal.NewFromInt(1)
			}
		}
	case entities.ArchetypeBell:
		mid := float64(weeks-1) / 2
		sigma := math.Max(float64(weeks)/4, 1)
		for i := range weights {
			d := float64(i) - mid
			v := math.Exp(-(d * d) / (2 * sigma * sigma))
			weights[i] = decimal.NewFromFloat(v).Round(6)
		}
	default:
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
	}
	return weights
}
