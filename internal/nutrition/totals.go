// Package nutrition turns detected food quantities into macro totals and
// arbitrates between computed and hand-edited totals.
package nutrition

import (
	"math"

	"mcp-nutrition-tracker/internal/models"
)

// Profiles maps a food label to its nutrition reference data.
type Profiles map[string]models.NutritionProfile

// Ratio is the multiplier applied to a profile's per-100 g densities for the
// given amount. Piece foods without a known average weight fall back to
// treating the densities as per piece.
func Ratio(p models.NutritionProfile, amount float64) float64 {
	switch {
	case p.Unit == models.UnitGram:
		return amount / 100
	case p.Unit == models.UnitPiece && p.PieceAvgWeight > 0:
		return amount * p.PieceAvgWeight / 100
	default:
		return amount
	}
}

// ComputeTotals aggregates the macros of every quantity line. Labels without a
// profile contribute nothing. Each line's macros are rounded to one decimal
// before being summed, so the result only depends on the inputs.
func ComputeTotals(quantities []models.FoodQuantity, profiles Profiles) models.NutritionTotals {
	var totals models.NutritionTotals
	for _, q := range quantities {
		p, ok := profiles[q.Label]
		if !ok {
			continue
		}
		totals = totals.Add(lineTotals(p, clampAmount(q.Amount)))
	}
	return totals
}

// MissingProfiles lists the labels (in line order, without repeats) that have no profile.
func MissingProfiles(quantities []models.FoodQuantity, profiles Profiles) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, q := range quantities {
		if _, ok := profiles[q.Label]; ok || seen[q.Label] {
			continue
		}
		seen[q.Label] = true
		missing = append(missing, q.Label)
	}
	return missing
}

func lineTotals(p models.NutritionProfile, amount float64) models.NutritionTotals {
	r := Ratio(p, amount)
	return models.NutritionTotals{
		Calories: models.Round1(density(p.Calories) * r),
		Protein:  models.Round1(density(p.Protein) * r),
		Fat:      models.Round1(density(p.Fat) * r),
		Carbs:    models.Round1(density(p.Carbs) * r),
	}
}

func density(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
