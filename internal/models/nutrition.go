// internal/models/nutrition.go
package models

import "math"

type Unit string

const (
	UnitPiece Unit = "piece"
	UnitGram  Unit = "gram"
)

// NutritionProfile holds the densities of one food, always per 100 g.
// PieceAvgWeight is only meaningful for piece foods and AvgGram only for
// gram foods; zero means unknown.
type NutritionProfile struct {
	Name           string  `json:"name"`
	Unit           Unit    `json:"unit"`
	PieceAvgWeight float64 `json:"piece_avg_weight,omitempty"`
	AvgGram        float64 `json:"avg_gram,omitempty"`
	Calories       float64 `json:"cal"`
	Protein        float64 `json:"protein"`
	Fat            float64 `json:"fat"`
	Carbs          float64 `json:"carbohydrates"`
}

// FoodQuantity is grams for gram foods and a piece count for piece foods.
type FoodQuantity struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

type NutritionTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Add returns the field-wise sum.
func (t NutritionTotals) Add(o NutritionTotals) NutritionTotals {
	return NutritionTotals{
		Calories: t.Calories + o.Calories,
		Protein:  t.Protein + o.Protein,
		Fat:      t.Fat + o.Fat,
		Carbs:    t.Carbs + o.Carbs,
	}
}

// Rounded returns the totals rounded to one decimal place, as displayed and persisted.
func (t NutritionTotals) Rounded() NutritionTotals {
	return NutritionTotals{
		Calories: Round1(t.Calories),
		Protein:  Round1(t.Protein),
		Fat:      Round1(t.Fat),
		Carbs:    Round1(t.Carbs),
	}
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// DetectedObject is a single hit from the detection backend.
type DetectedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type DetectionCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}
