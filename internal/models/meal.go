// internal/models/meal.go
package models

import (
	"time"
)

// MealRecord is what gets handed to the meal persistence API.
type MealRecord struct {
	Items    string          `json:"items"`
	Time     time.Time       `json:"time"`
	Totals   NutritionTotals `json:"totals"`
	ImageURI string          `json:"image_uri"`
}

// Meal is a persisted MealRecord.
type Meal struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Items     string          `json:"items"`
	Time      time.Time       `json:"time"`
	Totals    NutritionTotals `json:"totals"`
	ImageURI  string          `json:"image_uri"`
	Source    string          `json:"source"` // "detection", "manual"
	CreatedAt time.Time       `json:"created_at"`
}

// User is the read-only session context of an authenticated caller.
type User struct {
	ID string `json:"id"`
}
