// Package goals derives daily nutrition targets and scores a meal history against them.
package goals

import (
	"math"
	"strings"
	"time"
)

const (
	proteinShare = 0.3
	carbsShare   = 0.4
	fatShare     = 0.3

	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9
)

// DailyTarget is a day's calorie target plus macro targets in grams.
type DailyTarget struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// TargetFromTDEE splits a TDEE 30/40/30 across protein, carbs and fat,
// rounding each macro to whole grams.
func TargetFromTDEE(tdee float64) DailyTarget {
	if math.IsNaN(tdee) || tdee <= 0 {
		return DailyTarget{}
	}
	return DailyTarget{
		Calories: tdee,
		Protein:  roundHalfUp(tdee * proteinShare / kcalPerGramProtein),
		Carbs:    roundHalfUp(tdee * carbsShare / kcalPerGramCarbs),
		Fats:     roundHalfUp(tdee * fatShare / kcalPerGramFat),
	}
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Window returns the statistics window for a range name ("Week", "30 Days",
// "60 Days", "90 Days"), from midnight of the first day to the end of today.
// Unknown names fall back to a week.
func Window(rangeName string, now time.Time) (start, end time.Time) {
	days := 7
	switch strings.ToLower(strings.TrimSpace(rangeName)) {
	case "30 days", "30":
		days = 30
	case "60 days", "60":
		days = 60
	case "90 days", "90":
		days = 90
	}
	y, m, d := now.Date()
	end = time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), now.Location())
	start = time.Date(y, m, d-(days-1), 0, 0, 0, 0, now.Location())
	return start, end
}
