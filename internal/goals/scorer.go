package goals

import (
	"math"
	"sort"
	"strings"
	"time"
)

// HistoricalMeal is one persisted meal as returned by the history API.
type HistoricalMeal struct {
	Date     string  `json:"date"`
	Calories float64 `json:"totalCalories"`
	Protein  float64 `json:"totalProtein"`
	Carbs    float64 `json:"totalCarbo"`
	Fat      float64 `json:"totalFat"`
}

// Band is an inclusive tolerance range around a target.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

func band(target, tolerance float64) Band {
	return Band{Min: target * (1 - tolerance), Max: target * (1 + tolerance)}
}

// Bands holds the per-macro tolerance ranges of a target.
type Bands struct {
	Calories Band `json:"calories"`
	Protein  Band `json:"protein"`
	Carbs    Band `json:"carbs"`
	Fats     Band `json:"fats"`
}

// BandsFor widens calories and protein by 20% and carbs and fat by 30%.
func BandsFor(t DailyTarget) Bands {
	return Bands{
		Calories: band(t.Calories, 0.2),
		Protein:  band(t.Protein, 0.2),
		Carbs:    band(t.Carbs, 0.3),
		Fats:     band(t.Fats, 0.3),
	}
}

// DayResult is the evaluation of one calendar day with logged calories.
type DayResult struct {
	Date     string  `json:"date"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Met      int     `json:"met"`
	Score    float64 `json:"score"`
}

// Report is the full outcome of scoring a history.
type Report struct {
	Score   int         `json:"score"`
	Target  DailyTarget `json:"target"`
	Bands   Bands       `json:"bands"`
	Days    []DayResult `json:"days"`
	Skipped int         `json:"skipped,omitempty"`
}

// ScoreGoals returns the percentage (0-100) of per-macro targets met,
// averaged over the days that have logged calories.
func ScoreGoals(meals []HistoricalMeal, target DailyTarget) int {
	return Evaluate(meals, target).Score
}

// Evaluate buckets meals by calendar day and scores every day with data.
// Meals whose date cannot be parsed are counted in Skipped and ignored.
func Evaluate(meals []HistoricalMeal, target DailyTarget) Report {
	report := Report{Target: target, Bands: BandsFor(target)}

	days := make(map[string]*DayResult)
	for _, m := range meals {
		key, ok := dayKey(m.Date)
		if !ok {
			report.Skipped++
			continue
		}
		d, ok := days[key]
		if !ok {
			d = &DayResult{Date: key}
			days[key] = d
		}
		d.Calories += finite(m.Calories)
		d.Protein += finite(m.Protein)
		d.Carbs += finite(m.Carbs)
		d.Fat += finite(m.Fat)
	}

	if math.IsNaN(target.Calories) || target.Calories <= 0 {
		return report
	}

	var sum float64
	for _, d := range days {
		if d.Calories <= 0 {
			continue
		}
		if report.Bands.Calories.Contains(d.Calories) {
			d.Met++
		}
		if report.Bands.Protein.Contains(d.Protein) {
			d.Met++
		}
		if report.Bands.Carbs.Contains(d.Carbs) {
			d.Met++
		}
		if report.Bands.Fats.Contains(d.Fat) {
			d.Met++
		}
		d.Score = float64(d.Met) / 4 * 100
		sum += d.Score
		report.Days = append(report.Days, *d)
	}
	if len(report.Days) == 0 {
		return report
	}

	sort.Slice(report.Days, func(i, j int) bool { return report.Days[i].Date < report.Days[j].Date })
	report.Score = int(roundHalfUp(sum / float64(len(report.Days))))
	return report
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// dayKey maps a meal date to its calendar day (YYYY-MM-DD, UTC for zoned timestamps).
func dayKey(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02"), true
		}
	}
	return "", false
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
