package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"mcp-nutrition-tracker/internal/models"
)

var ErrUnknownFood = errors.New("unknown food")

// Direction of a single-unit quantity adjustment.
type Direction int

const (
	Decrement Direction = -1
	Increment Direction = 1
)

// ParseDirection accepts "increment"/"decrement" and their +/- shorthands.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "increment", "inc", "up", "+":
		return Increment, nil
	case "decrement", "dec", "down", "-":
		return Decrement, nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

// Quantities is the ordered, user-adjustable quantity set of one meal.
// Duplicate labels are kept as separate lines; label-addressed operations
// act on the first matching line.
type Quantities struct {
	lines []models.FoodQuantity
}

func NewQuantities(lines ...models.FoodQuantity) *Quantities {
	q := &Quantities{lines: make([]models.FoodQuantity, 0, len(lines))}
	for _, l := range lines {
		q.lines = append(q.lines, models.FoodQuantity{Label: l.Label, Amount: clampAmount(l.Amount)})
	}
	return q
}

// SeedQuantities builds the initial quantity set from detection counts.
// Gram foods with a typical serving weight start at that weight.
func SeedQuantities(counts []models.DetectionCount, profiles Profiles) *Quantities {
	lines := make([]models.FoodQuantity, 0, len(counts))
	for _, c := range counts {
		amount := float64(c.Count)
		if p, ok := profiles[c.Label]; ok && p.Unit == models.UnitGram && p.AvgGram > 0 {
			amount = p.AvgGram
		}
		lines = append(lines, models.FoodQuantity{Label: c.Label, Amount: amount})
	}
	return NewQuantities(lines...)
}

// Lines returns a copy of the quantity lines.
func (q *Quantities) Lines() []models.FoodQuantity {
	out := make([]models.FoodQuantity, len(q.lines))
	copy(out, q.lines)
	return out
}

func (q *Quantities) Len() int {
	return len(q.lines)
}

func (q *Quantities) Amount(label string) (float64, bool) {
	i := q.index(label)
	if i < 0 {
		return 0, false
	}
	return q.lines[i].Amount, true
}

// Adjust moves a food's amount by exactly one unit. Decrementing at 1 is a no-op.
func (q *Quantities) Adjust(label string, dir Direction) ([]models.FoodQuantity, error) {
	i := q.index(label)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFood, label)
	}
	switch dir {
	case Increment:
		q.lines[i].Amount++
	case Decrement:
		q.lines[i].Amount = math.Max(1, q.lines[i].Amount-1)
	default:
		return nil, fmt.Errorf("invalid direction %d", dir)
	}
	return q.Lines(), nil
}

// Set replaces a food's amount from free-text input; anything unparsable or below 1 becomes 1.
func (q *Quantities) Set(label, text string) (float64, error) {
	i := q.index(label)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFood, label)
	}
	q.lines[i].Amount = ParseAmount(text)
	return q.lines[i].Amount, nil
}

// Remove drops a food line. empty reports that no lines are left, in which
// case the meal should be abandoned rather than saved.
func (q *Quantities) Remove(label string) (empty bool, err error) {
	i := q.index(label)
	if i < 0 {
		return len(q.lines) == 0, fmt.Errorf("%w: %s", ErrUnknownFood, label)
	}
	q.lines = append(q.lines[:i], q.lines[i+1:]...)
	return len(q.lines) == 0, nil
}

func (q *Quantities) index(label string) int {
	for i, l := range q.lines {
		if l.Label == label {
			return i
		}
	}
	return -1
}

// ParseAmount parses a user-entered quantity, clamped to at least 1.
func ParseAmount(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 1
	}
	return clampAmount(v)
}

// ParseManualValue parses a hand-edited total: rounded to one decimal, and
// empty, invalid or negative input becomes 0.
func ParseManualValue(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return models.Round1(v)
}

func clampAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 1 {
		return 1
	}
	return v
}
