package nutrition

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mcp-nutrition-tracker/internal/models"
)

var (
	ErrNotEditing     = errors.New("totals are not being edited")
	ErrAlreadyEditing = errors.New("totals are already being edited")
)

type State int

const (
	StateComputed State = iota
	StateEditing
)

func (s State) String() string {
	if s == StateEditing {
		return "editing"
	}
	return "computed"
}

// Field names one of the hand-editable totals.
type Field string

const (
	FieldCalories Field = "calories"
	FieldProtein  Field = "protein"
	FieldFat      Field = "fat"
	FieldCarbs    Field = "carbs"
)

func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldCalories, FieldProtein, FieldFat, FieldCarbs:
		return f, nil
	}
	return "", fmt.Errorf("invalid nutrition field %q", s)
}

// Session is the in-memory state of one meal capture: the quantity set plus
// the computed-or-overridden totals.
//
// While editing, quantity changes do not recompute totals. Once an edit is
// committed the override stays authoritative only until the next quantity
// change, which recomputes from scratch.
type Session struct {
	quantities *Quantities
	profiles   Profiles
	logger     *slog.Logger

	state         State
	overridden    bool
	authoritative models.NutritionTotals
	working       models.NutritionTotals
}

func NewSession(q *Quantities, profiles Profiles, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if profiles == nil {
		profiles = Profiles{}
	}
	s := &Session{quantities: q, profiles: profiles, logger: logger}
	s.recompute()
	return s
}

// Totals returns the totals currently displayed: the working copy while
// editing, the authoritative totals otherwise.
func (s *Session) Totals() models.NutritionTotals {
	if s.state == StateEditing {
		return s.working
	}
	return s.authoritative
}

func (s *Session) State() State {
	return s.state
}

// Overridden reports whether the authoritative totals came from a committed edit.
func (s *Session) Overridden() bool {
	return s.overridden
}

func (s *Session) Lines() []models.FoodQuantity {
	return s.quantities.Lines()
}

func (s *Session) Profiles() Profiles {
	return s.profiles
}

func (s *Session) Adjust(label string, dir Direction) error {
	if _, err := s.quantities.Adjust(label, dir); err != nil {
		return err
	}
	s.quantitiesChanged()
	return nil
}

func (s *Session) SetQuantity(label, text string) error {
	if _, err := s.quantities.Set(label, text); err != nil {
		return err
	}
	s.quantitiesChanged()
	return nil
}

// Remove drops a food line and reports whether the meal is now empty.
func (s *Session) Remove(label string) (bool, error) {
	empty, err := s.quantities.Remove(label)
	if err != nil {
		return empty, err
	}
	s.quantitiesChanged()
	return empty, nil
}

// BeginEdit seeds the working copy from the displayed totals.
func (s *Session) BeginEdit() error {
	if s.state == StateEditing {
		return ErrAlreadyEditing
	}
	s.working = s.authoritative
	s.state = StateEditing
	return nil
}

// SetField stores a free-text value into the working copy and returns the
// normalized number.
func (s *Session) SetField(field Field, text string) (float64, error) {
	if s.state != StateEditing {
		return 0, ErrNotEditing
	}
	v := ParseManualValue(text)
	switch field {
	case FieldCalories:
		s.working.Calories = v
	case FieldProtein:
		s.working.Protein = v
	case FieldFat:
		s.working.Fat = v
	case FieldCarbs:
		s.working.Carbs = v
	default:
		return 0, fmt.Errorf("invalid nutrition field %q", field)
	}
	return v, nil
}

// Commit makes the working copy authoritative.
func (s *Session) Commit() error {
	if s.state != StateEditing {
		return ErrNotEditing
	}
	s.authoritative = s.working
	s.overridden = true
	s.working = models.NutritionTotals{}
	s.state = StateComputed
	return nil
}

// Cancel drops the working copy; the pre-edit totals stay authoritative.
func (s *Session) Cancel() error {
	if s.state != StateEditing {
		return ErrNotEditing
	}
	s.working = models.NutritionTotals{}
	s.state = StateComputed
	return nil
}

func (s *Session) quantitiesChanged() {
	if s.state == StateEditing {
		return
	}
	s.recompute()
}

func (s *Session) recompute() {
	lines := s.quantities.Lines()
	for _, label := range MissingProfiles(lines, s.profiles) {
		s.logger.Warn("no nutrition profile for food, counting it as zero", "label", label)
	}
	s.authoritative = ComputeTotals(lines, s.profiles)
	s.overridden = false
}
