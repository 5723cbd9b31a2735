// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mcp-nutrition-tracker/internal/goals"
	"mcp-nutrition-tracker/internal/models"
	"mcp-nutrition-tracker/internal/nutrition"
	"mcp-nutrition-tracker/internal/storage"
)

var errInvalidParams = errors.New("invalid parameters")

// textValue accepts either a JSON string or a JSON number, keeping the raw
// text so the engine can apply its own input normalization.
type textValue string

func (v *textValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = textValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = textValue(n.String())
	return nil
}

type CalculateNutritionParams struct {
	Quantities []models.FoodQuantity `json:"quantities" description:"Foods with their amount (grams or pieces)"`
}

type StartMealParams struct {
	Detections []models.DetectedObject `json:"detections,omitempty" description:"Raw detections as {label, confidence}"`
	Counts     []models.DetectionCount `json:"counts,omitempty" description:"Pre-aggregated detections as {label, count}"`
}

type AdjustQuantityParams struct {
	SessionID string `json:"session_id" description:"Meal session ID"`
	Label     string `json:"label" description:"Food label"`
	Direction string `json:"direction" description:"increment or decrement"`
}

type SetQuantityParams struct {
	SessionID string    `json:"session_id" description:"Meal session ID"`
	Label     string    `json:"label" description:"Food label"`
	Value     textValue `json:"value" description:"New amount; invalid or below 1 becomes 1"`
}

type RemoveFoodParams struct {
	SessionID string `json:"session_id" description:"Meal session ID"`
	Label     string `json:"label" description:"Food label"`
}

type EditTotalsParams struct {
	SessionID string    `json:"session_id" description:"Meal session ID"`
	Action    string    `json:"action" description:"begin, set, commit or cancel"`
	Field     string    `json:"field,omitempty" description:"calories, protein, fat or carbs (for set)"`
	Value     textValue `json:"value,omitempty" description:"New value (for set); invalid becomes 0"`
}

type SaveMealParams struct {
	SessionID string `json:"session_id" description:"Meal session ID"`
	UserID    string `json:"user_id" description:"Authenticated user ID"`
	ImageURI  string `json:"image_uri" description:"Local path or URL of the meal photo"`
}

type GetMealsParams struct {
	UserID    string `json:"user_id" description:"User ID"`
	StartDate string `json:"start_date,omitempty" description:"Start date for meal query (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" description:"End date for meal query (YYYY-MM-DD)"`
	Limit     int    `json:"limit,omitempty" description:"Maximum number of meals to return"`
}

type SetTargetParams struct {
	UserID string  `json:"user_id" description:"User ID"`
	TDEE   float64 `json:"tdee" description:"Total daily energy expenditure in kcal"`
}

type ScoreGoalsParams struct {
	UserID string `json:"user_id" description:"User ID"`
	Range  string `json:"range,omitempty" description:"Week, 30 Days, 60 Days or 90 Days"`
}

type sessionView struct {
	SessionID         string                 `json:"session_id"`
	State             string                 `json:"state"`
	Overridden        bool                   `json:"overridden"`
	Quantities        []models.FoodQuantity  `json:"quantities"`
	Totals            models.NutritionTotals `json:"totals"`
	MissingProfiles   []string               `json:"missing_profiles,omitempty"`
	AverageConfidence float64                `json:"average_confidence,omitempty"`
	StartedAt         time.Time              `json:"started_at"`
	Abandoned         bool                   `json:"abandoned,omitempty"`
}

func viewOf(cs *captureSession) sessionView {
	lines := cs.meal.Lines()
	return sessionView{
		SessionID:         cs.id,
		State:             cs.meal.State().String(),
		Overridden:        cs.meal.Overridden(),
		Quantities:        lines,
		Totals:            cs.meal.Totals().Rounded(),
		MissingProfiles:   nutrition.MissingProfiles(lines, cs.meal.Profiles()),
		AverageConfidence: models.Round1(cs.confidence),
		StartedAt:         cs.createdAt,
	}
}

// extractParams converts the request arguments into a typed params struct
func extractParams(args interface{}, target interface{}) error {
	jsonBytes, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	return nil
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", errInvalidParams, name)
	}
	return nil
}

// handleCalculateNutrition computes totals without opening a session
func (s *NutritionServer) handleCalculateNutrition(ctx context.Context, args interface{}) (interface{}, error) {
	var params CalculateNutritionParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(params.Quantities))
	for _, q := range params.Quantities {
		labels = append(labels, q.Label)
	}
	profiles := s.resolveProfiles(ctx, labels)

	missing := nutrition.MissingProfiles(params.Quantities, profiles)
	for _, label := range missing {
		s.logger.Warn("no nutrition profile for food, counting it as zero", "label", label)
	}

	return map[string]interface{}{
		"totals":           nutrition.ComputeTotals(params.Quantities, profiles).Rounded(),
		"missing_profiles": missing,
	}, nil
}

// handleStartMeal opens a meal-capture session from detection results
func (s *NutritionServer) handleStartMeal(ctx context.Context, args interface{}) (interface{}, error) {
	var params StartMealParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}

	counts := params.Counts
	var confidence float64
	if len(params.Detections) > 0 {
		counts = nutrition.AggregateDetections(params.Detections)
		confidence = nutrition.AverageConfidence(params.Detections)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no foods detected", errInvalidParams)
	}

	labels := make([]string, 0, len(counts))
	for _, c := range counts {
		labels = append(labels, c.Label)
	}
	profiles := s.resolveProfiles(ctx, labels)

	meal := nutrition.NewSession(nutrition.SeedQuantities(counts, profiles), profiles, s.logger)
	cs := s.sessions.add(meal, confidence)
	s.logger.Info("meal session started", "session", cs.id, "foods", len(counts))

	return viewOf(cs), nil
}

func (s *NutritionServer) handleAdjustQuantity(ctx context.Context, args interface{}) (interface{}, error) {
	var params AdjustQuantityParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}
	dir, err := nutrition.ParseDirection(params.Direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	var view sessionView
	err = s.sessions.with(params.SessionID, func(cs *captureSession) error {
		if err := cs.meal.Adjust(params.Label, dir); err != nil {
			return err
		}
		view = viewOf(cs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *NutritionServer) handleSetQuantity(ctx context.Context, args interface{}) (interface{}, error) {
	var params SetQuantityParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}

	var view sessionView
	err := s.sessions.with(params.SessionID, func(cs *captureSession) error {
		if err := cs.meal.SetQuantity(params.Label, string(params.Value)); err != nil {
			return err
		}
		view = viewOf(cs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// handleRemoveFood drops a food line; removing the last one abandons the meal
func (s *NutritionServer) handleRemoveFood(ctx context.Context, args interface{}) (interface{}, error) {
	var params RemoveFoodParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}

	var view sessionView
	err := s.sessions.with(params.SessionID, func(cs *captureSession) error {
		empty, err := cs.meal.Remove(params.Label)
		if err != nil {
			return err
		}
		view = viewOf(cs)
		if empty {
			s.sessions.close(cs)
			view.Abandoned = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if view.Abandoned {
		s.logger.Info("meal session abandoned", "session", params.SessionID)
	}
	return view, nil
}

// handleEditTotals drives the manual override of the meal totals
func (s *NutritionServer) handleEditTotals(ctx context.Context, args interface{}) (interface{}, error) {
	var params EditTotalsParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}

	var view sessionView
	err := s.sessions.with(params.SessionID, func(cs *captureSession) error {
		var err error
		switch strings.ToLower(strings.TrimSpace(params.Action)) {
		case "begin":
			err = cs.meal.BeginEdit()
		case "set":
			field, ferr := nutrition.ParseField(params.Field)
			if ferr != nil {
				return fmt.Errorf("%w: %v", errInvalidParams, ferr)
			}
			_, err = cs.meal.SetField(field, string(params.Value))
		case "commit":
			err = cs.meal.Commit()
		case "cancel":
			err = cs.meal.Cancel()
		default:
			return fmt.Errorf("%w: unknown action %q", errInvalidParams, params.Action)
		}
		if err != nil {
			return err
		}
		view = viewOf(cs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// handleSaveMeal persists the session's meal once; on failure the session is kept for a retry
func (s *NutritionServer) handleSaveMeal(ctx context.Context, args interface{}) (interface{}, error) {
	var params SaveMealParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}

	var user *models.User
	if params.UserID != "" {
		user = &models.User{ID: params.UserID}
	}

	var saved *models.Meal
	err := s.sessions.with(params.SessionID, func(cs *captureSession) error {
		var err error
		if saved, err = s.recorder.Save(ctx, user, cs.meal, params.ImageURI); err != nil {
			return err
		}
		s.sessions.close(cs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("meal saved", "session", params.SessionID, "meal", saved.ID, "user", saved.UserID)
	return saved, nil
}

// handleGetMeals retrieves a user's meals from storage
func (s *NutritionServer) handleGetMeals(ctx context.Context, args interface{}) (interface{}, error) {
	var params GetMealsParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}
	if err := required("user_id", params.UserID); err != nil {
		return nil, err
	}

	if params.Limit <= 0 {
		params.Limit = 20
	}

	start, end, err := parseDateRange(params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}

	meals, err := s.storage.GetMeals(ctx, params.UserID, start, end, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve meals: %w", err)
	}
	if meals == nil {
		meals = []*models.Meal{}
	}

	return meals, nil
}

func (s *NutritionServer) handleSetTarget(ctx context.Context, args interface{}) (interface{}, error) {
	var params SetTargetParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}
	if err := required("user_id", params.UserID); err != nil {
		return nil, err
	}
	if params.TDEE <= 0 {
		return nil, fmt.Errorf("%w: tdee must be positive", errInvalidParams)
	}

	if err := s.storage.SetTarget(ctx, params.UserID, params.TDEE); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"user_id": params.UserID,
		"tdee":    params.TDEE,
		"target":  goals.TargetFromTDEE(params.TDEE),
	}, nil
}

// handleScoreGoals scores the user's logged days against their daily target
func (s *NutritionServer) handleScoreGoals(ctx context.Context, args interface{}) (interface{}, error) {
	var params ScoreGoalsParams
	if err := extractParams(args, &params); err != nil {
		return nil, err
	}
	if err := required("user_id", params.UserID); err != nil {
		return nil, err
	}
	if params.Range == "" {
		params.Range = "Week"
	}

	tdee, err := s.storage.GetTarget(ctx, params.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		tdee = s.config.DefaultTDEE
	} else if err != nil {
		return nil, err
	}

	start, end := goals.Window(params.Range, time.Now())
	history, err := s.storage.History(ctx, params.UserID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	report := goals.Evaluate(history, goals.TargetFromTDEE(tdee))
	if report.Skipped > 0 {
		s.logger.Warn("meals with unreadable dates skipped", "user", params.UserID, "count", report.Skipped)
	}

	return map[string]interface{}{
		"user_id": params.UserID,
		"range":   params.Range,
		"start":   start,
		"end":     end,
		"tdee":    tdee,
		"report":  report,
	}, nil
}

// parseDateRange turns optional YYYY-MM-DD bounds into a local-time range covering whole days
func parseDateRange(startDate, endDate string) (start, end time.Time, err error) {
	if startDate != "" {
		if start, err = time.ParseInLocation("2006-01-02", startDate, time.Local); err != nil {
			return start, end, fmt.Errorf("%w: invalid start_date: %v", errInvalidParams, err)
		}
	}
	if endDate != "" {
		if end, err = time.ParseInLocation("2006-01-02", endDate, time.Local); err != nil {
			return start, end, fmt.Errorf("%w: invalid end_date: %v", errInvalidParams, err)
		}
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return start, end, nil
}

func (s *NutritionServer) registerTools() {
	s.tools = map[string]toolFunc{
		"calculate_nutrition": s.handleCalculateNutrition,
		"start_meal":          s.handleStartMeal,
		"adjust_quantity":     s.handleAdjustQuantity,
		"set_quantity":        s.handleSetQuantity,
		"remove_food":         s.handleRemoveFood,
		"edit_totals":         s.handleEditTotals,
		"save_meal":           s.handleSaveMeal,
		"get_meals":           s.handleGetMeals,
		"set_target":          s.handleSetTarget,
		"score_goals":         s.handleScoreGoals,
	}

	for name := range s.tools {
		s.logger.Debug("registered tool", "tool", name)
	}
}
