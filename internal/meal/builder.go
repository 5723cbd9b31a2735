// Package meal assembles meal records from a capture session and hands them
// to persistence.
package meal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mcp-nutrition-tracker/internal/models"
)

var (
	ErrUnauthenticated = errors.New("you must be logged in to save a meal")
	ErrEmptyMeal       = errors.New("meal has no foods")
)

// UpstreamError is a failure in a collaborator (upload, persistence). The
// caller may retry; nothing in the capture session has been discarded.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Retryable() bool {
	return true
}

// BuildMealRecord assembles a record from the authoritative totals. Items is
// the comma-joined label list in line order; duplicates are kept and counts
// are not rendered.
func BuildMealRecord(totals models.NutritionTotals, quantities []models.FoodQuantity, imageURL string, now time.Time) models.MealRecord {
	labels := make([]string, 0, len(quantities))
	for _, q := range quantities {
		labels = append(labels, q.Label)
	}
	return models.MealRecord{
		Items:    strings.Join(labels, ","),
		Time:     now.UTC(),
		Totals:   totals.Rounded(),
		ImageURI: imageURL,
	}
}

// ImageUploader stores a captured image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, imageURI string) (string, error)
}

// Submitter persists a meal record for a user.
type Submitter interface {
	SubmitMeal(ctx context.Context, userID string, rec models.MealRecord) (*models.Meal, error)
}

// Source is the part of a capture session the recorder reads.
type Source interface {
	Totals() models.NutritionTotals
	Lines() []models.FoodQuantity
}

// Recorder runs the save flow: check the user, upload the image, build the
// record and submit it. It never mutates the source, so a failed save can be
// retried with everything the user entered.
type Recorder struct {
	uploader  ImageUploader
	submitter Submitter
	now       func() time.Time
}

func NewRecorder(uploader ImageUploader, submitter Submitter) *Recorder {
	return &Recorder{uploader: uploader, submitter: submitter, now: time.Now}
}

func (r *Recorder) Save(ctx context.Context, user *models.User, src Source, imageURI string) (*models.Meal, error) {
	if user == nil || user.ID == "" {
		return nil, ErrUnauthenticated
	}
	lines := src.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyMeal
	}

	imageURL, err := r.uploader.Upload(ctx, imageURI)
	if err != nil {
		return nil, &UpstreamError{Op: "image upload", Err: err}
	}

	rec := BuildMealRecord(src.Totals(), lines, imageURL, r.now())
	saved, err := r.submitter.SubmitMeal(ctx, user.ID, rec)
	if err != nil {
		return nil, &UpstreamError{Op: "save meal", Err: err}
	}
	return saved, nil
}
