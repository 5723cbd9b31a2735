// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"mcp-nutrition-tracker/internal/goals"
	"mcp-nutrition-tracker/internal/models"
)

var ErrNotFound = errors.New("not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

type SQLiteStorage struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS meals (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        items TEXT NOT NULL,
        time TEXT NOT NULL,
        calories REAL NOT NULL,
        protein REAL NOT NULL,
        fat REAL NOT NULL,
        carbs REAL NOT NULL,
        image_uri TEXT NOT NULL,
        source TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS foods (
        name TEXT PRIMARY KEY,
        unit TEXT NOT NULL,
        piece_avg_weight REAL NOT NULL DEFAULT 0,
        avg_gram REAL NOT NULL DEFAULT 0,
        calories REAL NOT NULL,
        protein REAL NOT NULL,
        fat REAL NOT NULL,
        carbs REAL NOT NULL,
        updated_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS targets (
        user_id TEXT PRIMARY KEY,
        tdee REAL NOT NULL,
        updated_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_meals_user_time ON meals(user_id, time);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SubmitMeal persists a freshly built meal record for a user.
func (s *SQLiteStorage) SubmitMeal(ctx context.Context, userID string, rec models.MealRecord) (*models.Meal, error) {
	meal := &models.Meal{
		ID:        s.newID(),
		UserID:    userID,
		Items:     rec.Items,
		Time:      rec.Time.UTC(),
		Totals:    rec.Totals,
		ImageURI:  rec.ImageURI,
		Source:    "detection",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveMeal(ctx, meal); err != nil {
		return nil, err
	}
	return meal, nil
}

func (s *SQLiteStorage) SaveMeal(ctx context.Context, meal *models.Meal) error {
	if meal.ID == "" {
		meal.ID = s.newID()
	}
	query := `
        INSERT INTO meals (id, user_id, items, time, calories, protein, fat, carbs, image_uri, source, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		meal.ID, meal.UserID, meal.Items, meal.Time.UTC().Format(timeLayout),
		meal.Totals.Calories, meal.Totals.Protein, meal.Totals.Fat, meal.Totals.Carbs,
		meal.ImageURI, meal.Source, meal.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

// GetMeals returns a user's meals newest first. Zero start/end leave that side
// of the range open; limit <= 0 means no limit.
func (s *SQLiteStorage) GetMeals(ctx context.Context, userID string, start, end time.Time, limit int) ([]*models.Meal, error) {
	query := `
        SELECT id, user_id, items, time, calories, protein, fat, carbs, image_uri, source, created_at
        FROM meals
        WHERE user_id = ?
    `
	args := []interface{}{userID}

	if !start.IsZero() {
		query += " AND time >= ?"
		args = append(args, start.UTC().Format(timeLayout))
	}
	if !end.IsZero() {
		query += " AND time <= ?"
		args = append(args, end.UTC().Format(timeLayout))
	}

	query += " ORDER BY time DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	var meals []*models.Meal
	for rows.Next() {
		meal := &models.Meal{}
		var timeStr, createdAtStr string

		err := rows.Scan(
			&meal.ID, &meal.UserID, &meal.Items, &timeStr,
			&meal.Totals.Calories, &meal.Totals.Protein, &meal.Totals.Fat, &meal.Totals.Carbs,
			&meal.ImageURI, &meal.Source, &createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}

		if meal.Time, err = time.Parse(timeLayout, timeStr); err != nil {
			return nil, fmt.Errorf("failed to parse time: %w", err)
		}
		if meal.CreatedAt, err = time.Parse(timeLayout, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		meals = append(meals, meal)
	}

	return meals, rows.Err()
}

// History returns a user's meals in the window, oldest first, shaped for the goal scorer.
func (s *SQLiteStorage) History(ctx context.Context, userID string, start, end time.Time) ([]goals.HistoricalMeal, error) {
	meals, err := s.GetMeals(ctx, userID, start, end, 0)
	if err != nil {
		return nil, err
	}

	history := make([]goals.HistoricalMeal, 0, len(meals))
	for i := len(meals) - 1; i >= 0; i-- {
		m := meals[i]
		history = append(history, goals.HistoricalMeal{
			Date:     m.Time.Format(time.RFC3339),
			Calories: m.Totals.Calories,
			Protein:  m.Totals.Protein,
			Carbs:    m.Totals.Carbs,
			Fat:      m.Totals.Fat,
		})
	}
	return history, nil
}

func (s *SQLiteStorage) GetProfile(ctx context.Context, name string) (*models.NutritionProfile, error) {
	query := `
        SELECT name, unit, piece_avg_weight, avg_gram, calories, protein, fat, carbs
        FROM foods
        WHERE name = ?
    `
	p := &models.NutritionProfile{}
	var unit string
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&p.Name, &unit, &p.PieceAvgWeight, &p.AvgGram,
		&p.Calories, &p.Protein, &p.Fat, &p.Carbs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: food %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query food: %w", err)
	}
	p.Unit = models.Unit(unit)
	return p, nil
}

// SaveProfile inserts or replaces a food's nutrition profile.
func (s *SQLiteStorage) SaveProfile(ctx context.Context, p models.NutritionProfile) error {
	query := `
        INSERT INTO foods (name, unit, piece_avg_weight, avg_gram, calories, protein, fat, carbs, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            unit = excluded.unit,
            piece_avg_weight = excluded.piece_avg_weight,
            avg_gram = excluded.avg_gram,
            calories = excluded.calories,
            protein = excluded.protein,
            fat = excluded.fat,
            carbs = excluded.carbs,
            updated_at = excluded.updated_at
    `
	_, err := s.db.ExecContext(ctx, query,
		p.Name, string(p.Unit), p.PieceAvgWeight, p.AvgGram,
		p.Calories, p.Protein, p.Fat, p.Carbs, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save food: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SetTarget(ctx context.Context, userID string, tdee float64) error {
	query := `
        INSERT INTO targets (user_id, tdee, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET tdee = excluded.tdee, updated_at = excluded.updated_at
    `
	if _, err := s.db.ExecContext(ctx, query, userID, tdee, time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("failed to save target: %w", err)
	}
	return nil
}

// GetTarget returns the user's TDEE, or ErrNotFound if none was set.
func (s *SQLiteStorage) GetTarget(ctx context.Context, userID string) (float64, error) {
	var tdee float64
	err := s.db.QueryRowContext(ctx, `SELECT tdee FROM targets WHERE user_id = ?`, userID).Scan(&tdee)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: target for %s", ErrNotFound, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query target: %w", err)
	}
	return tdee, nil
}
