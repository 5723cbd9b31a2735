// Package cli implements the nutrition-tracker commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mcp-nutrition-tracker/internal/storage"
)

var (
	dbPath       string
	outputFormat string
	logLevel     string
	logFormat    string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "nutrition-tracker",
	Short: "Meal nutrition totals and daily goal tracking",
	Long:  "Turns detected foods into meal nutrition totals, logs meals to SQLite, and scores logged days against a daily target.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $NUTRITION_DB or ~/.nutrition-tracker/nutrition.db)")
	RootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json or text")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("NUTRITION_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nutrition-tracker", "nutrition.db")
}

func formatText() bool {
	return outputFormat == "text"
}

func openStorage() (*storage.SQLiteStorage, error) {
	return storage.NewSQLiteStorage(getDBPath())
}

// defaultTDEE is used for users who never set a target.
func defaultTDEE() float64 {
	if env := os.Getenv("DEFAULT_TDEE"); env != "" {
		if v, err := strconv.ParseFloat(env, 64); err == nil && v > 0 {
			return v
		}
	}
	return 2000
}

func newLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logFormat == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("component", "nutrition-tracker")
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
