package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mcp-nutrition-tracker/internal/goals"
	"mcp-nutrition-tracker/internal/storage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score logged days against the user's daily target",
		Run:   runScore,
	}

	cmd.Flags().StringP("user", "u", "", "User ID (required)")
	cmd.Flags().StringP("range", "r", "Week", "Range: Week, 30 Days, 60 Days, 90 Days")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runScore(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	rangeName, _ := cmd.Flags().GetString("range")

	s, err := openStorage()
	if err != nil {
		exitErr("open storage", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	tdee, err := s.GetTarget(ctx, user)
	if errors.Is(err, storage.ErrNotFound) {
		tdee = defaultTDEE()
	} else if err != nil {
		exitErr("target", err)
	}

	start, end := goals.Window(rangeName, time.Now())
	history, err := s.History(ctx, user, start, end)
	if err != nil {
		exitErr("history", err)
	}

	report := goals.Evaluate(history, goals.TargetFromTDEE(tdee))

	if formatText() {
		fmt.Printf("goals met: %d%% over %d day(s) with data (%s, tdee %.0f)\n", report.Score, len(report.Days), rangeName, tdee)
		for _, d := range report.Days {
			fmt.Printf("  %s  %d/4  %6.1f kcal  P %5.1f  C %5.1f  F %5.1f\n", d.Date, d.Met, d.Calories, d.Protein, d.Carbs, d.Fat)
		}
		return
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
