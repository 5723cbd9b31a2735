package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mcp-nutrition-tracker/internal/goals"
	"mcp-nutrition-tracker/internal/storage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Show or set a user's daily target",
		Long:  "Show a user's daily calorie and macro target. With --tdee, store a new TDEE first.",
		Run:   runTarget,
	}

	cmd.Flags().StringP("user", "u", "", "User ID (required)")
	cmd.Flags().Float64("tdee", 0, "Total daily energy expenditure in kcal")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runTarget(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	tdee, _ := cmd.Flags().GetFloat64("tdee")

	s, err := openStorage()
	if err != nil {
		exitErr("open storage", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if cmd.Flags().Changed("tdee") {
		if tdee <= 0 {
			exitErr("target", fmt.Errorf("tdee must be positive"))
		}
		if err := s.SetTarget(ctx, user, tdee); err != nil {
			exitErr("target", err)
		}
	} else {
		tdee, err = s.GetTarget(ctx, user)
		if errors.Is(err, storage.ErrNotFound) {
			tdee = defaultTDEE()
		} else if err != nil {
			exitErr("target", err)
		}
	}

	out := struct {
		User   string            `json:"user_id"`
		TDEE   float64           `json:"tdee"`
		Target goals.DailyTarget `json:"target"`
		Bands  goals.Bands       `json:"bands"`
	}{User: user, TDEE: tdee, Target: goals.TargetFromTDEE(tdee)}
	out.Bands = goals.BandsFor(out.Target)

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
