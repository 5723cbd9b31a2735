package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "meals",
		Short: "List a user's logged meals",
		Run:   runMeals,
	}

	cmd.Flags().StringP("user", "u", "", "User ID (required)")
	cmd.Flags().String("start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runMeals(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	limit, _ := cmd.Flags().GetInt("limit")

	var start, end time.Time
	var err error
	if startStr != "" {
		if start, err = time.ParseInLocation("2006-01-02", startStr, time.Local); err != nil {
			exitErr("parse start", err)
		}
	}
	if endStr != "" {
		if end, err = time.ParseInLocation("2006-01-02", endStr, time.Local); err != nil {
			exitErr("parse end", err)
		}
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	s, err := openStorage()
	if err != nil {
		exitErr("open storage", err)
	}
	defer s.Close()

	meals, err := s.GetMeals(cmd.Context(), user, start, end, limit)
	if err != nil {
		exitErr("meals", err)
	}

	if formatText() {
		for _, m := range meals {
			fmt.Printf("%s  %-30s %7.1f kcal  P %5.1f  C %5.1f  F %5.1f\n",
				m.Time.Local().Format("2006-01-02 15:04"), m.Items,
				m.Totals.Calories, m.Totals.Protein, m.Totals.Carbs, m.Totals.Fat)
		}
		return
	}

	b, _ := json.MarshalIndent(meals, "", "  ")
	fmt.Println(string(b))
}
