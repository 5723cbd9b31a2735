package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcp-nutrition-tracker/internal/server"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nutrition-tracker version %s\n", server.Version)
		},
	})
}
