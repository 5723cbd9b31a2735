// cmd/nutrition-tracker/main.go
package main

import (
	"os"

	"mcp-nutrition-tracker/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
