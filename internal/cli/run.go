package cli

import (
	"github.com/spf13/cobra"

	"sentifi/internal/app"
)

var (
	runSymbol string
	runQuery  string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one sentiment cycle and publish the score",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{
			Symbol: runSymbol,
			Query:  runQuery,
			DryRun: runDryRun,
		}
		return getApp().Run(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().StringVar(&runSymbol, "symbol", "", "Token symbol to score (defaults to config)")
	runCmd.Flags().StringVar(&runQuery, "query", "", "Free-text topic overriding the symbol's default feeds")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Compute and print the score without publishing")
}
