package cli

import (
	"github.com/spf13/cobra"

	"sentifi/internal/app"
)

var readSymbol string

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a symbol's current score from the oracle contract",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ReadOptions{
			Symbol: readSymbol,
		}
		return getApp().Read(cmd.Context(), opts)
	},
}

func init() {
	readCmd.Flags().StringVar(&readSymbol, "symbol", "", "Token symbol to read (defaults to config)")
}
