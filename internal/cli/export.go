package cli

import (
	"github.com/spf13/cobra"

	"sentifi/internal/app"
)

var (
	exportSymbol  string
	exportQuery   string
	exportPNGPath string
	exportCSVPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Analyze without publishing and export the breakdown as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Symbol:  exportSymbol,
			Query:   exportQuery,
			PNGPath: exportPNGPath,
			CSVPath: exportCSVPath,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSymbol, "symbol", "", "Token symbol to analyze (defaults to config)")
	exportCmd.Flags().StringVar(&exportQuery, "query", "", "Free-text topic overriding the symbol's default feeds")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG bar chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV breakdown")
}
