package cli

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check RPC connectivity and print chain details",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Status(cmd.Context())
	},
}
