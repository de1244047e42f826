package cli

import (
	"github.com/spf13/cobra"

	"staking-ledger/internal/app"
)

var (
	pauseFrom   string
	unpauseFrom string

	transferFrom     string
	transferNewOwner string
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause all holder operations (owner only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Pause(cmd.Context(), app.AdminOptions{From: pauseFrom})
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Resume holder operations (owner only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Unpause(cmd.Context(), app.AdminOptions{From: unpauseFrom})
	},
}

var transferOwnershipCmd = &cobra.Command{
	Use:   "transfer-ownership",
	Short: "Hand the administrator role to a new owner (owner only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AdminOptions{
			From:     transferFrom,
			NewOwner: transferNewOwner,
		}
		return getApp().TransferOwnership(cmd.Context(), opts)
	},
}

func init() {
	pauseCmd.Flags().StringVar(&pauseFrom, "from", "", "Acting owner address (hex)")
	unpauseCmd.Flags().StringVar(&unpauseFrom, "from", "", "Acting owner address (hex)")

	transferOwnershipCmd.Flags().StringVar(&transferFrom, "from", "", "Acting owner address (hex)")
	transferOwnershipCmd.Flags().StringVar(&transferNewOwner, "new-owner", "", "New owner address (hex)")
}
