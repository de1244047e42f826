package cli

import (
	"github.com/spf13/cobra"

	"staking-ledger/internal/app"
)

var (
	recordAsset  string
	recordHolder string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Display one holder's stake record",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RecordOptions{
			Asset:  recordAsset,
			Holder: recordHolder,
		}
		return getApp().Record(cmd.Context(), opts)
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordAsset, "asset", "", "Asset token contract address (hex)")
	recordCmd.Flags().StringVar(&recordHolder, "holder", "", "Holder address (hex)")
}
