package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"staking-ledger/internal/app"
)

var (
	setRateFrom    string
	setRateAsset   string
	setRatePercent uint8

	rateAsset string
)

var setRateCmd = &cobra.Command{
	Use:   "set-rate",
	Short: "Set the reward percentage for an asset (owner only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if setRatePercent < 1 || setRatePercent > 100 {
			return fmt.Errorf("--percent must be between 1 and 100")
		}
		opts := app.RateOptions{
			From:    setRateFrom,
			Asset:   setRateAsset,
			Percent: setRatePercent,
		}
		return getApp().SetRewardRate(cmd.Context(), opts)
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Show the configured reward percentage for an asset",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RewardRate(cmd.Context(), rateAsset)
	},
}

func init() {
	setRateCmd.Flags().StringVar(&setRateFrom, "from", "", "Acting owner address (hex)")
	setRateCmd.Flags().StringVar(&setRateAsset, "asset", "", "Asset token contract address (hex)")
	setRateCmd.Flags().Uint8Var(&setRatePercent, "percent", 0, "Reward percentage (1-100)")

	rateCmd.Flags().StringVar(&rateAsset, "asset", "", "Asset token contract address (hex)")
}
