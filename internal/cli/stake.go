package cli

import (
	"github.com/spf13/cobra"

	"staking-ledger/internal/app"
)

var (
	stakeHolder string
	stakeAsset  string
	stakeAmount string
)

var stakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Stake tokens for a holder",
	Long:  "Stake moves tokens from the holder into the pool. Omitting --amount (or passing 0) stakes the holder's entire balance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.StakeOptions{
			Holder: stakeHolder,
			Asset:  stakeAsset,
			Amount: stakeAmount,
		}
		return getApp().Stake(cmd.Context(), opts)
	},
}

func init() {
	stakeCmd.Flags().StringVar(&stakeHolder, "holder", "", "Holder address (hex)")
	stakeCmd.Flags().StringVar(&stakeAsset, "asset", "", "Asset token contract address (hex)")
	stakeCmd.Flags().StringVar(&stakeAmount, "amount", "", "Amount in base units (0 or empty stakes the full balance)")
}
