package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"staking-ledger/internal/app"
)

var (
	unstakeHolder string
	unstakeAsset  string
	unstakeAmount string
)

var unstakeCmd = &cobra.Command{
	Use:   "unstake",
	Short: "Move staked tokens into the withdrawable bucket",
	Long:  "Unstake credits the reward earned on the remaining principal, then moves the requested amount out of the stake. The funds become withdrawable via withdraw-unstaked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if unstakeAmount == "" {
			return errors.New("--amount is required")
		}
		opts := app.StakeOptions{
			Holder: unstakeHolder,
			Asset:  unstakeAsset,
			Amount: unstakeAmount,
		}
		return getApp().Unstake(cmd.Context(), opts)
	},
}

func init() {
	unstakeCmd.Flags().StringVar(&unstakeHolder, "holder", "", "Holder address (hex)")
	unstakeCmd.Flags().StringVar(&unstakeAsset, "asset", "", "Asset token contract address (hex)")
	unstakeCmd.Flags().StringVar(&unstakeAmount, "amount", "", "Amount in base units")
}
