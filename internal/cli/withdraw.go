package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"staking-ledger/internal/app"
)

var (
	withdrawHolder string
	withdrawAsset  string
	withdrawAmount string

	rewardHolder string
	rewardAsset  string
	rewardAmount string
)

var withdrawUnstakedCmd = &cobra.Command{
	Use:   "withdraw-unstaked",
	Short: "Pay out previously unstaked tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		if withdrawAmount == "" {
			return errors.New("--amount is required")
		}
		opts := app.StakeOptions{
			Holder: withdrawHolder,
			Asset:  withdrawAsset,
			Amount: withdrawAmount,
		}
		return getApp().WithdrawUnstaked(cmd.Context(), opts)
	},
}

var withdrawRewardCmd = &cobra.Command{
	Use:   "withdraw-reward",
	Short: "Pay out credited reward from the reserve",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rewardAmount == "" {
			return errors.New("--amount is required")
		}
		opts := app.StakeOptions{
			Holder: rewardHolder,
			Asset:  rewardAsset,
			Amount: rewardAmount,
		}
		return getApp().WithdrawReward(cmd.Context(), opts)
	},
}

func init() {
	withdrawUnstakedCmd.Flags().StringVar(&withdrawHolder, "holder", "", "Holder address (hex)")
	withdrawUnstakedCmd.Flags().StringVar(&withdrawAsset, "asset", "", "Asset token contract address (hex)")
	withdrawUnstakedCmd.Flags().StringVar(&withdrawAmount, "amount", "", "Amount in base units")

	withdrawRewardCmd.Flags().StringVar(&rewardHolder, "holder", "", "Holder address (hex)")
	withdrawRewardCmd.Flags().StringVar(&rewardAsset, "asset", "", "Asset token contract address (hex)")
	withdrawRewardCmd.Flags().StringVar(&rewardAmount, "amount", "", "Amount in base units")
}
