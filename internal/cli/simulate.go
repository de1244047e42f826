package cli

import (
	"github.com/spf13/cobra"

	"staking-ledger/internal/app"
)

var (
	simulatePrincipal string
	simulatePercent   uint8
	simulateWeeks     int
	simulateUnstake   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an offline stake scenario and print the projected reward",
	Long:  "Simulate stakes a principal against an in-memory token ledger, advances the clock by the given number of weeks, unstakes, and prints the resulting record. No chain or database access.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Principal: simulatePrincipal,
			Percent:   simulatePercent,
			Weeks:     simulateWeeks,
			Unstake:   simulateUnstake,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePrincipal, "principal", "", "Principal in base units")
	simulateCmd.Flags().Uint8Var(&simulatePercent, "percent", 20, "Reward percentage (1-100)")
	simulateCmd.Flags().IntVar(&simulateWeeks, "weeks", 20, "Weeks to hold the stake")
	simulateCmd.Flags().StringVar(&simulateUnstake, "unstake", "", "Amount to unstake (defaults to the full principal)")
}
