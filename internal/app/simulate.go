package app

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"staking-ledger/internal/staking"
	"staking-ledger/internal/token"
)

var (
	simAsset   = common.HexToAddress("0x0000000000000000000000000000000000000A55")
	simReward  = common.HexToAddress("0x000000000000000000000000000000000000F00D")
	simService = common.HexToAddress("0x0000000000000000000000000000000000005E1F")
	simOwner   = common.HexToAddress("0x0000000000000000000000000000000000000ADE")
	simHolder  = common.HexToAddress("0x000000000000000000000000000000000000B0B1")
)

// Simulate runs an offline stake/wait/unstake scenario against an in-memory
// token ledger and prints the resulting record. No chain or database access.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	principal, err := parseAmount(opts.Principal)
	if err != nil {
		return err
	}
	if principal.Sign() <= 0 {
		return fmt.Errorf("--principal must be a positive integer in base units")
	}
	unstake, err := parseAmount(opts.Unstake)
	if err != nil {
		return err
	}
	if unstake.Sign() == 0 {
		unstake = new(big.Int).Set(principal)
	}
	if opts.Weeks <= 0 {
		return fmt.Errorf("--weeks must be positive")
	}

	tokens := token.NewMemory(simService)
	tokens.Register(simAsset)
	tokens.Register(simReward)
	tokens.Mint(simAsset, simHolder, principal)
	// A generous reserve so reward withdrawal never limits the scenario.
	reserve := new(big.Int).Mul(principal, big.NewInt(1000))
	tokens.Mint(simReward, simService, reserve)

	now := time.Now().UTC()
	clock := now
	svc := staking.New(tokens, simService, simReward, simOwner, nil, a.Logger).
		WithClock(func() time.Time { return clock })

	if err := svc.SetRewardRate(ctx, simOwner, simAsset, opts.Percent); err != nil {
		return err
	}
	if err := svc.Stake(ctx, simHolder, simAsset, principal); err != nil {
		return err
	}

	clock = now.Add(time.Duration(opts.Weeks) * 7 * 24 * time.Hour)
	if err := svc.Unstake(ctx, simHolder, simAsset, unstake); err != nil {
		return err
	}
	if err := svc.WithdrawUnstaked(ctx, simHolder, simAsset, unstake); err != nil {
		return err
	}
	earned := svc.UserRewardAmount(simAsset, simHolder)
	if earned.Sign() > 0 {
		if err := svc.WithdrawReward(ctx, simHolder, simAsset, earned); err != nil {
			return err
		}
	}

	rec := svc.UserRecord(simAsset, simHolder)
	assetBalance, err := tokens.BalanceOf(ctx, simAsset, simHolder)
	if err != nil {
		return err
	}
	rewardBalance, err := tokens.BalanceOf(ctx, simReward, simHolder)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Scenario\tValue")
	fmt.Fprintf(writer, "Principal\t%s\n", principal)
	fmt.Fprintf(writer, "Rate\t%d%%\n", opts.Percent)
	fmt.Fprintf(writer, "Duration\t%d weeks\n", opts.Weeks)
	fmt.Fprintf(writer, "Unstaked\t%s\n", unstake)
	fmt.Fprintf(writer, "Remaining staked\t%s\n", rec.StakedAmount)
	fmt.Fprintf(writer, "Reward earned\t%s\n", earned)
	fmt.Fprintf(writer, "Asset balance after withdraw\t%s\n", assetBalance)
	fmt.Fprintf(writer, "Reward balance after withdraw\t%s\n", rewardBalance)
	return writer.Flush()
}
