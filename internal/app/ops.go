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
)

// Stake deposits a holder's tokens into the pool. An empty or zero amount
// stakes the holder's entire balance.
func (a *App) Stake(ctx context.Context, opts StakeOptions) error {
	holder, err := parseAddress("holder", opts.Holder)
	if err != nil {
		return err
	}
	asset, err := parseAddress("asset", opts.Asset)
	if err != nil {
		return err
	}
	amount, err := parseAmount(opts.Amount)
	if err != nil {
		return err
	}

	svc, closeSvc, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	if err := svc.Stake(ctx, holder, asset, amount); err != nil {
		return err
	}
	return a.printRecord(ctx, svc, asset, holder)
}

// Unstake moves staked funds into the withdrawable bucket, crystallising
// reward earned so far.
func (a *App) Unstake(ctx context.Context, opts StakeOptions) error {
	holder, err := parseAddress("holder", opts.Holder)
	if err != nil {
		return err
	}
	asset, err := parseAddress("asset", opts.Asset)
	if err != nil {
		return err
	}
	amount, err := parseAmount(opts.Amount)
	if err != nil {
		return err
	}

	svc, closeSvc, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	if err := svc.Unstake(ctx, holder, asset, amount); err != nil {
		return err
	}
	return a.printRecord(ctx, svc, asset, holder)
}

// WithdrawUnstaked pays previously unstaked funds back to the holder.
func (a *App) WithdrawUnstaked(ctx context.Context, opts StakeOptions) error {
	return a.withdraw(ctx, opts, (*staking.Service).WithdrawUnstaked)
}

// WithdrawReward pays credited reward from the reserve to the holder.
func (a *App) WithdrawReward(ctx context.Context, opts StakeOptions) error {
	return a.withdraw(ctx, opts, (*staking.Service).WithdrawReward)
}

func (a *App) withdraw(ctx context.Context, opts StakeOptions, op func(*staking.Service, context.Context, common.Address, common.Address, *big.Int) error) error {
	holder, err := parseAddress("holder", opts.Holder)
	if err != nil {
		return err
	}
	asset, err := parseAddress("asset", opts.Asset)
	if err != nil {
		return err
	}
	amount, err := parseAmount(opts.Amount)
	if err != nil {
		return err
	}

	svc, closeSvc, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	if err := op(svc, ctx, holder, asset, amount); err != nil {
		return err
	}
	return a.printRecord(ctx, svc, asset, holder)
}

// SetRewardRate configures the reward percentage for an asset.
func (a *App) SetRewardRate(ctx context.Context, opts RateOptions) error {
	from, err := parseAddress("from", opts.From)
	if err != nil {
		return err
	}
	asset, err := parseAddress("asset", opts.Asset)
	if err != nil {
		return err
	}

	svc, closeSvc, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	if err := svc.SetRewardRate(ctx, from, asset, opts.Percent); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "reward rate for %s set to %d%%\n", asset.Hex(), opts.Percent)
	return nil
}

// RewardRate prints the configured rate for an asset.
func (a *App) RewardRate(ctx context.Context, assetHex string) error {
	asset, err := parseAddress("asset", assetHex)
	if err != nil {
		return err
	}

	svc, closeSvc, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	percent := svc.RewardRate(asset)
	if percent == 0 {
		fmt.Fprintf(os.Stdout, "no reward rate configured for %s\n", asset.Hex())
		return nil
	}
	fmt.Fprintf(os.Stdout, "%d%%\n", percent)
	return nil
}

// Pause blocks all holder operations.
func (a *App) Pause(ctx context.Context, opts AdminOptions) error {
	return a.adminSwitch(ctx, opts, (*staking.Service).Pause, "ledger paused")
}

// Unpause restores holder operations.
func (a *App) Unpause(ctx context.Context, opts AdminOptions) error {
	return a.adminSwitch(ctx, opts, (*staking.Service).Unpause, "ledger unpaused")
}

func (a *App) adminSwitch(ctx context.Context, opts AdminOptions, op func(*staking.Service, context.Context, common.Address) error, done string) error {
	from, err := parseAddress("from", opts.From)
	if err != nil {
		return err
	}

	svc, closeSvc, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	if err := op(svc, ctx, from); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, done)
	return nil
}

// TransferOwnership hands the administrator key to a new owner.
func (a *App) TransferOwnership(ctx context.Context, opts AdminOptions) error {
	from, err := parseAddress("from", opts.From)
	if err != nil {
		return err
	}
	newOwner, err := parseAddress("new-owner", opts.NewOwner)
	if err != nil {
		return err
	}

	svc, closeSvc, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	if err := svc.TransferOwnership(ctx, from, newOwner); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "ownership transferred to %s\n", newOwner.Hex())
	return nil
}

// Record prints one holder record including the projected reward for the
// current staking period.
func (a *App) Record(ctx context.Context, opts RecordOptions) error {
	asset, err := parseAddress("asset", opts.Asset)
	if err != nil {
		return err
	}
	holder, err := parseAddress("holder", opts.Holder)
	if err != nil {
		return err
	}

	svc, closeSvc, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	return a.printRecord(ctx, svc, asset, holder)
}

func (a *App) printRecord(ctx context.Context, svc *staking.Service, asset, holder common.Address) error {
	rec := svc.UserRecord(asset, holder)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Field\tValue")
	fmt.Fprintf(writer, "Staked\t%s\n", rec.StakedAmount)
	fmt.Fprintf(writer, "Staked at\t%s\n", formatTime(rec.StakedAt))
	fmt.Fprintf(writer, "Unstaked\t%s\n", rec.UnstakedAmount)
	fmt.Fprintf(writer, "Unstaked at\t%s\n", formatTime(rec.UnstakedAt))
	fmt.Fprintf(writer, "Reward\t%s\n", rec.RewardAmount)

	if rec.IsStaked() {
		projected, err := svc.CalculateReward(ctx, asset, holder, rec.StakedAmount)
		if err != nil {
			a.Logger.Debug().Err(err).
				Str("asset", asset.Hex()).
				Str("holder", holder.Hex()).
				Msg("skipping projected reward")
		} else {
			fmt.Fprintf(writer, "Projected reward\t%s\n", projected)
		}
	}
	return writer.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
