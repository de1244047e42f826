package app

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"staking-ledger/internal/config"
	"staking-ledger/internal/ledger"
	"staking-ledger/internal/staking"
	"staking-ledger/internal/storage"
	"staking-ledger/internal/token"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newTokenLedger() (*token.ERC20, error) {
	return token.NewERC20(token.ERC20Options{
		RPCURL:     a.Config.Ethereum.RPCURL,
		ChainID:    a.Config.Ethereum.ChainID,
		PrivateKey: a.Config.Ethereum.PrivateKey,
		GasLimit:   a.Config.Ethereum.GasLimit,
		Timeout:    a.Config.Ethereum.RequestTimeout,
	}, a.Logger)
}

// newService builds the staking engine against the configured chain, hydrating
// persisted state when a database is available. The returned closer releases
// the store.
func (a *App) newService(ctx context.Context) (*staking.Service, func(), error) {
	if a.Config.Ledger.RewardToken == "" {
		return nil, nil, fmt.Errorf("ledger.reward_token is required")
	}
	if a.Config.Ledger.Owner == "" {
		return nil, nil, fmt.Errorf("ledger.owner is required")
	}

	tokens, err := a.newTokenLedger()
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}

	var mirror storage.LedgerMirror
	if store != nil {
		mirror = store
	}

	svc := staking.New(
		tokens,
		tokens.Account(),
		a.Config.RewardTokenAddress(),
		a.Config.OwnerAddress(),
		mirror,
		a.Logger,
	)
	svc.AddSink(staking.NewLogSink(a.Logger))
	if a.Config.Webhook.URL != "" {
		svc.AddSink(staking.NewWebhookSink(a.Config.Webhook.URL, a.Config.Webhook.Timeout, a.Logger))
	}
	if store != nil {
		svc.AddSink(staking.NewStoreSink(store, a.Logger))
		if err := a.hydrate(ctx, svc, store); err != nil {
			if closeStore != nil {
				closeStore()
			}
			return nil, nil, err
		}
	}

	closer := func() {
		if closeStore != nil {
			closeStore()
		}
	}
	return svc, closer, nil
}

func (a *App) hydrate(ctx context.Context, svc *staking.Service, store *storage.Store) error {
	rows, err := store.ListStakeRecords(ctx)
	if err != nil {
		return fmt.Errorf("hydrate records: %w", err)
	}
	records := make(map[ledger.Key]ledger.StakeRecord, len(rows))
	for _, row := range rows {
		records[ledger.Key{Asset: row.Asset, Holder: row.Holder}] = ledger.StakeRecord{
			StakedAmount:   row.StakedAmount.BigInt(),
			StakedAt:       row.StakedAt,
			UnstakedAmount: row.UnstakedAmount.BigInt(),
			UnstakedAt:     row.UnstakedAt,
			RewardAmount:   row.RewardAmount.BigInt(),
		}
	}

	rateRows, err := store.ListRewardRates(ctx)
	if err != nil {
		return fmt.Errorf("hydrate rates: %w", err)
	}
	rates := make(map[common.Address]uint8, len(rateRows))
	for _, row := range rateRows {
		rates[row.Asset] = row.Percent
	}

	svc.Hydrate(records, rates)

	owner := a.Config.OwnerAddress()
	if stored, ok, err := store.GetSetting(ctx, storage.SettingOwner); err != nil {
		return err
	} else if ok && common.IsHexAddress(stored) {
		owner = common.HexToAddress(stored)
	}

	paused := false
	if stored, ok, err := store.GetSetting(ctx, storage.SettingPaused); err != nil {
		return err
	} else if ok {
		if parsed, parseErr := strconv.ParseBool(stored); parseErr == nil {
			paused = parsed
		}
	}

	svc.RestoreAccess(owner, paused)
	a.Logger.Debug().
		Int("records", len(records)).
		Int("rates", len(rates)).
		Bool("paused", paused).
		Msg("engine hydrated from storage")
	return nil
}

func parseAddress(flag, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("--%s is required", flag)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("--%s is not a valid address: %s", flag, value)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q: expected a non-negative integer in base units", value)
	}
	return amount, nil
}

// StakeOptions parameterise one holder operation.
type StakeOptions struct {
	Holder string
	Asset  string
	Amount string
}

// RateOptions parameterise reward-rate administration.
type RateOptions struct {
	From    string
	Asset   string
	Percent uint8
}

// AdminOptions identify the acting administrator.
type AdminOptions struct {
	From     string
	NewOwner string
}

// RecordOptions select one holder record.
type RecordOptions struct {
	Asset  string
	Holder string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting the audit history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions configure the offline scenario.
type SimulateOptions struct {
	Principal string
	Percent   uint8
	Weeks     int
	Unstake   string
}
