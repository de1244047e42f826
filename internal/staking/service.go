package staking

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"staking-ledger/internal/ledger"
	"staking-ledger/internal/reward"
	"staking-ledger/internal/storage"
	"staking-ledger/internal/token"
)

// Service is the staking state machine. Mutating operations run one at a time
// under a single mutex, so every operation either fully commits its record and
// transfer side effects or fails with no mutation observable. The in-memory
// ledger is authoritative; the storage mirror is written through best-effort.
type Service struct {
	mu sync.Mutex

	tokens      token.Ledger
	account     common.Address
	rewardToken common.Address

	records *ledger.Records
	rates   *ledger.Rates
	access  *Access

	now    func() time.Time
	sinks  []Sink
	mirror storage.LedgerMirror
	logger zerolog.Logger
}

// New constructs the service. account is the custody account holding staked
// funds and the reward reserve; mirror may be nil when persistence is disabled.
func New(tokens token.Ledger, account, rewardToken, owner common.Address, mirror storage.LedgerMirror, logger zerolog.Logger) *Service {
	return &Service{
		tokens:      tokens,
		account:     account,
		rewardToken: rewardToken,
		records:     ledger.NewRecords(),
		rates:       ledger.NewRates(),
		access:      NewAccess(owner),
		now:         func() time.Time { return time.Now().UTC() },
		mirror:      mirror,
		logger:      logger.With().Str("component", "staking").Logger(),
	}
}

// WithClock overrides the time source. Used by tests and offline simulation.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddSink registers an event sink.
func (s *Service) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// Hydrate loads persisted records and rates into the engine.
func (s *Service) Hydrate(records map[ledger.Key]ledger.StakeRecord, rates map[common.Address]uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rec := range records {
		s.records.Put(key, rec)
	}
	for asset, percent := range rates {
		if err := s.rates.Set(asset, percent); err != nil {
			s.logger.Warn().Str("asset", asset.Hex()).Uint8("percent", percent).Msg("skipping out-of-range persisted rate")
		}
	}
}

// RestoreAccess resets owner and pause state from persisted settings.
func (s *Service) RestoreAccess(owner common.Address, paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access.Restore(owner, paused)
}

// Owner returns the current administrator key.
func (s *Service) Owner() common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access.Owner()
}

// Paused reports the pause switch.
func (s *Service) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access.Paused()
}

// Account returns the custody account.
func (s *Service) Account() common.Address {
	return s.account
}

// RewardToken returns the reward asset address.
func (s *Service) RewardToken() common.Address {
	return s.rewardToken
}

func (s *Service) validateAsset(ctx context.Context, asset common.Address) error {
	if (asset == common.Address{}) {
		return ledger.ErrInvalidAsset
	}
	live, err := s.tokens.IsContract(ctx, asset)
	if err != nil {
		return fmt.Errorf("check asset %s: %w", asset.Hex(), err)
	}
	if !live {
		return fmt.Errorf("%s: %w", asset.Hex(), ledger.ErrNotAContract)
	}
	return nil
}

// Stake opens a staking position for caller in asset. A zero or nil amount
// stakes the caller's entire current balance. Funds are pulled from the caller
// before the record is opened, so a failed transfer leaves no state behind.
func (s *Service) Stake(ctx context.Context, caller, asset common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireActive(); err != nil {
		return err
	}
	if err := s.validateAsset(ctx, asset); err != nil {
		return err
	}

	key := ledger.Key{Asset: asset, Holder: caller}
	if s.records.Get(key).IsStaked() {
		return ledger.ErrAlreadyStaked
	}

	stakeAmt := amount
	if stakeAmt == nil || stakeAmt.Sign() == 0 {
		balance, err := s.tokens.BalanceOf(ctx, asset, caller)
		if err != nil {
			return fmt.Errorf("balance of %s: %w", caller.Hex(), err)
		}
		stakeAmt = balance
	}
	if stakeAmt.Sign() < 0 {
		return ledger.ErrInvalidAmount
	}

	if err := s.tokens.TransferFrom(ctx, asset, caller, s.account, stakeAmt); err != nil {
		return fmt.Errorf("pull stake: %w", err)
	}

	now := s.now()
	rec := s.records.UpsertStake(key, stakeAmt, now)
	s.mirrorRecord(ctx, key, rec)
	s.emit(ctx, Event{Name: EventStake, Asset: asset, Holder: caller, Amount: new(big.Int).Set(stakeAmt), Timestamp: now})
	return nil
}

// Unstake crystallises reward earned so far over the entire remaining
// principal, then moves amount from the staked bucket to the unstaked bucket.
// No funds move; withdrawal is a separate operation.
func (s *Service) Unstake(ctx context.Context, caller, asset common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireActive(); err != nil {
		return err
	}
	if err := s.validateAsset(ctx, asset); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrInvalidAmount
	}

	key := ledger.Key{Asset: asset, Holder: caller}
	rec := s.records.Get(key)
	if rec.StakedAmount.Cmp(amount) < 0 {
		return ledger.ErrInsufficientStaked
	}

	now := s.now()
	accrued := reward.Amount(rec.StakedAmount, s.rates.Get(asset), now.Sub(rec.StakedAt))

	s.records.AddReward(key, accrued)
	if _, err := s.records.ReduceStake(key, amount); err != nil {
		return err
	}
	updated := s.records.AddUnstaked(key, amount, now)

	s.mirrorRecord(ctx, key, updated)
	s.emit(ctx, Event{Name: EventUnstake, Asset: asset, Holder: caller, Amount: new(big.Int).Set(amount), Timestamp: now})
	return nil
}

// WithdrawUnstaked returns previously unstaked funds to the holder. The record
// is reduced before the external transfer; a failed transfer rolls the
// reduction back so no state change survives the error.
func (s *Service) WithdrawUnstaked(ctx context.Context, caller, asset common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireActive(); err != nil {
		return err
	}
	if err := s.validateAsset(ctx, asset); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrInvalidAmount
	}

	key := ledger.Key{Asset: asset, Holder: caller}
	rec := s.records.Get(key)
	if rec.UnstakedAmount.Cmp(amount) < 0 {
		return ledger.ErrInsufficientUnstaked
	}

	updated, err := s.records.ReduceUnstaked(key, amount)
	if err != nil {
		return err
	}
	if err := s.tokens.Transfer(ctx, asset, caller, amount); err != nil {
		s.records.AddUnstaked(key, amount, rec.UnstakedAt)
		return fmt.Errorf("withdraw unstaked: %w", err)
	}

	now := s.now()
	s.mirrorRecord(ctx, key, updated)
	s.emit(ctx, Event{Name: EventWithdrawUnstaked, Asset: asset, Holder: caller, Amount: new(big.Int).Set(amount), Timestamp: now})
	return nil
}

// WithdrawReward pays out credited reward from the service's reward reserve.
// Reward is a bookkeeping promise independent of reserve solvency, so the
// transfer can legitimately fail; the reduction is rolled back in that case and
// the token ledger's error propagates.
func (s *Service) WithdrawReward(ctx context.Context, caller, asset common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireActive(); err != nil {
		return err
	}
	if err := s.validateAsset(ctx, asset); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrInvalidAmount
	}

	key := ledger.Key{Asset: asset, Holder: caller}
	rec := s.records.Get(key)
	if rec.RewardAmount.Cmp(amount) < 0 {
		return ledger.ErrInsufficientReward
	}

	updated, err := s.records.ReduceReward(key, amount)
	if err != nil {
		return err
	}
	if err := s.tokens.Transfer(ctx, s.rewardToken, caller, amount); err != nil {
		s.records.AddReward(key, amount)
		return fmt.Errorf("withdraw reward: %w", err)
	}

	now := s.now()
	s.mirrorRecord(ctx, key, updated)
	s.emit(ctx, Event{Name: EventWithdrawRewards, Asset: asset, Holder: caller, Amount: new(big.Int).Set(amount), Timestamp: now})
	return nil
}

// SetRewardRate stores the reward percentage for an asset. Owner only; the rate
// applies from the next accrual and never recomputes already-credited reward.
func (s *Service) SetRewardRate(ctx context.Context, caller, asset common.Address, percent uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireOwner(caller); err != nil {
		return err
	}
	if err := s.validateAsset(ctx, asset); err != nil {
		return err
	}
	if err := s.rates.Set(asset, percent); err != nil {
		return err
	}

	if s.mirror != nil {
		if err := s.mirror.UpsertRewardRate(ctx, storage.RewardRateRow{Asset: asset, Percent: percent}); err != nil {
			s.logger.Error().Err(err).Str("asset", asset.Hex()).Msg("failed to mirror reward rate")
		}
	}
	return nil
}

// Pause blocks all holder operations. Owner only.
func (s *Service) Pause(ctx context.Context, caller common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireOwner(caller); err != nil {
		return err
	}
	if err := s.access.Pause(); err != nil {
		return err
	}
	s.mirrorSetting(ctx, storage.SettingPaused, "true")
	s.emit(ctx, Event{Name: EventPaused, Holder: caller, Timestamp: s.now()})
	return nil
}

// Unpause restores holder operations. Owner only.
func (s *Service) Unpause(ctx context.Context, caller common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireOwner(caller); err != nil {
		return err
	}
	if err := s.access.Unpause(); err != nil {
		return err
	}
	s.mirrorSetting(ctx, storage.SettingPaused, "false")
	s.emit(ctx, Event{Name: EventUnpaused, Holder: caller, Timestamp: s.now()})
	return nil
}

// TransferOwnership hands the administrator key to newOwner. Owner only; the
// zero address is rejected.
func (s *Service) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireOwner(caller); err != nil {
		return err
	}
	if (newOwner == common.Address{}) {
		return ledger.ErrInvalidAccount
	}

	old := s.access.Owner()
	s.access.SetOwner(newOwner)
	s.mirrorSetting(ctx, storage.SettingOwner, newOwner.Hex())
	s.emit(ctx, Event{Name: EventOwnershipTransferred, Holder: caller, Timestamp: s.now(), OldOwner: old, NewOwner: newOwner})
	return nil
}

// UserRecord returns the holder's record for an asset; zeroed when absent.
func (s *Service) UserRecord(asset, holder common.Address) ledger.StakeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Get(ledger.Key{Asset: asset, Holder: holder})
}

// UserRewardAmount returns the credited, unwithdrawn reward for a holder.
func (s *Service) UserRewardAmount(asset, holder common.Address) *big.Int {
	return s.UserRecord(asset, holder).RewardAmount
}

// RewardRate returns the configured rate for an asset, 0 when unset.
func (s *Service) RewardRate(asset common.Address) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rates.Get(asset)
}

// CalculateReward computes the reward a principal would earn for the holder's
// current staking period at the asset's configured rate. Pure with respect to
// engine state.
func (s *Service) CalculateReward(ctx context.Context, asset, holder common.Address, principal *big.Int) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateAsset(ctx, asset); err != nil {
		return nil, err
	}
	if principal == nil || principal.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	rec := s.records.Get(ledger.Key{Asset: asset, Holder: holder})
	return reward.Amount(principal, s.rates.Get(asset), s.now().Sub(rec.StakedAt)), nil
}

// Records returns a snapshot of all stake records.
func (s *Service) Records() map[ledger.Key]ledger.StakeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Snapshot()
}

func (s *Service) emit(ctx context.Context, ev Event) {
	for _, sink := range s.sinks {
		sink.Emit(ctx, ev)
	}
}

func (s *Service) mirrorRecord(ctx context.Context, key ledger.Key, rec ledger.StakeRecord) {
	if s.mirror == nil {
		return
	}
	row := storage.StakeRecordRow{
		Asset:          key.Asset,
		Holder:         key.Holder,
		StakedAmount:   decimalFromBig(rec.StakedAmount),
		StakedAt:       rec.StakedAt,
		UnstakedAmount: decimalFromBig(rec.UnstakedAmount),
		UnstakedAt:     rec.UnstakedAt,
		RewardAmount:   decimalFromBig(rec.RewardAmount),
	}
	if err := s.mirror.UpsertStakeRecord(ctx, row); err != nil {
		s.logger.Error().Err(err).Str("key", key.String()).Msg("failed to mirror stake record")
	}
}

func (s *Service) mirrorSetting(ctx context.Context, name, value string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.UpsertSetting(ctx, name, value); err != nil {
		s.logger.Error().Err(err).Str("setting", name).Msg("failed to mirror setting")
	}
}
