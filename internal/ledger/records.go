package ledger

import (
	"fmt"
	"math/big"
	"time"
)

// Records is the in-memory stake record store. Every mutation entry point is a
// pure record transform with no I/O; the staking service is the only writer and
// serialises access, so no internal locking is needed here.
type Records struct {
	byKey map[Key]*StakeRecord
}

// NewRecords constructs an empty record store.
func NewRecords() *Records {
	return &Records{byKey: make(map[Key]*StakeRecord)}
}

// Get returns a copy of the record for (asset, holder), or a zeroed record if
// none exists. Absence is not an error.
func (s *Records) Get(key Key) StakeRecord {
	if rec, ok := s.byKey[key]; ok {
		return rec.Clone()
	}
	return NewStakeRecord()
}

// Put replaces the stored record wholesale. Used when hydrating from storage.
func (s *Records) Put(key Key, rec StakeRecord) {
	clone := rec.Clone()
	s.byKey[key] = &clone
}

// Snapshot returns copies of all records, keyed.
func (s *Records) Snapshot() map[Key]StakeRecord {
	out := make(map[Key]StakeRecord, len(s.byKey))
	for key, rec := range s.byKey {
		out[key] = rec.Clone()
	}
	return out
}

func (s *Records) ensure(key Key) *StakeRecord {
	if rec, ok := s.byKey[key]; ok {
		return rec
	}
	rec := NewStakeRecord()
	s.byKey[key] = &rec
	return &rec
}

// UpsertStake opens a staking period: sets the staked principal and its start
// instant. The caller guarantees no active stake exists for the key.
func (s *Records) UpsertStake(key Key, amount *big.Int, at time.Time) StakeRecord {
	rec := s.ensure(key)
	rec.StakedAmount = new(big.Int).Set(amount)
	rec.StakedAt = at
	return rec.Clone()
}

// ReduceStake lowers the staked principal.
func (s *Records) ReduceStake(key Key, amount *big.Int) (StakeRecord, error) {
	rec := s.ensure(key)
	if rec.StakedAmount.Cmp(amount) < 0 {
		return StakeRecord{}, fmt.Errorf("reduce stake %s: %w", key, ErrInsufficientStaked)
	}
	rec.StakedAmount = new(big.Int).Sub(rec.StakedAmount, amount)
	return rec.Clone(), nil
}

// AddUnstaked moves value into the unstaked-pending-withdrawal bucket and
// stamps the unstake instant.
func (s *Records) AddUnstaked(key Key, amount *big.Int, at time.Time) StakeRecord {
	rec := s.ensure(key)
	rec.UnstakedAmount = new(big.Int).Add(rec.UnstakedAmount, amount)
	rec.UnstakedAt = at
	return rec.Clone()
}

// ReduceUnstaked lowers the unstaked bucket on withdrawal.
func (s *Records) ReduceUnstaked(key Key, amount *big.Int) (StakeRecord, error) {
	rec := s.ensure(key)
	if rec.UnstakedAmount.Cmp(amount) < 0 {
		return StakeRecord{}, fmt.Errorf("reduce unstaked %s: %w", key, ErrInsufficientUnstaked)
	}
	rec.UnstakedAmount = new(big.Int).Sub(rec.UnstakedAmount, amount)
	return rec.Clone(), nil
}

// AddReward credits accrued reward.
func (s *Records) AddReward(key Key, amount *big.Int) StakeRecord {
	rec := s.ensure(key)
	rec.RewardAmount = new(big.Int).Add(rec.RewardAmount, amount)
	return rec.Clone()
}

// ReduceReward lowers the credited reward on withdrawal.
func (s *Records) ReduceReward(key Key, amount *big.Int) (StakeRecord, error) {
	rec := s.ensure(key)
	if rec.RewardAmount.Cmp(amount) < 0 {
		return StakeRecord{}, fmt.Errorf("reduce reward %s: %w", key, ErrInsufficientReward)
	}
	rec.RewardAmount = new(big.Int).Sub(rec.RewardAmount, amount)
	return rec.Clone(), nil
}
