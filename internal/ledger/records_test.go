package ledger

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var testKey = Key{
	Asset:  common.HexToAddress("0x0000000000000000000000000000000000000010"),
	Holder: common.HexToAddress("0x0000000000000000000000000000000000000020"),
}

func TestGetReturnsZeroedRecord(t *testing.T) {
	s := NewRecords()
	rec := s.Get(testKey)
	if rec.StakedAmount.Sign() != 0 || rec.UnstakedAmount.Sign() != 0 || rec.RewardAmount.Sign() != 0 {
		t.Fatalf("expected zeroed record, got %+v", rec)
	}
	if rec.IsStaked() {
		t.Fatal("zeroed record must not be staked")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewRecords()
	s.UpsertStake(testKey, big.NewInt(100), time.Unix(1000, 0))

	rec := s.Get(testKey)
	rec.StakedAmount.SetInt64(0)

	if s.Get(testKey).StakedAmount.Cmp(big.NewInt(100)) != 0 {
		t.Fatal("returned record aliases store state")
	}
}

func TestStakeLifecycle(t *testing.T) {
	s := NewRecords()
	at := time.Unix(1000, 0)

	s.UpsertStake(testKey, big.NewInt(10), at)
	if rec := s.Get(testKey); !rec.IsStaked() || !rec.StakedAt.Equal(at) {
		t.Fatalf("after stake: %+v", rec)
	}

	if _, err := s.ReduceStake(testKey, big.NewInt(4)); err != nil {
		t.Fatalf("ReduceStake: %v", err)
	}
	unstakeAt := time.Unix(2000, 0)
	s.AddUnstaked(testKey, big.NewInt(4), unstakeAt)
	s.AddReward(testKey, big.NewInt(7))

	rec := s.Get(testKey)
	if rec.StakedAmount.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("stakedAmount = %s", rec.StakedAmount)
	}
	if rec.UnstakedAmount.Cmp(big.NewInt(4)) != 0 || !rec.UnstakedAt.Equal(unstakeAt) {
		t.Fatalf("unstaked: %+v", rec)
	}
	if rec.RewardAmount.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("rewardAmount = %s", rec.RewardAmount)
	}

	// Draining all buckets zeroes the record but keeps its timestamps.
	if _, err := s.ReduceStake(testKey, big.NewInt(6)); err != nil {
		t.Fatalf("ReduceStake: %v", err)
	}
	if _, err := s.ReduceUnstaked(testKey, big.NewInt(4)); err != nil {
		t.Fatalf("ReduceUnstaked: %v", err)
	}
	if _, err := s.ReduceReward(testKey, big.NewInt(7)); err != nil {
		t.Fatalf("ReduceReward: %v", err)
	}
	rec = s.Get(testKey)
	if rec.StakedAmount.Sign() != 0 || rec.UnstakedAmount.Sign() != 0 || rec.RewardAmount.Sign() != 0 {
		t.Fatalf("record not zeroed: %+v", rec)
	}
	if !rec.StakedAt.Equal(at) || !rec.UnstakedAt.Equal(unstakeAt) {
		t.Fatal("timestamps must remain queryable after zeroing")
	}
}

func TestReduceUnderflow(t *testing.T) {
	s := NewRecords()
	s.UpsertStake(testKey, big.NewInt(5), time.Unix(1000, 0))

	if _, err := s.ReduceStake(testKey, big.NewInt(6)); !errors.Is(err, ErrInsufficientStaked) {
		t.Fatalf("err = %v, want ErrInsufficientStaked", err)
	}
	if _, err := s.ReduceUnstaked(testKey, big.NewInt(1)); !errors.Is(err, ErrInsufficientUnstaked) {
		t.Fatalf("err = %v, want ErrInsufficientUnstaked", err)
	}
	if _, err := s.ReduceReward(testKey, big.NewInt(1)); !errors.Is(err, ErrInsufficientReward) {
		t.Fatalf("err = %v, want ErrInsufficientReward", err)
	}

	// Failed reductions leave the record untouched.
	if rec := s.Get(testKey); rec.StakedAmount.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("stakedAmount = %s, want 5", rec.StakedAmount)
	}
}

func TestSnapshotAndPut(t *testing.T) {
	s := NewRecords()
	s.UpsertStake(testKey, big.NewInt(42), time.Unix(1000, 0))

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot size = %d", len(snap))
	}

	restored := NewRecords()
	for key, rec := range snap {
		restored.Put(key, rec)
	}
	if restored.Get(testKey).StakedAmount.Cmp(big.NewInt(42)) != 0 {
		t.Fatal("restored record does not match")
	}
}

func TestRates(t *testing.T) {
	rates := NewRates()
	asset := testKey.Asset

	if got := rates.Get(asset); got != 0 {
		t.Fatalf("unset rate = %d, want 0", got)
	}
	if err := rates.Set(asset, 0); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("rate 0 err = %v", err)
	}
	if err := rates.Set(asset, 101); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("rate 101 err = %v", err)
	}
	if err := rates.Set(asset, 20); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := rates.Set(asset, 50); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got := rates.Get(asset); got != 50 {
		t.Fatalf("rate = %d, want 50", got)
	}
}
