package ledger

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Key identifies one holder's position in one asset.
type Key struct {
	Asset  common.Address
	Holder common.Address
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Asset.Hex(), k.Holder.Hex())
}

// StakeRecord is the per-(asset, holder) accounting state. A record is created
// on first stake and only ever zeroed afterwards, so its timestamps stay
// queryable after the position is closed.
type StakeRecord struct {
	StakedAmount   *big.Int
	StakedAt       time.Time
	UnstakedAmount *big.Int
	UnstakedAt     time.Time
	RewardAmount   *big.Int
}

// NewStakeRecord returns a zeroed record.
func NewStakeRecord() StakeRecord {
	return StakeRecord{
		StakedAmount:   new(big.Int),
		UnstakedAmount: new(big.Int),
		RewardAmount:   new(big.Int),
	}
}

// Clone deep-copies the record so callers cannot alias store-owned big.Ints.
func (r StakeRecord) Clone() StakeRecord {
	return StakeRecord{
		StakedAmount:   new(big.Int).Set(r.StakedAmount),
		StakedAt:       r.StakedAt,
		UnstakedAmount: new(big.Int).Set(r.UnstakedAmount),
		UnstakedAt:     r.UnstakedAt,
		RewardAmount:   new(big.Int).Set(r.RewardAmount),
	}
}

// IsStaked reports whether the record holds an active, reward-accruing stake.
func (r StakeRecord) IsStaked() bool {
	return r.StakedAmount != nil && r.StakedAmount.Sign() > 0
}
