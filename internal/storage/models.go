package storage

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// StakeRecordRow is the persisted form of one (asset, holder) stake record.
// Amounts are uint256 integers carried as arbitrary-precision decimals.
type StakeRecordRow struct {
	Asset          common.Address
	Holder         common.Address
	StakedAmount   decimal.Decimal
	StakedAt       time.Time
	UnstakedAmount decimal.Decimal
	UnstakedAt     time.Time
	RewardAmount   decimal.Decimal
	UpdatedAt      time.Time
}

// RewardRateRow is the persisted reward rate for one asset.
type RewardRateRow struct {
	Asset     common.Address
	Percent   uint8
	UpdatedAt time.Time
}

// EventRow is one entry of the append-only ledger audit log. Asset, Amount,
// OldOwner and NewOwner are optional depending on the event kind.
type EventRow struct {
	ID         int64
	Name       string
	Asset      *common.Address
	Holder     common.Address
	Amount     *decimal.Decimal
	OldOwner   *common.Address
	NewOwner   *common.Address
	OccurredAt time.Time
	CreatedAt  time.Time
}

// Setting names persisted in ledger_settings.
const (
	SettingOwner  = "owner"
	SettingPaused = "paused"
)
