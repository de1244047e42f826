package staking

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Event names as emitted by the service.
const (
	EventStake                = "Stake"
	EventUnstake              = "Unstake"
	EventWithdrawUnstaked     = "WithdrawUnstaked"
	EventWithdrawRewards      = "WithdrawRewards"
	EventPaused               = "Paused"
	EventUnpaused             = "Unpaused"
	EventOwnershipTransferred = "OwnershipTransferred"
)

// Event is the structured record emitted after every successful mutating
// operation. Holder carries the acting account (the staker, or the owner for
// Paused/Unpaused). Amount is nil for pause and ownership events; OldOwner and
// NewOwner are set only for OwnershipTransferred.
type Event struct {
	Name      string
	Asset     common.Address
	Holder    common.Address
	Amount    *big.Int
	Timestamp time.Time
	OldOwner  common.Address
	NewOwner  common.Address
}

// Sink consumes emitted events. Sinks run after the operation has committed;
// a failing sink cannot unwind engine state.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// LogSink writes events to a zerolog logger.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink constructs a logging sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "events").Logger()}
}

// Emit logs one event.
func (s *LogSink) Emit(_ context.Context, ev Event) {
	entry := s.logger.Info().
		Str("event", ev.Name).
		Str("holder", ev.Holder.Hex()).
		Time("timestamp", ev.Timestamp)
	if (ev.Asset != common.Address{}) {
		entry = entry.Str("asset", ev.Asset.Hex())
	}
	if ev.Amount != nil {
		entry = entry.Str("amount", ev.Amount.String())
	}
	if ev.Name == EventOwnershipTransferred {
		entry = entry.Str("old_owner", ev.OldOwner.Hex()).Str("new_owner", ev.NewOwner.Hex())
	}
	entry.Msg("ledger event")
}

var _ Sink = (*LogSink)(nil)
