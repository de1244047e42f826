package staking

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"staking-ledger/internal/storage"
)

// StoreSink appends emitted events to the Postgres audit log.
type StoreSink struct {
	events storage.EventStore
	logger zerolog.Logger
}

// NewStoreSink wires an event store into a sink.
func NewStoreSink(events storage.EventStore, logger zerolog.Logger) *StoreSink {
	return &StoreSink{events: events, logger: logger.With().Str("component", "event_store").Logger()}
}

// Emit persists one event; failures are logged, never propagated.
func (s *StoreSink) Emit(ctx context.Context, ev Event) {
	row := storage.EventRow{
		Name:       ev.Name,
		Holder:     ev.Holder,
		OccurredAt: ev.Timestamp,
	}
	if (ev.Asset != common.Address{}) {
		asset := ev.Asset
		row.Asset = &asset
	}
	if ev.Amount != nil {
		amount := decimalFromBig(ev.Amount)
		row.Amount = &amount
	}
	if ev.Name == EventOwnershipTransferred {
		oldOwner, newOwner := ev.OldOwner, ev.NewOwner
		row.OldOwner = &oldOwner
		row.NewOwner = &newOwner
	}

	if _, err := s.events.InsertEvent(ctx, row); err != nil {
		s.logger.Error().Err(err).Str("event", ev.Name).Msg("failed to persist ledger event")
	}
}

var _ Sink = (*StoreSink)(nil)

func decimalFromBig(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}
