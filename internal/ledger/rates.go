package ledger

import "github.com/ethereum/go-ethereum/common"

// Rates holds the administrator-configured reward rate per asset. Exactly one
// active rate per asset; a rate of 0 means "not configured".
type Rates struct {
	byAsset map[common.Address]uint8
}

// NewRates constructs an empty rate table.
func NewRates() *Rates {
	return &Rates{byAsset: make(map[common.Address]uint8)}
}

// Set stores or overwrites the rate for an asset. Range validation beyond the
// 1..100 bound is the service's concern.
func (t *Rates) Set(asset common.Address, percent uint8) error {
	if percent < 1 || percent > 100 {
		return ErrInvalidRate
	}
	t.byAsset[asset] = percent
	return nil
}

// Get returns the configured rate, or 0 if none is set.
func (t *Rates) Get(asset common.Address) uint8 {
	return t.byAsset[asset]
}

// Snapshot returns all configured rates, keyed by asset.
func (t *Rates) Snapshot() map[common.Address]uint8 {
	out := make(map[common.Address]uint8, len(t.byAsset))
	for asset, percent := range t.byAsset {
		out[asset] = percent
	}
	return out
}
