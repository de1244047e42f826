package token

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientBalance mirrors an ERC-20 "transfer amount exceeds balance"
// failure, surfaced uniformly by both ledger implementations.
var ErrInsufficientBalance = errors.New("transfer amount exceeds balance")

// Ledger is the fungible-asset capability the staking engine depends on.
// Custody of balances belongs entirely to the implementation; the engine only
// issues transfers and reads balances.
type Ledger interface {
	// IsContract reports whether the asset key resolves to live code.
	IsContract(ctx context.Context, asset common.Address) (bool, error)
	// BalanceOf returns owner's balance of the asset.
	BalanceOf(ctx context.Context, asset, owner common.Address) (*big.Int, error)
	// Transfer moves amount of asset from the service account to `to`.
	Transfer(ctx context.Context, asset, to common.Address, amount *big.Int) error
	// TransferFrom moves amount of asset from `from` to `to` using the service
	// account's allowance.
	TransferFrom(ctx context.Context, asset, from, to common.Address, amount *big.Int) error
}
