package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Memory is an in-process token ledger used by tests and the simulate command.
// Assets must be registered before use; unregistered addresses behave like
// externally-owned accounts (IsContract false).
type Memory struct {
	service   common.Address
	contracts map[common.Address]bool
	balances  map[common.Address]map[common.Address]*big.Int
}

// NewMemory constructs an empty ledger. service is the account the engine
// transfers from on Transfer.
func NewMemory(service common.Address) *Memory {
	return &Memory{
		service:   service,
		contracts: make(map[common.Address]bool),
		balances:  make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Register marks an asset address as a live contract.
func (m *Memory) Register(asset common.Address) {
	m.contracts[asset] = true
}

// Mint credits amount of asset to an account.
func (m *Memory) Mint(asset, to common.Address, amount *big.Int) {
	m.credit(asset, to, amount)
}

func (m *Memory) balance(asset, owner common.Address) *big.Int {
	if holders, ok := m.balances[asset]; ok {
		if bal, ok := holders[owner]; ok {
			return bal
		}
	}
	return new(big.Int)
}

func (m *Memory) credit(asset, owner common.Address, amount *big.Int) {
	holders, ok := m.balances[asset]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		m.balances[asset] = holders
	}
	holders[owner] = new(big.Int).Add(m.balance(asset, owner), amount)
}

func (m *Memory) debit(asset, owner common.Address, amount *big.Int) {
	holders, ok := m.balances[asset]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		m.balances[asset] = holders
	}
	holders[owner] = new(big.Int).Sub(m.balance(asset, owner), amount)
}

func (m *Memory) move(asset, from, to common.Address, amount *big.Int) error {
	bal := m.balance(asset, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%s: %w", asset.Hex(), ErrInsufficientBalance)
	}
	m.debit(asset, from, amount)
	m.credit(asset, to, amount)
	return nil
}

// IsContract reports whether the asset was registered.
func (m *Memory) IsContract(_ context.Context, asset common.Address) (bool, error) {
	return m.contracts[asset], nil
}

// BalanceOf returns a copy of owner's balance.
func (m *Memory) BalanceOf(_ context.Context, asset, owner common.Address) (*big.Int, error) {
	return new(big.Int).Set(m.balance(asset, owner)), nil
}

// Transfer moves amount from the service account to `to`.
func (m *Memory) Transfer(_ context.Context, asset, to common.Address, amount *big.Int) error {
	return m.move(asset, m.service, to, amount)
}

// TransferFrom moves amount between arbitrary accounts.
func (m *Memory) TransferFrom(_ context.Context, asset, from, to common.Address, amount *big.Int) error {
	return m.move(asset, from, to, amount)
}

var _ Ledger = (*Memory)(nil)
