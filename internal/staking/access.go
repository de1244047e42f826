package staking

import (
	"github.com/ethereum/go-ethereum/common"

	"staking-ledger/internal/ledger"
)

// Access gates mutating operations behind the single administrator key and the
// process-wide pause switch. It is not itself concurrency-safe; the service
// mutex covers it.
type Access struct {
	owner  common.Address
	paused bool
}

// NewAccess constructs the policy with an initial owner.
func NewAccess(owner common.Address) *Access {
	return &Access{owner: owner}
}

// Owner returns the current administrator key.
func (a *Access) Owner() common.Address {
	return a.owner
}

// Paused reports whether the pause switch is set.
func (a *Access) Paused() bool {
	return a.paused
}

// RequireOwner fails unless caller is the current owner.
func (a *Access) RequireOwner(caller common.Address) error {
	if caller != a.owner {
		return ledger.ErrUnauthorized
	}
	return nil
}

// RequireActive fails when the pause switch is set.
func (a *Access) RequireActive() error {
	if a.paused {
		return ledger.ErrPaused
	}
	return nil
}

// Pause sets the switch; fails if already set.
func (a *Access) Pause() error {
	if a.paused {
		return ledger.ErrAlreadyPaused
	}
	a.paused = true
	return nil
}

// Unpause clears the switch; fails if not set.
func (a *Access) Unpause() error {
	if !a.paused {
		return ledger.ErrNotPaused
	}
	a.paused = false
	return nil
}

// SetOwner replaces the administrator key. Validation is the service's concern.
func (a *Access) SetOwner(owner common.Address) {
	a.owner = owner
}

// Restore resets both fields when hydrating persisted state.
func (a *Access) Restore(owner common.Address, paused bool) {
	a.owner = owner
	a.paused = paused
}
