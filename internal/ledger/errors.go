package ledger

import "errors"

// Engine errors. All are fail-fast: an operation that returns one of these has
// made no state mutation. None are retryable at this layer; transient failures
// only originate in the external token ledger.
var (
	ErrUnauthorized = errors.New("caller is not the owner")

	ErrPaused        = errors.New("ledger is paused")
	ErrNotPaused     = errors.New("ledger is not paused")
	ErrAlreadyPaused = errors.New("ledger is already paused")

	ErrInvalidAsset   = errors.New("invalid asset address")
	ErrNotAContract   = errors.New("asset address is not a contract")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidRate    = errors.New("reward rate must be between 1 and 100")
	ErrInvalidAccount = errors.New("invalid account address")

	ErrAlreadyStaked        = errors.New("already staked for this holder")
	ErrInsufficientStaked   = errors.New("insufficient staked amount")
	ErrInsufficientUnstaked = errors.New("insufficient unstaked amount")
	ErrInsufficientReward   = errors.New("insufficient reward amount")
)
