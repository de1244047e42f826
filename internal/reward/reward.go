// Package reward computes time-proportional staking rewards.
//
// A configured rate of N percent pays the full N% of principal once
// ReferenceInterval has elapsed, pro-rated linearly in seconds for partial
// intervals. Division truncates toward zero in the asset's smallest unit, so
// sub-unit remainders are dropped, never rounded up.
package reward

import (
	"math/big"
	"time"
)

// ReferenceInterval is the elapsed time over which a configured percentage
// rate fully accrues: 52 560 000 seconds.
const ReferenceInterval = 52_560_000 * time.Second

var denominator = big.NewInt(100 * 52_560_000)

// Amount returns principal * ratePercent * elapsedSeconds / (100 * ReferenceInterval),
// truncated. A zero rate, zero principal, or non-positive elapsed time yields zero.
func Amount(principal *big.Int, ratePercent uint8, elapsed time.Duration) *big.Int {
	if principal == nil || principal.Sign() <= 0 || ratePercent == 0 || elapsed <= 0 {
		return new(big.Int)
	}

	seconds := int64(elapsed / time.Second)
	if seconds <= 0 {
		return new(big.Int)
	}

	out := new(big.Int).Mul(principal, big.NewInt(int64(ratePercent)))
	out.Mul(out, big.NewInt(seconds))
	out.Div(out, denominator)
	return out
}
