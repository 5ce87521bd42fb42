package loans

import (
	"math/big"
	"time"
)

const bpsDenominator = 10_000

// AccruedInterest returns the simple interest owed after elapsed time:
// principal * rateBps/10000 * elapsed/duration, truncated. Accrual is linear
// over the term and stops at maturity; intermediate products use big.Int so
// large principals cannot overflow.
func AccruedInterest(principal int64, rateBps int, duration, elapsed time.Duration) int64 {
	if principal <= 0 || rateBps <= 0 || duration <= 0 || elapsed <= 0 {
		return 0
	}
	if elapsed > duration {
		elapsed = duration
	}

	n := new(big.Int).SetInt64(principal)
	n.Mul(n, big.NewInt(int64(rateBps)))
	n.Mul(n, big.NewInt(int64(elapsed)))

	d := new(big.Int).SetInt64(int64(duration))
	d.Mul(d, big.NewInt(bpsDenominator))

	return n.Div(n, d).Int64()
}

// Debt returns the total owed at the given moment: principal plus accrued
// interest.
func Debt(l *Loan, at time.Time) int64 {
	if l.StartedAt == nil {
		return l.Terms.Principal
	}
	elapsed := at.Sub(*l.StartedAt)
	return l.Terms.Principal + AccruedInterest(l.Terms.Principal, l.Terms.RateBps, l.Terms.Duration, elapsed)
}

// Outstanding returns the remaining amount owed at the given moment.
func Outstanding(l *Loan, at time.Time) int64 {
	return Debt(l, at) - l.Repaid
}
