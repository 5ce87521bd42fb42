package loans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccruedInterest(t *testing.T) {
	day := 24 * time.Hour

	tests := []struct {
		name      string
		principal int64
		rateBps   int
		duration  time.Duration
		elapsed   time.Duration
		want      int64
	}{
		{"half term", 10_000, 1_000, 30 * day, 15 * day, 500},
		{"full term", 10_000, 1_000, 30 * day, 30 * day, 1_000},
		{"accrual stops at maturity", 10_000, 1_000, 30 * day, 90 * day, 1_000},
		{"zero elapsed", 10_000, 1_000, 30 * day, 0, 0},
		{"zero rate", 10_000, 0, 30 * day, 15 * day, 0},
		{"truncates", 10_000, 1_000, 30 * day, 1 * day, 33},
		{"large principal no overflow", 9_000_000_000_000_000_000, 10_000, 365 * day, 365 * day, 9_000_000_000_000_000_000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AccruedInterest(tc.principal, tc.rateBps, tc.duration, tc.elapsed)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDebt_UnfundedLoanIsPrincipalOnly(t *testing.T) {
	l := &Loan{Terms: Terms{Principal: 10_000, RateBps: 1_000, Duration: 30 * 24 * time.Hour}}
	assert.Equal(t, int64(10_000), Debt(l, time.Now()))
}

func TestOutstanding(t *testing.T) {
	started := time.Now().Add(-15 * 24 * time.Hour)
	l := &Loan{
		Terms:     Terms{Principal: 10_000, RateBps: 1_000, Duration: 30 * 24 * time.Hour},
		StartedAt: &started,
		Repaid:    4_000,
	}
	assert.Equal(t, int64(6_500), Outstanding(l, time.Now()))
}

func TestProtocolFee(t *testing.T) {
	assert.Equal(t, int64(50), protocolFee(10_000, 50))
	assert.Equal(t, int64(0), protocolFee(0, 50))
	assert.Equal(t, int64(0), protocolFee(10_000, 0))
	assert.Equal(t, int64(0), protocolFee(100, 50), "truncated below one unit")
}

func TestMeetsRatio(t *testing.T) {
	assert.True(t, meetsRatio(15_000, 10_000, 15_000))
	assert.False(t, meetsRatio(14_999, 10_000, 15_000))
	assert.True(t, meetsRatio(1, 1_000_000, 0), "zero ratio disables the check")
}
