package reputation

import (
	"math"
	"time"
)

// Score weighting, in basis points. The five sub-scores each land in [0,100];
// their weighted mean is scaled by 10 so the final score spans [0,1000].
const (
	weightRepayment   = 5000
	weightVolume      = 2000
	weightConsistency = 1500
	weightDiversity   = 1000
	weightAge         = 500

	scoreMax = 1000
)

// computeScore derives the score from the record's counters.
// distinctCounterparties counts unique counterparties over the most recent 50
// history entries; age is the age of the record's previous update measured at
// recompute time.
func computeScore(r *Record, distinctCounterparties int, age time.Duration) int {
	repayment := repaymentScore(r)
	volume := volumeScore(r.RepaidVolume)
	consistency := consistencyScore(r)
	diversity := clamp(10*distinctCounterparties, 0, 100)
	ageScore := clamp(int(age.Hours()/24)*100/365, 0, 100)

	weighted := (repayment*weightRepayment +
		volume*weightVolume +
		consistency*weightConsistency +
		diversity*weightDiversity +
		ageScore*weightAge) / 10000

	return clamp(weighted*10, 0, scoreMax)
}

// repaymentScore is the success rate penalized by twice the default rate,
// floored at 0 and capped at 100.
func repaymentScore(r *Record) int {
	if r.LoansCreated == 0 {
		return 0
	}
	successRate := r.LoansRepaid * 100 / r.LoansCreated
	defaultRate := r.LoansDefaulted * 100 / r.LoansCreated
	return clamp(successRate-2*defaultRate, 0, 100)
}

// volumeScore rewards cumulative repaid volume logarithmically: 0 below one
// thousand units, then log10(volume in thousands) × 33.33 capped at 100.
func volumeScore(repaidVolume int64) int {
	thousands := repaidVolume / 1000
	if thousands < 1 {
		return 0
	}
	return clamp(int(math.Log10(float64(thousands))*33.33), 0, 100)
}

// consistencyScore is the repaid share of settled loans, but 0 until at least
// three repayments exist.
func consistencyScore(r *Record) int {
	if r.LoansRepaid < 3 {
		return 0
	}
	settled := r.LoansRepaid + r.LoansDefaulted
	return clamp(r.LoansRepaid*100/settled, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
