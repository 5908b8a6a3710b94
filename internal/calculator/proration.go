// Package calculator implements the pure financial pipeline: proration,
// then discount stacking, then tax, all on integer cents. Nothing in this
// package touches the store or the PSP — persistence of audit rows is the
// caller's job.
package calculator

import (
	"math"
	"time"
)

// ProrationInput describes a mid-period price or quantity change.
type ProrationInput struct {
	PeriodStart     time.Time
	PeriodEnd       time.Time
	ChangeDate      time.Time
	OldPriceCents   int64
	NewPriceCents   int64
	QuantityChange  int64
}

// ProrationResult reports the credit/charge breakdown and the clamped
// factor used to compute it: always within [0, 1], exactly 1 at or before
// period start, exactly 0 at or after period end.
type ProrationResult struct {
	Factor      float64
	CreditCents int64
	ChargeCents int64
	NetCents    int64
	DaysTotal   int64
	DaysRemaining int64
}

// Proration computes the upgrade/downgrade credit-and-charge pair from
// whole days remaining in the period. The factor itself is a float64 ratio
// of whole days (unavoidable — it is a fraction of a period), but every
// monetary value derived from it is rounded to an integer cent immediately,
// never carried forward as a float.
func Proration(in ProrationInput) ProrationResult {
	periodStart := normalizeUTCMidnight(in.PeriodStart)
	periodEnd := normalizeUTCMidnight(in.PeriodEnd)
	changeDate := normalizeUTCMidnight(in.ChangeDate)

	daysTotal := daysBetween(periodStart, periodEnd)
	if daysTotal <= 0 {
		return ProrationResult{Factor: 0, DaysTotal: daysTotal}
	}

	daysRemaining := daysBetween(changeDate, periodEnd)
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > daysTotal {
		daysRemaining = daysTotal
	}

	factor := float64(daysRemaining) / float64(daysTotal)

	credit := roundCents(float64(in.OldPriceCents) * factor)
	charge := roundCents(float64(in.NewPriceCents) * factor)

	return ProrationResult{
		Factor:        factor,
		CreditCents:   credit,
		ChargeCents:   charge,
		NetCents:      charge - credit,
		DaysTotal:     daysTotal,
		DaysRemaining: daysRemaining,
	}
}

func normalizeUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int64 {
	return int64(b.Sub(a).Hours() / 24)
}

// roundCents applies half-away-from-zero rounding, the one rounding rule
// used everywhere the calculator produces a monetary value.
func roundCents(v float64) int64 {
	if v >= 0 {
		return int64(math.Floor(v + 0.5))
	}
	return -int64(math.Floor(-v + 0.5))
}
