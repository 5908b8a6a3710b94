package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProrationFactorBounds(t *testing.T) {
	start := day(2026, time.January, 1)
	end := day(2026, time.January, 31)

	cases := []struct {
		name       string
		changeDate time.Time
		wantFactor float64
	}{
		{"at period start", start, 1.0},
		{"before period start", day(2025, time.December, 20), 1.0},
		{"at period end", end, 0.0},
		{"after period end", day(2026, time.February, 10), 0.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Proration(ProrationInput{
				PeriodStart:   start,
				PeriodEnd:     end,
				ChangeDate:    tc.changeDate,
				OldPriceCents: 3000,
				NewPriceCents: 9000,
			})
			assert.Equal(t, tc.wantFactor, res.Factor)
			assert.GreaterOrEqual(t, res.Factor, 0.0)
			assert.LessOrEqual(t, res.Factor, 1.0)
		})
	}
}

func TestProrationMidPeriodUpgrade(t *testing.T) {
	// 30-day period, change exactly 10 days in: 20/30 remaining.
	res := Proration(ProrationInput{
		PeriodStart:   day(2026, time.March, 1),
		PeriodEnd:     day(2026, time.March, 31),
		ChangeDate:    day(2026, time.March, 11),
		OldPriceCents: 3000,
		NewPriceCents: 9000,
	})

	require.Equal(t, int64(30), res.DaysTotal)
	require.Equal(t, int64(20), res.DaysRemaining)
	assert.InDelta(t, 2.0/3.0, res.Factor, 1e-9)
	assert.Equal(t, int64(2000), res.CreditCents)
	assert.Equal(t, int64(6000), res.ChargeCents)
	assert.Equal(t, int64(4000), res.NetCents)
}

func TestProrationCreditChargeSumToNet(t *testing.T) {
	// Credit and charge must reconcile with the net within rounding (±1 cent).
	start := day(2026, time.May, 1)
	end := day(2026, time.May, 31)
	for d := 0; d <= 30; d++ {
		res := Proration(ProrationInput{
			PeriodStart:   start,
			PeriodEnd:     end,
			ChangeDate:    start.AddDate(0, 0, d),
			OldPriceCents: 1099,
			NewPriceCents: 2599,
		})
		diff := res.NetCents - (res.ChargeCents - res.CreditCents)
		assert.LessOrEqual(t, diff, int64(1))
		assert.GreaterOrEqual(t, diff, int64(-1))
	}
}

func TestProrationDowngradeYieldsNegativeNet(t *testing.T) {
	res := Proration(ProrationInput{
		PeriodStart:   day(2026, time.June, 1),
		PeriodEnd:     day(2026, time.July, 1),
		ChangeDate:    day(2026, time.June, 16),
		OldPriceCents: 9900,
		NewPriceCents: 999,
	})
	assert.Negative(t, res.NetCents)
	assert.Greater(t, res.CreditCents, res.ChargeCents)
}

func TestProrationZeroLengthPeriod(t *testing.T) {
	res := Proration(ProrationInput{
		PeriodStart:   day(2026, time.April, 1),
		PeriodEnd:     day(2026, time.April, 1),
		ChangeDate:    day(2026, time.April, 1),
		OldPriceCents: 5000,
		NewPriceCents: 7000,
	})
	assert.Equal(t, 0.0, res.Factor)
	assert.Zero(t, res.CreditCents)
	assert.Zero(t, res.ChargeCents)
}

func TestProrationNormalizesTimesToUTCMidnight(t *testing.T) {
	// Mid-day timestamps in a non-UTC zone must land on the same whole-day
	// arithmetic as midnight UTC inputs.
	loc := time.FixedZone("PST", -8*3600)
	res := Proration(ProrationInput{
		PeriodStart:   time.Date(2026, time.March, 1, 14, 30, 0, 0, loc),
		PeriodEnd:     time.Date(2026, time.March, 31, 9, 15, 0, 0, loc),
		ChangeDate:    time.Date(2026, time.March, 11, 23, 59, 59, 0, loc),
		OldPriceCents: 3000,
		NewPriceCents: 9000,
	})
	assert.Equal(t, int64(30), res.DaysTotal)
	assert.Equal(t, int64(19), res.DaysRemaining)
}

func TestRoundCentsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, int64(3), roundCents(2.5))
	assert.Equal(t, int64(-3), roundCents(-2.5))
	assert.Equal(t, int64(2), roundCents(2.4))
	assert.Equal(t, int64(-2), roundCents(-2.4))
	assert.Equal(t, int64(0), roundCents(0))
}
