package calculator

import (
	"sort"
	"time"

	"github.com/ledgerline/billing-core/internal/store"
)

// DiscountContext carries the eligibility inputs coupons are gated on.
type DiscountContext struct {
	Now              time.Time
	CustomerSegment  string
	ProductCategories []string
	TotalQuantity    int64
}

// DiscountOutcome reports one coupon's fate, used both to compute the total
// and to populate the human-readable breakdown returned to callers.
type DiscountOutcome struct {
	CouponID      string
	Code          string
	Applied       bool
	DiscountCents int64
	Reason        string
}

// DiscountResult is the full stacking outcome.
type DiscountResult struct {
	TotalDiscountCents int64
	RemainingCents     int64
	Outcomes           []DiscountOutcome
}

// ApplyDiscounts stacks coupons against a subtotal: eligibility gating
// first, then single-winner non-stackable selection at the top priority,
// then stackable coupons applied in priority order to the running
// remainder. The total discount never exceeds the subtotal.
func ApplyDiscounts(subtotalCents int64, coupons []*store.Coupon, ctx DiscountContext) DiscountResult {
	sorted := append([]*store.Coupon(nil), coupons...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	eligible := make([]*store.Coupon, 0, len(sorted))
	outcomes := make([]DiscountOutcome, 0, len(sorted))

	for _, c := range sorted {
		if reason, ok := eligibilityReason(c, ctx); !ok {
			outcomes = append(outcomes, DiscountOutcome{CouponID: c.ID.String(), Code: c.Code, Reason: reason})
			continue
		}
		eligible = append(eligible, c)
	}

	remaining := subtotalCents

	var nonStackable, stackable []*store.Coupon
	for _, c := range eligible {
		if c.Stackable {
			stackable = append(stackable, c)
		} else {
			nonStackable = append(nonStackable, c)
		}
	}

	if len(nonStackable) > 0 {
		topPriority := nonStackable[0].Priority
		var topGroup, rest []*store.Coupon
		for _, c := range nonStackable {
			if c.Priority == topPriority {
				topGroup = append(topGroup, c)
			} else {
				rest = append(rest, c)
			}
		}

		type candidate struct {
			coupon   *store.Coupon
			discount int64
		}
		candidates := make([]candidate, 0, len(topGroup))
		for _, c := range topGroup {
			d := clampDiscount(rawDiscount(c, remaining, ctx.TotalQuantity), c, remaining)
			candidates = append(candidates, candidate{c, d})
		}
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].discount > candidates[j].discount })

		winner := candidates[0]
		remaining -= winner.discount
		outcomes = append(outcomes, DiscountOutcome{
			CouponID: winner.coupon.ID.String(), Code: winner.coupon.Code,
			Applied: true, DiscountCents: winner.discount,
		})

		for _, cand := range candidates[1:] {
			outcomes = append(outcomes, DiscountOutcome{
				CouponID: cand.coupon.ID.String(), Code: cand.coupon.Code,
				Reason: "rejected: non-stackable, superseded by larger discount",
			})
		}
		for _, c := range rest {
			outcomes = append(outcomes, DiscountOutcome{
				CouponID: c.ID.String(), Code: c.Code,
				Reason: "rejected: non-stackable, lower priority",
			})
		}
	}

	for _, c := range stackable {
		d := clampDiscount(rawDiscount(c, remaining, ctx.TotalQuantity), c, remaining)
		remaining -= d
		outcomes = append(outcomes, DiscountOutcome{
			CouponID: c.ID.String(), Code: c.Code, Applied: true, DiscountCents: d,
		})
	}

	return DiscountResult{
		TotalDiscountCents: subtotalCents - remaining,
		RemainingCents:     remaining,
		Outcomes:           outcomes,
	}
}

// eligibilityReason runs every eligibility gate; ok is false and reason
// explains why the coupon was rejected before any discount math runs.
func eligibilityReason(c *store.Coupon, ctx DiscountContext) (string, bool) {
	if !c.Active {
		return "rejected: inactive", false
	}
	if c.SeasonalStart != nil && ctx.Now.Before(*c.SeasonalStart) {
		return "rejected: outside seasonal window", false
	}
	if c.SeasonalEnd != nil && ctx.Now.After(*c.SeasonalEnd) {
		return "rejected: outside seasonal window", false
	}
	if c.RedeemBy != nil && ctx.Now.After(*c.RedeemBy) {
		return "rejected: past redeem-by date", false
	}
	if c.MaxRedemptions != nil && c.RedemptionCount >= *c.MaxRedemptions {
		return "rejected: redemption limit reached", false
	}
	if len(c.CustomerSegments) > 0 && !contains(c.CustomerSegments, ctx.CustomerSegment) {
		return "rejected: customer segment not eligible", false
	}
	if len(c.ProductCategories) > 0 && !anyOverlap(c.ProductCategories, ctx.ProductCategories) {
		return "rejected: no eligible product category", false
	}
	if c.MinQuantity != nil && ctx.TotalQuantity < int64(*c.MinQuantity) {
		return "rejected: minimum quantity not met", false
	}
	return "", true
}

func rawDiscount(c *store.Coupon, base, totalQuantity int64) int64 {
	switch c.Type {
	case store.CouponPercentage:
		return roundCents(float64(base) * float64(c.Value) / 100.0)
	case store.CouponFixed, store.CouponReferral, store.CouponContract:
		return c.Value
	case store.CouponVolume:
		return volumeDiscount(c.VolumeTiers, totalQuantity)
	default:
		return 0
	}
}

// volumeDiscount picks the highest tier whose Min <= totalQuantity and
// (Max unset or totalQuantity <= Max); below the smallest tier yields 0.
func volumeDiscount(tiers []store.VolumeTier, totalQuantity int64) int64 {
	var best *store.VolumeTier
	for i := range tiers {
		t := tiers[i]
		if totalQuantity < t.Min {
			continue
		}
		if t.Max != nil && totalQuantity > *t.Max {
			continue
		}
		if best == nil || t.Min > best.Min {
			best = &t
		}
	}
	if best == nil {
		return 0
	}
	return best.Value
}

func clampDiscount(raw int64, c *store.Coupon, remaining int64) int64 {
	if raw < 0 {
		raw = 0
	}
	if c.MaxDiscountCents != nil && raw > *c.MaxDiscountCents {
		raw = *c.MaxDiscountCents
	}
	if raw > remaining {
		raw = remaining
	}
	return raw
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func anyOverlap(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
