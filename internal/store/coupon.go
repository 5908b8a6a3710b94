package store

import (
	"context"
	"encoding/json"
)

// CouponStore provides the read surface the discount calculator needs;
// coupons are app-scoped reference data with no owning entity.
type CouponStore struct{}

func (s CouponStore) ListActiveByCodes(ctx context.Context, db DBTX, appID string, codes []string) ([]*Coupon, error) {
	rows, err := db.Query(ctx, `
		SELECT id, app_id, code, type, value, active, redeem_by, max_redemptions,
		       redemption_count, product_categories, customer_segments, min_quantity,
		       max_discount_cents, seasonal_start, seasonal_end, volume_tiers, stackable, priority
		FROM coupons WHERE app_id = $1 AND code = ANY($2)`, appID, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCoupon(row rowScanner) (*Coupon, error) {
	var c Coupon
	var tiersRaw []byte
	if err := row.Scan(
		&c.ID, &c.AppID, &c.Code, &c.Type, &c.Value, &c.Active, &c.RedeemBy, &c.MaxRedemptions,
		&c.RedemptionCount, &c.ProductCategories, &c.CustomerSegments, &c.MinQuantity,
		&c.MaxDiscountCents, &c.SeasonalStart, &c.SeasonalEnd, &tiersRaw, &c.Stackable, &c.Priority,
	); err != nil {
		return nil, err
	}
	if len(tiersRaw) > 0 {
		if err := json.Unmarshal(tiersRaw, &c.VolumeTiers); err != nil {
			return nil, err
		}
	}
	return &c, nil
}
