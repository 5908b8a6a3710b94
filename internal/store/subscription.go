package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStore is the typed DAO for subscriptions.
type SubscriptionStore struct{}

func (s SubscriptionStore) Create(ctx context.Context, db DBTX, sub *Subscription) error {
	meta, err := marshalMetadata(sub.Metadata)
	if err != nil {
		return err
	}
	sub.ID = uuid.New()
	now := time.Now().UTC()
	sub.CreatedAt, sub.UpdatedAt = now, now

	_, err = db.Exec(ctx, `
		INSERT INTO subscriptions
			(id, app_id, customer_id, psp_subscription_id, plan_id, plan_name,
			 price_cents, status, interval_unit, interval_count, billing_cycle_anchor,
			 current_period_start, current_period_end, cancel_at_period_end, cancel_at,
			 canceled_at, ended_at, payment_method_token, payment_method_type, metadata,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		sub.ID, sub.AppID, sub.CustomerID, sub.PSPSubscriptionID, sub.PlanID, sub.PlanName,
		sub.PriceCents, sub.Status, sub.IntervalUnit, sub.IntervalCount, sub.BillingCycleAnchor,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.CancelAt,
		sub.CanceledAt, sub.EndedAt, sub.PaymentMethodToken, sub.PaymentMethodType, meta,
		sub.CreatedAt, sub.UpdatedAt)
	return err
}

func (s SubscriptionStore) GetByID(ctx context.Context, db DBTX, appID string, id uuid.UUID) (*Subscription, error) {
	row := db.QueryRow(ctx, subscriptionSelect+`WHERE app_id = $1 AND id = $2`, appID, id)
	return scanSubscription(row)
}

func (s SubscriptionStore) GetByPSPID(ctx context.Context, db DBTX, appID, pspID string) (*Subscription, error) {
	row := db.QueryRow(ctx, subscriptionSelect+`WHERE app_id = $1 AND psp_subscription_id = $2`, appID, pspID)
	return scanSubscription(row)
}

func (s SubscriptionStore) ListByCustomer(ctx context.Context, db DBTX, appID string, customerID uuid.UUID) ([]*Subscription, error) {
	rows, err := db.Query(ctx, subscriptionSelect+`WHERE app_id = $1 AND customer_id = $2 ORDER BY created_at DESC`, appID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s SubscriptionStore) Update(ctx context.Context, db DBTX, sub *Subscription) error {
	meta, err := marshalMetadata(sub.Metadata)
	if err != nil {
		return err
	}
	sub.UpdatedAt = time.Now().UTC()
	_, err = db.Exec(ctx, `
		UPDATE subscriptions SET
			psp_subscription_id = $3, plan_id = $4, plan_name = $5, price_cents = $6,
			status = $7, current_period_start = $8, current_period_end = $9,
			cancel_at_period_end = $10, cancel_at = $11, canceled_at = $12, ended_at = $13,
			metadata = $14, updated_at = $15
		WHERE app_id = $1 AND id = $2`,
		sub.AppID, sub.ID, sub.PSPSubscriptionID, sub.PlanID, sub.PlanName, sub.PriceCents,
		sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd,
		sub.CancelAt, sub.CanceledAt, sub.EndedAt, meta, sub.UpdatedAt)
	return err
}

// MarkCanceled transitions a subscription to canceled/ended in place; used
// both by the fail-fast cancel path and by the change-billing-cycle
// transaction.
func (s SubscriptionStore) MarkCanceled(ctx context.Context, db DBTX, appID string, id uuid.UUID, at time.Time) error {
	_, err := db.Exec(ctx, `
		UPDATE subscriptions
		SET status = $3, canceled_at = $4, ended_at = $4, updated_at = $4
		WHERE app_id = $1 AND id = $2`, appID, id, SubCanceled, at)
	return err
}

const subscriptionSelect = `
	SELECT id, app_id, customer_id, psp_subscription_id, plan_id, plan_name,
	       price_cents, status, interval_unit, interval_count, billing_cycle_anchor,
	       current_period_start, current_period_end, cancel_at_period_end, cancel_at,
	       canceled_at, ended_at, payment_method_token, payment_method_type, metadata,
	       created_at, updated_at
	FROM subscriptions
`

func scanSubscription(row rowScanner) (*Subscription, error) {
	var sub Subscription
	var meta []byte
	if err := row.Scan(
		&sub.ID, &sub.AppID, &sub.CustomerID, &sub.PSPSubscriptionID, &sub.PlanID, &sub.PlanName,
		&sub.PriceCents, &sub.Status, &sub.IntervalUnit, &sub.IntervalCount, &sub.BillingCycleAnchor,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &sub.CancelAt,
		&sub.CanceledAt, &sub.EndedAt, &sub.PaymentMethodToken, &sub.PaymentMethodType, &meta,
		&sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(meta, &sub.Metadata); err != nil {
		return nil, err
	}
	return &sub, nil
}
