package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefundStore mirrors ChargeStore's domain-idempotency shape for refunds.
type RefundStore struct{}

func (s RefundStore) Create(ctx context.Context, db DBTX, r *Refund) error {
	meta, err := marshalMetadata(r.Metadata)
	if err != nil {
		return err
	}
	r.ID = uuid.New()
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	_, err = db.Exec(ctx, `
		INSERT INTO refunds
			(id, app_id, customer_id, charge_id, psp_refund_id, status, amount_cents,
			 currency, reason, reference_id, failure_code, failure_message, metadata,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		r.ID, r.AppID, r.CustomerID, r.ChargeID, r.PSPRefundID, r.Status, r.AmountCents,
		r.Currency, r.Reason, r.ReferenceID, r.FailureCode, r.FailureMessage, meta,
		r.CreatedAt, r.UpdatedAt)
	return err
}

func (s RefundStore) GetByReferenceID(ctx context.Context, db DBTX, appID, referenceID string) (*Refund, error) {
	row := db.QueryRow(ctx, refundSelect+`WHERE app_id = $1 AND reference_id = $2`, appID, referenceID)
	return scanRefund(row)
}

func (s RefundStore) GetByID(ctx context.Context, db DBTX, appID string, id uuid.UUID) (*Refund, error) {
	row := db.QueryRow(ctx, refundSelect+`WHERE app_id = $1 AND id = $2`, appID, id)
	return scanRefund(row)
}

func (s RefundStore) MarkSucceeded(ctx context.Context, db DBTX, appID string, id uuid.UUID, pspRefundID string) error {
	_, err := db.Exec(ctx, `
		UPDATE refunds SET status = $3, psp_refund_id = $4, updated_at = now()
		WHERE app_id = $1 AND id = $2`, appID, id, RefundSucceeded, pspRefundID)
	return err
}

func (s RefundStore) MarkFailed(ctx context.Context, db DBTX, appID string, id uuid.UUID, code, message string) error {
	_, err := db.Exec(ctx, `
		UPDATE refunds SET status = $3, failure_code = $4, failure_message = $5, updated_at = now()
		WHERE app_id = $1 AND id = $2`, appID, id, RefundFailed, code, message)
	return err
}

const refundSelect = `
	SELECT id, app_id, customer_id, charge_id, psp_refund_id, status, amount_cents,
	       currency, reason, reference_id, failure_code, failure_message, metadata,
	       created_at, updated_at
	FROM refunds
`

func scanRefund(row rowScanner) (*Refund, error) {
	var r Refund
	var meta []byte
	if err := row.Scan(
		&r.ID, &r.AppID, &r.CustomerID, &r.ChargeID, &r.PSPRefundID, &r.Status, &r.AmountCents,
		&r.Currency, &r.Reason, &r.ReferenceID, &r.FailureCode, &r.FailureMessage, &meta,
		&r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(meta, &r.Metadata); err != nil {
		return nil, err
	}
	return &r, nil
}
