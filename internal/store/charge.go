package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChargeStore is the typed DAO for charges. Create/GetByReferenceID back
// the (app_id, reference_id) domain-idempotency recovery path.
type ChargeStore struct{}

func (s ChargeStore) Create(ctx context.Context, db DBTX, c *Charge) error {
	meta, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}
	c.ID = uuid.New()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err = db.Exec(ctx, `
		INSERT INTO charges
			(id, app_id, customer_id, subscription_id, invoice_id, psp_charge_id,
			 status, amount_cents, currency, reason, reference_id, service_date, note,
			 failure_code, failure_message, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		c.ID, c.AppID, c.CustomerID, c.SubscriptionID, c.InvoiceID, c.PSPChargeID,
		c.Status, c.AmountCents, c.Currency, c.Reason, c.ReferenceID, c.ServiceDate, c.Note,
		c.FailureCode, c.FailureMessage, meta, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s ChargeStore) GetByReferenceID(ctx context.Context, db DBTX, appID, referenceID string) (*Charge, error) {
	row := db.QueryRow(ctx, chargeSelect+`WHERE app_id = $1 AND reference_id = $2`, appID, referenceID)
	return scanCharge(row)
}

func (s ChargeStore) GetByID(ctx context.Context, db DBTX, appID string, id uuid.UUID) (*Charge, error) {
	row := db.QueryRow(ctx, chargeSelect+`WHERE app_id = $1 AND id = $2`, appID, id)
	return scanCharge(row)
}

// GetByPSPID resolves a charge by its processor-assigned id, used by the
// webhook dispute handler to link an incoming dispute event back to the
// charge it concerns.
func (s ChargeStore) GetByPSPID(ctx context.Context, db DBTX, appID, pspChargeID string) (*Charge, error) {
	row := db.QueryRow(ctx, chargeSelect+`WHERE app_id = $1 AND psp_charge_id = $2`, appID, pspChargeID)
	return scanCharge(row)
}

func (s ChargeStore) MarkSucceeded(ctx context.Context, db DBTX, appID string, id uuid.UUID, pspChargeID string) error {
	_, err := db.Exec(ctx, `
		UPDATE charges SET status = $3, psp_charge_id = $4, updated_at = now()
		WHERE app_id = $1 AND id = $2`, appID, id, ChargeSucceeded, pspChargeID)
	return err
}

func (s ChargeStore) MarkFailed(ctx context.Context, db DBTX, appID string, id uuid.UUID, code, message string) error {
	_, err := db.Exec(ctx, `
		UPDATE charges SET status = $3, failure_code = $4, failure_message = $5, updated_at = now()
		WHERE app_id = $1 AND id = $2`, appID, id, ChargeFailed, code, message)
	return err
}

const chargeSelect = `
	SELECT id, app_id, customer_id, subscription_id, invoice_id, psp_charge_id,
	       status, amount_cents, currency, reason, reference_id, service_date, note,
	       failure_code, failure_message, metadata, created_at, updated_at
	FROM charges
`

func scanCharge(row rowScanner) (*Charge, error) {
	var c Charge
	var meta []byte
	if err := row.Scan(
		&c.ID, &c.AppID, &c.CustomerID, &c.SubscriptionID, &c.InvoiceID, &c.PSPChargeID,
		&c.Status, &c.AmountCents, &c.Currency, &c.Reason, &c.ReferenceID, &c.ServiceDate, &c.Note,
		&c.FailureCode, &c.FailureMessage, &meta, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(meta, &c.Metadata); err != nil {
		return nil, err
	}
	return &c, nil
}
