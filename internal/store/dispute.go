package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DisputeStore backs the dispute rows the webhook dispatcher upserts and
// the read-only listing endpoint exposes.
type DisputeStore struct{}

func (s DisputeStore) Upsert(ctx context.Context, db DBTX, d *Dispute) error {
	meta, err := marshalMetadata(d.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	row := db.QueryRow(ctx, `SELECT id FROM disputes WHERE app_id = $1 AND psp_dispute_id = $2`, d.AppID, d.PSPDisputeID)
	var existing uuid.UUID
	err = row.Scan(&existing)
	switch err {
	case nil:
		d.ID = existing
		d.UpdatedAt = now
		_, err = db.Exec(ctx, `
			UPDATE disputes SET status = $3, amount_cents = $4, reason = $5,
			       evidence_due_by = $6, metadata = $7, updated_at = $8
			WHERE app_id = $1 AND id = $2`,
			d.AppID, d.ID, d.Status, d.AmountCents, d.Reason, d.EvidenceDueBy, meta, d.UpdatedAt)
		return err
	case ErrNotFound:
		d.ID = uuid.New()
		d.CreatedAt, d.UpdatedAt = now, now
		_, err = db.Exec(ctx, `
			INSERT INTO disputes
				(id, app_id, customer_id, charge_id, psp_dispute_id, status, amount_cents,
				 currency, reason, evidence_due_by, metadata, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			d.ID, d.AppID, d.CustomerID, d.ChargeID, d.PSPDisputeID, d.Status, d.AmountCents,
			d.Currency, d.Reason, d.EvidenceDueBy, meta, d.CreatedAt, d.UpdatedAt)
		return err
	default:
		return err
	}
}

func (s DisputeStore) ListByCharge(ctx context.Context, db DBTX, appID string, chargeID uuid.UUID) ([]*Dispute, error) {
	rows, err := db.Query(ctx, `
		SELECT id, app_id, customer_id, charge_id, psp_dispute_id, status, amount_cents,
		       currency, reason, evidence_due_by, metadata, created_at, updated_at
		FROM disputes WHERE app_id = $1 AND charge_id = $2 ORDER BY created_at DESC`, appID, chargeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Dispute
	for rows.Next() {
		var d Dispute
		var meta []byte
		if err := rows.Scan(&d.ID, &d.AppID, &d.CustomerID, &d.ChargeID, &d.PSPDisputeID,
			&d.Status, &d.AmountCents, &d.Currency, &d.Reason, &d.EvidenceDueBy, &meta,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalMetadata(meta, &d.Metadata); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
