package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentMethodStore is the typed DAO for payment methods:
// upsert-by-PSP-id, app+customer scoped listing, and soft deletion.
type PaymentMethodStore struct{}

func (s PaymentMethodStore) Upsert(ctx context.Context, db DBTX, pm *PaymentMethod) error {
	meta, err := marshalMetadata(pm.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	row := db.QueryRow(ctx, `
		SELECT id FROM payment_methods WHERE app_id = $1 AND psp_payment_method_id = $2`,
		pm.AppID, pm.PSPPaymentMethodID)
	var existing uuid.UUID
	err = row.Scan(&existing)
	switch err {
	case nil:
		pm.ID = existing
		pm.UpdatedAt = now
		_, err = db.Exec(ctx, `
			UPDATE payment_methods SET
				customer_id = $3, type = $4, brand = $5, last4 = $6,
				exp_month = $7, exp_year = $8, bank_name = $9, bank_last4 = $10,
				deleted_at = NULL, metadata = $11, updated_at = $12
			WHERE app_id = $1 AND id = $2`,
			pm.AppID, pm.ID, pm.CustomerID, pm.Type, pm.Brand, pm.Last4,
			pm.ExpMonth, pm.ExpYear, pm.BankName, pm.BankLast4, meta, pm.UpdatedAt)
		return err
	case ErrNotFound:
		pm.ID = uuid.New()
		pm.CreatedAt, pm.UpdatedAt = now, now
		_, err = db.Exec(ctx, `
			INSERT INTO payment_methods
				(id, app_id, customer_id, psp_payment_method_id, type, brand, last4,
				 exp_month, exp_year, bank_name, bank_last4, is_default, metadata,
				 created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			pm.ID, pm.AppID, pm.CustomerID, pm.PSPPaymentMethodID, pm.Type, pm.Brand,
			pm.Last4, pm.ExpMonth, pm.ExpYear, pm.BankName, pm.BankLast4, pm.IsDefault,
			meta, pm.CreatedAt, pm.UpdatedAt)
		return err
	default:
		return err
	}
}

func (s PaymentMethodStore) ListByCustomer(ctx context.Context, db DBTX, appID string, customerID uuid.UUID) ([]*PaymentMethod, error) {
	rows, err := db.Query(ctx, `
		SELECT id, app_id, customer_id, psp_payment_method_id, type, brand, last4,
		       exp_month, exp_year, bank_name, bank_last4, is_default, deleted_at,
		       metadata, created_at, updated_at
		FROM payment_methods
		WHERE app_id = $1 AND customer_id = $2 AND deleted_at IS NULL
		ORDER BY is_default DESC, created_at DESC`, appID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PaymentMethod
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}

func (s PaymentMethodStore) GetByPSPID(ctx context.Context, db DBTX, appID, pspID string) (*PaymentMethod, error) {
	row := db.QueryRow(ctx, `
		SELECT id, app_id, customer_id, psp_payment_method_id, type, brand, last4,
		       exp_month, exp_year, bank_name, bank_last4, is_default, deleted_at,
		       metadata, created_at, updated_at
		FROM payment_methods WHERE app_id = $1 AND psp_payment_method_id = $2`, appID, pspID)
	return scanPaymentMethod(row)
}

// SetDefault clears is_default on every other payment method of the customer
// and sets it on id, inside whatever transaction db represents. Callers run
// this alongside CustomerStore.SetDefaultPaymentMethod in one transaction.
func (s PaymentMethodStore) SetDefault(ctx context.Context, db DBTX, appID string, customerID, id uuid.UUID) error {
	if _, err := db.Exec(ctx, `
		UPDATE payment_methods SET is_default = false, updated_at = now()
		WHERE app_id = $1 AND customer_id = $2 AND is_default = true`, appID, customerID); err != nil {
		return err
	}
	_, err := db.Exec(ctx, `
		UPDATE payment_methods SET is_default = true, updated_at = now()
		WHERE app_id = $1 AND id = $2`, appID, id)
	return err
}

func (s PaymentMethodStore) SoftDelete(ctx context.Context, db DBTX, appID string, id uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE payment_methods
		SET deleted_at = now(), is_default = false, updated_at = now()
		WHERE app_id = $1 AND id = $2`, appID, id)
	return err
}

func scanPaymentMethod(row rowScanner) (*PaymentMethod, error) {
	var pm PaymentMethod
	var meta []byte
	if err := row.Scan(
		&pm.ID, &pm.AppID, &pm.CustomerID, &pm.PSPPaymentMethodID, &pm.Type, &pm.Brand,
		&pm.Last4, &pm.ExpMonth, &pm.ExpYear, &pm.BankName, &pm.BankLast4, &pm.IsDefault,
		&pm.DeletedAt, &meta, &pm.CreatedAt, &pm.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(meta, &pm.Metadata); err != nil {
		return nil, err
	}
	return &pm, nil
}
