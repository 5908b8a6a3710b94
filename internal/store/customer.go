package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CustomerStore is the typed DAO for the customer aggregate.
type CustomerStore struct{}

func (s CustomerStore) Create(ctx context.Context, db DBTX, c *Customer) error {
	meta, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}
	c.ID = uuid.New()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err = db.Exec(ctx, `
		INSERT INTO customers
			(id, app_id, external_customer_id, psp_customer_id, email, name,
			 default_payment_method_token, default_payment_method_type,
			 status, delinquent_since, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		c.ID, c.AppID, c.ExternalCustomerID, c.PSPCustomerID, c.Email, c.Name,
		c.DefaultPaymentMethodToken, c.DefaultPaymentMethodType,
		c.Status, c.DelinquentSince, meta, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s CustomerStore) GetByID(ctx context.Context, db DBTX, appID string, id uuid.UUID) (*Customer, error) {
	row := db.QueryRow(ctx, `
		SELECT id, app_id, external_customer_id, psp_customer_id, email, name,
		       default_payment_method_token, default_payment_method_type,
		       status, delinquent_since, metadata, created_at, updated_at
		FROM customers WHERE app_id = $1 AND id = $2`, appID, id)
	return scanCustomer(row)
}

func (s CustomerStore) GetByExternalID(ctx context.Context, db DBTX, appID, externalID string) (*Customer, error) {
	row := db.QueryRow(ctx, `
		SELECT id, app_id, external_customer_id, psp_customer_id, email, name,
		       default_payment_method_token, default_payment_method_type,
		       status, delinquent_since, metadata, created_at, updated_at
		FROM customers WHERE app_id = $1 AND external_customer_id = $2`, appID, externalID)
	return scanCustomer(row)
}

// GetByPSPID resolves a customer by its processor-assigned id, used by the
// webhook customer.updated handler to link an incoming event back to the
// local row.
func (s CustomerStore) GetByPSPID(ctx context.Context, db DBTX, appID, pspCustomerID string) (*Customer, error) {
	row := db.QueryRow(ctx, `
		SELECT id, app_id, external_customer_id, psp_customer_id, email, name,
		       default_payment_method_token, default_payment_method_type,
		       status, delinquent_since, metadata, created_at, updated_at
		FROM customers WHERE app_id = $1 AND psp_customer_id = $2`, appID, pspCustomerID)
	return scanCustomer(row)
}

func (s CustomerStore) Update(ctx context.Context, db DBTX, c *Customer) error {
	meta, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	_, err = db.Exec(ctx, `
		UPDATE customers SET
			email = $3, name = $4, psp_customer_id = $5,
			default_payment_method_token = $6, default_payment_method_type = $7,
			status = $8, delinquent_since = $9, metadata = $10, updated_at = $11
		WHERE app_id = $1 AND id = $2`,
		c.AppID, c.ID, c.Email, c.Name, c.PSPCustomerID,
		c.DefaultPaymentMethodToken, c.DefaultPaymentMethodType,
		c.Status, c.DelinquentSince, meta, c.UpdatedAt)
	return err
}

// SetDefaultPaymentMethod updates the customer's denormalized fast-path
// fields; callers run this inside the same transaction that flips the
// payment_method rows' is_default flag.
func (s CustomerStore) SetDefaultPaymentMethod(ctx context.Context, db DBTX, appID string, customerID uuid.UUID, token, pmType string) error {
	_, err := db.Exec(ctx, `
		UPDATE customers
		SET default_payment_method_token = $3, default_payment_method_type = $4, updated_at = now()
		WHERE app_id = $1 AND id = $2`, appID, customerID, token, pmType)
	return err
}

func (s CustomerStore) ClearDefaultPaymentMethod(ctx context.Context, db DBTX, appID string, customerID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE customers
		SET default_payment_method_token = NULL, default_payment_method_type = NULL, updated_at = now()
		WHERE app_id = $1 AND id = $2`, appID, customerID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*Customer, error) {
	var c Customer
	var meta []byte
	if err := row.Scan(
		&c.ID, &c.AppID, &c.ExternalCustomerID, &c.PSPCustomerID, &c.Email, &c.Name,
		&c.DefaultPaymentMethodToken, &c.DefaultPaymentMethodType,
		&c.Status, &c.DelinquentSince, &meta, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(meta, &c.Metadata); err != nil {
		return nil, err
	}
	return &c, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func unmarshalMetadata(raw []byte, out *map[string]any) error {
	if len(raw) == 0 {
		*out = map[string]any{}
		return nil
	}
	return json.Unmarshal(raw, out)
}
