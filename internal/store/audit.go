package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditStore persists the append-only discount_application / tax_calculation
// / proration_event rows. The calculator package produces pure results;
// ProrationService inserts the proration_event rows, and nothing in this
// module calls the discount_application or tax_calculation inserts.
type AuditStore struct{}

func (s AuditStore) InsertDiscountApplication(ctx context.Context, db DBTX, a *DiscountApplication) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	_, err := db.Exec(ctx, `
		INSERT INTO discount_applications (id, app_id, invoice_id, charge_id, coupon_id, discount_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.AppID, a.InvoiceID, a.ChargeID, a.CouponID, a.DiscountCents, a.CreatedAt)
	return err
}

func (s AuditStore) InsertTaxCalculation(ctx context.Context, db DBTX, t *TaxCalculation) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	_, err := db.Exec(ctx, `
		INSERT INTO tax_calculations (id, app_id, invoice_id, charge_id, jurisdiction, taxable_cents, tax_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.AppID, t.InvoiceID, t.ChargeID, t.Jurisdiction, t.TaxableCents, t.TaxCents, t.CreatedAt)
	return err
}

func (s AuditStore) InsertProrationEvent(ctx context.Context, db DBTX, p *ProrationEvent) error {
	meta, err := marshalMetadata(p.Metadata)
	if err != nil {
		return err
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	_, err = db.Exec(ctx, `
		INSERT INTO proration_events (id, app_id, subscription_id, net_cents, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.AppID, p.SubscriptionID, p.NetCents, meta, p.CreatedAt)
	return err
}
