package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/psp"
	"github.com/ledgerline/billing-core/internal/store"
)

// PaymentMethodService owns the tokenized attach/list/soft-delete lifecycle
// of payment methods.
type PaymentMethodService struct {
	DB        store.DB
	PSP       psp.Client
	Logger    *zap.Logger
	customers store.CustomerStore
	methods   store.PaymentMethodStore
}

func NewPaymentMethodService(db store.DB, pspClient psp.Client, logger *zap.Logger) *PaymentMethodService {
	return &PaymentMethodService{DB: db, PSP: pspClient, Logger: logger}
}

type AddPaymentMethodInput struct {
	AppID      string
	CustomerID uuid.UUID
	Token      string
}

// Add attaches an already-tokenized method: verify the customer, attach in
// the PSP (the attach response supplies the masked detail), then upsert
// locally by psp_payment_method_id — which transparently reattaches a soft-deleted row
// for the same token.
func (s *PaymentMethodService) Add(ctx context.Context, in AddPaymentMethodInput) (*store.PaymentMethod, error) {
	customer, err := s.customers.GetByID(ctx, s.DB, in.AppID, in.CustomerID)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("customer not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load customer")
	}
	if customer.PSPCustomerID == nil {
		return nil, apperr.Conflict("customer has no psp_customer_id yet")
	}

	result, err := s.PSP.AttachPaymentMethod(ctx, *customer.PSPCustomerID, in.Token)
	if err != nil {
		return nil, err
	}

	pm := &store.PaymentMethod{
		AppID:              in.AppID,
		CustomerID:         in.CustomerID,
		PSPPaymentMethodID: result.PSPPaymentMethodID,
		Type:               store.PaymentMethodType(result.Type),
		Metadata:           map[string]any{},
	}
	if result.Brand != "" {
		pm.Brand = &result.Brand
	}
	if result.Last4 != "" {
		pm.Last4 = &result.Last4
	}
	if result.ExpMonth != 0 {
		m := int(result.ExpMonth)
		pm.ExpMonth = &m
	}
	if result.ExpYear != 0 {
		y := int(result.ExpYear)
		pm.ExpYear = &y
	}
	if result.BankName != "" {
		pm.BankName = &result.BankName
	}
	if result.BankLast4 != "" {
		pm.BankLast4 = &result.BankLast4
	}

	if err := s.methods.Upsert(ctx, s.DB, pm); err != nil {
		return nil, apperr.Internal(err, "failed to persist payment method")
	}
	return pm, nil
}

// List is app+customer scoped, excludes soft-deleted rows, and orders
// default-first then newest-first (enforced by the store's ORDER BY).
func (s *PaymentMethodService) List(ctx context.Context, appID string, customerID uuid.UUID) ([]*store.PaymentMethod, error) {
	out, err := s.methods.ListByCustomer(ctx, s.DB, appID, customerID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list payment methods")
	}
	return out, nil
}

// Delete soft-deletes a payment method and, if it was the customer's
// default, clears the customer's denormalized fast-path fields. PSP detach
// is best-effort — failures are logged at warn level and do not fail the
// request.
func (s *PaymentMethodService) Delete(ctx context.Context, appID string, customerID, id uuid.UUID) error {
	methods, err := s.methods.ListByCustomer(ctx, s.DB, appID, customerID)
	if err != nil {
		return apperr.Internal(err, "failed to list payment methods")
	}
	var target *store.PaymentMethod
	for _, m := range methods {
		if m.ID == id {
			target = m
		}
	}
	if target == nil {
		return apperr.NotFound("payment method not found")
	}

	if err := s.methods.SoftDelete(ctx, s.DB, appID, id); err != nil {
		return apperr.Internal(err, "failed to delete payment method")
	}

	if err := s.PSP.DetachPaymentMethod(ctx, target.PSPPaymentMethodID); err != nil {
		s.Logger.Warn("best-effort psp detach failed, local truth prevails",
			zap.String("app_id", appID), zap.String("payment_method_id", id.String()), zap.Error(err))
	}

	if target.IsDefault {
		if err := s.customers.ClearDefaultPaymentMethod(ctx, s.DB, appID, customerID); err != nil {
			return apperr.Internal(err, "failed to clear customer default payment method")
		}
	}
	return nil
}
