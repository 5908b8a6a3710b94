// Package services holds the business logic layer: customer, payment
// method, subscription, charge/refund, and webhook-dispatch services.
// Collaborators (store, PSP adapter, logger) are always injected, never
// package globals.
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/psp"
	"github.com/ledgerline/billing-core/internal/store"
)

// CustomerService owns customer CRUD and the default-payment-method
// fast path.
type CustomerService struct {
	DB        store.DB
	PSP       psp.Client
	Logger    *zap.Logger
	customers store.CustomerStore
	methods   store.PaymentMethodStore
}

func NewCustomerService(db store.DB, pspClient psp.Client, logger *zap.Logger) *CustomerService {
	return &CustomerService{DB: db, PSP: pspClient, Logger: logger}
}

type CreateCustomerInput struct {
	AppID              string
	ExternalCustomerID string
	Email              string
	Name               string
	Metadata           map[string]any
}

// Create persists a customer local-first; psp_customer_id stays null until
// the PSP accepts the customer and is backfilled then.
func (s *CustomerService) Create(ctx context.Context, in CreateCustomerInput) (*store.Customer, error) {
	c := &store.Customer{
		AppID:    in.AppID,
		Email:    in.Email,
		Name:     in.Name,
		Status:   store.CustomerActive,
		Metadata: in.Metadata,
	}
	if in.ExternalCustomerID != "" {
		c.ExternalCustomerID = &in.ExternalCustomerID
	}

	if err := s.customers.Create(ctx, s.DB, c); err != nil {
		if store.IsUniqueViolation(err, "") {
			return nil, apperr.Conflict("customer with external_customer_id %q already exists", in.ExternalCustomerID)
		}
		return nil, apperr.Internal(err, "failed to create customer")
	}

	pspResult, err := s.PSP.CreateCustomer(ctx, in.Email, in.Name)
	if err != nil {
		s.Logger.Warn("psp customer creation failed, local row remains unbacked",
			zap.String("app_id", in.AppID), zap.String("customer_id", c.ID.String()), zap.Error(err))
		return c, nil
	}

	c.PSPCustomerID = &pspResult.PSPCustomerID
	if err := s.customers.Update(ctx, s.DB, c); err != nil {
		return nil, apperr.Internal(err, "failed to backfill psp_customer_id")
	}
	return c, nil
}

// GetByID enforces cross-tenant isolation: a row under a different app_id is
// reported identically to a row that does not exist.
func (s *CustomerService) GetByID(ctx context.Context, appID string, id uuid.UUID) (*store.Customer, error) {
	c, err := s.customers.GetByID(ctx, s.DB, appID, id)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("customer not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load customer")
	}
	return c, nil
}

func (s *CustomerService) GetByExternalID(ctx context.Context, appID, externalID string) (*store.Customer, error) {
	c, err := s.customers.GetByExternalID(ctx, s.DB, appID, externalID)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("customer not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load customer")
	}
	return c, nil
}

type UpdateCustomerInput struct {
	Email    *string
	Name     *string
	Metadata map[string]any
}

func (s *CustomerService) Update(ctx context.Context, appID string, id uuid.UUID, in UpdateCustomerInput) (*store.Customer, error) {
	c, err := s.GetByID(ctx, appID, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		c.Email = *in.Email
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Metadata != nil {
		c.Metadata = in.Metadata
	}
	if err := s.customers.Update(ctx, s.DB, c); err != nil {
		return nil, apperr.Internal(err, "failed to update customer")
	}
	return c, nil
}

// SetDefaultPaymentMethod runs as a single transaction: clear is_default on
// every other method, set it on the chosen one, and update the customer's
// denormalized fast-path fields, atomically.
func (s *CustomerService) SetDefaultPaymentMethod(ctx context.Context, appID string, customerID, paymentMethodID uuid.UUID) error {
	return store.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		methods, err := s.methods.ListByCustomer(ctx, tx, appID, customerID)
		if err != nil {
			return apperr.Internal(err, "failed to list payment methods")
		}

		var target *store.PaymentMethod
		for _, pm := range methods {
			if pm.ID == paymentMethodID {
				target = pm
			}
		}
		if target == nil {
			return apperr.NotFound("payment method not found")
		}

		if err := s.methods.SetDefault(ctx, tx, appID, customerID, paymentMethodID); err != nil {
			return apperr.Internal(err, "failed to set default payment method")
		}
		pmType := string(target.Type)
		if err := s.customers.SetDefaultPaymentMethod(ctx, tx, appID, customerID, target.PSPPaymentMethodID, pmType); err != nil {
			return apperr.Internal(err, "failed to update customer default payment method")
		}
		return nil
	})
}
