package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/psp"
	"github.com/ledgerline/billing-core/internal/store"
)

// ChargeService owns the domain-idempotent one-time charge flow: the local
// row is authoritative evidence a business operation was attempted, the PSP
// id is evidence the processor accepted it.
type ChargeService struct {
	DB        store.DB
	PSP       psp.Client
	Logger    *zap.Logger
	customers store.CustomerStore
	charges   store.ChargeStore
}

func NewChargeService(db store.DB, pspClient psp.Client, logger *zap.Logger) *ChargeService {
	return &ChargeService{DB: db, PSP: pspClient, Logger: logger}
}

type CreateChargeInput struct {
	AppID          string
	CustomerID     uuid.UUID
	AmountCents    int64
	Currency       string
	Reason         string
	ReferenceID    string
	PaymentMethodID string // defaults to customer's default
}

// Create is idempotent on (app_id, reference_id): pre-check for an existing
// row; insert a pending row; on a unique-violation race, re-read and return
// the winner without calling the PSP; only after the local row commits does
// the PSP get called.
func (s *ChargeService) Create(ctx context.Context, in CreateChargeInput) (*store.Charge, error) {
	if in.AmountCents <= 0 {
		return nil, apperr.Validation(
			[]apperr.FieldError{{Field: "amount_cents", Message: "must be a positive integer"}},
			"amount_cents must be positive")
	}
	if in.ReferenceID == "" {
		return nil, apperr.Validation(
			[]apperr.FieldError{{Field: "reference_id", Message: "is required"}},
			"reference_id is required")
	}

	if existing, err := s.charges.GetByReferenceID(ctx, s.DB, in.AppID, in.ReferenceID); err == nil {
		return existing, nil
	} else if err != store.ErrNotFound {
		return nil, apperr.Internal(err, "failed to look up existing charge")
	}

	customer, err := s.customers.GetByID(ctx, s.DB, in.AppID, in.CustomerID)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("customer not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load customer")
	}

	reason := in.Reason
	refID := in.ReferenceID
	charge := &store.Charge{
		AppID:       in.AppID,
		CustomerID:  in.CustomerID,
		Status:      store.ChargePending,
		AmountCents: in.AmountCents,
		Currency:    in.Currency,
		Reason:      &reason,
		ReferenceID: &refID,
		Metadata:    map[string]any{},
	}

	if err := s.charges.Create(ctx, s.DB, charge); err != nil {
		if store.IsUniqueViolation(err, "") {
			winner, getErr := s.charges.GetByReferenceID(ctx, s.DB, in.AppID, in.ReferenceID)
			if getErr != nil {
				return nil, apperr.Internal(getErr, "failed to recover from reference_id race")
			}
			return winner, nil
		}
		return nil, apperr.Internal(err, "failed to persist charge")
	}

	pmToken := in.PaymentMethodID
	if pmToken == "" && customer.DefaultPaymentMethodToken != nil {
		pmToken = *customer.DefaultPaymentMethodToken
	}
	pspCustomerID := ""
	if customer.PSPCustomerID != nil {
		pspCustomerID = *customer.PSPCustomerID
	}

	result, err := s.PSP.CreateCharge(ctx, pspCustomerID, pmToken, in.AmountCents, in.Currency, in.Reason)
	if err != nil {
		code, message := apperr.PSPDetail(err)
		if markErr := s.charges.MarkFailed(ctx, s.DB, in.AppID, charge.ID, code, message); markErr != nil {
			s.Logger.Error("failed to persist charge failure", zap.Error(markErr))
		}
		return nil, err
	}

	if err := s.charges.MarkSucceeded(ctx, s.DB, in.AppID, charge.ID, result.PSPChargeID); err != nil {
		return nil, apperr.Internal(err, "failed to mark charge succeeded")
	}
	charge.Status = store.ChargeSucceeded
	charge.PSPChargeID = &result.PSPChargeID
	return charge, nil
}

func (s *ChargeService) GetByID(ctx context.Context, appID string, id uuid.UUID) (*store.Charge, error) {
	c, err := s.charges.GetByID(ctx, s.DB, appID, id)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("charge not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load charge")
	}
	return c, nil
}
