package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/psp"
	"github.com/ledgerline/billing-core/internal/store"
)

// RefundService mirrors ChargeService's domain-idempotency shape for
// refunds, adding cross-tenant and settled-charge checks.
type RefundService struct {
	DB      store.DB
	PSP     psp.Client
	Logger  *zap.Logger
	charges store.ChargeStore
	refunds store.RefundStore
}

func NewRefundService(db store.DB, pspClient psp.Client, logger *zap.Logger) *RefundService {
	return &RefundService{DB: db, PSP: pspClient, Logger: logger}
}

type CreateRefundInput struct {
	AppID       string
	ChargeID    uuid.UUID
	AmountCents int64
	Reason      string
	ReferenceID string
}

// Create is idempotent on (app_id, reference_id) with one extra
// precondition: the charge must belong to the caller's app_id and must have
// settled (non-null psp_charge_id). Cross-tenant charge lookup returns
// not-found, never forbidden.
func (s *RefundService) Create(ctx context.Context, in CreateRefundInput) (*store.Refund, error) {
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

	if existing, err := s.refunds.GetByReferenceID(ctx, s.DB, in.AppID, in.ReferenceID); err == nil {
		return existing, nil
	} else if err != store.ErrNotFound {
		return nil, apperr.Internal(err, "failed to look up existing refund")
	}

	charge, err := s.charges.GetByID(ctx, s.DB, in.AppID, in.ChargeID)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("charge not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load charge")
	}
	if charge.PSPChargeID == nil {
		return nil, apperr.Conflict("charge has not settled with the payment processor")
	}

	reason := in.Reason
	refund := &store.Refund{
		AppID:       in.AppID,
		CustomerID:  charge.CustomerID,
		ChargeID:    charge.ID,
		Status:      store.RefundPending,
		AmountCents: in.AmountCents,
		Currency:    charge.Currency,
		Reason:      &reason,
		ReferenceID: in.ReferenceID,
		Metadata:    map[string]any{},
	}

	if err := s.refunds.Create(ctx, s.DB, refund); err != nil {
		if store.IsUniqueViolation(err, "") {
			winner, getErr := s.refunds.GetByReferenceID(ctx, s.DB, in.AppID, in.ReferenceID)
			if getErr != nil {
				return nil, apperr.Internal(getErr, "failed to recover from reference_id race")
			}
			return winner, nil
		}
		return nil, apperr.Internal(err, "failed to persist refund")
	}

	result, err := s.PSP.CreateRefund(ctx, *charge.PSPChargeID, in.AmountCents)
	if err != nil {
		code, message := apperr.PSPDetail(err)
		if markErr := s.refunds.MarkFailed(ctx, s.DB, in.AppID, refund.ID, code, message); markErr != nil {
			s.Logger.Error("failed to persist refund failure", zap.Error(markErr))
		}
		return nil, err
	}

	if err := s.refunds.MarkSucceeded(ctx, s.DB, in.AppID, refund.ID, result.PSPRefundID); err != nil {
		return nil, apperr.Internal(err, "failed to mark refund succeeded")
	}
	refund.Status = store.RefundSucceeded
	refund.PSPRefundID = &result.PSPRefundID
	return refund, nil
}

func (s *RefundService) GetByID(ctx context.Context, appID string, id uuid.UUID) (*store.Refund, error) {
	r, err := s.refunds.GetByID(ctx, s.DB, appID, id)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("refund not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load refund")
	}
	return r, nil
}
