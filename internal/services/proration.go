package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/calculator"
	"github.com/ledgerline/billing-core/internal/store"
)

// ProrationService wraps the pure calculator.Proration function with
// audit-row persistence. The calculator itself never touches the store.
// Apply runs inside a single transaction that both mutates the subscription
// and records the proration_event audit row; CancellationRefund only records
// the audit row and leaves the subscription unchanged.
type ProrationService struct {
	DB            store.DB
	Logger        *zap.Logger
	subscriptions store.SubscriptionStore
	audit         store.AuditStore
}

func NewProrationService(db store.DB, logger *zap.Logger) *ProrationService {
	return &ProrationService{DB: db, Logger: logger}
}

type ProrationCalculateInput struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	ChangeDate     time.Time
	OldPriceCents  int64
	NewPriceCents  int64
	QuantityChange int64
}

// Calculate exposes the pure proration math with no persistence, for
// callers previewing a mid-cycle change before committing to it.
func (s *ProrationService) Calculate(in ProrationCalculateInput) calculator.ProrationResult {
	return calculator.Proration(calculator.ProrationInput{
		PeriodStart:    in.PeriodStart,
		PeriodEnd:      in.PeriodEnd,
		ChangeDate:     in.ChangeDate,
		OldPriceCents:  in.OldPriceCents,
		NewPriceCents:  in.NewPriceCents,
		QuantityChange: in.QuantityChange,
	})
}

// Apply computes the proration for a mid-cycle price change on an existing
// subscription as of now, persists the resulting proration_event audit row,
// and updates the subscription's price_cents to the new value.
// quantityChange is passed to the calculator, which does not use it: the
// amounts depend on the old and new price only.
func (s *ProrationService) Apply(ctx context.Context, appID string, subscriptionID uuid.UUID, newPriceCents, quantityChange int64) (calculator.ProrationResult, error) {
	sub, err := s.subscriptions.GetByID(ctx, s.DB, appID, subscriptionID)
	if err == store.ErrNotFound {
		return calculator.ProrationResult{}, apperr.NotFound("subscription not found")
	}
	if err != nil {
		return calculator.ProrationResult{}, apperr.Internal(err, "failed to load subscription")
	}

	now := time.Now().UTC()
	result := calculator.Proration(calculator.ProrationInput{
		PeriodStart:    sub.CurrentPeriodStart,
		PeriodEnd:      sub.CurrentPeriodEnd,
		ChangeDate:     now,
		OldPriceCents:  sub.PriceCents,
		NewPriceCents:  newPriceCents,
		QuantityChange: quantityChange,
	})

	err = store.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		sub.PriceCents = newPriceCents
		if err := s.subscriptions.Update(ctx, tx, sub); err != nil {
			return err
		}
		return s.audit.InsertProrationEvent(ctx, tx, &store.ProrationEvent{
			AppID:          appID,
			SubscriptionID: subscriptionID,
			NetCents:       result.NetCents,
			Metadata: map[string]any{
				"kind":           "proration_charge",
				"factor":         result.Factor,
				"credit_cents":   result.CreditCents,
				"charge_cents":   result.ChargeCents,
				"days_total":     result.DaysTotal,
				"days_remaining": result.DaysRemaining,
			},
		})
	})
	if err != nil {
		return calculator.ProrationResult{}, apperr.Internal(err, "failed to commit proration apply")
	}
	return result, nil
}

// CancellationRefund computes the unused-time credit for a subscription
// canceled mid-cycle (new_price=0) and records it as a proration_credit
// audit row. No store tracks which charge funded a given billing period, so
// issuing the actual PSP-side refund for this credit is left to the same
// offline reconciliation job that resolves pending settlement mismatches;
// this endpoint records the liability.
func (s *ProrationService) CancellationRefund(ctx context.Context, appID string, subscriptionID uuid.UUID) (calculator.ProrationResult, error) {
	sub, err := s.subscriptions.GetByID(ctx, s.DB, appID, subscriptionID)
	if err == store.ErrNotFound {
		return calculator.ProrationResult{}, apperr.NotFound("subscription not found")
	}
	if err != nil {
		return calculator.ProrationResult{}, apperr.Internal(err, "failed to load subscription")
	}

	now := time.Now().UTC()
	result := calculator.Proration(calculator.ProrationInput{
		PeriodStart:   sub.CurrentPeriodStart,
		PeriodEnd:     sub.CurrentPeriodEnd,
		ChangeDate:    now,
		OldPriceCents: sub.PriceCents,
		NewPriceCents: 0,
	})

	if err := s.audit.InsertProrationEvent(ctx, s.DB, &store.ProrationEvent{
		AppID:          appID,
		SubscriptionID: subscriptionID,
		NetCents:       -result.CreditCents,
		Metadata: map[string]any{
			"kind":           "proration_credit",
			"factor":         result.Factor,
			"credit_cents":   result.CreditCents,
			"days_total":     result.DaysTotal,
			"days_remaining": result.DaysRemaining,
		},
	}); err != nil {
		return calculator.ProrationResult{}, apperr.Internal(err, "failed to persist cancellation credit")
	}
	return result, nil
}
