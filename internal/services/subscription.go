package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/psp"
	"github.com/ledgerline/billing-core/internal/store"
)

// SubscriptionService owns the subscription lifecycle state machine:
// create, update, cancel-now vs cancel-at-period-end, and the
// create-new/cancel-old billing-cycle swap.
type SubscriptionService struct {
	DB            store.DB
	PSP           psp.Client
	Logger        *zap.Logger
	customers     store.CustomerStore
	subscriptions store.SubscriptionStore
}

func NewSubscriptionService(db store.DB, pspClient psp.Client, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{DB: db, PSP: pspClient, Logger: logger}
}

type CreateSubscriptionInput struct {
	AppID             string
	CustomerID        uuid.UUID
	PlanID            string
	PlanName          string
	PriceCents        int64
	IntervalUnit      store.IntervalUnit
	IntervalCount     int
	PaymentMethodID   string // PSP payment method token; falls back to customer default
	Quantity          int64
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// Create fails fast if any PSP step fails — no local row is persisted for a
// failed creation — and requires a default or supplied payment method.
func (s *SubscriptionService) Create(ctx context.Context, in CreateSubscriptionInput) (*store.Subscription, error) {
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

	pmToken := in.PaymentMethodID
	if pmToken == "" {
		if customer.DefaultPaymentMethodToken == nil {
			return nil, apperr.Conflict("customer has no default payment method")
		}
		pmToken = *customer.DefaultPaymentMethodToken
	}

	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}

	result, err := s.PSP.CreateSubscription(ctx, psp.CreateSubscriptionParams{
		PSPCustomerID:   *customer.PSPCustomerID,
		PriceID:         in.PlanID,
		PaymentMethodID: pmToken,
		Quantity:        quantity,
	})
	if err != nil {
		return nil, err
	}

	pmType := "card"
	if customer.DefaultPaymentMethodType != nil {
		pmType = *customer.DefaultPaymentMethodType
	}

	sub := &store.Subscription{
		AppID:              in.AppID,
		CustomerID:         in.CustomerID,
		PSPSubscriptionID:  &result.PSPSubscriptionID,
		PlanID:             in.PlanID,
		PlanName:           in.PlanName,
		PriceCents:         in.PriceCents,
		Status:             store.SubActive,
		IntervalUnit:       in.IntervalUnit,
		IntervalCount:      in.IntervalCount,
		CurrentPeriodStart: in.CurrentPeriodStart,
		CurrentPeriodEnd:   in.CurrentPeriodEnd,
		PaymentMethodToken: pmToken,
		PaymentMethodType:  pmType,
		Metadata:           map[string]any{},
	}
	if err := s.subscriptions.Create(ctx, s.DB, sub); err != nil {
		return nil, apperr.Internal(err, "failed to persist subscription")
	}
	return sub, nil
}

func (s *SubscriptionService) GetByID(ctx context.Context, appID string, id uuid.UUID) (*store.Subscription, error) {
	sub, err := s.subscriptions.GetByID(ctx, s.DB, appID, id)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("subscription not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load subscription")
	}
	return sub, nil
}

func (s *SubscriptionService) ListByCustomer(ctx context.Context, appID string, customerID uuid.UUID) ([]*store.Subscription, error) {
	out, err := s.subscriptions.ListByCustomer(ctx, s.DB, appID, customerID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list subscriptions")
	}
	return out, nil
}

// updatableFields is the Update whitelist. Anything else, interval fields
// and app_id above all, is rejected by name.
var updatableFields = map[string]bool{
	"plan_id":     true,
	"plan_name":   true,
	"price_cents": true,
	"metadata":    true,
}

// UpdateSubscriptionInput carries the raw field set the caller supplied, so
// Update can reject anything outside updatableFields by name.
type UpdateSubscriptionInput struct {
	Fields    map[string]any
	PlanID    *string
	PlanName  *string
	PriceCents *int64
	Metadata  map[string]any
}

func (s *SubscriptionService) Update(ctx context.Context, appID string, id uuid.UUID, in UpdateSubscriptionInput) (*store.Subscription, error) {
	var unsupported []string
	for field := range in.Fields {
		if !updatableFields[field] {
			unsupported = append(unsupported, field)
		}
	}
	if len(unsupported) > 0 {
		return nil, apperr.Validation(nil, "unsupported field(s): %v", unsupported)
	}

	sub, err := s.GetByID(ctx, appID, id)
	if err != nil {
		return nil, err
	}
	if in.PlanID != nil {
		sub.PlanID = *in.PlanID
	}
	if in.PlanName != nil {
		sub.PlanName = *in.PlanName
	}
	if in.PriceCents != nil {
		sub.PriceCents = *in.PriceCents
	}
	if in.Metadata != nil {
		sub.Metadata = in.Metadata
	}
	if err := s.subscriptions.Update(ctx, s.DB, sub); err != nil {
		return nil, apperr.Internal(err, "failed to update subscription")
	}
	return sub, nil
}

// Cancel supports both cancel modes. at_period_end=true flips the local
// flag and best-effort syncs the PSP; the subscription stays active until
// the PSP's own webhook marks it canceled. at_period_end=false cancels in
// the PSP fail-fast and only then marks the local row.
func (s *SubscriptionService) Cancel(ctx context.Context, appID string, id uuid.UUID, atPeriodEnd bool) (*store.Subscription, error) {
	sub, err := s.GetByID(ctx, appID, id)
	if err != nil {
		return nil, err
	}
	if sub.PSPSubscriptionID == nil {
		return nil, apperr.Conflict("subscription has no psp_subscription_id")
	}

	if atPeriodEnd {
		sub.CancelAtPeriodEnd = true
		if err := s.subscriptions.Update(ctx, s.DB, sub); err != nil {
			return nil, apperr.Internal(err, "failed to persist cancel_at_period_end")
		}
		if err := s.PSP.UpdateCancelAtPeriodEnd(ctx, *sub.PSPSubscriptionID, true); err != nil {
			s.Logger.Warn("best-effort psp cancel_at_period_end update failed",
				zap.String("app_id", appID), zap.String("subscription_id", id.String()), zap.Error(err))
		}
		return sub, nil
	}

	if err := s.PSP.CancelNow(ctx, *sub.PSPSubscriptionID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.subscriptions.MarkCanceled(ctx, s.DB, appID, id, now); err != nil {
		return nil, apperr.Internal(err, "failed to mark subscription canceled")
	}
	sub.Status = store.SubCanceled
	sub.CanceledAt, sub.EndedAt = &now, &now
	return sub, nil
}

// ChangeCycleInput mirrors the change-billing-cycle request.
type ChangeCycleInput struct {
	CustomerID        uuid.UUID
	FromSubscriptionID uuid.UUID
	NewPlanID         string
	NewPlanName       string
	PriceCents        int64
	IntervalUnit      store.IntervalUnit
	IntervalCount     int
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	Fields            map[string]any
}

// ChangeCycle swaps billing intervals as create-new + cancel-old, since the
// processor does not permit interval mutation on a live subscription. If
// cancel-old fails, nothing is persisted locally and a payment-processor
// error propagates.
func (s *SubscriptionService) ChangeCycle(ctx context.Context, appID string, in ChangeCycleInput) (*store.Subscription, error) {
	var unsupported []string
	for field := range in.Fields {
		if !changeCycleFields[field] {
			unsupported = append(unsupported, field)
		}
	}
	if len(unsupported) > 0 {
		return nil, apperr.Validation(nil, "unsupported field(s): %v", unsupported)
	}

	customer, err := s.customers.GetByID(ctx, s.DB, appID, in.CustomerID)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("customer not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load customer")
	}
	if customer.PSPCustomerID == nil {
		return nil, apperr.Conflict("customer has no psp_customer_id yet")
	}

	oldSub, err := s.GetByID(ctx, appID, in.FromSubscriptionID)
	if err != nil {
		return nil, err
	}
	if oldSub.CustomerID != in.CustomerID {
		return nil, apperr.NotFound("subscription not found")
	}
	if oldSub.PSPSubscriptionID == nil {
		return nil, apperr.Conflict("subscription has no psp_subscription_id")
	}

	pmToken := oldSub.PaymentMethodToken

	createResult, err := s.PSP.CreateSubscription(ctx, psp.CreateSubscriptionParams{
		PSPCustomerID:   *customer.PSPCustomerID,
		PriceID:         in.NewPlanID,
		PaymentMethodID: pmToken,
		Quantity:        1,
	})
	if err != nil {
		return nil, err
	}

	// Cancel-old must also fail fast: a failure here aborts the entire
	// operation before any local row is touched. The new PSP-side
	// subscription created above may be orphaned until offline
	// reconciliation catches it.
	if err := s.PSP.CancelNow(ctx, *oldSub.PSPSubscriptionID); err != nil {
		return nil, err
	}

	newSub := &store.Subscription{
		AppID:              appID,
		CustomerID:         in.CustomerID,
		PSPSubscriptionID:  &createResult.PSPSubscriptionID,
		PlanID:             in.NewPlanID,
		PlanName:           in.NewPlanName,
		PriceCents:         in.PriceCents,
		Status:             store.SubActive,
		IntervalUnit:       in.IntervalUnit,
		IntervalCount:      in.IntervalCount,
		CurrentPeriodStart: in.CurrentPeriodStart,
		CurrentPeriodEnd:   in.CurrentPeriodEnd,
		PaymentMethodToken: pmToken,
		PaymentMethodType:  oldSub.PaymentMethodType,
		Metadata:           map[string]any{},
	}

	now := time.Now().UTC()
	err = store.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		if err := s.subscriptions.MarkCanceled(ctx, tx, appID, oldSub.ID, now); err != nil {
			return err
		}
		return s.subscriptions.Create(ctx, tx, newSub)
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to commit billing cycle change")
	}
	return newSub, nil
}

// changeCycleFields is the change-cycle whitelist: requests carrying any
// other mutation field are rejected by name.
var changeCycleFields = map[string]bool{
	"customer_id":          true,
	"from_subscription_id": true,
	"new_plan_id":          true,
	"new_plan_name":        true,
	"price_cents":          true,
	"interval_unit":        true,
	"interval_count":       true,
}
