package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/store"
)

// WebhookService dispatches a verified webhook event to the handler for its
// event type. Customer and subscription events update the local row found
// by PSP id and never create one; dispute events upsert the dispute row once
// the charge they name is found by its PSP id; payment_method.detached
// soft-deletes the matching method. Charge and refund events, the other
// payment-method events, and events with no PSP id or no matching local row
// are only logged, and the envelope is left processed with no entity
// mutation.
type WebhookService struct {
	DB            store.DB
	Logger        *zap.Logger
	customers     store.CustomerStore
	methods       store.PaymentMethodStore
	subscriptions store.SubscriptionStore
	charges       store.ChargeStore
	refunds       store.RefundStore
	disputes      store.DisputeStore
}

func NewWebhookService(db store.DB, logger *zap.Logger) *WebhookService {
	return &WebhookService{DB: db, Logger: logger}
}

// Event is the minimal shape a webhook payload
// ({id, type, data: {object: {...}}}) is parsed into before dispatch.
type Event struct {
	AppID string
	Type  string
	// Object is the flattened data.object of the webhook payload.
	Object map[string]any
}

// Dispatch routes a verified event to its per-type handler.
func (s *WebhookService) Dispatch(ctx context.Context, ev Event) error {
	switch ev.Type {
	case "customer.created", "customer.updated":
		return s.handleCustomer(ctx, ev)
	case "subscription.created", "subscription.updated", "subscription.deleted":
		return s.handleSubscription(ctx, ev)
	case "charge.succeeded", "charge.failed":
		return s.handleCharge(ctx, ev)
	case "refund.succeeded", "refund.failed", "refund.updated":
		return s.handleRefund(ctx, ev)
	case "charge.dispute.created", "charge.dispute.updated", "charge.dispute.closed":
		return s.handleDispute(ctx, ev)
	case "payment_method.attached", "payment_method.updated", "payment_method.detached":
		return s.handlePaymentMethod(ctx, ev)
	default:
		s.Logger.Info("unhandled webhook event type, envelope recorded with no mutation",
			zap.String("app_id", ev.AppID), zap.String("event_type", ev.Type))
		return nil
	}
}

func stringField(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func int64Field(obj map[string]any, key string) (int64, bool) {
	v, ok := obj[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func (s *WebhookService) handleCustomer(ctx context.Context, ev Event) error {
	pspID, ok := stringField(ev.Object, "id")
	if !ok {
		s.Logger.Info("customer webhook missing id, nothing to upsert", zap.String("app_id", ev.AppID))
		return nil
	}
	existing, err := s.customers.GetByPSPID(ctx, s.DB, ev.AppID, pspID)
	if err != nil && err != store.ErrNotFound {
		return fmt.Errorf("webhook customer lookup: %w", err)
	}
	if err == store.ErrNotFound {
		s.Logger.Info("customer webhook references unknown customer, leaving unmutated",
			zap.String("app_id", ev.AppID), zap.String("psp_customer_id", pspID))
		return nil
	}
	if email, ok := stringField(ev.Object, "email"); ok {
		existing.Email = email
	}
	if name, ok := stringField(ev.Object, "name"); ok {
		existing.Name = name
	}
	if err := s.customers.Update(ctx, s.DB, existing); err != nil {
		return fmt.Errorf("webhook customer update: %w", err)
	}
	return nil
}

func (s *WebhookService) handleSubscription(ctx context.Context, ev Event) error {
	pspID, ok := stringField(ev.Object, "id")
	if !ok {
		s.Logger.Info("subscription webhook missing id, nothing to upsert", zap.String("app_id", ev.AppID))
		return nil
	}
	sub, err := s.subscriptions.GetByPSPID(ctx, s.DB, ev.AppID, pspID)
	if err == store.ErrNotFound {
		s.Logger.Info("subscription webhook references unknown subscription, leaving unmutated",
			zap.String("app_id", ev.AppID), zap.String("psp_subscription_id", pspID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("webhook subscription lookup: %w", err)
	}
	if status, ok := stringField(ev.Object, "status"); ok {
		sub.Status = store.SubscriptionStatus(status)
	}
	if err := s.subscriptions.Update(ctx, s.DB, sub); err != nil {
		return fmt.Errorf("webhook subscription update: %w", err)
	}
	return nil
}

func (s *WebhookService) handleCharge(ctx context.Context, ev Event) error {
	pspID, ok := stringField(ev.Object, "id")
	if !ok {
		s.Logger.Info("charge webhook missing id, nothing to upsert", zap.String("app_id", ev.AppID))
		return nil
	}
	// Charges are created local-first by the charge service. This handler
	// only logs the event: it neither looks up nor updates the local charge
	// row, and never creates one.
	s.Logger.Info("charge webhook received", zap.String("app_id", ev.AppID), zap.String("psp_charge_id", pspID))
	return nil
}

func (s *WebhookService) handleRefund(ctx context.Context, ev Event) error {
	pspID, ok := stringField(ev.Object, "id")
	if !ok {
		s.Logger.Info("refund webhook missing id, nothing to upsert", zap.String("app_id", ev.AppID))
		return nil
	}
	s.Logger.Info("refund webhook received", zap.String("app_id", ev.AppID), zap.String("psp_refund_id", pspID))
	return nil
}

func (s *WebhookService) handleDispute(ctx context.Context, ev Event) error {
	pspDisputeID, ok := stringField(ev.Object, "id")
	if !ok {
		s.Logger.Info("dispute webhook missing id, nothing to upsert", zap.String("app_id", ev.AppID))
		return nil
	}
	pspChargeID, ok := stringField(ev.Object, "charge")
	if !ok {
		s.Logger.Info("dispute webhook missing linking charge id, leaving unmutated",
			zap.String("app_id", ev.AppID), zap.String("psp_dispute_id", pspDisputeID))
		return nil
	}

	charge, err := s.findChargeByPSPID(ctx, ev.AppID, pspChargeID)
	if err != nil {
		return err
	}
	if charge == nil {
		s.Logger.Info("dispute webhook references unknown charge, leaving unmutated",
			zap.String("app_id", ev.AppID), zap.String("psp_charge_id", pspChargeID))
		return nil
	}

	status, _ := stringField(ev.Object, "status")
	if status == "" {
		status = "needs_response"
	}
	amount, _ := int64Field(ev.Object, "amount")
	reason, hasReason := stringField(ev.Object, "reason")

	d := &store.Dispute{
		AppID:        ev.AppID,
		CustomerID:   charge.CustomerID,
		ChargeID:     charge.ID,
		PSPDisputeID: pspDisputeID,
		Status:       status,
		AmountCents:  amount,
		Currency:     charge.Currency,
		Metadata:     map[string]any{},
	}
	if hasReason {
		d.Reason = &reason
	}
	if err := s.disputes.Upsert(ctx, s.DB, d); err != nil {
		return fmt.Errorf("webhook dispute upsert: %w", err)
	}
	return nil
}

// findChargeByPSPID resolves the charge a dispute event concerns; an
// unmatched lookup returns (nil, nil) rather than an error so the caller
// can log and leave the envelope processed with no mutation.
func (s *WebhookService) findChargeByPSPID(ctx context.Context, appID, pspChargeID string) (*store.Charge, error) {
	c, err := s.charges.GetByPSPID(ctx, s.DB, appID, pspChargeID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("charge lookup by psp id: %w", err)
	}
	return c, nil
}

func (s *WebhookService) handlePaymentMethod(ctx context.Context, ev Event) error {
	pspID, ok := stringField(ev.Object, "id")
	if !ok {
		s.Logger.Info("payment method webhook missing id, nothing to upsert", zap.String("app_id", ev.AppID))
		return nil
	}
	if ev.Type == "payment_method.detached" {
		existing, err := s.methods.GetByPSPID(ctx, s.DB, ev.AppID, pspID)
		if err == store.ErrNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("webhook payment method lookup: %w", err)
		}
		if err := s.methods.SoftDelete(ctx, s.DB, ev.AppID, existing.ID); err != nil {
			return fmt.Errorf("webhook payment method soft delete: %w", err)
		}
		return nil
	}
	s.Logger.Info("payment method webhook received, no local mutation without a customer attach flow",
		zap.String("app_id", ev.AppID), zap.String("psp_payment_method_id", pspID))
	return nil
}
