package psp

import (
	"context"

	stripe "github.com/stripe/stripe-go/v82"
)

// SubscriptionResult carries the PSP fields the subscription service needs
// to seed or refresh the local row.
type SubscriptionResult struct {
	PSPSubscriptionID  string
	Status             string
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
}

// CreateSubscriptionParams mirrors the subset of fields this service accepts
// at creation.
type CreateSubscriptionParams struct {
	PSPCustomerID     string
	PriceID           string
	PaymentMethodID   string
	Quantity          int64
	CancelAtPeriodEnd bool
}

// CreateSubscription fails fast: no local row may persist for a failed
// creation, so the caller must not commit anything before this returns
// successfully.
func (a *Adapter) CreateSubscription(ctx context.Context, p CreateSubscriptionParams) (*SubscriptionResult, error) {
	if err := a.admit(ctx); err != nil {
		return nil, err
	}
	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(p.PSPCustomerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(p.Quantity)},
		},
		DefaultPaymentMethod: stripe.String(p.PaymentMethodID),
		CancelAtPeriodEnd:    stripe.Bool(p.CancelAtPeriodEnd),
	}
	sub, err := a.client.V1Subscriptions.Create(ctx, params)
	if err != nil {
		return nil, wrapErr(err)
	}
	return mapSubscription(sub), nil
}

// UpdateCancelAtPeriodEnd is the best-effort PSP update for the
// at_period_end=true cancel path: local truth (cancel_at_period_end) is set
// first, this call follows and is allowed to fail without failing the
// request.
func (a *Adapter) UpdateCancelAtPeriodEnd(ctx context.Context, pspSubscriptionID string, cancel bool) error {
	if err := a.admit(ctx); err != nil {
		return err
	}
	_, err := a.client.V1Subscriptions.Update(ctx, pspSubscriptionID, &stripe.SubscriptionUpdateParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	})
	return wrapErr(err)
}

// CancelNow is the fail-fast immediate cancel path (at_period_end=false)
// and the cancel-old step of change-billing-cycle.
func (a *Adapter) CancelNow(ctx context.Context, pspSubscriptionID string) error {
	if err := a.admit(ctx); err != nil {
		return err
	}
	_, err := a.client.V1Subscriptions.Cancel(ctx, pspSubscriptionID, &stripe.SubscriptionCancelParams{})
	return wrapErr(err)
}

func mapSubscription(sub *stripe.Subscription) *SubscriptionResult {
	res := &SubscriptionResult{
		PSPSubscriptionID: sub.ID,
		Status:            string(sub.Status),
	}
	if len(sub.Items.Data) > 0 && sub.Items.Data[0] != nil {
		res.CurrentPeriodStart = sub.Items.Data[0].CurrentPeriodStart
		res.CurrentPeriodEnd = sub.Items.Data[0].CurrentPeriodEnd
	}
	return res
}
