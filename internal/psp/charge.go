package psp

import (
	"context"

	stripe "github.com/stripe/stripe-go/v82"
)

// ChargeResult carries the PSP's charge id for the local pending row to be
// updated with.
type ChargeResult struct {
	PSPChargeID string
}

// CreateCharge is only ever called after the local pending charge row is
// committed — a crash between the two leaves a detectable pending row
// rather than a silent loss.
func (a *Adapter) CreateCharge(ctx context.Context, pspCustomerID, paymentMethodID string, amountCents int64, currency, description string) (*ChargeResult, error) {
	if err := a.admit(ctx); err != nil {
		return nil, err
	}
	params := &stripe.ChargeCreateParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Customer:    stripe.String(pspCustomerID),
		Description: stripe.String(description),
	}
	if err := params.SetSource(paymentMethodID); err != nil {
		return nil, wrapErr(err)
	}
	ch, err := a.client.V1Charges.Create(ctx, params)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &ChargeResult{PSPChargeID: ch.ID}, nil
}

// RefundResult carries the PSP's refund id for the local pending row.
type RefundResult struct {
	PSPRefundID string
}

// CreateRefund mirrors CreateCharge's local-first contract for refunds.
func (a *Adapter) CreateRefund(ctx context.Context, pspChargeID string, amountCents int64) (*RefundResult, error) {
	if err := a.admit(ctx); err != nil {
		return nil, err
	}
	params := &stripe.RefundCreateParams{
		Charge: stripe.String(pspChargeID),
		Amount: stripe.Int64(amountCents),
	}
	rf, err := a.client.V1Refunds.Create(ctx, params)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &RefundResult{PSPRefundID: rf.ID}, nil
}
