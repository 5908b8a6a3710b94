package psp

import (
	"context"

	stripe "github.com/stripe/stripe-go/v82"
)

// CustomerResult is the masked subset of PSP customer fields the service
// persists locally.
type CustomerResult struct {
	PSPCustomerID string
}

// CreateCustomer creates a tokenized customer record in the PSP. Customers
// are created local-first — this is only called once the service already
// holds (or is about to hold) a local pending row.
func (a *Adapter) CreateCustomer(ctx context.Context, email, name string) (*CustomerResult, error) {
	if err := a.admit(ctx); err != nil {
		return nil, err
	}
	params := &stripe.CustomerCreateParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	cust, err := a.client.V1Customers.Create(ctx, params)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &CustomerResult{PSPCustomerID: cust.ID}, nil
}

// PaymentMethodResult carries only the masked fields the service is allowed
// to store.
type PaymentMethodResult struct {
	PSPPaymentMethodID string
	Type                string
	Brand               string
	Last4               string
	ExpMonth            int64
	ExpYear             int64
	BankName            string
	BankLast4           string
}

// AttachPaymentMethod attaches an already-tokenized payment method and
// returns the masked detail carried in the attach response. There is no
// separate fetch, so the only failure it returns is the attach's own.
func (a *Adapter) AttachPaymentMethod(ctx context.Context, pspCustomerID, token string) (*PaymentMethodResult, error) {
	if err := a.admit(ctx); err != nil {
		return nil, err
	}
	pm, err := a.client.V1PaymentMethods.Attach(ctx, token, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(pspCustomerID),
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return mapPaymentMethod(pm), nil
}

// DetachPaymentMethod is best-effort: the caller logs failures at warn-level
// and lets local truth prevail.
func (a *Adapter) DetachPaymentMethod(ctx context.Context, token string) error {
	if err := a.admit(ctx); err != nil {
		return err
	}
	_, err := a.client.V1PaymentMethods.Detach(ctx, token, &stripe.PaymentMethodDetachParams{})
	return wrapErr(err)
}

func mapPaymentMethod(pm *stripe.PaymentMethod) *PaymentMethodResult {
	res := &PaymentMethodResult{
		PSPPaymentMethodID: pm.ID,
		Type:               string(pm.Type),
	}
	if pm.Card != nil {
		res.Brand = string(pm.Card.Brand)
		res.Last4 = pm.Card.Last4
		res.ExpMonth = pm.Card.ExpMonth
		res.ExpYear = pm.Card.ExpYear
	}
	if pm.USBankAccount != nil {
		res.BankName = pm.USBankAccount.BankName
		res.BankLast4 = pm.USBankAccount.Last4
	}
	return res
}
