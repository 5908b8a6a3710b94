// Package psp is the thin, typed wrapper around the external payment
// processor's SDK. It never leaks raw stripe-go errors to callers — every
// failure is translated into an apperr PaymentProcessor error carrying the
// PSP's own code and message.
package psp

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/ledgerline/billing-core/internal/apperr"
)

// Client is the processor-operation surface services program against.
// Adapter is the production implementation; mocks/ holds the generated mock
// service tests use.
type Client interface {
	CreateCustomer(ctx context.Context, email, name string) (*CustomerResult, error)
	AttachPaymentMethod(ctx context.Context, pspCustomerID, token string) (*PaymentMethodResult, error)
	DetachPaymentMethod(ctx context.Context, token string) error
	CreateSubscription(ctx context.Context, p CreateSubscriptionParams) (*SubscriptionResult, error)
	UpdateCancelAtPeriodEnd(ctx context.Context, pspSubscriptionID string, cancel bool) error
	CancelNow(ctx context.Context, pspSubscriptionID string) error
	CreateCharge(ctx context.Context, pspCustomerID, paymentMethodID string, amountCents int64, currency, description string) (*ChargeResult, error)
	CreateRefund(ctx context.Context, pspChargeID string, amountCents int64) (*RefundResult, error)
}

// Adapter wraps a configured stripe.Client for one tenant app. One Adapter
// is built per app_id from that app's PSP credentials
// (config.AppCredentials).
type Adapter struct {
	client  *stripe.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ Client = (*Adapter)(nil)

// New builds an Adapter for one app's PSP credentials. maxConcurrency sizes
// a token-bucket rate limit: up to maxConcurrency calls per second, in bursts
// of at most maxConcurrency. A call over that rate gets a backpressure error
// at once instead of waiting. Calls already in flight are not counted, so
// the number of concurrent PSP calls is not bounded.
func New(secretKey string, logger *zap.Logger, maxConcurrency int) *Adapter {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	return &Adapter{
		client:  stripe.NewClient(secretKey, nil),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(maxConcurrency), maxConcurrency),
	}
}

// admit takes a token from the rate limiter for an outbound PSP call,
// returning a backpressure error immediately when none is left rather than
// waiting for one.
func (a *Adapter) admit(ctx context.Context) error {
	if a.limiter.Allow() {
		return nil
	}
	return apperr.Backpressure("payment processor concurrency limit reached")
}

// wrapErr converts a stripe-go error into the service's PaymentProcessor
// error kind without leaking SDK-internal detail.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if asStripeError(err, &stripeErr) {
		return apperr.PaymentProcessor(string(stripeErr.Code), stripeErr.Msg, err)
	}
	return apperr.PaymentProcessor("psp_error", err.Error(), err)
}

func asStripeError(err error, target **stripe.Error) bool {
	se, ok := err.(*stripe.Error)
	if !ok {
		return false
	}
	*target = se
	return true
}

