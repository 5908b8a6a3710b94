package httpapi

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/config"
	"github.com/ledgerline/billing-core/internal/psp"
	"github.com/ledgerline/billing-core/internal/services"
)

// TenantServices groups the services that depend on one app's PSP
// credentials. One instance is built per configured app_id.
type TenantServices struct {
	Customers      *services.CustomerService
	PaymentMethods *services.PaymentMethodService
	Subscriptions  *services.SubscriptionService
	Charges        *services.ChargeService
	Refunds        *services.RefundService
}

// Registry resolves the right TenantServices for a request's app_id, plus
// holds the tenant-agnostic services (webhook dispatch, proration) that have
// no PSP dependency of their own.
type Registry struct {
	tenants   map[string]*TenantServices
	Webhooks  *services.WebhookService
	Proration *services.ProrationService
}

// NewRegistry builds one TenantServices per app_id listed in BILLING_APPS
// (config.Config.KnownAppIDs), plus the shared tenant-agnostic services.
func NewRegistry(pool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) *Registry {
	reg := &Registry{
		tenants:   make(map[string]*TenantServices),
		Webhooks:  services.NewWebhookService(pool, logger),
		Proration: services.NewProrationService(pool, logger),
	}

	for _, appID := range cfg.KnownAppIDs() {
		creds, _ := cfg.AppCredentials(appID)
		adapter := psp.New(creds.PSPSecretKey, logger, cfg.PSPMaxConcurrency)
		reg.tenants[appID] = &TenantServices{
			Customers:      services.NewCustomerService(pool, adapter, logger),
			PaymentMethods: services.NewPaymentMethodService(pool, adapter, logger),
			Subscriptions:  services.NewSubscriptionService(pool, adapter, logger),
			Charges:        services.NewChargeService(pool, adapter, logger),
			Refunds:        services.NewRefundService(pool, adapter, logger),
		}
	}
	return reg
}

// Resolve returns the TenantServices for appID, or a validation error if
// appID is not listed in BILLING_APPS — a request can only reach this
// point with a syntactically valid app_id (TenantResolver requires one),
// but an app_id with no backing configuration cannot be served.
func (r *Registry) Resolve(appID string) (*TenantServices, error) {
	t, ok := r.tenants[appID]
	if !ok {
		return nil, apperr.Validation(
			[]apperr.FieldError{{Field: "app_id", Message: "no PSP credentials configured for this app_id"}},
			"unknown app_id")
	}
	return t, nil
}
