package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/config"
	"github.com/ledgerline/billing-core/internal/store"
)

// StateHandlers serves the GET /state composed snapshot: customer,
// subscription, payment methods, access flag, and plan entitlements in one
// response.
type StateHandlers struct {
	pool          *pgxpool.Pool
	registry      *Registry
	customers     store.CustomerStore
	subscriptions store.SubscriptionStore
	methods       store.PaymentMethodStore
	cfg           *config.Config
}

func NewStateHandlers(pool *pgxpool.Pool, registry *Registry, cfg *config.Config) *StateHandlers {
	return &StateHandlers{pool: pool, registry: registry, cfg: cfg}
}

func (h *StateHandlers) Get(c *gin.Context) {
	externalID := c.Query("external_customer_id")
	if externalID == "" {
		respondError(c, apperr.Validation(
			[]apperr.FieldError{{Field: "external_customer_id", Message: "is required"}},
			"external_customer_id is required"))
		return
	}
	appID := AppID(c)

	customer, err := h.customers.GetByExternalID(c.Request.Context(), h.pool, appID, externalID)
	if err == store.ErrNotFound {
		respondError(c, apperr.NotFound("customer not found"))
		return
	}
	if err != nil {
		respondError(c, apperr.Internal(err, "failed to load customer"))
		return
	}

	subs, err := h.subscriptions.ListByCustomer(c.Request.Context(), h.pool, appID, customer.ID)
	if err != nil {
		respondError(c, apperr.Internal(err, "failed to load subscriptions"))
		return
	}
	methods, err := h.methods.ListByCustomer(c.Request.Context(), h.pool, appID, customer.ID)
	if err != nil {
		respondError(c, apperr.Internal(err, "failed to load payment methods"))
		return
	}

	access := "locked"
	var activePlanID string
	for _, sub := range subs {
		if sub.Status == store.SubActive || sub.Status == store.SubPastDue {
			access = "full"
			activePlanID = sub.PlanID
			break
		}
	}
	if customer.Status == store.CustomerDelinquent {
		access = "locked"
	}

	var entitlements []string
	if creds, ok := h.cfg.AppCredentials(appID); ok && activePlanID != "" {
		entitlements = creds.EntitlementsByPlan[activePlanID]
	}

	c.JSON(http.StatusOK, gin.H{
		"customer":      customer,
		"subscription":  firstOrNil(subs),
		"payment":       methods,
		"access":        access,
		"entitlements":  entitlements,
	})
}

func firstOrNil(subs []*store.Subscription) *store.Subscription {
	if len(subs) == 0 {
		return nil
	}
	return subs[0]
}
