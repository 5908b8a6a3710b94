package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/httpapi/requests"
	"github.com/ledgerline/billing-core/internal/services"
	"github.com/ledgerline/billing-core/internal/store"
)

type SubscriptionHandlers struct {
	registry *Registry
}

func NewSubscriptionHandlers(registry *Registry) *SubscriptionHandlers {
	return &SubscriptionHandlers{registry: registry}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func (h *SubscriptionHandlers) Create(c *gin.Context) {
	var req requests.CreateSubscription
	if !BindJSON(c, &req) {
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "customer_id", Message: "must be a uuid"}}, "invalid customer_id"))
		return
	}
	periodStart, err := parseTime(req.CurrentPeriodStart)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "current_period_start", Message: "must be RFC3339"}}, "invalid current_period_start"))
		return
	}
	periodEnd, err := parseTime(req.CurrentPeriodEnd)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "current_period_end", Message: "must be RFC3339"}}, "invalid current_period_end"))
		return
	}

	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sub, err := tenant.Subscriptions.Create(c.Request.Context(), services.CreateSubscriptionInput{
		AppID:              AppID(c),
		CustomerID:         customerID,
		PlanID:             req.PlanID,
		PlanName:           sanitizeText(req.PlanName),
		PriceCents:         req.PriceCents,
		IntervalUnit:       store.IntervalUnit(req.IntervalUnit),
		IntervalCount:      req.IntervalCount,
		PaymentMethodID:    req.PaymentMethodID,
		Quantity:           req.Quantity,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *SubscriptionHandlers) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "must be a uuid"}}, "invalid id"))
		return
	}
	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sub, err := tenant.Subscriptions.GetByID(c.Request.Context(), AppID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandlers) List(c *gin.Context) {
	customerID, err := uuid.Parse(c.Query("customer_id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "customer_id", Message: "must be a uuid"}}, "invalid customer_id"))
		return
	}
	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	subs, err := tenant.Subscriptions.ListByCustomer(c.Request.Context(), AppID(c), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": subs})
}

func (h *SubscriptionHandlers) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "must be a uuid"}}, "invalid id"))
		return
	}

	raw, err := rawJSONFields(c)
	if err != nil {
		respondError(c, err)
		return
	}
	delete(raw, "app_id")
	var req requests.UpdateSubscription
	if !BindJSON(c, &req) {
		return
	}

	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sub, err := tenant.Subscriptions.Update(c.Request.Context(), AppID(c), id, services.UpdateSubscriptionInput{
		Fields:     raw,
		PlanID:     req.PlanID,
		PlanName:   req.PlanName,
		PriceCents: req.PriceCents,
		Metadata:   req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandlers) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "must be a uuid"}}, "invalid id"))
		return
	}
	var req requests.CancelSubscription
	if !BindJSON(c, &req) {
		return
	}
	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sub, err := tenant.Subscriptions.Cancel(c.Request.Context(), AppID(c), id, req.AtPeriodEnd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandlers) ChangeCycle(c *gin.Context) {
	raw, err := rawJSONFields(c)
	if err != nil {
		respondError(c, err)
		return
	}
	delete(raw, "app_id")
	var req requests.ChangeCycle
	if !BindJSON(c, &req) {
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "customer_id", Message: "must be a uuid"}}, "invalid customer_id"))
		return
	}
	fromID, err := uuid.Parse(req.FromSubscriptionID)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "from_subscription_id", Message: "must be a uuid"}}, "invalid from_subscription_id"))
		return
	}
	periodStart, err := parseTime(req.CurrentPeriodStart)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "current_period_start", Message: "must be RFC3339"}}, "invalid current_period_start"))
		return
	}
	periodEnd, err := parseTime(req.CurrentPeriodEnd)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "current_period_end", Message: "must be RFC3339"}}, "invalid current_period_end"))
		return
	}

	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sub, err := tenant.Subscriptions.ChangeCycle(c.Request.Context(), AppID(c), services.ChangeCycleInput{
		CustomerID:         customerID,
		FromSubscriptionID: fromID,
		NewPlanID:          req.NewPlanID,
		NewPlanName:        sanitizeText(req.NewPlanName),
		PriceCents:         req.PriceCents,
		IntervalUnit:       store.IntervalUnit(req.IntervalUnit),
		IntervalCount:      req.IntervalCount,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		Fields:             raw,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
