package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/httpapi/requests"
	"github.com/ledgerline/billing-core/internal/services"
)

type PaymentMethodHandlers struct {
	registry *Registry
}

func NewPaymentMethodHandlers(registry *Registry) *PaymentMethodHandlers {
	return &PaymentMethodHandlers{registry: registry}
}

func (h *PaymentMethodHandlers) Add(c *gin.Context) {
	var req requests.AddPaymentMethod
	if !BindJSON(c, &req) {
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "customer_id", Message: "must be a uuid"}}, "invalid customer_id"))
		return
	}

	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	pm, err := tenant.PaymentMethods.Add(c.Request.Context(), services.AddPaymentMethodInput{
		AppID:      AppID(c),
		CustomerID: customerID,
		Token:      req.Token,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pm)
}

func (h *PaymentMethodHandlers) List(c *gin.Context) {
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
	methods, err := tenant.PaymentMethods.List(c.Request.Context(), AppID(c), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": methods})
}

func (h *PaymentMethodHandlers) Delete(c *gin.Context) {
	customerID, err := uuid.Parse(c.Query("customer_id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "customer_id", Message: "must be a uuid"}}, "invalid customer_id"))
		return
	}
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
	if err := tenant.PaymentMethods.Delete(c.Request.Context(), AppID(c), customerID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
