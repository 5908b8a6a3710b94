package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/httpapi/requests"
	"github.com/ledgerline/billing-core/internal/services"
)

type CustomerHandlers struct {
	registry *Registry
}

func NewCustomerHandlers(registry *Registry) *CustomerHandlers {
	return &CustomerHandlers{registry: registry}
}

func (h *CustomerHandlers) Create(c *gin.Context) {
	var req requests.CreateCustomer
	if !BindJSON(c, &req) {
		return
	}
	req.Name = sanitizeText(req.Name)

	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	customer, err := tenant.Customers.Create(c.Request.Context(), services.CreateCustomerInput{
		AppID:              AppID(c),
		ExternalCustomerID: req.ExternalCustomerID,
		Email:              req.Email,
		Name:               req.Name,
		Metadata:           req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *CustomerHandlers) Get(c *gin.Context) {
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
	customer, err := tenant.Customers.GetByID(c.Request.Context(), AppID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandlers) GetByExternalID(c *gin.Context) {
	externalID := c.Query("external_customer_id")
	if externalID == "" {
		respondError(c, apperr.Validation(
			[]apperr.FieldError{{Field: "external_customer_id", Message: "is required"}},
			"external_customer_id is required"))
		return
	}
	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	customer, err := tenant.Customers.GetByExternalID(c.Request.Context(), AppID(c), externalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandlers) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "must be a uuid"}}, "invalid id"))
		return
	}
	var req requests.UpdateCustomer
	if !BindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		sanitized := sanitizeText(*req.Name)
		req.Name = &sanitized
	}

	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	customer, err := tenant.Customers.Update(c.Request.Context(), AppID(c), id, services.UpdateCustomerInput{
		Email:    req.Email,
		Name:     req.Name,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandlers) SetDefaultPaymentMethod(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "must be a uuid"}}, "invalid id"))
		return
	}
	var req requests.SetDefaultPaymentMethod
	if !BindJSON(c, &req) {
		return
	}
	pmID, err := uuid.Parse(req.PaymentMethodID)
	if err != nil {
		respondError(c, apperr.Validation(
			[]apperr.FieldError{{Field: "payment_method_id", Message: "must be a uuid"}}, "invalid payment_method_id"))
		return
	}

	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := tenant.Customers.SetDefaultPaymentMethod(c.Request.Context(), AppID(c), customerID, pmID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
