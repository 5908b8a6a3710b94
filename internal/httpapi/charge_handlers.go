package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/httpapi/requests"
	"github.com/ledgerline/billing-core/internal/services"
)

type ChargeHandlers struct {
	registry *Registry
}

func NewChargeHandlers(registry *Registry) *ChargeHandlers {
	return &ChargeHandlers{registry: registry}
}

// resolveCustomerID accepts either a local customer_id or an
// external_customer_id, looking the latter up via the customer service — the
// one-time charge endpoint is expected to be called by systems that only
// know their own external identifier.
func resolveCustomerID(c *gin.Context, tenant *TenantServices, customerID, externalID string) (uuid.UUID, error) {
	if customerID != "" {
		id, err := uuid.Parse(customerID)
		if err != nil {
			return uuid.UUID{}, apperr.Validation(
				[]apperr.FieldError{{Field: "customer_id", Message: "must be a uuid"}},
				"invalid customer_id")
		}
		return id, nil
	}
	if externalID == "" {
		return uuid.UUID{}, apperr.Validation(
			[]apperr.FieldError{{Field: "customer_id", Message: "customer_id or external_customer_id is required"}},
			"customer_id or external_customer_id is required")
	}
	customer, err := tenant.Customers.GetByExternalID(c.Request.Context(), AppID(c), externalID)
	if err != nil {
		return uuid.UUID{}, err
	}
	return customer.ID, nil
}

func (h *ChargeHandlers) Create(c *gin.Context) {
	var req requests.CreateCharge
	if !BindJSON(c, &req) {
		return
	}
	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	customerID, err := resolveCustomerID(c, tenant, req.CustomerID, req.ExternalCustomerID)
	if err != nil {
		respondError(c, err)
		return
	}

	charge, err := tenant.Charges.Create(c.Request.Context(), services.CreateChargeInput{
		AppID:           AppID(c),
		CustomerID:      customerID,
		AmountCents:     req.AmountCents,
		Currency:        req.Currency,
		Reason:          sanitizeText(req.Reason),
		ReferenceID:     req.ReferenceID,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, charge)
}

func (h *ChargeHandlers) Get(c *gin.Context) {
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
	charge, err := tenant.Charges.GetByID(c.Request.Context(), AppID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, charge)
}
