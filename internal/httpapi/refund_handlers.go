package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/httpapi/requests"
	"github.com/ledgerline/billing-core/internal/services"
)

type RefundHandlers struct {
	registry *Registry
}

func NewRefundHandlers(registry *Registry) *RefundHandlers {
	return &RefundHandlers{registry: registry}
}

func (h *RefundHandlers) Create(c *gin.Context) {
	var req requests.CreateRefund
	if !BindJSON(c, &req) {
		return
	}
	chargeID, err := uuid.Parse(req.ChargeID)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "charge_id", Message: "must be a uuid"}}, "invalid charge_id"))
		return
	}

	tenant, err := h.registry.Resolve(AppID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	refund, err := tenant.Refunds.Create(c.Request.Context(), services.CreateRefundInput{
		AppID:       AppID(c),
		ChargeID:    chargeID,
		AmountCents: req.AmountCents,
		Reason:      sanitizeText(req.Reason),
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, refund)
}

func (h *RefundHandlers) Get(c *gin.Context) {
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
	refund, err := tenant.Refunds.GetByID(c.Request.Context(), AppID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, refund)
}
