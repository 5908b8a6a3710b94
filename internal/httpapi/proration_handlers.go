package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/httpapi/requests"
	"github.com/ledgerline/billing-core/internal/services"
)

type ProrationHandlers struct {
	proration *services.ProrationService
}

func NewProrationHandlers(proration *services.ProrationService) *ProrationHandlers {
	return &ProrationHandlers{proration: proration}
}

func (h *ProrationHandlers) Calculate(c *gin.Context) {
	var req requests.ProrationCalculate
	if !BindJSON(c, &req) {
		return
	}
	periodStart, err := parseTime(req.PeriodStart)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "period_start", Message: "must be RFC3339"}}, "invalid period_start"))
		return
	}
	periodEnd, err := parseTime(req.PeriodEnd)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "period_end", Message: "must be RFC3339"}}, "invalid period_end"))
		return
	}
	changeDate, err := parseTime(req.ChangeDate)
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "change_date", Message: "must be RFC3339"}}, "invalid change_date"))
		return
	}

	result := h.proration.Calculate(services.ProrationCalculateInput{
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		ChangeDate:     changeDate,
		OldPriceCents:  req.OldPriceCents,
		NewPriceCents:  req.NewPriceCents,
		QuantityChange: req.QuantityChange,
	})
	c.JSON(http.StatusOK, result)
}

type applyProrationRequest struct {
	AppID          string `json:"app_id" binding:"required"`
	NewPriceCents  int64  `json:"new_price_cents" binding:"required,gte=0"`
	QuantityChange int64  `json:"quantity_change"`
}

func (h *ProrationHandlers) Apply(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "must be a uuid"}}, "invalid id"))
		return
	}
	var req applyProrationRequest
	if !BindJSON(c, &req) {
		return
	}
	result, err := h.proration.Apply(c.Request.Context(), AppID(c), id, req.NewPriceCents, req.QuantityChange)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ProrationHandlers) CancellationRefund(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "id", Message: "must be a uuid"}}, "invalid id"))
		return
	}
	result, err := h.proration.CancellationRefund(c.Request.Context(), AppID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
