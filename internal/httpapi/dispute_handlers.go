package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/store"
)

// DisputeHandlers is the read-only surface over the dispute rows the
// webhook dispatcher upserts.
type DisputeHandlers struct {
	pool     *pgxpool.Pool
	disputes store.DisputeStore
}

func NewDisputeHandlers(pool *pgxpool.Pool) *DisputeHandlers {
	return &DisputeHandlers{pool: pool}
}

func (h *DisputeHandlers) ListByCharge(c *gin.Context) {
	chargeID, err := uuid.Parse(c.Query("charge_id"))
	if err != nil {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "charge_id", Message: "must be a uuid"}}, "invalid charge_id"))
		return
	}
	disputes, err := h.disputes.ListByCharge(c.Request.Context(), h.pool, AppID(c), chargeID)
	if err != nil {
		respondError(c, apperr.Internal(err, "failed to list disputes"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": disputes})
}
