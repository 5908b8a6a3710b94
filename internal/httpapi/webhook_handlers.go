package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/config"
	"github.com/ledgerline/billing-core/internal/psp"
	"github.com/ledgerline/billing-core/internal/services"
	"github.com/ledgerline/billing-core/internal/store"
)

const signatureHeader = "tilled-signature"

// WebhookHandlers implements the ingestion pipeline: decode of the event id
// and type, envelope-first persistence (dedup on event_id), signature
// verification, dispatch, and a final envelope status update — in that
// order, with the envelope insert synchronous-before-ack.
type WebhookHandlers struct {
	envelopes store.WebhookEnvelopeStore
	dispatch  *services.WebhookService
	cfg       *config.Config
	logger    *zap.Logger
}

func NewWebhookHandlers(dispatch *services.WebhookService, cfg *config.Config, logger *zap.Logger) *WebhookHandlers {
	return &WebhookHandlers{dispatch: dispatch, cfg: cfg, logger: logger}
}

type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object map[string]any `json:"object"`
	} `json:"data"`
}

func (h *WebhookHandlers) Receive(c *gin.Context) {
	appID := c.Param("app_id")
	if appID == "" {
		respondError(c, apperr.Validation([]apperr.FieldError{{Field: "app_id", Message: "is required"}}, "app_id is required"))
		return
	}

	rawBody := RawBody(c)
	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil || payload.ID == "" {
		respondError(c, apperr.Validation(nil, "webhook payload is malformed or missing id"))
		return
	}

	db := h.dispatch.DB
	env, err := h.envelopes.InsertEnvelope(c.Request.Context(), db, appID, payload.ID, payload.Type)
	if err != nil {
		if store.IsUniqueViolation(err, "") {
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
		respondError(c, apperr.Internal(err, "failed to persist webhook envelope"))
		return
	}

	creds, ok := h.cfg.AppCredentials(appID)
	if !ok || creds.PSPWebhookSecret == "" {
		h.markFailed(c, env.ID, "no webhook secret configured for app")
		respondError(c, apperr.Validation(nil, "no webhook secret configured for app_id"))
		return
	}

	sigHeader := c.GetHeader(signatureHeader)
	if err := psp.VerifySignature(sigHeader, creds.PSPWebhookSecret, rawBody, h.cfg.WebhookTimestampTolerance(), time.Now().UTC()); err != nil {
		h.markFailed(c, env.ID, "signature verification failed")
		respondError(c, apperr.Unauthorized("invalid webhook signature"))
		return
	}

	if err := h.dispatch.Dispatch(c.Request.Context(), services.Event{
		AppID:  appID,
		Type:   payload.Type,
		Object: payload.Data.Object,
	}); err != nil {
		h.markFailed(c, env.ID, err.Error())
		respondError(c, apperr.Internal(err, "failed to dispatch webhook event"))
		return
	}

	if err := h.envelopes.MarkProcessed(c.Request.Context(), db, env.ID); err != nil {
		h.logger.Error("failed to mark webhook envelope processed", zap.Error(err), zap.String("event_id", payload.ID))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandlers) markFailed(c *gin.Context, envelopeID uuid.UUID, reason string) {
	if err := h.envelopes.MarkFailed(c.Request.Context(), h.dispatch.DB, envelopeID, reason); err != nil {
		h.logger.Error("failed to mark webhook envelope failed", zap.Error(err))
	}
}
