// Package httpapi is the HTTP edge: routing, tenant scoping,
// PCI-sensitive-data rejection, validation, and centralized error mapping.
// The middleware chain is fixed at router construction so the ordering is a
// structural guarantee, not a registration convention.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/apperr"
)

const (
	rawBodyKey      = "rawBody"
	appIDKey        = "appID"
	correlationIDKey = "correlationID"
)

// CorrelationID assigns (or propagates) a request correlation id: the
// inbound header wins, otherwise a fresh uuid is generated.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Correlation-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(correlationIDKey, id)
		c.Header("X-Correlation-ID", id)
		c.Next()
	}
}

func getCorrelationID(c *gin.Context) string {
	if v, ok := c.Get(correlationIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RawBodyCapture reads the full request body into the context BEFORE any
// JSON decoder touches it — applied only to the webhook route, since the
// signature covers the raw bytes exactly as received.
func RawBodyCapture() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondError(c, apperr.Validation(nil, "failed to read request body"))
			c.Abort()
			return
		}
		c.Set(rawBodyKey, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// RawBody retrieves the bytes captured by RawBodyCapture.
func RawBody(c *gin.Context) []byte {
	if v, ok := c.Get(rawBodyKey); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}

// IdentityChecker is supplied by the (out-of-scope) tenant-authentication
// layer: given the request, it returns the authenticated app_id, if any,
// supplied upstream. A nil checker means no upstream identity is enforced
// and the tenant resolver trusts the requested app_id outright.
type IdentityChecker func(c *gin.Context) (appID string, present bool)

// TenantResolver extracts app_id from params, query, or body, and — if an
// upstream identity is supplied — cross-checks it against the requested
// app_id, rejecting a mismatch as forbidden. It never authenticates on its
// own; token verification belongs to the upstream auth layer.
func TenantResolver(identity IdentityChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		appID := resolveAppID(c)
		if appID == "" {
			respondError(c, apperr.Validation(
				[]apperr.FieldError{{Field: "app_id", Message: "is required"}},
				"app_id is required"))
			c.Abort()
			return
		}

		if identity != nil {
			if authedAppID, present := identity(c); present && authedAppID != appID {
				respondError(c, apperr.Forbidden("app_id does not match the authenticated identity"))
				c.Abort()
				return
			}
		}

		c.Set(appIDKey, appID)
		c.Next()
	}
}

// resolveAppID extracts app_id from the route param, then the query
// string, then (for write requests) the JSON body itself — re-buffering the
// body afterward so downstream decoders still see it in full, mirroring
// PCIReject's read-then-restore pattern.
func resolveAppID(c *gin.Context) string {
	if v := c.Param("app_id"); v != "" {
		return v
	}
	if v := c.Query("app_id"); v != "" {
		return v
	}
	if c.Request.Method == http.MethodGet || c.Request.ContentLength == 0 {
		return ""
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var probe struct {
		AppID string `json:"app_id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.AppID
}

// AppID retrieves the verified app_id set by TenantResolver.
func AppID(c *gin.Context) string {
	if v, ok := c.Get(appIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// pciForbiddenFields names the raw card/bank fields the service must never
// accept.
var pciForbiddenFields = []string{
	"card_number", "card_cvv", "cvv", "cvc", "account_number", "routing_number",
}

// PCIReject scans the raw body (case-insensitively) for any forbidden PCI
// field name and rejects with 400 before any domain row can be created.
// Runs on every write route except webhooks.
func PCIReject(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondError(c, apperr.Validation(nil, "failed to read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		lower := strings.ToLower(string(body))
		for _, field := range pciForbiddenFields {
			if strings.Contains(lower, `"`+field+`"`) {
				logger.Warn("pci violation: forbidden field present in request body",
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
					zap.String("field", field))
				respondError(c, apperr.Validation(
					[]apperr.FieldError{{Field: field, Message: "raw card/bank numbers are never accepted; use the hosted tokenization flow"}},
					"request contains a field that must go through the hosted tokenization flow"))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// BindJSON decodes the request body into v; trimming and HTML-escaping
// string fields is left to per-DTO construction. This helper centralizes
// the 400-on-malformed-body behavior every validated route shares.
func BindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, apperr.Validation(nil, "request body is malformed or missing required fields: %s", err.Error()))
		c.Abort()
		return false
	}
	return true
}

// sanitizeText trims whitespace and HTML-escapes free text fields.
func sanitizeText(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// respondError is the terminal error mapper: it maps every apperr.Kind to
// its status code and shapes the response body. Production mode scrubs
// internal detail from 500s.
func respondError(c *gin.Context, err error) {
	kind, ok := apperr.Of(err)
	if !ok {
		kind = apperr.KindInternal
	}

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindConflict, apperr.KindIdempotencyConflict:
		status = http.StatusConflict
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindPaymentProcessor:
		status = http.StatusBadGateway
	case apperr.KindBackpressure:
		status = http.StatusServiceUnavailable
	}

	var appErr *apperr.Error
	body := gin.H{}
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if appErr.Code != "" {
			body["code"] = appErr.Code
		}
		if kind == apperr.KindPaymentProcessor {
			body["message"] = appErr.Message
		}
		if len(appErr.Fields) > 0 {
			body["details"] = appErr.Fields
		}
	} else {
		body["error"] = "internal server error"
	}

	if status == http.StatusInternalServerError && isProduction {
		body = gin.H{"error": "internal server error"}
	}

	correlationID := getCorrelationID(c)
	if correlationID != "" {
		body["correlation_id"] = correlationID
	}

	c.JSON(status, body)
}

// isProduction is set once at router construction time (NewRouter) and
// controls whether 500 bodies are scrubbed.
var isProduction bool

// rawJSONFields decodes the request body into a generic field map without
// consuming it, so a handler can both reject unsupported mutation field
// names and bind the same body into its typed DTO afterward.
func rawJSONFields(c *gin.Context) (map[string]any, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, apperr.Validation(nil, "failed to read request body")
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	fields := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, apperr.Validation(nil, "request body is malformed")
		}
	}
	return fields, nil
}
