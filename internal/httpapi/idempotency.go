package httpapi

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// responseRecorder captures a handler's status code and body so the
// idempotency middleware can cache the exact response bytes and replay them
// byte-for-byte on a matching retry.
type responseRecorder struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequireIdempotencyKey guards an endpoint that requires the
// Idempotency-Key header: compute a request hash over method+path+canonical
// body, check the persistent cache, replay a matching hit verbatim (no side
// effect, no PSP call), reject a mismatched hit as a 409
// idempotency-conflict, and — on a miss — let the handler run then save its
// response for future replays.
func RequireIdempotencyKey(engine *idempotency.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyKeyHeader)
		if key == "" {
			respondError(c, apperr.Validation(
				[]apperr.FieldError{{Field: "Idempotency-Key", Message: "header is required"}},
				"Idempotency-Key header is required"))
			c.Abort()
			return
		}

		appID := AppID(c)
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondError(c, apperr.Validation(nil, "failed to read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		canonical, err := idempotency.Canonicalize(body)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		hash := idempotency.Hash(c.Request.Method, c.Request.URL.Path, canonical)

		outcome, err := engine.Check(c.Request.Context(), appID, key, hash)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		if outcome.Replay {
			c.Data(outcome.StatusCode, "application/json", outcome.ResponseBody)
			c.Abort()
			return
		}

		rec := &responseRecorder{ResponseWriter: c.Writer, status: http.StatusOK}
		c.Writer = rec
		c.Next()

		if c.IsAborted() {
			return
		}
		if _, saveErr := engine.Save(c.Request.Context(), appID, key, hash, rec.status, rec.body.Bytes()); saveErr != nil {
			// The response has already been written to the client; a save
			// failure here only risks a future duplicate doing real work
			// again. The error is dropped here, not logged, and does not
			// fail this request.
			_ = saveErr
		}
	}
}
