// Package idempotency implements the request-level replay cache: every
// mutating endpoint that carries an Idempotency-Key header is checked
// against a persistent (app_id, key, request_hash) cache before any side
// effect runs.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/store"
)

// Engine checks and records idempotency-key replay cache entries.
type Engine struct {
	db    store.DBTX
	store store.IdempotencyStore
	ttl   time.Duration
}

func New(db store.DBTX, ttl time.Duration) *Engine {
	return &Engine{db: db, ttl: ttl}
}

// Hash computes SHA-256 over method, path, and the canonical JSON of the
// body. canonicalBody must already be produced by Canonicalize so that
// semantically-identical bodies hash identically regardless of key order or
// whitespace.
func Hash(method, path string, canonicalBody []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(canonicalBody)
	return hex.EncodeToString(h.Sum(nil))
}

// Canonicalize re-marshals arbitrary JSON to a stable byte form (Go's
// encoding/json already sorts map keys on Marshal, which is sufficient
// canonicalization for this hash's purposes).
func Canonicalize(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return []byte("null"), nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, apperr.Validation(nil, "request body is not valid JSON")
	}
	return json.Marshal(v)
}

// Outcome is what the caller does next: either replay a cached response, or
// proceed with the handler and later call Save.
type Outcome struct {
	Replay       bool
	StatusCode   int
	ResponseBody []byte
}

// Check looks up (app_id, key): a hit with a matching hash replays the
// cached response, a hit with a different hash is a conflict. If no record
// exists, Outcome.Replay is false and the caller should run its handler
// then call Save.
func (e *Engine) Check(ctx context.Context, appID, key, requestHash string) (Outcome, error) {
	rec, err := e.store.Get(ctx, e.db, appID, key)
	if err == store.ErrNotFound {
		return Outcome{Replay: false}, nil
	}
	if err != nil {
		return Outcome{}, apperr.Internal(err, "idempotency lookup failed")
	}

	if rec.RequestHash != requestHash {
		return Outcome{}, apperr.IdempotencyConflict("idempotency key %q was used with a different request body", key)
	}
	return Outcome{Replay: true, StatusCode: rec.StatusCode, ResponseBody: rec.ResponseBody}, nil
}

// Save records the response, racing safely against a concurrent duplicate
// request: if another request committed the same key first, this re-reads
// and returns that winner's response instead of erroring.
func (e *Engine) Save(ctx context.Context, appID, key, requestHash string, statusCode int, body []byte) (Outcome, error) {
	rec := &store.IdempotencyRecord{
		AppID:        appID,
		Key:          key,
		RequestHash:  requestHash,
		StatusCode:   statusCode,
		ResponseBody: body,
		ExpiresAt:    time.Now().UTC().Add(e.ttl),
	}

	err := e.store.Insert(ctx, e.db, rec)
	if err == nil {
		return Outcome{Replay: false, StatusCode: statusCode, ResponseBody: body}, nil
	}
	if !store.IsUniqueViolation(err, "") {
		return Outcome{}, apperr.Internal(err, "idempotency save failed")
	}

	winner, getErr := e.store.Get(ctx, e.db, appID, key)
	if getErr != nil {
		return Outcome{}, apperr.Internal(getErr, "idempotency save race recovery failed")
	}
	return Outcome{Replay: true, StatusCode: winner.StatusCode, ResponseBody: winner.ResponseBody}, nil
}
