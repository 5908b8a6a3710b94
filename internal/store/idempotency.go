package store

import (
	"context"
	"time"
)

// IdempotencyStore persists the request-level replay cache. The unique
// constraint is (app_id, key); race losers read back the winner via Get.
type IdempotencyStore struct{}

func (s IdempotencyStore) Get(ctx context.Context, db DBTX, appID, key string) (*IdempotencyRecord, error) {
	row := db.QueryRow(ctx, `
		SELECT app_id, key, request_hash, status_code, response_body, expires_at, created_at
		FROM idempotency_records WHERE app_id = $1 AND key = $2`, appID, key)

	var rec IdempotencyRecord
	if err := row.Scan(&rec.AppID, &rec.Key, &rec.RequestHash, &rec.StatusCode,
		&rec.ResponseBody, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert attempts to create the record for the first time a key is seen.
// Callers must handle IsUniqueViolation on the (app_id, key) constraint by
// re-reading via Get — the loser of a concurrent race never overwrites the
// winner's cached response.
func (s IdempotencyStore) Insert(ctx context.Context, db DBTX, rec *IdempotencyRecord) error {
	rec.CreatedAt = time.Now().UTC()
	_, err := db.Exec(ctx, `
		INSERT INTO idempotency_records (app_id, key, request_hash, status_code, response_body, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.AppID, rec.Key, rec.RequestHash, rec.StatusCode, rec.ResponseBody, rec.ExpiresAt, rec.CreatedAt)
	return err
}
