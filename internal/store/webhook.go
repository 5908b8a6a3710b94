package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WebhookEnvelopeStore implements envelope-first persistence: InsertEnvelope
// is the sole dedup gate, enforced by the unique constraint on event_id.
type WebhookEnvelopeStore struct{}

func (s WebhookEnvelopeStore) InsertEnvelope(ctx context.Context, db DBTX, appID, eventID, eventType string) (*WebhookEnvelope, error) {
	env := &WebhookEnvelope{
		ID:         uuid.New(),
		AppID:      appID,
		EventID:    eventID,
		EventType:  eventType,
		Status:     WebhookReceived,
		Attempts:   1,
		ReceivedAt: time.Now().UTC(),
	}
	_, err := db.Exec(ctx, `
		INSERT INTO webhook_envelopes (id, app_id, event_id, event_type, status, attempts, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		env.ID, env.AppID, env.EventID, env.EventType, env.Status, env.Attempts, env.ReceivedAt)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (s WebhookEnvelopeStore) MarkProcessed(ctx context.Context, db DBTX, id uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE webhook_envelopes SET status = $2, processed_at = now() WHERE id = $1`,
		id, WebhookProcessed)
	return err
}

func (s WebhookEnvelopeStore) MarkFailed(ctx context.Context, db DBTX, id uuid.UUID, reason string) error {
	_, err := db.Exec(ctx, `
		UPDATE webhook_envelopes SET status = $2, error = $3 WHERE id = $1`,
		id, WebhookFailed, reason)
	return err
}
