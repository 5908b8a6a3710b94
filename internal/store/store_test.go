package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB scripts DBTX for DAO tests: it records every statement and its
// arguments, and answers QueryRow from a queue of canned rows. pgx cannot be
// backed by database/sql mocks, so the fake implements the three-method
// interface directly.
type fakeDB struct {
	execs   []capturedCall
	queries []capturedCall
	rows    []fakeRow
	execErr error
}

type capturedCall struct {
	sql  string
	args []any
}

type fakeRow struct {
	vals []any
	err  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, capturedCall{sql: sql, args: args})
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, capturedCall{sql: sql, args: args})
	return nil, pgx.ErrNoRows
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, capturedCall{sql: sql, args: args})
	if len(f.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	row := f.rows[0]
	f.rows = f.rows[1:]
	return row
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.vals) || r.vals[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(uniqueViolation("charges_app_id_reference_id_key"), ""))
	assert.True(t, IsUniqueViolation(uniqueViolation("charges_app_id_reference_id_key"), "charges_app_id_reference_id_key"))
	assert.False(t, IsUniqueViolation(uniqueViolation("charges_app_id_reference_id_key"), "other_constraint"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(pgx.ErrNoRows, ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestChargeCreateInsertsPendingRowScopedToApp(t *testing.T) {
	db := &fakeDB{}
	charge := &Charge{
		AppID:       "acme",
		CustomerID:  uuid.New(),
		Status:      ChargePending,
		AmountCents: 3500,
		Currency:    "usd",
	}

	require.NoError(t, ChargeStore{}.Create(context.Background(), db, charge))

	require.Len(t, db.execs, 1)
	call := db.execs[0]
	assert.Contains(t, call.sql, "INSERT INTO charges")
	assert.Equal(t, charge.ID, call.args[0])
	assert.Equal(t, "acme", call.args[1])
	assert.Equal(t, ChargePending, call.args[6])
	assert.NotEqual(t, uuid.UUID{}, charge.ID)
	assert.False(t, charge.CreatedAt.IsZero())
}

func TestChargeLookupsAreAppScoped(t *testing.T) {
	db := &fakeDB{}
	_, err := ChargeStore{}.GetByReferenceID(context.Background(), db, "acme", "pickup:789")
	assert.Equal(t, ErrNotFound, err)

	require.Len(t, db.queries, 1)
	call := db.queries[0]
	assert.Contains(t, call.sql, "WHERE app_id = $1 AND reference_id = $2")
	assert.Equal(t, "acme", call.args[0])
	assert.Equal(t, "pickup:789", call.args[1])
}

func TestChargeScanRoundTrip(t *testing.T) {
	id := uuid.New()
	customerID := uuid.New()
	now := time.Now().UTC()
	db := &fakeDB{rows: []fakeRow{{vals: []any{
		id, "acme", customerID, nil, nil, nil,
		ChargeSucceeded, int64(3500), "usd", nil, nil, nil, nil,
		nil, nil, []byte(`{"source":"api"}`), now, now,
	}}}}

	c, err := ChargeStore{}.GetByID(context.Background(), db, "acme", id)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, ChargeSucceeded, c.Status)
	assert.Equal(t, int64(3500), c.AmountCents)
	assert.Equal(t, map[string]any{"source": "api"}, c.Metadata)
}

func TestCustomerGetByIDIsAppScoped(t *testing.T) {
	db := &fakeDB{}
	_, err := CustomerStore{}.GetByID(context.Background(), db, "acme", uuid.New())
	assert.Equal(t, ErrNotFound, err)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0].sql, "WHERE app_id = $1 AND id = $2")
	assert.Equal(t, "acme", db.queries[0].args[0])
}

func TestWebhookEnvelopeInsertSeedsReceivedStatus(t *testing.T) {
	db := &fakeDB{}
	env, err := WebhookEnvelopeStore{}.InsertEnvelope(context.Background(), db, "acme", "evt_1", "subscription.updated")
	require.NoError(t, err)

	assert.Equal(t, WebhookReceived, env.Status)
	assert.Equal(t, 1, env.Attempts)
	assert.Equal(t, "evt_1", env.EventID)

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO webhook_envelopes")
}

func TestWebhookEnvelopeInsertSurfacesUniqueViolation(t *testing.T) {
	db := &fakeDB{execErr: uniqueViolation("webhook_envelopes_event_id_key")}
	_, err := WebhookEnvelopeStore{}.InsertEnvelope(context.Background(), db, "acme", "evt_1", "subscription.updated")
	assert.True(t, IsUniqueViolation(err, ""))
}

func TestIdempotencyInsertAndGetShape(t *testing.T) {
	db := &fakeDB{}
	rec := &IdempotencyRecord{
		AppID:        "acme",
		Key:          "K1",
		RequestHash:  "abc123",
		StatusCode:   201,
		ResponseBody: []byte(`{"ok":true}`),
		ExpiresAt:    time.Now().UTC().Add(24 * time.Hour),
	}
	require.NoError(t, IdempotencyStore{}.Insert(context.Background(), db, rec))
	require.Len(t, db.execs, 1)
	assert.Equal(t, "acme", db.execs[0].args[0])
	assert.Equal(t, "K1", db.execs[0].args[1])

	_, err := IdempotencyStore{}.Get(context.Background(), db, "acme", "K1")
	assert.Equal(t, ErrNotFound, err)
	assert.Contains(t, db.queries[0].sql, "WHERE app_id = $1 AND key = $2")
}

func TestSubscriptionMarkCanceledSetsTerminalTimestamps(t *testing.T) {
	db := &fakeDB{}
	id := uuid.New()
	at := time.Now().UTC()
	require.NoError(t, SubscriptionStore{}.MarkCanceled(context.Background(), db, "acme", id, at))

	require.Len(t, db.execs, 1)
	call := db.execs[0]
	assert.Contains(t, call.sql, "status = $3, canceled_at = $4, ended_at = $4")
	assert.Equal(t, "acme", call.args[0])
	assert.Equal(t, SubCanceled, call.args[2])
	assert.Equal(t, at, call.args[3])
}

func TestPaymentMethodSoftDeleteClearsDefault(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, PaymentMethodStore{}.SoftDelete(context.Background(), db, "acme", uuid.New()))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "deleted_at = now()")
	assert.Contains(t, db.execs[0].sql, "is_default = false")
}

func TestPaymentMethodUpsertReattachesSoftDeletedRow(t *testing.T) {
	existingID := uuid.New()
	db := &fakeDB{rows: []fakeRow{{vals: []any{existingID}}}}

	pm := &PaymentMethod{
		AppID:              "acme",
		CustomerID:         uuid.New(),
		PSPPaymentMethodID: "pm_123",
		Type:               PaymentMethodCard,
	}
	require.NoError(t, PaymentMethodStore{}.Upsert(context.Background(), db, pm))

	assert.Equal(t, existingID, pm.ID)
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "deleted_at = NULL")
}
