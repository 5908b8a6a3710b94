package idempotency

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/billing-core/internal/apperr"
	"github.com/ledgerline/billing-core/internal/store"
)

// fakeDB scripts the query surface the engine runs against: QueryRow
// answers from rowQueue (empty means no record), Exec errors pop from
// execErrs.
type fakeDB struct {
	rowQueue []fakeRow
	execErrs []error
	execs    int
}

type fakeRow struct {
	vals []any
	err  error
}

func (f *fakeDB) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	f.execs++
	var err error
	if len(f.execErrs) > 0 {
		err = f.execErrs[0]
		f.execErrs = f.execErrs[1:]
	}
	return pgconn.CommandTag{}, err
}

func (f *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if len(f.rowQueue) == 0 {
		return fakeRow{err: store.ErrNotFound}
	}
	row := f.rowQueue[0]
	f.rowQueue = f.rowQueue[1:]
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

// recordRow matches IdempotencyStore.Get's column order.
func recordRow(appID, key, hash string, status int, body []byte) []any {
	now := time.Now().UTC()
	return []any{appID, key, hash, status, body, now.Add(24 * time.Hour), now}
}

func TestCheckMissLetsHandlerRun(t *testing.T) {
	engine := New(&fakeDB{}, 24*time.Hour)

	outcome, err := engine.Check(context.Background(), "acme", "K1", "h1")
	require.NoError(t, err)
	assert.False(t, outcome.Replay)
}

func TestCheckReplaysMatchingHashVerbatim(t *testing.T) {
	body := []byte(`{"id":"ch_1","status":"succeeded"}`)
	db := &fakeDB{rowQueue: []fakeRow{{vals: recordRow("acme", "K1", "h1", 201, body)}}}
	engine := New(db, 24*time.Hour)

	outcome, err := engine.Check(context.Background(), "acme", "K1", "h1")
	require.NoError(t, err)
	assert.True(t, outcome.Replay)
	assert.Equal(t, 201, outcome.StatusCode)
	assert.Equal(t, body, outcome.ResponseBody)
}

func TestCheckRejectsReusedKeyWithDifferentBody(t *testing.T) {
	db := &fakeDB{rowQueue: []fakeRow{{vals: recordRow("acme", "K1", "h1", 201, []byte(`{}`))}}}
	engine := New(db, 24*time.Hour)

	_, err := engine.Check(context.Background(), "acme", "K1", "h2")
	require.Error(t, err)
	kind, _ := apperr.Of(err)
	assert.Equal(t, apperr.KindIdempotencyConflict, kind)
}

func TestSaveInsertsWinnerRecord(t *testing.T) {
	db := &fakeDB{}
	engine := New(db, 24*time.Hour)

	outcome, err := engine.Save(context.Background(), "acme", "K1", "h1", 201, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, outcome.Replay)
	assert.Equal(t, 1, db.execs)
}

// The loser of a concurrent duplicate pair re-reads and returns the
// winner's cached response instead of erroring.
func TestSaveRaceReturnsWinnerResponse(t *testing.T) {
	winnerBody := []byte(`{"id":"ch_1"}`)
	db := &fakeDB{
		execErrs: []error{&pgconn.PgError{Code: "23505"}},
		rowQueue: []fakeRow{{vals: recordRow("acme", "K1", "h1", 201, winnerBody)}},
	}
	engine := New(db, 24*time.Hour)

	outcome, err := engine.Save(context.Background(), "acme", "K1", "h1", 201, []byte(`{"id":"ch_2"}`))
	require.NoError(t, err)
	assert.True(t, outcome.Replay)
	assert.Equal(t, winnerBody, outcome.ResponseBody)
}
