package services

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ledgerline/billing-core/internal/store"
)

// fakeDB scripts store.DB for service tests: QueryRow answers from rowQueue
// (empty queue means no row), Query answers from listQueue, Exec errors pop
// from execErrs. Begin hands out a fakeTx that writes through to the same
// recorder, so transactional and plain paths are asserted identically.
type fakeDB struct {
	execs      []dbCall
	queries    []dbCall
	rowQueue   []fakeRow
	listQueue  [][]fakeRow
	execErrs   []error
	committed  bool
	rolledBack bool
}

type dbCall struct {
	sql  string
	args []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, dbCall{sql: sql, args: args})
	var err error
	if len(f.execErrs) > 0 {
		err = f.execErrs[0]
		f.execErrs = f.execErrs[1:]
	}
	return pgconn.CommandTag{}, err
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, dbCall{sql: sql, args: args})
	var rows []fakeRow
	if len(f.listQueue) > 0 {
		rows = f.listQueue[0]
		f.listQueue = f.listQueue[1:]
	}
	return &fakeRows{rows: rows}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, dbCall{sql: sql, args: args})
	if len(f.rowQueue) == 0 {
		return fakeRow{err: store.ErrNotFound}
	}
	row := f.rowQueue[0]
	f.rowQueue = f.rowQueue[1:]
	return row
}

func (f *fakeDB) Begin(_ context.Context) (pgx.Tx, error) {
	return &fakeTx{db: f}, nil
}

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(_ context.Context) error {
	t.db.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.db.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                            { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Conn() *pgx.Conn { return nil }

type fakeRow struct {
	vals []any
	err  error
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

type fakeRows struct {
	rows []fakeRow
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *fakeRows) Next() bool {
	if r.idx < len(r.rows) {
		r.idx++
		return true
	}
	return false
}

func (r *fakeRows) Scan(dest ...any) error   { return r.rows[r.idx-1].Scan(dest...) }
func (r *fakeRows) Values() ([]any, error)   { return nil, nil }
func (r *fakeRows) RawValues() [][]byte      { return nil }
func (r *fakeRows) Conn() *pgx.Conn          { return nil }

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func sptr(s string) *string { return &s }

// Row-value builders, matching each DAO's SELECT column order.

func customerRow(appID string, id uuid.UUID, pspCustomerID, defaultToken, defaultType *string) []any {
	now := time.Now().UTC()
	return []any{
		id, appID, nil, pspCustomerID, "jo@acme.test", "Jo",
		defaultToken, defaultType, store.CustomerActive, nil,
		[]byte(`{}`), now, now,
	}
}

func chargeRow(appID string, id, customerID uuid.UUID, pspChargeID, referenceID *string, status store.ChargeStatus) []any {
	now := time.Now().UTC()
	return []any{
		id, appID, customerID, nil, nil, pspChargeID,
		status, int64(3500), "usd", nil, referenceID, nil, nil,
		nil, nil, []byte(`{}`), now, now,
	}
}

func refundRow(appID string, id, customerID, chargeID uuid.UUID, referenceID string, status store.RefundStatus) []any {
	now := time.Now().UTC()
	return []any{
		id, appID, customerID, chargeID, nil, status, int64(1000),
		"usd", nil, referenceID, nil, nil, []byte(`{}`), now, now,
	}
}

func subscriptionRow(appID string, id, customerID uuid.UUID, pspSubscriptionID *string, priceCents int64, periodStart, periodEnd time.Time) []any {
	now := time.Now().UTC()
	return []any{
		id, appID, customerID, pspSubscriptionID, "pro-monthly", "Pro Monthly",
		priceCents, store.SubActive, store.IntervalMonth, 1, nil,
		periodStart, periodEnd, false, nil, nil, nil,
		"pm_1", "card", []byte(`{}`), now, now,
	}
}

func paymentMethodRow(appID string, id, customerID uuid.UUID, pspPaymentMethodID string, isDefault bool) []any {
	now := time.Now().UTC()
	return []any{
		id, appID, customerID, pspPaymentMethodID, store.PaymentMethodCard,
		sptr("visa"), sptr("4242"), nil, nil, nil, nil, isDefault, nil,
		[]byte(`{}`), now, now,
	}
}
