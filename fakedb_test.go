package messagestore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"
)

// fakeCall is one statement seen by the fake driver.
type fakeCall struct {
	fn    string
	query string
	args  []driver.Value
}

// fakeHandler answers a statement for server function fn.
type fakeHandler func(fn string, args []driver.Value) (*fakeRows, error)

// fakeBackend records every statement and transaction boundary the client
// sends through database/sql.
type fakeBackend struct {
	mu        sync.Mutex
	calls     []fakeCall
	begins    int
	commits   int
	rollbacks int
	commitErr error
	handle    fakeHandler
}

var functionPattern = regexp.MustCompile(`(\w+)\(`)

func (b *fakeBackend) query(query string, named []driver.NamedValue) (*fakeRows, error) {
	args := make([]driver.Value, len(named))
	for i, nv := range named {
		args[i] = nv.Value
	}

	fn := ""
	if m := functionPattern.FindStringSubmatch(query); m != nil {
		fn = m[1]
	}

	b.mu.Lock()
	b.calls = append(b.calls, fakeCall{fn: fn, query: query, args: args})
	handle := b.handle
	b.mu.Unlock()

	if handle == nil {
		return &fakeRows{}, nil
	}
	rows, err := handle(fn, args)
	if rows == nil && err == nil {
		rows = &fakeRows{}
	}
	return rows, err
}

func (b *fakeBackend) Calls() []fakeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]fakeCall(nil), b.calls...)
}

func (b *fakeBackend) LastCall(t *testing.T) fakeCall {
	t.Helper()
	calls := b.Calls()
	if len(calls) == 0 {
		t.Fatal("no statements were sent")
	}
	return calls[len(calls)-1]
}

// newFakeDB returns a pool backed by the fake driver.
func newFakeDB(t *testing.T, handle fakeHandler) (*sql.DB, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{handle: handle}
	db := sql.OpenDB(&fakeConnector{backend: backend})
	t.Cleanup(func() { db.Close() })

	return db, backend
}

// newFakeClient returns a client over newFakeDB.
func newFakeClient(t *testing.T, handle fakeHandler, opts ...Option) (*Client, *fakeBackend) {
	t.Helper()

	db, backend := newFakeDB(t, handle)
	client, err := New(db, opts...)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client, backend
}

// scalarRows is a single row, single column result.
func scalarRows(column string, value driver.Value) *fakeRows {
	return &fakeRows{columns: []string{column}, values: [][]driver.Value{{value}}}
}

var messageColumns = []string{"id", "stream_name", "type", "position", "global_position", "data", "metadata", "time"}

// messageRows builds a message table result from messages.
func messageRows(messages ...MessageData) *fakeRows {
	rows := &fakeRows{columns: messageColumns}
	for _, m := range messages {
		var metadata driver.Value
		if m.Metadata != nil {
			metadata = []byte(m.Metadata)
		}
		rows.values = append(rows.values, []driver.Value{
			m.ID,
			m.StreamName,
			m.Type,
			m.Position,
			m.GlobalPosition,
			[]byte(m.Data),
			metadata,
			m.Time,
		})
	}
	return rows
}

type fakeConnector struct {
	backend *fakeBackend
}

func (c *fakeConnector) Connect(context.Context) (driver.Conn, error) {
	return &fakeConn{backend: c.backend}, nil
}

func (c *fakeConnector) Driver() driver.Driver {
	return fakeDriver{}
}

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("fake driver: use the connector")
}

type fakeConn struct {
	backend *fakeBackend
}

var (
	_ driver.QueryerContext = (*fakeConn)(nil)
	_ driver.ExecerContext  = (*fakeConn)(nil)
	_ driver.ConnBeginTx    = (*fakeConn)(nil)
)

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("fake driver: prepare not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *fakeConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.backend.mu.Lock()
	c.backend.begins++
	c.backend.mu.Unlock()
	return &fakeTx{backend: c.backend}, nil
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := c.backend.query(query, args)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if _, err := c.QueryContext(ctx, query, args); err != nil {
		return nil, err
	}
	return driver.RowsAffected(0), nil
}

type fakeTx struct {
	backend *fakeBackend
}

func (tx *fakeTx) Commit() error {
	tx.backend.mu.Lock()
	defer tx.backend.mu.Unlock()
	tx.backend.commits++
	return tx.backend.commitErr
}

func (tx *fakeTx) Rollback() error {
	tx.backend.mu.Lock()
	defer tx.backend.mu.Unlock()
	tx.backend.rollbacks++
	return nil
}

type fakeRows struct {
	columns []string
	values  [][]driver.Value
	next    int
}

func (r *fakeRows) Columns() []string {
	if r.columns == nil {
		return messageColumns
	}
	return r.columns
}

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}

// testTime is a fixed, non-UTC timestamp for message rows.
var testTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
