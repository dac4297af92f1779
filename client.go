// Package messagestore provides a Go client for the Message DB message store,
// the append-only message storage schema implemented as stored functions in
// PostgreSQL.
//
// Each method maps to exactly one call of a message_store function. The client
// does not cache, buffer, or retry; concurrency control on writes is enforced
// by the server through the expected version supplied with a message.
//
// Basic usage:
//
//	client, err := messagestore.Open(ctx, messagestore.ConfigFromEnv())
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	// Write message
//	position, err := client.WriteMessage(ctx, messagestore.Message{
//		ID:         messagestore.NewID(),
//		StreamName: "account-123",
//		Type:       "Deposited",
//		Data:       map[string]interface{}{"amount": 100},
//	})
//
//	// Read stream
//	messages, err := client.GetStreamMessages(ctx, "account-123", nil)
package messagestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventodb/messagestore-go/internal/logger"
)

// DBTX is a minimal interface for database operations.
// It is implemented by both *sql.DB and *sql.Tx, so the client can run
// against the shared pool or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Ensure standard library types implement DBTX
var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Client is a message store client. It is safe for concurrent use.
type Client struct {
	db     DBTX
	owned  *sql.DB // pool opened by Open, closed by Close
	schema string
	q      queries
	log    zerolog.Logger
	closed *atomic.Bool
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used for call tracing
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithSchema sets the schema holding the message store functions
// (default: message_store)
func WithSchema(schema string) Option {
	return func(c *Client) {
		c.schema = schema
	}
}

// New creates a client over an existing connection pool or transaction.
// The caller keeps ownership of db.
func New(db DBTX, opts ...Option) (*Client, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	c := &Client{
		db:     db,
		schema: DefaultSchema,
		log:    logger.Nop(),
		closed: new(atomic.Bool),
	}

	for _, opt := range opts {
		opt(c)
	}

	if !validSchemaName(c.schema) {
		return nil, invalidRequest("new", "schema", "invalid schema name %q", c.schema)
	}
	c.q = newQueries(c.schema)

	return c, nil
}

// WithTx returns a client bound to tx. Calls made through it run inside the
// transaction, which lets AcquireLock and WriteMessage share one lock scope.
func (c *Client) WithTx(tx *sql.Tx) *Client {
	return &Client{
		db:     tx,
		schema: c.schema,
		q:      c.q,
		log:    c.log,
		closed: c.closed,
	}
}

// Schema returns the schema the client calls into.
func (c *Client) Schema() string {
	return c.schema
}

// Ping verifies the backing store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	pinger, ok := c.db.(interface{ PingContext(context.Context) error })
	if !ok {
		return nil
	}
	if err := pinger.PingContext(ctx); err != nil {
		return &Error{Code: CodeConnection, Op: "ping", Message: err.Error(), Err: err}
	}
	return nil
}

// Close marks the client closed and releases the pool if the client opened it.
// Clients created with New leave the caller's pool open.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.owned != nil {
		return c.owned.Close()
	}
	return nil
}

func (c *Client) checkClosed() error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

// logCall traces one server call. Conflicts are expected in normal operation
// and log at warn; connection and schema failures log at error.
func (c *Client) logCall(ctx context.Context, fn, streamName string, start time.Time, err error) {
	log := logger.FromContext(ctx, &c.log)

	var event *zerolog.Event
	switch {
	case err == nil:
		event = log.Debug()
	case IsVersionConflict(err):
		event = log.Warn().Err(err)
	case isFatal(err):
		event = log.Error().Err(err)
	default:
		event = log.Debug().Err(err)
	}

	if streamName != "" {
		event = event.Str("stream_name", streamName)
	}
	event.
		Str("fn", fn).
		Dur("duration", time.Since(start)).
		Msg("message store call")
}

func isFatal(err error) bool {
	return errors.Is(err, ErrConnection) ||
		errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrNoRows)
}
