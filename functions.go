package messagestore

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AcquireLock takes the server's advisory lock for the stream's category and
// returns the lock id. The lock is transaction scoped, so call it through a
// client returned by WithTx.
func (c *Client) AcquireLock(ctx context.Context, streamName string) (int64, error) {
	const fn = "acquire_lock"
	if err := c.checkClosed(); err != nil {
		return 0, err
	}
	if streamName == "" {
		return 0, invalidRequest(fn, "stream_name", "stream name is required")
	}

	var lockID int64
	err := c.scalar(ctx, fn, streamName, c.q.acquireLock, &lockID, streamName)
	return lockID, err
}

// CardinalID returns the cardinal ID of a stream name as computed by the
// server. ok is false when the name has no ID part.
func (c *Client) CardinalID(ctx context.Context, streamName string) (cardinalID string, ok bool, err error) {
	const fn = "cardinal_id"
	if err := c.checkClosed(); err != nil {
		return "", false, err
	}
	if streamName == "" {
		return "", false, invalidRequest(fn, "stream_name", "stream name is required")
	}
	return c.optionalString(ctx, fn, streamName, c.q.cardinalID, streamName)
}

// Category returns the category of a stream name as computed by the server.
func (c *Client) Category(ctx context.Context, streamName string) (string, error) {
	const fn = "category"
	if err := c.checkClosed(); err != nil {
		return "", err
	}
	if streamName == "" {
		return "", invalidRequest(fn, "stream_name", "stream name is required")
	}

	var category sql.NullString
	if err := c.scalar(ctx, fn, streamName, c.q.category, &category, streamName); err != nil {
		return "", err
	}
	return category.String, nil
}

// Hash64 returns the server's 64-bit hash of value. The same hash drives
// consumer group assignment and lock ids; it is not computed locally.
func (c *Client) Hash64(ctx context.Context, value string) (int64, error) {
	const fn = "hash_64"
	if err := c.checkClosed(); err != nil {
		return 0, err
	}

	var hash int64
	err := c.scalar(ctx, fn, "", c.q.hash64, &hash, value)
	return hash, err
}

// ID returns the full (possibly compound) ID of a stream name as computed by
// the server. ok is false when the name has no ID part.
func (c *Client) ID(ctx context.Context, streamName string) (id string, ok bool, err error) {
	const fn = "id"
	if err := c.checkClosed(); err != nil {
		return "", false, err
	}
	if streamName == "" {
		return "", false, invalidRequest(fn, "stream_name", "stream name is required")
	}
	return c.optionalString(ctx, fn, streamName, c.q.id, streamName)
}

// MessageStoreVersion returns the schema version reported by the server, e.g. "1.3.0".
func (c *Client) MessageStoreVersion(ctx context.Context) (string, error) {
	const fn = "message_store_version"
	if err := c.checkClosed(); err != nil {
		return "", err
	}

	var version sql.NullString
	if err := c.scalar(ctx, fn, "", c.q.messageStoreVersion, &version); err != nil {
		return "", err
	}
	return version.String, nil
}

// StreamVersion returns the position of the last message in the stream, or
// -1 if nothing has been written to it.
func (c *Client) StreamVersion(ctx context.Context, streamName string) (int64, error) {
	const fn = "stream_version"
	if err := c.checkClosed(); err != nil {
		return 0, err
	}
	if streamName == "" {
		return 0, invalidRequest(fn, "stream_name", "stream name is required")
	}

	var version sql.NullInt64
	if err := c.scalar(ctx, fn, streamName, c.q.streamVersion, &version, streamName); err != nil {
		return 0, err
	}
	if !version.Valid {
		return -1, nil
	}
	return version.Int64, nil
}

// scalar runs a function declared to return exactly one row and scans its
// single column into dest. Zero rows is a protocol violation (ErrNoRows).
func (c *Client) scalar(ctx context.Context, fn, streamName, query string, dest interface{}, args ...interface{}) (err error) {
	start := time.Now()
	defer func() { c.logCall(ctx, fn, streamName, start, err) }()

	if err := c.db.QueryRowContext(ctx, query, args...).Scan(dest); err != nil {
		return classifyError(fn, err)
	}
	return nil
}

// optionalString runs a nullable single-value function. Both zero rows and a
// NULL value mean "absent".
func (c *Client) optionalString(ctx context.Context, fn, streamName, query string, args ...interface{}) (value string, ok bool, err error) {
	start := time.Now()
	defer func() { c.logCall(ctx, fn, streamName, start, err) }()

	var result sql.NullString
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&result); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, classifyError(fn, err)
	}
	return result.String, result.Valid, nil
}
