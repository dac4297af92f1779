package messagestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetStreamMessages retrieves messages from a stream in position order,
// starting at opts.Position. An empty result means the reader is caught up.
func (c *Client) GetStreamMessages(ctx context.Context, streamName string, opts *GetOpts) (messages []*MessageData, err error) {
	const fn = "get_stream_messages"
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	// 1. Use defaults if opts is nil
	if opts == nil {
		opts = NewGetOpts()
	}

	// 2. Validate before touching the network
	if err := validateStreamName(fn, streamName); err != nil {
		return nil, err
	}
	if err := opts.validate(fn); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.logCall(ctx, fn, streamName, start, err) }()

	// 3. Call get_stream_messages
	rows, err := c.db.QueryContext(
		ctx,
		c.q.getStreamMessages,
		streamName,
		opts.Position,
		opts.BatchSize,
		nullString(opts.Condition),
	)
	if err != nil {
		return nil, classifyError(fn, err)
	}
	defer rows.Close()

	// 4. Parse results with capacity hint
	return scanMessages(fn, rows, opts.BatchSize)
}

// GetCategoryMessages retrieves messages from all streams in a category in
// global position order, starting at opts.Position. Correlation and consumer
// group filters are applied by the server.
func (c *Client) GetCategoryMessages(ctx context.Context, category string, opts *CategoryOpts) (messages []*MessageData, err error) {
	const fn = "get_category_messages"
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	if opts == nil {
		opts = NewCategoryOpts()
	}

	if category == "" {
		return nil, invalidRequest(fn, "category", "category is required")
	}
	if !IsCategory(category) {
		return nil, invalidRequest(fn, "category", "must be a category, got stream name %q", category)
	}
	if err := opts.validate(fn); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.logCall(ctx, fn, category, start, err) }()

	member, size := opts.ConsumerGroup.params()
	rows, err := c.db.QueryContext(
		ctx,
		c.q.getCategoryMessages,
		category,
		opts.Position,
		opts.BatchSize,
		nullString(opts.Correlation),
		member,
		size,
		nullString(opts.Condition),
	)
	if err != nil {
		return nil, classifyError(fn, err)
	}
	defer rows.Close()

	return scanMessages(fn, rows, opts.BatchSize)
}

// GetLastStreamMessage retrieves the last message written to a stream,
// optionally of a given type. It returns nil, nil when there is none.
func (c *Client) GetLastStreamMessage(ctx context.Context, streamName string, opts *GetLastOpts) (msg *MessageData, err error) {
	const fn = "get_last_stream_message"
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	if opts == nil {
		opts = &GetLastOpts{}
	}
	if err := validateStreamName(fn, streamName); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.logCall(ctx, fn, streamName, start, err) }()

	rows, err := c.db.QueryContext(
		ctx,
		c.q.getLastStreamMessage,
		streamName,
		nullString(opts.Type),
	)
	if err != nil {
		return nil, classifyError(fn, err)
	}
	defer rows.Close()

	messages, err := scanMessages(fn, rows, 1)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}

func validateStreamName(op, streamName string) error {
	if streamName == "" {
		return invalidRequest(op, "stream_name", "stream name is required")
	}
	if IsCategory(streamName) {
		return invalidRequest(op, "stream_name", "must be a stream name, got category %q", streamName)
	}
	return nil
}

// scanMessages decodes rows of
// (id, stream_name, type, position, global_position, data, metadata, time).
func scanMessages(op string, rows *sql.Rows, batchSize int64) ([]*MessageData, error) {
	capacity := batchSize
	if capacity <= 0 || capacity > DefaultBatchSize {
		capacity = DefaultBatchSize
	}
	messages := make([]*MessageData, 0, capacity)

	for rows.Next() {
		var msg MessageData
		var data, metadata []byte

		if err := rows.Scan(
			&msg.ID,
			&msg.StreamName,
			&msg.Type,
			&msg.Position,
			&msg.GlobalPosition,
			&data,
			&metadata,
			&msg.Time,
		); err != nil {
			return nil, classifyError(op, fmt.Errorf("failed to scan message: %w", err))
		}

		msg.Data = RawMessage(data)
		if len(metadata) > 0 && !isJSONNull(metadata) {
			msg.Metadata = RawMessage(metadata)
		}
		msg.Time = msg.Time.UTC()

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, classifyError(op, err)
	}

	return messages, nil
}
