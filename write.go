package messagestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventodb/messagestore-go/internal/pgerr"
)

// WriteMessage appends msg to msg.StreamName and returns the stream position
// it was written at.
//
// If msg.ExpectedVersion is set the server only writes when the stream's
// current version matches; otherwise the call fails with a
// *VersionConflictError (errors.Is(err, ErrVersionConflict)) and nothing is
// written.
//
// If the call is interrupted after the statement may have reached the server
// (context cancelled, connection lost) the error matches ErrUnknownOutcome:
// the message may have been written. Check StreamVersion or
// GetLastStreamMessage before retrying with the same ID.
func (c *Client) WriteMessage(ctx context.Context, msg Message) (position int64, err error) {
	const fn = "write_message"
	if err := c.checkClosed(); err != nil {
		return 0, err
	}

	// 1. Validate and encode before touching the network
	params, err := encodeMessage(fn, msg)
	if err != nil {
		return 0, err
	}

	// A context that is already done never reaches the server
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", fn, err)
	}

	start := time.Now()
	defer func() { c.logCall(ctx, fn, msg.StreamName, start, err) }()

	// 2. Call write_message
	err = c.db.QueryRowContext(ctx, c.q.writeMessage, params...).Scan(&position)
	if err != nil {
		return 0, writeError(fn, msg, err)
	}

	return position, nil
}

// WriteMessages writes msgs in order inside one transaction and returns the
// position of each. A conflict on any message rolls back the whole batch.
//
// On a pool-backed client a transaction is started and committed here; on a
// client returned by WithTx the caller's transaction is used and left open.
func (c *Client) WriteMessages(ctx context.Context, msgs ...Message) ([]int64, error) {
	const fn = "write_message"
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	// Validate the whole batch first
	for i := range msgs {
		if _, err := encodeMessage(fn, msgs[i]); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}

	beginner, ok := c.db.(txBeginner)
	if !ok {
		return c.writeEach(ctx, c, msgs)
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifyError("begin", err)
	}
	defer tx.Rollback()

	positions, err := c.writeEach(ctx, c.WithTx(tx), msgs)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if pgerr.IsContext(err) || pgerr.IsConnection(err) {
			last := msgs[len(msgs)-1]
			return nil, &UnknownOutcomeError{MessageID: last.ID, StreamName: last.StreamName, Err: err}
		}
		return nil, classifyError("commit", err)
	}

	return positions, nil
}

func (c *Client) writeEach(ctx context.Context, w *Client, msgs []Message) ([]int64, error) {
	positions := make([]int64, 0, len(msgs))
	for i, msg := range msgs {
		position, err := w.WriteMessage(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		positions = append(positions, position)
	}
	return positions, nil
}

// encodeMessage validates msg and returns the positional write_message
// parameters: id, stream_name, type, data, metadata, expected_version.
func encodeMessage(op string, msg Message) ([]interface{}, error) {
	if msg.ID == "" {
		return nil, invalidRequest(op, "id", "message id is required")
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, invalidRequest(op, "id", "invalid UUID format: %v", err)
	}
	if msg.StreamName == "" {
		return nil, invalidRequest(op, "stream_name", "stream name is required")
	}
	if msg.Type == "" {
		return nil, invalidRequest(op, "type", "message type is required")
	}

	data, err := encodeJSON(msg.Data)
	if err != nil {
		return nil, invalidRequest(op, "data", "failed to marshal data: %v", err)
	}
	if data == nil {
		return nil, invalidRequest(op, "data", "data is required")
	}

	metadata, err := encodeJSON(msg.Metadata)
	if err != nil {
		return nil, invalidRequest(op, "metadata", "failed to marshal metadata: %v", err)
	}

	var metadataParam interface{}
	if metadata != nil {
		metadataParam = string(metadata)
	}

	var expectedVersion interface{}
	if msg.ExpectedVersion != nil {
		if *msg.ExpectedVersion < -1 {
			return nil, invalidRequest(op, "expected_version",
				"expected version must be -1 or greater, got %d", *msg.ExpectedVersion)
		}
		expectedVersion = *msg.ExpectedVersion
	}

	return []interface{}{
		msg.ID,
		msg.StreamName,
		msg.Type,
		string(data),
		metadataParam,
		expectedVersion,
	}, nil
}

func writeError(op string, msg Message, err error) error {
	if pgerr.IsContext(err) || (pgerr.IsConnection(err) && pgerr.MaybeSent(err)) {
		return &UnknownOutcomeError{MessageID: msg.ID, StreamName: msg.StreamName, Err: err}
	}

	classified := classifyError(op, err)

	var conflict *VersionConflictError
	if errors.As(classified, &conflict) {
		if conflict.StreamName == "" {
			conflict.StreamName = msg.StreamName
		}
		if msg.ExpectedVersion != nil {
			conflict.ExpectedVersion = *msg.ExpectedVersion
		}
	}

	return classified
}
