package messagestore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/eventodb/messagestore-go/internal/pgerr"
)

// Error codes
const (
	CodeConnection       = "CONNECTION_ERROR"
	CodeSchemaMismatch   = "SCHEMA_MISMATCH"
	CodeNoRows           = "NO_ROWS"
	CodeVersionConflict  = "STREAM_VERSION_CONFLICT"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeDuplicateMessage = "DUPLICATE_MESSAGE_ID"
	CodeUnknownOutcome   = "UNKNOWN_OUTCOME"
	CodeClosed           = "CLIENT_CLOSED"
)

// Error represents a message store client error.
//
// Errors compare by Code, so errors.Is(err, ErrConnection) matches any
// connection failure regardless of operation or cause.
type Error struct {
	Code    string                 // One of the Code* constants
	Op      string                 // Server function (or client step) that failed
	Message string                 // Human readable reason; server text is kept verbatim
	Details map[string]interface{} // Optional context, e.g. the offending field
	Err     error                  // Underlying driver error, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if len(e.Details) > 0 {
		msg = fmt.Sprintf("%s (details: %v)", msg, e.Details)
	}
	return msg
}

// Is allows error comparison
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Unwrap returns the underlying driver error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors, for use with errors.Is
var (
	ErrConnection       = &Error{Code: CodeConnection, Message: "cannot reach message store"}
	ErrSchemaMismatch   = &Error{Code: CodeSchemaMismatch, Message: "message store function missing or incompatible"}
	ErrNoRows           = &Error{Code: CodeNoRows, Message: "function returned no rows"}
	ErrVersionConflict  = &Error{Code: CodeVersionConflict, Message: "stream version conflict"}
	ErrInvalidRequest   = &Error{Code: CodeInvalidRequest, Message: "invalid request"}
	ErrDuplicateMessage = &Error{Code: CodeDuplicateMessage, Message: "message id already written"}
	ErrUnknownOutcome   = &Error{Code: CodeUnknownOutcome, Message: "write outcome unknown"}
	ErrClosed           = &Error{Code: CodeClosed, Message: "client is closed"}
)

var errInvalidJSON = errors.New("not a valid JSON document")

// VersionConflictError provides detailed information about version conflicts
type VersionConflictError struct {
	StreamName      string
	ExpectedVersion int64
	ActualVersion   int64 // -1 when the stream is empty
	Err             error
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on stream %s: expected %d, actual %d",
		e.StreamName, e.ExpectedVersion, e.ActualVersion)
}

// Is matches ErrVersionConflict
func (e *VersionConflictError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == CodeVersionConflict
}

func (e *VersionConflictError) Unwrap() error {
	return e.Err
}

// UnknownOutcomeError is returned when a write was interrupted after it may
// have reached the server. The message may or may not have been written;
// re-check the stream before writing it again with the same ID.
type UnknownOutcomeError struct {
	MessageID  string
	StreamName string
	Err        error
}

func (e *UnknownOutcomeError) Error() string {
	return fmt.Sprintf("write of message %s to stream %s has unknown outcome: %v",
		e.MessageID, e.StreamName, e.Err)
}

// Is matches ErrUnknownOutcome
func (e *UnknownOutcomeError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == CodeUnknownOutcome
}

func (e *UnknownOutcomeError) Unwrap() error {
	return e.Err
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrVersionConflict)
}

// IsUnknownOutcome checks if a write failed without a known result
func IsUnknownOutcome(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnknownOutcome)
}

func invalidRequest(op, field, format string, args ...interface{}) error {
	return &Error{
		Code:    CodeInvalidRequest,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Details: map[string]interface{}{"field": field},
	}
}

// classifyError maps a driver error from op onto the client error taxonomy.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Code: CodeNoRows, Op: op, Message: "function returned no rows", Err: err}
	}

	info := pgerr.Classify(err)
	switch info.Kind {
	case pgerr.KindVersionConflict:
		conflict := &VersionConflictError{ExpectedVersion: -1, ActualVersion: -1, Err: err}
		if stream, expected, actual, ok := pgerr.ParseVersionConflict(info.Message); ok {
			conflict.StreamName = stream
			conflict.ExpectedVersion = expected
			conflict.ActualVersion = actual
		}
		return conflict
	case pgerr.KindSchemaMismatch:
		return &Error{Code: CodeSchemaMismatch, Op: op, Message: info.Message, Details: sqlState(info), Err: err}
	case pgerr.KindConnection:
		return &Error{Code: CodeConnection, Op: op, Message: info.Message, Details: sqlState(info), Err: err}
	case pgerr.KindInvalidArgument:
		return &Error{Code: CodeInvalidRequest, Op: op, Message: info.Message, Details: sqlState(info), Err: err}
	case pgerr.KindDuplicate:
		return &Error{Code: CodeDuplicateMessage, Op: op, Message: info.Message, Details: sqlState(info), Err: err}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func sqlState(info pgerr.Info) map[string]interface{} {
	if info.Code == "" {
		return nil
	}
	return map[string]interface{}{"sqlstate": info.Code}
}
