// Package pgerr classifies errors coming out of the pgx and lib/pq drivers.
//
// The message store functions report their own failures with RAISE EXCEPTION
// (SQLSTATE P0001), so classification looks at both the SQLSTATE and the
// server message text.
package pgerr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Kind is the category an error falls into.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnection
	KindSchemaMismatch
	KindVersionConflict
	KindInvalidArgument
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindSchemaMismatch:
		return "schema_mismatch"
	case KindVersionConflict:
		return "version_conflict"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindDuplicate:
		return "duplicate"
	}
	return "unknown"
}

// Info is the result of Classify.
type Info struct {
	Kind    Kind
	Code    string // SQLSTATE, empty for non-server errors
	Message string // server message, or err.Error() for non-server errors
}

// SQLSTATE codes that mean the server does not expose the expected functions.
var schemaMismatchCodes = map[string]bool{
	"42883": true, // undefined_function
	"3F000": true, // invalid_schema_name
	"42P01": true, // undefined_table
	"42703": true, // undefined_column
	"42725": true, // ambiguous_function
	"42804": true, // datatype_mismatch
	"42P18": true, // indeterminate_datatype
}

// Classify maps err to a Kind.
func Classify(err error) Info {
	if err == nil {
		return Info{}
	}

	if code, msg, ok := ServerError(err); ok {
		return Info{Kind: kindForCode(code, msg), Code: code, Message: msg}
	}

	if IsConnection(err) {
		return Info{Kind: KindConnection, Message: err.Error()}
	}

	return Info{Kind: KindUnknown, Message: err.Error()}
}

// ServerError extracts the SQLSTATE and message from a pgx or lib/pq error.
func ServerError(err error) (code, message string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message, true
	}

	return "", "", false
}

func kindForCode(code, msg string) Kind {
	switch {
	case code == "P0001":
		// raise_exception from the message store functions
		if strings.HasPrefix(msg, "Wrong expected version") {
			return KindVersionConflict
		}
		return KindInvalidArgument
	case code == "23505":
		return KindDuplicate
	case code == "22P02", code == "22023", code == "22003":
		return KindInvalidArgument
	case schemaMismatchCodes[code]:
		return KindSchemaMismatch
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "28"):
		return KindConnection
	case code == "57P01", code == "57P02", code == "57P03", code == "53300":
		return KindConnection
	}
	return KindUnknown
}

// IsConnection reports whether err means the backing store could not be
// reached or the session was lost.
func IsConnection(err error) bool {
	if err == nil {
		return false
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsContext reports whether err comes from a cancelled or expired context.
func IsContext(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		pgconn.Timeout(err)
}

// MaybeSent reports whether a failed statement may have reached the server.
// Errors raised while dialing are known not to have been sent.
func MaybeSent(err error) bool {
	if err == nil {
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return false
	}
	return !pgconn.SafeToRetry(err)
}

var versionConflictPattern = regexp.MustCompile(
	`^Wrong expected version: (-?\d+) \(Stream: (.*), Stream Version: ([^)]*)\)`,
)

// ParseVersionConflict parses the write_message conflict text, e.g.
//
//	Wrong expected version: 3 (Stream: account-123, Stream Version: 1)
//
// An empty stream reports its version as NULL, which parses as -1.
func ParseVersionConflict(msg string) (streamName string, expected, actual int64, ok bool) {
	m := versionConflictPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", 0, 0, false
	}

	expected, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}

	actual, err = strconv.ParseInt(strings.TrimSpace(m[3]), 10, 64)
	if err != nil {
		actual = -1
	}

	return m[2], expected, actual, true
}
