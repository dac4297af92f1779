package messagestore

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DefaultSchema is the schema the message store functions are installed in.
const DefaultSchema = "message_store"

// queries holds the SQL for each server function, qualified with the schema.
// Parameters are positional and their order is fixed by the function signatures.
type queries struct {
	// acquire_lock(stream_name)
	acquireLock string
	// cardinal_id(stream_name)
	cardinalID string
	// category(stream_name)
	category string
	// get_category_messages(
	//   category,
	//   position,
	//   batch_size,
	//   correlation,
	//   consumer_group_member,
	//   consumer_group_size,
	//   condition
	// )
	getCategoryMessages string
	// get_last_stream_message(stream_name, type)
	getLastStreamMessage string
	// get_stream_messages(stream_name, position, batch_size, condition)
	getStreamMessages string
	// hash_64(value)
	hash64 string
	// id(stream_name)
	id string
	// message_store_version()
	messageStoreVersion string
	// stream_version(stream_name)
	streamVersion string
	// write_message(id, stream_name, type, data, metadata, expected_version)
	writeMessage string
}

func newQueries(schema string) queries {
	s := pgx.Identifier{schema}.Sanitize()

	return queries{
		acquireLock: fmt.Sprintf(`SELECT %s.acquire_lock($1)`, s),
		cardinalID:  fmt.Sprintf(`SELECT %s.cardinal_id($1)`, s),
		category:    fmt.Sprintf(`SELECT %s.category($1)`, s),
		getCategoryMessages: fmt.Sprintf(
			`SELECT id, stream_name, type, position, global_position, data, metadata, time
			 FROM %s.get_category_messages($1, $2, $3, $4, $5, $6, $7)`, s),
		getLastStreamMessage: fmt.Sprintf(
			`SELECT id, stream_name, type, position, global_position, data, metadata, time
			 FROM %s.get_last_stream_message($1, $2)`, s),
		getStreamMessages: fmt.Sprintf(
			`SELECT id, stream_name, type, position, global_position, data, metadata, time
			 FROM %s.get_stream_messages($1, $2, $3, $4)`, s),
		hash64:              fmt.Sprintf(`SELECT %s.hash_64($1)`, s),
		id:                  fmt.Sprintf(`SELECT %s.id($1)`, s),
		messageStoreVersion: fmt.Sprintf(`SELECT %s.message_store_version()`, s),
		streamVersion:       fmt.Sprintf(`SELECT %s.stream_version($1)`, s),
		writeMessage:        fmt.Sprintf(`SELECT %s.write_message($1, $2, $3, $4::jsonb, $5::jsonb, $6)`, s),
	}
}

// validSchemaName reports whether name is a plain SQL identifier.
func validSchemaName(name string) bool {
	if name == "" || len(name) > 63 {
		return false
	}
	for i, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_':
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
