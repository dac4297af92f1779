package messagestore

import (
	"time"

	"github.com/google/uuid"
)

// Message is a message to be written to a stream.
type Message struct {
	ID         string // UUID chosen by the caller; reuse it when retrying a write
	StreamName string // Format: category-id or category-cardinalId+compoundPart
	Type       string // Message type name

	// Data is the message payload. It is encoded as JSON before it is sent;
	// RawMessage and []byte values must already hold JSON and are sent as is.
	Data interface{}

	// Metadata is optional. Nil (or JSON null) is written as SQL NULL.
	Metadata interface{}

	// ExpectedVersion enables optimistic concurrency when set. Use -1 to
	// require that the stream has no messages yet.
	ExpectedVersion *int64
}

// MessageData is a message read back from the store.
type MessageData struct {
	ID             string
	StreamName     string
	Type           string
	Position       int64      // Stream position (gapless, 0-indexed)
	GlobalPosition int64      // Global position (may have gaps)
	Data           RawMessage // JSON payload
	Metadata       RawMessage // JSON metadata, nil when the message has none
	Time           time.Time  // UTC timestamp
}

// UnmarshalData decodes the message payload into v.
func (m *MessageData) UnmarshalData(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}

// UnmarshalMetadata decodes the message metadata into v. It is a no-op when
// the message has no metadata.
func (m *MessageData) UnmarshalMetadata(v interface{}) error {
	if len(m.Metadata) == 0 {
		return nil
	}
	return json.Unmarshal(m.Metadata, v)
}

// StandardMetadata decodes the conventional metadata fields.
func (m *MessageData) StandardMetadata() (StandardMetadata, error) {
	var md StandardMetadata
	err := m.UnmarshalMetadata(&md)
	return md, err
}

// StandardMetadata holds the metadata attributes recognised by Message DB and
// its consumers. CorrelationStreamName drives the correlation filter of
// GetCategoryMessages.
type StandardMetadata struct {
	CorrelationStreamName          string `json:"correlationStreamName,omitempty"`
	CausationMessageStreamName     string `json:"causationMessageStreamName,omitempty"`
	CausationMessagePosition       *int64 `json:"causationMessagePosition,omitempty"`
	CausationMessageGlobalPosition *int64 `json:"causationMessageGlobalPosition,omitempty"`
	ReplyStreamName                string `json:"replyStreamName,omitempty"`
	SchemaVersion                  string `json:"schemaVersion,omitempty"`
}

// Follow returns metadata for a message written in reaction to m: causation
// points at m, correlation and reply stream are carried over.
func (m *MessageData) Follow() (StandardMetadata, error) {
	preceding, err := m.StandardMetadata()
	if err != nil {
		return StandardMetadata{}, err
	}

	position := m.Position
	globalPosition := m.GlobalPosition

	return StandardMetadata{
		CorrelationStreamName:          preceding.CorrelationStreamName,
		CausationMessageStreamName:     m.StreamName,
		CausationMessagePosition:       &position,
		CausationMessageGlobalPosition: &globalPosition,
		ReplyStreamName:                preceding.ReplyStreamName,
	}, nil
}

// NewID returns a fresh message ID (UUID v7, time ordered).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ExpectVersion returns a pointer for Message.ExpectedVersion.
func ExpectVersion(version int64) *int64 {
	return &version
}
