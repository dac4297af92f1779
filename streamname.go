package messagestore

import "strings"

// Stream name separators used by the server schema.
const (
	IDSeparator           = "-"
	CompoundIDSeparator   = "+"
	CategoryTypeSeparator = ":"
)

// The helpers below follow the server's naming rules and are meant for
// building and inspecting names locally. The server functions (Client.Category,
// Client.ID, Client.CardinalID) remain the authority.

// StreamName builds a stream name from a category and one or more IDs.
// Multiple IDs are joined into a compound ID.
//
//	StreamName("account", "123") → "account-123"
//	StreamName("account", "123", "456") → "account-123+456"
//	StreamName("account") → "account"
func StreamName(category string, ids ...string) string {
	if len(ids) == 0 {
		return category
	}
	return category + IDSeparator + strings.Join(ids, CompoundIDSeparator)
}

// Category extracts the category name from a stream name
// Examples:
//
//	Category("account-123") → "account"
//	Category("account-123+456") → "account"
//	Category("account") → "account"
func Category(streamName string) string {
	category, _, _ := strings.Cut(streamName, IDSeparator)
	return category
}

// ID extracts the ID portion from a stream name
// Examples:
//
//	ID("account-123") → "123"
//	ID("account-123+456") → "123+456"
//	ID("account") → ""
func ID(streamName string) string {
	_, id, _ := strings.Cut(streamName, IDSeparator)
	return id
}

// CardinalID extracts the cardinal ID (before '+') from a stream name
// Used for consumer group partitioning with compound IDs
// Examples:
//
//	CardinalID("account-123") → "123"
//	CardinalID("account-123+456") → "123"
//	CardinalID("account") → ""
func CardinalID(streamName string) string {
	cardinal, _, _ := strings.Cut(ID(streamName), CompoundIDSeparator)
	return cardinal
}

// IsCategory determines if a name represents a category (no ID part)
// Examples:
//
//	IsCategory("account") → true
//	IsCategory("account-123") → false
func IsCategory(name string) bool {
	return !strings.Contains(name, IDSeparator)
}

// CategoryType returns the type suffix of a category, e.g. "command" for
// "account:command-123". Returns "" when the category has no type.
func CategoryType(streamName string) string {
	_, categoryType, _ := strings.Cut(Category(streamName), CategoryTypeSeparator)
	return categoryType
}
