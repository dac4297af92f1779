package messagestore

import (
	"testing"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		name       string
		streamName string
		expected   string
	}{
		{"simple stream", "account-123", "account"},
		{"compound ID", "account-123+456", "account"},
		{"category only", "account", "account"},
		{"multi-dash", "account-prefix-123", "account"},
		{"typed category", "account:command-123", "account:command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Category(tt.streamName)
			if result != tt.expected {
				t.Errorf("Category(%s) = %s, expected %s", tt.streamName, result, tt.expected)
			}
		})
	}
}

func TestID(t *testing.T) {
	tests := []struct {
		name       string
		streamName string
		expected   string
	}{
		{"simple stream", "account-123", "123"},
		{"compound ID", "account-123+456", "123+456"},
		{"category only", "account", ""},
		{"multi-dash", "account-prefix-123", "prefix-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ID(tt.streamName)
			if result != tt.expected {
				t.Errorf("ID(%s) = %s, expected %s", tt.streamName, result, tt.expected)
			}
		})
	}
}

func TestCardinalID(t *testing.T) {
	tests := []struct {
		name       string
		streamName string
		expected   string
	}{
		{"simple stream", "account-123", "123"},
		{"compound ID", "account-123+456", "123"},
		{"category only", "account", ""},
		{"multi-part compound", "account-123+456+789", "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CardinalID(tt.streamName)
			if result != tt.expected {
				t.Errorf("CardinalID(%s) = %s, expected %s", tt.streamName, result, tt.expected)
			}
		})
	}
}

func TestIsCategory(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"category", "account", true},
		{"typed category", "account:command", true},
		{"stream", "account-123", false},
		{"compound stream", "account-123+456", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsCategory(tt.input)
			if result != tt.expected {
				t.Errorf("IsCategory(%s) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCategoryType(t *testing.T) {
	tests := []struct {
		name       string
		streamName string
		expected   string
	}{
		{"typed stream", "account:command-123", "command"},
		{"typed category", "account:position", "position"},
		{"untyped", "account-123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategoryType(tt.streamName)
			if result != tt.expected {
				t.Errorf("CategoryType(%s) = %s, expected %s", tt.streamName, result, tt.expected)
			}
		})
	}
}

func TestStreamName(t *testing.T) {
	tests := []struct {
		name     string
		category string
		ids      []string
		expected string
	}{
		{"single id", "account", []string{"123"}, "account-123"},
		{"compound id", "account", []string{"123", "456"}, "account-123+456"},
		{"no id", "account", nil, "account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StreamName(tt.category, tt.ids...)
			if result != tt.expected {
				t.Errorf("StreamName(%s, %v) = %s, expected %s", tt.category, tt.ids, result, tt.expected)
			}
			if CardinalID(result) != firstOrEmpty(tt.ids) {
				t.Errorf("CardinalID(%s) = %s, expected %s", result, CardinalID(result), firstOrEmpty(tt.ids))
			}
		})
	}
}

func firstOrEmpty(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
