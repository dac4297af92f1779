package messagestore

// Default read settings, matching the server function defaults.
const (
	DefaultBatchSize        = 1000
	DefaultStreamPosition   = 0
	DefaultCategoryPosition = 1

	// UnlimitedBatchSize reads to the end of the stream or category.
	UnlimitedBatchSize = -1
)

// GetOpts specifies options for getting stream messages
type GetOpts struct {
	Position  int64  // Stream position (default: 0)
	BatchSize int64  // Number of messages (default: 1000, -1 for unlimited)
	Condition string // SQL condition evaluated by the server; requires message_store.sql_condition to be on
}

// CategoryOpts specifies options for getting category messages
type CategoryOpts struct {
	Position      int64          // Global position for category (default: 1)
	BatchSize     int64          // Number of messages (default: 1000, -1 for unlimited)
	Correlation   string         // Filter by metadata.correlationStreamName category
	ConsumerGroup *ConsumerGroup // Partition the category across group members
	Condition     string         // SQL condition evaluated by the server
}

// ConsumerGroup selects the share of a category read by one group member.
// Streams are assigned to members by hash of their cardinal ID modulo Size.
type ConsumerGroup struct {
	Member int64 // 0-indexed member number
	Size   int64 // Total members in the group
}

// GetLastOpts configures GetLastStreamMessage
type GetLastOpts struct {
	Type string // Only consider messages of this type (default: any)
}

// NewGetOpts creates GetOpts with default values
func NewGetOpts() *GetOpts {
	return &GetOpts{
		Position:  DefaultStreamPosition,
		BatchSize: DefaultBatchSize,
	}
}

// NewCategoryOpts creates CategoryOpts with default values
func NewCategoryOpts() *CategoryOpts {
	return &CategoryOpts{
		Position:  DefaultCategoryPosition,
		BatchSize: DefaultBatchSize,
	}
}

func (o *GetOpts) validate(op string) error {
	if o.Position < 0 {
		return invalidRequest(op, "position", "position must not be negative, got %d", o.Position)
	}
	return validateBatchSize(op, o.BatchSize)
}

func (o *CategoryOpts) validate(op string) error {
	if o.Position < 0 {
		return invalidRequest(op, "position", "position must not be negative, got %d", o.Position)
	}
	if err := validateBatchSize(op, o.BatchSize); err != nil {
		return err
	}
	if o.Correlation != "" && !IsCategory(o.Correlation) {
		return invalidRequest(op, "correlation", "correlation must be a category, got %q", o.Correlation)
	}
	if g := o.ConsumerGroup; g != nil {
		if g.Size < 1 {
			return invalidRequest(op, "consumer_group_size", "consumer group size must be at least 1, got %d", g.Size)
		}
		if g.Member < 0 || g.Member >= g.Size {
			return invalidRequest(op, "consumer_group_member",
				"consumer group member must be in [0, %d), got %d", g.Size, g.Member)
		}
	}
	return nil
}

func validateBatchSize(op string, batchSize int64) error {
	if batchSize == 0 || batchSize < UnlimitedBatchSize {
		return invalidRequest(op, "batch_size", "batch size must be positive or -1 for unlimited, got %d", batchSize)
	}
	return nil
}

// nullString maps the empty string to SQL NULL.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (g *ConsumerGroup) params() (member, size interface{}) {
	if g == nil {
		return nil, nil
	}
	return g.Member, g.Size
}
