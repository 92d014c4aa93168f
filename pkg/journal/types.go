package journal

import (
	"context"
	"io"
	"time"
)

// Entry statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Entry is one recorded rule evaluation.
type Entry struct {
	// Identity
	ID         string    `json:"id"`          // UUID v4
	RecordedAt time.Time `json:"recorded_at"` // When the evaluation finished

	// Result
	Rule    string `json:"rule"`
	Value   any    `json:"value"`          // float64, bool, string, nil or a list/object of those
	Unit    string `json:"unit,omitempty"` // Unit of numeric values
	Display string `json:"display"`        // Value as printed by the CLI

	// Outcome
	Status    string `json:"status"`               // "success" or "error"
	Error     string `json:"error,omitempty"`      // Error message of failed evaluations
	ErrorType string `json:"error_type,omitempty"` // lex, syntax, link, cycle, eval, ...

	// Context
	EngineID    string            `json:"engine_id,omitempty"`    // Engine that computed the value
	SituationID string            `json:"situation_id,omitempty"` // Situation in effect
	Situation   map[string]string `json:"situation,omitempty"`    // Overridden rules
	Traversed   []string          `json:"traversed,omitempty"`    // Rules the value depends on

	Duration time.Duration `json:"duration_ns"`
}

// Query defines filter parameters for querying journal entries.
type Query struct {
	// Time range
	Since *time.Time `json:"since,omitempty"` // Inclusive start time
	Until *time.Time `json:"until,omitempty"` // Inclusive end time

	// Filters
	Rule     string `json:"rule,omitempty"`      // Exact rule name
	Status   string `json:"status,omitempty"`    // "success" or "error"
	EngineID string `json:"engine_id,omitempty"` // Engine instance

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max entries to return
	Offset int `json:"offset,omitempty"` // Skip N entries

	// SortOrder orders by recording time: "desc" (default) or "asc"
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the interface for journal storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists an entry.
	Store(ctx context.Context, entry *Entry) error

	// Query retrieves entries matching the query filters, honoring Limit
	// and Offset. Returns an empty slice if no entries match.
	Query(ctx context.Context, query *Query) ([]*Entry, error)

	// Count returns the number of entries matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes entries matching the query filters, ignoring Limit and
	// Offset, and returns the number of entries deleted.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Trim deletes all but the keep most recent entries and returns the
	// number of entries deleted.
	Trim(ctx context.Context, keep int64) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes entries in a serialization format.
type Exporter interface {
	Export(ctx context.Context, entries []*Entry, w io.Writer) error
}
