package audit

import (
	"context"
	"fmt"
	"time"
)

// Source identifies the surface a check arrived through.
type Source string

// Known sources.
const (
	SourceAPI Source = "api"
	SourceMCP Source = "mcp"
	SourceCLI Source = "cli"
)

// Record is the persisted summary of one safety check. It never carries the
// checked content itself.
type Record struct {
	// ID uniquely identifies the record.
	ID string `json:"id" yaml:"id"`

	// CheckID is the id of the check result the record describes.
	CheckID string `json:"checkId" yaml:"check_id"`

	// RequestID correlates the record with an API or MCP request.
	RequestID string `json:"requestId,omitempty" yaml:"request_id,omitempty"`

	Source Source `json:"source" yaml:"source"`

	// Timestamp is when the check completed.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// ContentHash is the hex SHA-256 of the checked content.
	ContentHash   string `json:"contentHash" yaml:"content_hash"`
	ContentLength int    `json:"contentLength" yaml:"content_length"`

	Score     int    `json:"score" yaml:"score"`
	Passed    bool   `json:"passed" yaml:"passed"`
	Blocked   bool   `json:"blocked" yaml:"blocked"`
	RiskLevel string `json:"riskLevel" yaml:"risk_level"`

	IssueCount int `json:"issueCount" yaml:"issue_count"`

	// IssueTypes counts issues per category.
	IssueTypes map[string]int `json:"issueTypes,omitempty" yaml:"issue_types,omitempty"`

	// Severities counts issues per severity.
	Severities map[string]int `json:"severities,omitempty" yaml:"severities,omitempty"`

	IssueIDs        []string `json:"issueIds,omitempty" yaml:"issue_ids,omitempty"`
	ChecksPerformed []string `json:"checksPerformed,omitempty" yaml:"checks_performed,omitempty"`

	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Sanitized bool `json:"sanitized,omitempty" yaml:"sanitized,omitempty"`

	DurationMs float64 `json:"durationMs" yaml:"duration_ms"`
}

// Query filters audit records. Zero-valued fields do not filter.
type Query struct {
	// Time range filter (inclusive)
	StartTime *time.Time
	EndTime   *time.Time

	CheckID   string
	RequestID string
	Source    Source
	RiskLevel string

	// Blocked filters on the block decision when set.
	Blocked *bool

	// Score range filter (inclusive)
	MinScore *int
	MaxScore *int

	// Limit caps the number of records returned. Zero or less means no
	// limit at the storage layer.
	Limit  int
	Offset int

	// SortOrder orders records by timestamp: "asc" or "desc" (default).
	SortOrder string
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate checks query parameters and applies limits. A zero limit becomes
// defaultLimit and any limit above maxLimit is rejected.
func (q *Query) Validate(defaultLimit, maxLimit int) error {
	if q.Limit < 0 {
		return NewQueryError(fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		return NewQueryError(fmt.Errorf("limit must be <= %d, got %d", maxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return NewQueryError(fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(fmt.Errorf("start time must be before end time"))
	}
	if q.MinScore != nil && q.MaxScore != nil && *q.MinScore > *q.MaxScore {
		return NewQueryError(fmt.Errorf("min score must be <= max score"))
	}
	switch q.Source {
	case "", SourceAPI, SourceMCP, SourceCLI:
	default:
		return NewQueryError(fmt.Errorf("invalid source: %s", q.Source))
	}
	return nil
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the query.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the query. Limit and
	// Offset are ignored.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query and returns how many were
	// removed. Limit, Offset and SortOrder are ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}
