package audit

import (
	"encoding/csv"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{
	"id", "check_id", "request_id", "source", "timestamp",
	"content_hash", "content_length",
	"score", "passed", "blocked", "risk_level",
	"issue_count", "issue_types", "severities", "issue_ids",
	"truncated", "sanitized", "duration_ms",
}

// WriteCSV writes records as CSV with a header row. Count maps are
// flattened to "key=n" pairs sorted by key and lists are joined with ";".
func WriteCSV(w io.Writer, records []*Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID, r.CheckID, r.RequestID, string(r.Source), r.Timestamp.Format(time.RFC3339Nano),
			r.ContentHash, strconv.Itoa(r.ContentLength),
			strconv.Itoa(r.Score), strconv.FormatBool(r.Passed), strconv.FormatBool(r.Blocked), r.RiskLevel,
			strconv.Itoa(r.IssueCount), formatCounts(r.IssueTypes), formatCounts(r.Severities), strings.Join(r.IssueIDs, ";"),
			strconv.FormatBool(r.Truncated), strconv.FormatBool(r.Sanitized), strconv.FormatFloat(r.DurationMs, 'f', 3, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCounts(m map[string]int) string {
	keys := slices.Sorted(maps.Keys(m))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Itoa(m[k]))
	}
	return strings.Join(parts, ";")
}
