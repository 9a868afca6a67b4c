package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/safety"
	"promptstudio/aegis/pkg/safety/patterns"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatYAML is YAML output.
	FormatYAML OutputFormat = "yaml"
	// FormatCSV is CSV output (audit records only).
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json, yaml or csv)", s)
	}
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// SanitizeReport is the result of the sanitize command.
type SanitizeReport struct {
	SanitizedContent string              `json:"sanitizedContent" yaml:"sanitized_content"`
	Changed          bool                `json:"changed" yaml:"changed"`
	Result           *safety.CheckResult `json:"result" yaml:"result"`
}

// PruneReport is the result of the audit prune command.
type PruneReport struct {
	Deleted   int64 `json:"deleted" yaml:"deleted"`
	Remaining int64 `json:"remaining" yaml:"remaining"`
}

// TextFormatter renders the command result types for a terminal. Other
// values are printed with %v.
type TextFormatter struct{}

// FormatTo writes data to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *safety.CheckResult:
		return writeCheckResult(w, v)
	case *SanitizeReport:
		// Only the text, so the output can be piped.
		_, err := io.WriteString(w, v.SanitizedContent)
		if err == nil && !strings.HasSuffix(v.SanitizedContent, "\n") {
			_, err = io.WriteString(w, "\n")
		}
		return err
	case []*audit.Record:
		return writeRecords(w, v)
	case []patterns.Summary:
		return writeSummaries(w, v)
	case *PruneReport:
		_, err := fmt.Fprintf(w, "Deleted %d audit records, %d remaining\n", v.Deleted, v.Remaining)
		return err
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

func writeCheckResult(w io.Writer, r *safety.CheckResult) error {
	verdict := "PASSED"
	switch {
	case r.Blocked:
		verdict = "BLOCKED"
	case !r.Passed:
		verdict = "FAILED"
	}

	checks := make([]string, len(r.ChecksPerformed))
	for i, c := range r.ChecksPerformed {
		checks[i] = string(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Result: %s (score %d/100, risk %s)\n", verdict, r.Score, r.RiskLevel)
	fmt.Fprintf(&b, "Check:  %s\n", r.CheckID)
	fmt.Fprintf(&b, "Checks: %s\n", strings.Join(checks, ", "))
	if r.Truncated {
		b.WriteString("Note:   content was truncated before scanning\n")
	}

	if len(r.Issues) > 0 {
		fmt.Fprintf(&b, "\nIssues (%d):\n", len(r.Issues))
		for _, is := range r.Issues {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", is.Severity, is.Type, is.Title)
			if is.Location != nil {
				fmt.Fprintf(&b, "      line %d, column %d", is.Location.Line, is.Location.Column)
				if is.MatchedContent != "" {
					fmt.Fprintf(&b, ": %q", is.MatchedContent)
				}
				b.WriteString("\n")
			}
			if is.Suggestion != "" {
				fmt.Fprintf(&b, "      %s\n", is.Suggestion)
			}
		}
	}

	if r.Drift != nil && r.Drift.Type != safety.DriftNone {
		fmt.Fprintf(&b, "\nDrift: %s (%.2f) %s\n", r.Drift.Type, r.Drift.Score, r.Drift.Description)
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}

	if r.SanitizedContent != nil {
		fmt.Fprintf(&b, "\nSanitized:\n%s\n", *r.SanitizedContent)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRecords(w io.Writer, records []*audit.Record) error {
	if len(records) == 0 {
		_, err := io.WriteString(w, "No audit records found\n")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCHECK\tSOURCE\tSCORE\tRISK\tBLOCKED\tISSUES")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%t\t%d\n",
			r.Timestamp.Local().Format(time.DateTime), r.CheckID, r.Source,
			r.Score, r.RiskLevel, r.Blocked, r.IssueCount)
	}
	return tw.Flush()
}

func writeSummaries(w io.Writer, sums []patterns.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tDESCRIPTION")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Severity, s.Description)
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// FormatTo writes data to writer in YAML format.
func (f *YAMLFormatter) FormatTo(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// CSVFormatter formats audit records as CSV.
type CSVFormatter struct{}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	records, ok := data.([]*audit.Record)
	if !ok {
		return fmt.Errorf("csv output is only supported for audit records, not %T", data)
	}
	return audit.WriteCSV(w, records)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
