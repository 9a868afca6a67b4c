package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"promptstudio/aegis/pkg/audit"
	"promptstudio/aegis/pkg/safety"
	"promptstudio/aegis/pkg/safety/patterns"
)

func sampleResult() *safety.CheckResult {
	sanitized := "mail [EMAIL_REDACTED]"
	return &safety.CheckResult{
		CheckID:   "chk-1",
		Passed:    true,
		Score:     80,
		RiskLevel: "high",
		Issues: []safety.Issue{{
			ID:             "pii:email:5",
			Type:           safety.CategoryPII,
			Severity:       safety.SeverityHigh,
			Title:          "Email address detected",
			Location:       &safety.Location{Start: 5, End: 25, Line: 1, Column: 6},
			MatchedContent: "jane****",
			Suggestion:     "Remove or redact the email address",
		}},
		Recommendations:  []string{"Remove personal data before sending"},
		ChecksPerformed:  []safety.Category{safety.CategoryPII, safety.CategoryInjection},
		SanitizedContent: &sanitized,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter_CheckResult(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, sampleResult()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Result: PASSED (score 80/100, risk high)",
		"Checks: pii, injection",
		"[high] pii: Email address detected",
		`line 1, column 6: "jane****"`,
		"  - Remove personal data before sending",
		"Sanitized:\nmail [EMAIL_REDACTED]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextFormatter_Verdicts(t *testing.T) {
	tests := []struct {
		name   string
		result *safety.CheckResult
		want   string
	}{
		{"blocked", &safety.CheckResult{Blocked: true, RiskLevel: "critical"}, "Result: BLOCKED"},
		{"failed", &safety.CheckResult{Score: 40, RiskLevel: "high"}, "Result: FAILED"},
		{"passed", &safety.CheckResult{Passed: true, Score: 100, RiskLevel: "none"}, "Result: PASSED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&TextFormatter{}).FormatTo(&buf, tt.result); err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(buf.String(), tt.want) {
				t.Errorf("output = %q, want prefix %q", buf.String(), tt.want)
			}
		})
	}
}

func TestTextFormatter_Other(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"sanitize report", &SanitizeReport{SanitizedContent: "clean text"}, "clean text\n"},
		{"sanitize keeps newline", &SanitizeReport{SanitizedContent: "a\n"}, "a\n"},
		{"prune report", &PruneReport{Deleted: 3, Remaining: 7}, "Deleted 3 audit records, 7 remaining\n"},
		{"no records", []*audit.Record{}, "No audit records found\n"},
		{"fallback", "plain", "plain\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&TextFormatter{}).FormatTo(&buf, tt.data); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestTextFormatter_Tables(t *testing.T) {
	var buf bytes.Buffer
	records := []*audit.Record{{
		CheckID: "chk-9", Source: audit.SourceCLI, Timestamp: time.Now(),
		Score: 70, RiskLevel: "critical", Blocked: true, IssueCount: 1,
	}}
	if err := (&TextFormatter{}).FormatTo(&buf, records); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "chk-9") || !strings.Contains(buf.String(), "BLOCKED") {
		t.Errorf("records table = %q", buf.String())
	}

	buf.Reset()
	sums := patterns.Default().Summaries()
	if err := (&TextFormatter{}).FormatTo(&buf, sums); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != len(sums)+1 {
		t.Errorf("pattern table has %d lines, want %d", lines, len(sums)+1)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatTo(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["checkId"] != "chk-1" {
		t.Errorf("checkId = %v, want chk-1", got["checkId"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output is not indented")
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatYAML).FormatTo(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got["check_id"] != "chk-1" {
		t.Errorf("check_id = %v, want chk-1", got["check_id"])
	}
	if !strings.Contains(buf.String(), "severity: high") {
		t.Errorf("severity not written as text:\n%s", buf.String())
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatCSV)
	if err := f.FormatTo(&buf, []*audit.Record{{ID: "r1", CheckID: "c1"}}); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Errorf("csv lines = %d, want 2", lines)
	}
	if err := f.FormatTo(&buf, sampleResult()); err == nil {
		t.Error("FormatTo(CheckResult) error = nil, want unsupported")
	}
}
