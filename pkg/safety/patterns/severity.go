package patterns

import (
	"fmt"
	"strings"
)

// Severity is the seriousness of a finding. Severities are totally ordered:
// info < low < medium < high < critical.
type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityInfo:     "info",
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

// Severities lists every severity from most to least serious.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// ParseSeverity parses a severity name. Matching is case-insensitive.
func ParseSeverity(s string) (Severity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for sev, n := range severityNames {
		if n == name {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q (must be critical, high, medium, low or info)", s)
}

// String returns the lowercase severity name.
func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// Rank returns the position of s in the severity order; higher is more severe.
func (s Severity) Rank() int {
	if !s.Valid() {
		return 0
	}
	return int(s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Category names a family of checks.
type Category string

const (
	CategoryToxicity  Category = "toxicity"
	CategoryPII       Category = "pii"
	CategoryInjection Category = "injection"
	CategoryBias      Category = "bias"
	CategorySecurity  Category = "security"
	CategoryDrift     Category = "drift"
)

// DetectorCategories lists the categories that have a pattern detector, in
// the order the engine reports them.
var DetectorCategories = []Category{
	CategoryToxicity,
	CategoryPII,
	CategoryInjection,
	CategoryBias,
	CategorySecurity,
}

// AllCategories is DetectorCategories followed by drift.
var AllCategories = append(append([]Category(nil), DetectorCategories...), CategoryDrift)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}
