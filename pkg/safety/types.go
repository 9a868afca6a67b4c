package safety

import (
	"promptstudio/aegis/pkg/safety/patterns"
)

// Severity and Category are shared with the pattern tables.
type (
	Severity = patterns.Severity
	Category = patterns.Category
)

const (
	SeverityInfo     = patterns.SeverityInfo
	SeverityLow      = patterns.SeverityLow
	SeverityMedium   = patterns.SeverityMedium
	SeverityHigh     = patterns.SeverityHigh
	SeverityCritical = patterns.SeverityCritical

	CategoryToxicity  = patterns.CategoryToxicity
	CategoryPII       = patterns.CategoryPII
	CategoryInjection = patterns.CategoryInjection
	CategoryBias      = patterns.CategoryBias
	CategorySecurity  = patterns.CategorySecurity
	CategoryDrift     = patterns.CategoryDrift
)

// Location is a half-open byte range [Start, End) in the checked content,
// with the 1-based line and column of Start.
type Location struct {
	Start  int `json:"start" yaml:"start"`
	End    int `json:"end" yaml:"end"`
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Len returns the number of bytes covered.
func (l Location) Len() int {
	return l.End - l.Start
}

// Overlaps reports whether two ranges share at least one byte.
func (l Location) Overlaps(o Location) bool {
	return l.Start < o.End && o.Start < l.End
}

// Issue is a single finding.
type Issue struct {
	// ID is unique within one check and stable across repeated checks of
	// the same content.
	ID string `json:"id" yaml:"id"`

	Type     Category `json:"type" yaml:"type"`
	Severity Severity `json:"severity" yaml:"severity"`

	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`

	// Location is nil for whole-content findings such as drift.
	Location *Location `json:"location,omitempty" yaml:"location,omitempty"`

	// MatchedContent is the matched text. PII matches are masked.
	MatchedContent string `json:"matchedContent,omitempty" yaml:"matched_content,omitempty"`

	Suggestion string `json:"suggestion" yaml:"suggestion"`

	// AutoFixable issues carry a FixedContent replacement for Location.
	AutoFixable  bool   `json:"autoFixable" yaml:"auto_fixable"`
	FixedContent string `json:"fixedContent,omitempty" yaml:"fixed_content,omitempty"`

	// Pattern is the "category/name" of the pattern that produced the issue.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// DriftType classifies how far content strayed from its baseline.
type DriftType string

const (
	DriftNone     DriftType = "none"
	DriftSemantic DriftType = "semantic"
	DriftIntent   DriftType = "intent"
	DriftTopic    DriftType = "topic"
)

// DriftResult is the outcome of comparing content with a baseline.
type DriftResult struct {
	// Score is in [0, 1].
	Score       float64   `json:"driftScore" yaml:"drift_score"`
	Type        DriftType `json:"driftType" yaml:"drift_type"`
	Description string    `json:"description" yaml:"description"`
	// Keywords are at most ten drifting words, in order of first appearance.
	Keywords []string `json:"driftingKeywords" yaml:"drifting_keywords"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	CheckID string `json:"checkId" yaml:"check_id"`

	Passed  bool `json:"passed" yaml:"passed"`
	Blocked bool `json:"blocked" yaml:"blocked"`

	// Score is in [0, 100].
	Score int `json:"score" yaml:"score"`

	// RiskLevel is the highest issue severity, or "none".
	RiskLevel string `json:"riskLevel" yaml:"risk_level"`

	Issues []Issue `json:"issues" yaml:"issues"`

	// SanitizedContent is set only when sanitization was requested and at
	// least one issue was auto-fixable.
	SanitizedContent *string `json:"sanitizedContent,omitempty" yaml:"sanitized_content,omitempty"`

	// Recommendations holds one entry per issue type present.
	Recommendations []string `json:"recommendations" yaml:"recommendations"`

	// ChecksPerformed lists the categories that actually ran.
	ChecksPerformed []Category `json:"checksPerformed" yaml:"checks_performed"`

	Drift *DriftResult `json:"drift,omitempty" yaml:"drift,omitempty"`

	// Truncated is set when the content exceeded the input limit and only
	// a prefix was analyzed.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`

	ProcessingTimeMs float64 `json:"processingTimeMs" yaml:"processing_time_ms"`
}

// CountBySeverity tallies issues per severity.
func (r *CheckResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, is := range r.Issues {
		counts[is.Severity]++
	}
	return counts
}

// Options selects which checks run.
type Options struct {
	Toxicity  bool
	PII       bool
	Injection bool
	Bias      bool
	Security  bool

	// Drift requires BaselineContext; without it drift reports none.
	Drift           bool
	BaselineContext string

	AutoSanitize bool
}

// DefaultOptions enables the five pattern detectors.
func DefaultOptions() Options {
	return Options{
		Toxicity:  true,
		PII:       true,
		Injection: true,
		Bias:      true,
		Security:  true,
	}
}

// Enabled reports whether the check for c is selected.
func (o Options) Enabled(c Category) bool {
	switch c {
	case CategoryToxicity:
		return o.Toxicity
	case CategoryPII:
		return o.PII
	case CategoryInjection:
		return o.Injection
	case CategoryBias:
		return o.Bias
	case CategorySecurity:
		return o.Security
	case CategoryDrift:
		return o.Drift
	}
	return false
}

// OptionOverrides is the wire form of Options: unset fields keep the
// value from the base options.
type OptionOverrides struct {
	Toxicity        *bool   `json:"toxicity,omitempty" yaml:"toxicity,omitempty"`
	PII             *bool   `json:"pii,omitempty" yaml:"pii,omitempty"`
	Injection       *bool   `json:"injection,omitempty" yaml:"injection,omitempty"`
	Bias            *bool   `json:"bias,omitempty" yaml:"bias,omitempty"`
	Security        *bool   `json:"security,omitempty" yaml:"security,omitempty"`
	Drift           *bool   `json:"drift,omitempty" yaml:"drift,omitempty"`
	BaselineContext *string `json:"baselineContext,omitempty" yaml:"baseline_context,omitempty"`
	AutoSanitize    *bool   `json:"autoSanitize,omitempty" yaml:"auto_sanitize,omitempty"`
}

// Apply returns base with every set override applied.
func (o OptionOverrides) Apply(base Options) Options {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.Toxicity, o.Toxicity)
	set(&base.PII, o.PII)
	set(&base.Injection, o.Injection)
	set(&base.Bias, o.Bias)
	set(&base.Security, o.Security)
	set(&base.Drift, o.Drift)
	set(&base.AutoSanitize, o.AutoSanitize)
	if o.BaselineContext != nil {
		base.BaselineContext = *o.BaselineContext
	}
	return base
}
