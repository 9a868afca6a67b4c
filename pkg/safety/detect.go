package safety

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"promptstudio/aegis/pkg/safety/patterns"
)

// ContentRemoved replaces toxic spans when sanitizing.
const ContentRemoved = "[CONTENT_REMOVED]"

// maskVisible is the number of leading characters of a PII match kept
// when it is echoed back in an issue.
const maskVisible = 4

// Detector scans content with the patterns of one category.
// Detectors are pure: the same registry and content give the same issues.
type Detector func(reg *patterns.Registry, content string) []Issue

// builtinDetectors maps each detector category to its implementation.
var builtinDetectors = map[Category]Detector{
	CategoryToxicity:  DetectToxicity,
	CategoryPII:       DetectPII,
	CategoryInjection: DetectInjection,
	CategoryBias:      DetectBias,
	CategorySecurity:  DetectSecurity,
}

// DetectToxicity flags abusive language. Every match is auto-fixable and
// is replaced by ContentRemoved.
func DetectToxicity(reg *patterns.Registry, content string) []Issue {
	return scan(reg, CategoryToxicity, content, func(e patterns.Entry, match string, is *Issue) {
		is.Title = "Toxic content: " + e.Label
		is.Description = describe(e, "Language that may be offensive or harmful")
		is.MatchedContent = match
		is.Suggestion = "Remove or rephrase the offensive language"
		is.AutoFixable = true
		is.FixedContent = ContentRemoved
	})
}

// DetectPII flags personal data and credentials. The matched text is
// masked and the fix replaces it with the pattern's redaction token.
func DetectPII(reg *patterns.Registry, content string) []Issue {
	return scan(reg, CategoryPII, content, func(e patterns.Entry, match string, is *Issue) {
		kind := strings.ReplaceAll(e.PIIType, "_", " ")
		is.Title = "PII detected: " + kind
		is.Description = describe(e, "Personally identifiable information")
		is.MatchedContent = Mask(match)
		is.Suggestion = fmt.Sprintf("Remove or redact the %s before sharing this content", kind)
		is.AutoFixable = true
		is.FixedContent = e.Redaction
	})
}

// DetectInjection flags attempts to subvert the model's instructions.
func DetectInjection(reg *patterns.Registry, content string) []Issue {
	return scan(reg, CategoryInjection, content, func(e patterns.Entry, match string, is *Issue) {
		is.Title = "Prompt injection: " + e.Label
		is.Description = describe(e, "Text that attempts to change how the model behaves")
		is.MatchedContent = match
		is.Suggestion = "Remove instructions that try to override the system prompt or assistant role"
	})
}

// DetectBias flags stereotyping and over-generalizing language.
func DetectBias(reg *patterns.Registry, content string) []Issue {
	return scan(reg, CategoryBias, content, func(e patterns.Entry, match string, is *Issue) {
		is.Title = "Potential bias: " + e.Label
		is.Description = describe(e, "Language that may reflect bias")
		is.MatchedContent = match
		is.Suggestion = "Use neutral, inclusive wording and avoid generalizing about groups"
	})
}

// DetectSecurity flags executable payloads such as destructive shell
// commands, SQL injection and script tags.
func DetectSecurity(reg *patterns.Registry, content string) []Issue {
	return scan(reg, CategorySecurity, content, func(e patterns.Entry, match string, is *Issue) {
		is.Title = "Security risk: " + e.Label
		is.Description = describe(e, "Content that could execute code or damage systems")
		is.MatchedContent = match
		is.Suggestion = "Remove or neutralize the executable content"
	})
}

// Mask keeps the first four characters of s and hides the rest.
// Values of four characters or fewer are hidden entirely.
func Mask(s string) string {
	if utf8.RuneCountInString(s) <= maskVisible {
		return "****"
	}
	i, n := 0, 0
	for n < maskVisible {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n++
	}
	return s[:i] + "****"
}

func describe(e patterns.Entry, fallback string) string {
	if e.Description != "" {
		return e.Description
	}
	return fallback
}

// scan runs every pattern of category over content. Each match becomes an
// issue whose common fields are filled here; fill sets the rest.
func scan(reg *patterns.Registry, category Category, content string, fill func(patterns.Entry, string, *Issue)) []Issue {
	if content == "" {
		return nil
	}
	entries := reg.Entries(category)
	if len(entries) == 0 {
		return nil
	}

	lines := newLineIndex(content)
	var issues []Issue
	for _, e := range entries {
		for _, m := range e.Pattern.FindAllStringIndex(content, -1) {
			start, end := m[0], m[1]
			if start == end {
				continue
			}
			line, col := lines.position(start)
			is := Issue{
				ID:       fmt.Sprintf("%s:%s:%d", category, e.Name, start),
				Type:     category,
				Severity: e.Severity,
				Location: &Location{Start: start, End: end, Line: line, Column: col},
				Pattern:  e.ID(),
			}
			fill(e, content[start:end], &is)
			issues = append(issues, is)
		}
	}
	return issues
}

// lineIndex maps byte offsets to 1-based line and column numbers.
// Columns count runes.
type lineIndex struct {
	content string
	starts  []int
}

func newLineIndex(content string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{content: content, starts: starts}
}

func (li *lineIndex) position(offset int) (line, column int) {
	// Index of the last line start <= offset.
	i := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	lineStart := li.starts[i]
	return i + 1, utf8.RuneCountInString(li.content[lineStart:offset]) + 1
}
