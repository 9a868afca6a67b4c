package safety

import "promptstudio/aegis/pkg/safety/patterns"

var recommendationText = map[Category]string{
	CategoryToxicity:  "Remove offensive or harmful language before using this content.",
	CategoryPII:       "Redact personal data and credentials; enable auto-sanitize to replace them with placeholders.",
	CategoryInjection: "Strip instructions that attempt to override the system prompt or change the assistant's role.",
	CategoryBias:      "Review wording for stereotypes and generalizations about groups of people.",
	CategorySecurity:  "Remove executable commands, queries and scripts, or clearly mark them as inert examples.",
	CategoryDrift:     "Refocus the content on the original context or update the baseline if the change is intended.",
}

// Recommendations returns one tip per issue type present, in category order.
// The truncation notice is not a finding and earns no tip.
func Recommendations(issues []Issue) []string {
	present := make(map[Category]bool)
	for _, is := range issues {
		if is.ID == TruncatedIssueID {
			continue
		}
		present[is.Type] = true
	}
	out := []string{}
	for _, c := range patterns.AllCategories {
		if present[c] {
			out = append(out, recommendationText[c])
		}
	}
	return out
}
