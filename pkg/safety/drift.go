package safety

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"promptstudio/aegis/pkg/safety/patterns"
)

const (
	// driftMinTokenLen excludes short function words from comparison.
	driftMinTokenLen = 3
	driftIntentBoost = 0.3
	driftMaxKeywords = 10

	driftTopicThreshold    = 0.7
	driftSemanticThreshold = 0.4
)

var tokenSplit = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// AnalyzeDrift compares content with a baseline using word overlap.
// Without a baseline it reports no drift.
func AnalyzeDrift(reg *patterns.Registry, content, baseline string) DriftResult {
	none := DriftResult{Type: DriftNone, Description: "No baseline context provided", Keywords: []string{}}
	if strings.TrimSpace(baseline) == "" {
		return none
	}

	contentTokens := tokenize(content)
	baselineSet := make(map[string]struct{})
	for _, tok := range tokenize(baseline) {
		baselineSet[tok] = struct{}{}
	}

	seen := make(map[string]struct{})
	keywords := []string{}
	for _, tok := range contentTokens {
		if _, ok := baselineSet[tok]; ok {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		if len(keywords) < driftMaxKeywords {
			keywords = append(keywords, tok)
		}
	}

	ratio := 0.0
	if len(contentTokens) > 0 {
		ratio = float64(len(seen)) / float64(len(contentTokens))
	}

	intent := false
	for _, e := range reg.Entries(CategoryDrift) {
		if e.Pattern.MatchString(content) {
			intent = true
			break
		}
	}

	score := ratio
	if intent {
		score += driftIntentBoost
	}
	score = math.Min(score, 1)

	res := DriftResult{Score: score, Keywords: keywords}
	switch {
	case score > driftTopicThreshold:
		res.Type = DriftTopic
		res.Description = "Content has moved to a different topic than the baseline"
	case intent:
		res.Type = DriftIntent
		res.Description = "Content redirects away from the original request"
	case score > driftSemanticThreshold:
		res.Type = DriftSemantic
		res.Description = "Content vocabulary diverges from the baseline"
	default:
		res.Type = DriftNone
		res.Description = "Content is consistent with the baseline"
	}
	return res
}

// driftIssue turns a drift result into an issue when the score is high
// enough to report.
func driftIssue(d DriftResult) (Issue, bool) {
	if d.Score <= driftSemanticThreshold {
		return Issue{}, false
	}
	sev := SeverityMedium
	if d.Score > driftTopicThreshold {
		sev = SeverityHigh
	}
	return Issue{
		ID:          "drift:" + string(d.Type),
		Type:        CategoryDrift,
		Severity:    sev,
		Title:       fmt.Sprintf("Content drift: %s", d.Type),
		Description: fmt.Sprintf("%s (drift score %.2f)", d.Description, d.Score),
		Suggestion:  "Keep the content focused on the original context",
	}, true
}

// tokenize lowercases content and returns its words longer than
// driftMinTokenLen characters.
func tokenize(s string) []string {
	var out []string
	for _, tok := range tokenSplit.Split(strings.ToLower(s), -1) {
		if utf8.RuneCountInString(tok) > driftMinTokenLen {
			out = append(out, tok)
		}
	}
	return out
}
