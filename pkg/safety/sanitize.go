package safety

import (
	"sort"
	"strings"
)

// Replacement is one planned edit of the sanitizer.
type Replacement struct {
	IssueID string
	Start   int
	End     int
	Text    string
}

// PlanReplacements selects the auto-fixable issues that will be applied to
// content. Issues without a valid location are ignored. When issues
// overlap, the most severe wins; ties go to the earlier start, then the
// longer span, then the issue listed first. Losing issues are skipped so
// no byte is ever replaced twice.
//
// The plan is returned ordered by descending start offset, the order in
// which edits must be applied so earlier offsets stay valid.
func PlanReplacements(content string, issues []Issue) []Replacement {
	type candidate struct {
		issue *Issue
		order int
	}

	var cands []candidate
	for i := range issues {
		is := &issues[i]
		if !is.AutoFixable || is.Location == nil {
			continue
		}
		loc := is.Location
		if loc.Start < 0 || loc.End > len(content) || loc.Start >= loc.End {
			continue
		}
		cands = append(cands, candidate{issue: is, order: i})
	}
	if len(cands) == 0 {
		return nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].issue, cands[j].issue
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Location.Start != b.Location.Start {
			return a.Location.Start < b.Location.Start
		}
		if a.Location.Len() != b.Location.Len() {
			return a.Location.Len() > b.Location.Len()
		}
		return cands[i].order < cands[j].order
	})

	// accepted is kept sorted by start so overlap checks only need the
	// two neighbours of the insertion point.
	var accepted []Replacement
	for _, c := range cands {
		loc := *c.issue.Location
		pos := sort.Search(len(accepted), func(i int) bool { return accepted[i].Start >= loc.Start })
		if pos > 0 && accepted[pos-1].End > loc.Start {
			continue
		}
		if pos < len(accepted) && accepted[pos].Start < loc.End {
			continue
		}
		r := Replacement{IssueID: c.issue.ID, Start: loc.Start, End: loc.End, Text: c.issue.FixedContent}
		accepted = append(accepted, Replacement{})
		copy(accepted[pos+1:], accepted[pos:])
		accepted[pos] = r
	}

	// Reverse into descending start order.
	for i, j := 0, len(accepted)-1; i < j; i, j = i+1, j-1 {
		accepted[i], accepted[j] = accepted[j], accepted[i]
	}
	return accepted
}

// Sanitize returns content with every planned replacement applied.
// Content with nothing to fix is returned unchanged.
func Sanitize(content string, issues []Issue) string {
	plan := PlanReplacements(content, issues)
	if len(plan) == 0 {
		return content
	}

	// Pieces are collected back to front and joined once.
	pieces := make([]string, 0, 2*len(plan)+1)
	cursor := len(content)
	for _, r := range plan {
		pieces = append(pieces, content[r.End:cursor], r.Text)
		cursor = r.Start
	}
	pieces = append(pieces, content[:cursor])

	var b strings.Builder
	b.Grow(len(content))
	for i := len(pieces) - 1; i >= 0; i-- {
		b.WriteString(pieces[i])
	}
	return b.String()
}

// Fixable reports whether any issue can be applied by Sanitize.
func Fixable(issues []Issue) bool {
	for _, is := range issues {
		if is.AutoFixable && is.Location != nil {
			return true
		}
	}
	return false
}
