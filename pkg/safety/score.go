package safety

// MaxScore is the score of content with no issues.
const MaxScore = 100

// Deduction returns the points an issue of severity s costs.
func Deduction(s Severity) int {
	switch s {
	case SeverityCritical:
		return 30
	case SeverityHigh:
		return 20
	case SeverityMedium:
		return 10
	case SeverityLow:
		return 5
	case SeverityInfo:
		return 1
	}
	return 0
}

// CalculateScore starts at MaxScore, subtracts the deduction of every
// issue and clamps at zero. Issue order does not matter.
func CalculateScore(issues []Issue) int {
	score := MaxScore
	for _, is := range issues {
		score -= Deduction(is.Severity)
	}
	if score < 0 {
		return 0
	}
	return score
}

// RiskLevel returns the name of the most severe issue, or "none".
func RiskLevel(issues []Issue) string {
	var top Severity
	for _, is := range issues {
		if is.Severity.Rank() > top.Rank() {
			top = is.Severity
		}
	}
	if !top.Valid() {
		return "none"
	}
	return top.String()
}

// Policy decides whether a scored result passes or is blocked.
type Policy struct {
	// PassThreshold is the minimum score for a result to pass.
	PassThreshold int

	// BlockOnCritical blocks any result with a critical issue.
	BlockOnCritical bool
}

// DefaultPolicy passes scores of 50 and up and blocks on any critical issue.
func DefaultPolicy() Policy {
	return Policy{PassThreshold: 50, BlockOnCritical: true}
}

// Evaluate returns the blocked and passed flags. A blocked result never passes.
func (p Policy) Evaluate(issues []Issue, score int) (blocked, passed bool) {
	if p.BlockOnCritical {
		for _, is := range issues {
			if is.Severity == SeverityCritical {
				blocked = true
				break
			}
		}
	}
	passed = !blocked && score >= p.PassThreshold
	return blocked, passed
}
