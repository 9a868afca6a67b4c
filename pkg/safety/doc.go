// Package safety implements the deterministic content safety engine.
//
// A check runs up to five pattern detectors (toxicity, pii, injection,
// bias and security) over a piece of text, optionally compares it against
// a baseline for topic drift, scores the combined findings, applies the
// pass/block policy and, when asked, produces a sanitized copy of the
// text with every auto-fixable finding replaced.
//
// The engine is pure computation: it performs no I/O, and detectors share
// nothing but an immutable patterns.Registry, so an Engine may be used by
// any number of goroutines at once.
//
// # Usage
//
//	engine := safety.NewEngine(safety.Config{})
//	result := engine.Check(ctx, text, safety.DefaultOptions())
//	if result.Blocked {
//	    return errBlocked
//	}
//
// # Scoring
//
// Every check starts at 100 and loses points per issue: critical 30,
// high 20, medium 10, low 5, info 1. The score never goes below zero. A
// result is blocked when any critical issue exists and passes when it is
// not blocked and scores at least 50.
package safety
