// Package audit persists the outcome of safety checks for later review.
//
// An audit record describes a check without storing the checked content:
// it keeps a SHA-256 hash and the length of the content, the score and
// pass/block decision, the risk level, per-type and per-severity issue
// counts and the ids of the issues that were found.
//
// # Architecture
//
// The audit system consists of three layers:
//
//  1. Recorder (package recorder) turns check results into records and
//     writes them asynchronously so checks never wait on storage.
//  2. Storage (package storage) persists records in SQLite or memory.
//  3. Retention (package retention) prunes records by age and count on a
//     cron schedule.
//
// # Querying
//
// Records are filtered with a Query:
//
//	blocked := true
//	records, err := store.Query(ctx, &audit.Query{
//	    Blocked:   &blocked,
//	    Source:    audit.SourceAPI,
//	    Limit:     50,
//	    SortOrder: "desc",
//	})
package audit
