// Package patterns holds the named detection pattern tables used by the
// safety engine.
//
// A Registry groups compiled patterns by category (toxicity, pii,
// injection, bias, security and drift). Registries are immutable once
// built, so a single instance can be shared by any number of concurrent
// checks. Reloading a pattern pack produces a new Registry which callers
// swap in atomically.
//
// # Pattern Packs
//
// Besides the built-in tables, patterns can be supplied in YAML:
//
//	version: "1"
//	include_builtin: true
//	disable:
//	  - bias/absolutist
//	patterns:
//	  - category: pii
//	    name: employee_id
//	    pattern: '\bEMP-\d{6}\b'
//	    severity: high
//	    pii_type: employee_id
//	    redaction: "[EMPLOYEE_ID_REDACTED]"
//
// Patterns are compiled case-insensitively unless case_sensitive is set.
// All patterns use RE2 syntax, so matching time is linear in the input.
//
// # Usage
//
//	reg, err := patterns.LoadFile("patterns.yaml")
//	if err != nil {
//	    return err
//	}
//	for _, e := range reg.Entries(patterns.CategoryPII) {
//	    fmt.Println(e.Name, e.Severity)
//	}
package patterns
