// Package mcpserver exposes the safety service as Model Context Protocol
// tools so agents can check or sanitize text before acting on it.
//
// Three tools are registered:
//
//   - safety_check: runs a check and returns the CheckResult as JSON
//   - sanitize: checks with auto-sanitize forced on and returns the
//     sanitized text with the result
//   - list_patterns: lists the active pattern ids per category
//
// The server runs over stdio (the default, for editor and agent
// integrations) or streamable HTTP:
//
//	srv := mcpserver.New(svc)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Every call is recorded for audit with source "mcp".
package mcpserver
