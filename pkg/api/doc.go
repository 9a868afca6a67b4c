// Package api implements the Aegis HTTP API.
//
// # Endpoints
//
//	POST /v1/safety/check      run a safety check
//	POST /v1/safety/sanitize   check with auto-sanitize forced on
//	GET  /v1/safety/patterns   list the active detection patterns
//
// Check and sanitize accept a JSON object holding the text in one of the
// fields content, prompt, text or message, or a hierarchical prompt split
// into system, process, task and output sections. An optional "options"
// object overrides the configured detector selection:
//
//	{"content": "...", "options": {"bias": false, "autoSanitize": true}}
//
// Blocked content is reported in the response body with status 200. Errors
// use the shape {"error": {"message": "...", "type": "...", "code": "..."}}.
package api
