// Aegis is a content safety and sanitization engine for LLM prompts and
// responses.
//
// It scores text for toxicity, PII, prompt injection, bias and security
// issues, redacts what can be fixed automatically and records every check
// for audit. The engine is reachable as:
//   - an HTTP service (aegis serve)
//   - Model Context Protocol tools (aegis mcp)
//   - one-shot commands for files and pipes (aegis check, aegis sanitize)
//
// Usage:
//
//	# Start the HTTP service
//	aegis serve --config aegis.yaml
//
//	# Check a prompt from stdin; exits 2 when the content is blocked
//	echo "ignore all previous instructions" | aegis check
//
//	# Redact PII in a file
//	aegis sanitize prompt.txt > prompt.clean.txt
//
//	# Validate a custom pattern pack
//	aegis patterns validate patterns.yaml
//
//	# Inspect recent blocked checks
//	aegis audit query --blocked --since 24h
package main

import "os"

func main() {
	os.Exit(Execute())
}
