package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/safety"
	"promptstudio/aegis/pkg/safety/patterns"
)

// Redactor masks PII and secrets in log attributes. Its built-in patterns
// are the PII entries of a pattern registry, so a value the PII detector
// would flag is never written to a log.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// sensitiveKeys are attribute key fragments whose values are masked
// regardless of content.
var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"authorization", "cookie",
	"ssn", "credit_card", "private_key",
}

// NewRedactor builds a Redactor from the PII entries of reg plus custom
// patterns. A nil registry uses the built-in patterns.
func NewRedactor(reg *patterns.Registry, custom []config.RedactPattern) (*Redactor, error) {
	if reg == nil {
		reg = patterns.Default()
	}

	r := &Redactor{}
	for _, e := range reg.Entries(patterns.CategoryPII) {
		r.patterns = append(r.patterns, redactPattern{
			name:        e.Name,
			regex:       e.Pattern,
			replacement: e.Redaction,
		})
	}

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p.Name, err)
		}
		replacement := p.Replacement
		if replacement == "" {
			replacement = "[REDACTED]"
		}
		r.patterns = append(r.patterns, redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: replacement,
		})
	}

	return r, nil
}

// RedactString replaces every pattern match in value with its redaction token.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllLiteralString(value, p.replacement)
	}
	return value
}

// RedactAttr redacts a single attribute, descending into groups.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, safety.Mask(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "****")
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
