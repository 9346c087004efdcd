package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// RedactedValue replaces the value of a sensitive attribute.
const RedactedValue = "[REDACTED]"

// DefaultSensitiveKeys are attribute keys whose values are never logged.
var DefaultSensitiveKeys = []string{
	"password",
	"password_hash",
	"token",
	"authorization",
	"api_key",
	"secret",
}

// Redactor removes credentials from log attributes. Keys are matched
// case-insensitively; string values are additionally scrubbed of bearer
// tokens and inline password assignments.
type Redactor struct {
	keys     map[string]struct{}
	patterns []redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor for DefaultSensitiveKeys plus any extra keys.
func NewRedactor(extraKeys ...string) *Redactor {
	r := &Redactor{keys: make(map[string]struct{})}
	for _, k := range append(append([]string(nil), DefaultSensitiveKeys...), extraKeys...) {
		r.keys[normalizeKey(k)] = struct{}{}
	}
	r.patterns = []redactPattern{
		{
			regex:       regexp.MustCompile(`(?i)bearer\s+[a-z0-9\-._~+/]+=*`),
			replacement: "Bearer " + RedactedValue,
		},
		{
			regex:       regexp.MustCompile(`(?i)(password|secret|api[_-]?key)(\s*[=:]\s*)\S+`),
			replacement: "${1}${2}" + RedactedValue,
		},
	}
	return r
}

// IsSensitive reports whether values under key must be redacted.
func (r *Redactor) IsSensitive(key string) bool {
	_, ok := r.keys[normalizeKey(key)]
	return ok
}

// RedactString scrubs credentials embedded in free text.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr implementation.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if r.IsSensitive(a.Key) {
		return slog.String(a.Key, RedactedValue)
	}
	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); s != "" {
			if redacted := r.RedactString(s); redacted != s {
				return slog.String(a.Key, redacted)
			}
		}
	}
	return a
}

// RedactMap returns a copy of m with sensitive keys replaced, recursing into
// nested maps. Audit change sets pass through this before being stored.
func (r *Redactor) RedactMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if r.IsSensitive(k) {
			out[k] = RedactedValue
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = r.RedactMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), "-", "_")
}
