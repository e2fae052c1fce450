package audit

import "strings"

// NormalizeURL prefixes https:// when no protocol is present. Idempotent:
// already-prefixed URLs pass through unchanged.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return "https://" + trimmed
}
