// Package textutil provides small text helpers for filesystem-safe naming.
package textutil

import "strings"

// SanitizeFileName makes a string safe to use as a file name. Path
// separators, colons, and asterisks become dashes; quoting and shell
// metacharacters are dropped. Surrounding whitespace is trimmed.
func SanitizeFileName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	return strings.TrimSpace(sanitized)
}

// SanitizeToken lowercases a string into an identifier-safe token. Letters,
// digits, hyphens, and underscores pass through; anything else becomes an
// underscore. Returns "unknown" when nothing survives.
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(value))
	token = strings.Trim(token, "_-")
	if token == "" {
		return "unknown"
	}
	return token
}
