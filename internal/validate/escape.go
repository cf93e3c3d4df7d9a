// Package validate provides input sanitization and validation utilities for
// the contact relay: markup escaping for outbound messages and audit records,
// plus email format validation.
package validate

import (
	"html"
	"strings"
)

// EscapeField trims a free-text form field and escapes the characters
// `& < > " '` so the value is safe to embed in the outbound message and the
// audit log. The destination renders a lightweight markup dialect, so raw
// user input must never pass through unescaped.
func EscapeField(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// FieldOrDefault returns the escaped field value, or the placeholder when
// the field is empty after trimming.
func FieldOrDefault(s, placeholder string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return placeholder
	}
	return html.EscapeString(trimmed)
}
