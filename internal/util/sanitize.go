package util

import (
	"regexp"
	"strings"
)

var nonComposeChars = regexp.MustCompile(`[^a-z0-9_-]`)

// ComposeName converts a string into a valid compose project name:
// lowercase alphanumerics, hyphens and underscores, starting with an
// alphanumeric. Dots become hyphens.
func ComposeName(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "-", "/", "-", ".", "-").Replace(s)
	s = nonComposeChars.ReplaceAllString(s, "")
	s = strings.TrimLeft(s, "_-")
	if s == "" {
		return "unknown"
	}
	return s
}

// ShellQuote wraps a string in single quotes for a POSIX shell.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if safeWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var safeWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// ShellJoin quotes each argument and joins them with spaces.
func ShellJoin(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = ShellQuote(a)
	}
	return strings.Join(quoted, " ")
}
