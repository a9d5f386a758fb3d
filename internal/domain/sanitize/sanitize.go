// Package sanitize normalizes untrusted identifiers and display names.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

// Bounds applied to untrusted input.
const (
	MaxIDLen   = 64
	MaxNameLen = 24

	DefaultName = "Player"
)

// CleanID trims raw, truncates it to MaxIDLen runes and replaces every rune
// outside [A-Za-z0-9_.:-] with '_'. An empty result means the id is absent.
func CleanID(raw string) string {
	s := truncate(strings.TrimSpace(raw), MaxIDLen)
	return strings.Map(func(r rune) rune {
		if isIDRune(r) {
			return r
		}
		return '_'
	}, s)
}

// CleanName trims raw, truncates it to MaxNameLen runes and drops runes
// outside [A-Za-z0-9_], '-', ' ' and '.'. An empty result becomes DefaultName.
func CleanName(raw string) string {
	s := truncate(strings.TrimSpace(raw), MaxNameLen)
	s = strings.Map(func(r rune) rune {
		if isWordRune(r) || r == '-' || r == ' ' || r == '.' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return DefaultName
	}
	return s
}

// CleanText trims raw and truncates it to max runes.
func CleanText(raw string, max int) string {
	return truncate(strings.TrimSpace(raw), max)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

func isIDRune(r rune) bool {
	return isWordRune(r) || r == '.' || r == ':' || r == '-'
}
