// Package phone normalizes phone numbers typed by staff and patients.
package phone

import "strings"

// Sanitize keeps only a leading '+' and ASCII digits.
func Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Digits returns the number of digits in s.
func Digits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// Valid reports whether raw sanitizes to a plausible number: 10 to 15 digits,
// optionally prefixed with '+'.
func Valid(raw string) bool {
	s := Sanitize(raw)
	n := Digits(s)
	return n >= 10 && n <= 15
}
