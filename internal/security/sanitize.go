// Package security screens learner-originated text before it reaches the
// model: control-byte stripping, heuristic injection detection, and the
// validators that combine both.
package security

import "strings"

// Sanitize removes every control byte below 0x20 except tab, line feed and
// carriage return. Bytes of multi-byte UTF-8 sequences are always >= 0x80 and
// pass through untouched.
func Sanitize(text string) string {
	i := 0
	for ; i < len(text); i++ {
		if banned(text[i]) {
			break
		}
	}
	if i == len(text) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	b.WriteString(text[:i])
	for ; i < len(text); i++ {
		if c := text[i]; !banned(c) {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func banned(c byte) bool {
	return c < 0x20 && c != '\t' && c != '\n' && c != '\r'
}
