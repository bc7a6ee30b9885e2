package verification

import "strings"

// sanitizeForLog strips control characters from operator input.
func sanitizeForLog(s string) string {
	const maxLen = 64
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= maxLen {
			break
		}
	}
	return b.String()
}
