package validators

import (
	"strings"
	"unicode"
)

// SanitizeString collapses runs of whitespace, drops control characters and
// keeps at most maxLen runes. maxLen <= 0 means no cap.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	kept := 0
	for _, word := range strings.Fields(input) {
		if maxLen > 0 && kept >= maxLen {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
			kept++
		}
		for _, r := range word {
			if unicode.IsControl(r) {
				continue
			}
			if maxLen > 0 && kept >= maxLen {
				break
			}
			b.WriteRune(r)
			kept++
		}
	}
	return strings.TrimSpace(b.String())
}
