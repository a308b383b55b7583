package topic

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// URLReadable converts a title or file name into a path component. The text
// is NFC normalized, whitespace and URL reserved punctuation collapse into a
// single "-", and symbol names such as "foo(_:)" are kept as written.
func URLReadable(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	dash := false
	for _, r := range name {
		if unicode.IsSpace(r) || r == '-' || isReserved(r) {
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = true
			continue
		}
		dash = false
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), "-")
}

func isReserved(r rune) bool {
	switch r {
	case '"', '\'', '`', '#', '%', '?', '[', ']', '{', '}', '|', '\\', '^', '<', '>', ';', ',', '&', '$', '@', '!', '+', '=', '*':
		return true
	default:
		return false
	}
}
