package automation

import (
	"strings"
	"unicode"
)

// spaceClass matches ASCII whitespace and Unicode spaces such as the
// no-break space that phones and rich text editors paste in.
const spaceClass = `[\s\v\p{Z}\x{FEFF}]`

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func trimSpace(s string) string {
	return strings.TrimFunc(s, isSpace)
}
