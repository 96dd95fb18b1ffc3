package backend

import (
	"fmt"
	"strings"
)

// shellSpecial lists every rune a POSIX shell would interpret when it
// appears unquoted in a command line.
const shellSpecial = " $`\\\"'&|*?;<>()[]{}^#~"

// Escape prefixes every shell metacharacter in raw with a backslash so the
// result can be placed unquoted into a shell command line and still name
// exactly raw. Control characters are wrapped in single quotes since a
// backslash-newline is a line continuation. It never touches the filesystem.
func Escape(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + len(raw)/4)

	for _, r := range raw {
		switch {
		case isControl(r):
			b.WriteByte('\'')
			b.WriteRune(r)
			b.WriteByte('\'')
		case strings.ContainsRune(shellSpecial, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// EscapeJS makes raw safe inside a double-quoted JavaScript string literal.
// The result contains no control characters.
func EscapeJS(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + len(raw)/4)

	for _, r := range raw {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if isControl(r) {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}

	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
