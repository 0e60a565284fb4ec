package teng

import "strings"

// unescape scans TEXT content (spec.md §4.1) with a lookahead match at
// each byte, collapsing the six directive-escape sequences to their
// literal form. Any other backslash-led sequence is copied verbatim.
//
// The six sequences: `$\{`→`${`, `#\{`→`#{`, `%\{`→`%{` (only when
// printEscapeEnabled), `<\?`→`<?`, `?\>`→`?>`, `\}`→`}`.
func unescape(s string, printEscapeEnabled bool) string {
	if !strings.ContainsAny(s, "$#%<?}") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	n := len(s)
	for i < n {
		c := s[i]
		if matched, out, adv := matchEscape(s, i, n, printEscapeEnabled); matched {
			b.WriteString(out)
			i += adv
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// matchEscape checks for one of the six escape sequences starting at
// position i. Returns whether one matched, its literal replacement,
// and how many source bytes it consumed.
func matchEscape(s string, i, n int, printEscapeEnabled bool) (bool, string, int) {
	rest := n - i
	switch s[i] {
	case '$':
		if rest >= 3 && s[i+1] == '\\' && s[i+2] == '{' {
			return true, "${", 3
		}
	case '#':
		if rest >= 3 && s[i+1] == '\\' && s[i+2] == '{' {
			return true, "#{", 3
		}
	case '%':
		if printEscapeEnabled && rest >= 3 && s[i+1] == '\\' && s[i+2] == '{' {
			return true, "%{", 3
		}
	case '<':
		if rest >= 3 && s[i+1] == '\\' && s[i+2] == '?' {
			return true, "<?", 3
		}
	case '?':
		if rest >= 3 && s[i+1] == '\\' && s[i+2] == '>' {
			return true, "?>", 3
		}
	case '\\':
		if rest >= 2 && s[i+1] == '}' {
			return true, "}", 2
		}
	}
	return false, "", 0
}
