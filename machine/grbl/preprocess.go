package grbl

import "strings"

// CleanLines prepares program text for streaming. Lines are trimmed,
// comments are removed and blank lines dropped. The result is the list the
// streamer cursor indexes into.
func CleanLines(lines []string) []string {
	res := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if i := strings.IndexByte(ln, ';'); i >= 0 {
			ln = strings.TrimSpace(ln[:i])
		}
		if ln == "" {
			continue
		}
		if ln[0] == '(' && strings.IndexByte(ln, ')') == len(ln)-1 {
			continue
		}
		ln = stripInline(ln)
		if ln != "" {
			res = append(res, ln)
		}
	}
	return res
}

// stripInline replaces every closed (...) span with a space.
func stripInline(ln string) string {
	for {
		start := strings.IndexByte(ln, '(')
		if start < 0 {
			return ln
		}
		end := strings.IndexByte(ln[start+1:], ')')
		if end < 0 {
			return ln
		}
		end += start + 1
		ln = strings.TrimSpace(ln[:start] + " " + ln[end+1:])
	}
}

// asciiLine replaces anything outside printable ASCII so the controller never
// sees a multi-byte sequence.
func asciiLine(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, s)
}
