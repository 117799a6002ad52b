package eval

import (
	"strings"
	"unicode/utf8"
)

// The substitution forms need more than a yes/no matcher: replacement
// scans every starting offset and wants the longest (or shortest) prefix
// of the candidate that the pattern covers. ? matches exactly one rune,
// * zero or more, backslash escapes the next pattern rune.

// matchLen returns the length in bytes of the longest (or shortest)
// prefix of s matched by pattern.
func matchLen(pattern, s string, longest bool) (int, bool) {
	if pattern == "" {
		return 0, true
	}
	switch pattern[0] {
	case '*':
		if longest {
			for k := len(s); k >= 0; k-- {
				if !boundary(s, k) {
					continue
				}
				if n, ok := matchLen(pattern[1:], s[k:], longest); ok {
					return k + n, true
				}
			}
		} else {
			for k := 0; k <= len(s); k++ {
				if !boundary(s, k) {
					continue
				}
				if n, ok := matchLen(pattern[1:], s[k:], longest); ok {
					return k + n, true
				}
			}
		}
		return 0, false
	case '?':
		if s == "" {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(s)
		n, ok := matchLen(pattern[1:], s[size:], longest)
		if !ok {
			return 0, false
		}
		return size + n, true
	case '\\':
		if len(pattern) > 1 {
			pattern = pattern[1:]
		}
		fallthrough
	default:
		pr, psize := utf8.DecodeRuneInString(pattern)
		sr, ssize := utf8.DecodeRuneInString(s)
		if s == "" || sr != pr {
			return 0, false
		}
		n, ok := matchLen(pattern[psize:], s[ssize:], longest)
		if !ok {
			return 0, false
		}
		return ssize + n, true
	}
}

// boundary reports whether byte offset i falls on a rune boundary of s.
func boundary(s string, i int) bool {
	return i <= 0 || i >= len(s) || s[i]&0xC0 != 0x80
}

// matchFull reports whether pattern covers all of s.
func matchFull(pattern, s string) bool {
	n, ok := matchLen(pattern, s, true)
	return ok && n == len(s)
}

// replaceFirst substitutes repl for the first match of pattern in value,
// trying each starting offset left to right and preferring the longest
// match at that offset. No match leaves value unchanged.
func replaceFirst(value, pattern, repl string) string {
	for i := 0; i <= len(value); i++ {
		if !boundary(value, i) {
			continue
		}
		if n, ok := matchLen(pattern, value[i:], true); ok {
			return value[:i] + repl + value[i+n:]
		}
	}
	return value
}

// replaceAll substitutes repl for every non-overlapping match, scanning
// left to right and advancing past each replaced span. A zero-length
// match advances by one rune so the scan terminates.
func replaceAll(value, pattern, repl string) string {
	if value == "" {
		if matchFull(pattern, "") {
			return repl
		}
		return ""
	}
	var b strings.Builder
	i := 0
	for i < len(value) {
		n, ok := matchLen(pattern, value[i:], true)
		if ok {
			b.WriteString(repl)
			if n > 0 {
				i += n
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(value[i:])
		b.WriteString(value[i : i+size])
		i += size
	}
	return b.String()
}

// stripPrefix removes the shortest or longest matching prefix, for the
// ${var#pat} and ${var##pat} forms.
func stripPrefix(value, pattern string, longest bool) string {
	if n, ok := matchLen(pattern, value, longest); ok {
		return value[n:]
	}
	return value
}

// stripSuffix removes the shortest or longest matching suffix, for the
// ${var%pat} and ${var%%pat} forms. The longest suffix starts earliest.
func stripSuffix(value, pattern string, longest bool) string {
	if longest {
		for i := 0; i <= len(value); i++ {
			if boundary(value, i) && matchFull(pattern, value[i:]) {
				return value[:i]
			}
		}
		return value
	}
	for i := len(value); i >= 0; i-- {
		if boundary(value, i) && matchFull(pattern, value[i:]) {
			return value[:i]
		}
	}
	return value
}
