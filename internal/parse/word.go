package parse

import "strings"

// ParseWordText scans s as the body of a single word, treating whitespace
// and operator characters as ordinary text. The expansion engine uses it
// for the operand of forms like ${x:-word}, which is itself subject to
// expansion.
func ParseWordText(s string) (*Word, error) {
	if s == "" {
		return &Word{}, nil
	}
	lx := NewLexer(strings.NewReader(s))
	lx.raw = true
	r, _, _, err := lx.readRune()
	if err != nil {
		return &Word{}, nil
	}
	w, ok := lx.readWord(r, Pos{Line: 1, Col: 1})
	if lx.Err != nil {
		return nil, lx.Err
	}
	if !ok {
		return &Word{}, nil
	}
	return w, nil
}
