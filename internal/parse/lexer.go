package parse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

type tokKind int

const (
	tEOF tokKind = iota
	tWord
	tNewline
	tSemi
	tPipe
	tAndAnd
	tOrOr
	tAmp
	tLParen
	tRParen
)

type token struct {
	kind tokKind
	word *Word
	pos  Pos
}

// Lexer produces tokens for the recursive-descent parser.
type Lexer struct {
	r   *bufio.Reader
	Err error

	line int
	col  int
	eof  bool
	raw  bool // treat metacharacters as ordinary word characters

	peeked bool
	peek   lexRune
}

type lexRune struct {
	r        rune
	line     int
	col      int
	nextLine int
	nextCol  int
	err      error
}

// NewLexer wraps rd for tokenizing.
func NewLexer(rd io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReader(rd), line: 1}
}

// EOF reports whether the lexer has reached end of input.
func (lx *Lexer) EOF() bool {
	return lx.eof
}

func (lx *Lexer) errorf(format string, args ...any) {
	if lx.Err == nil {
		lx.Err = fmt.Errorf(format, args...)
	}
}

// Next returns the next token. After an error it returns tEOF and
// leaves the cause in lx.Err.
func (lx *Lexer) Next() token {
	for {
		r, line, col, err := lx.readRune()
		if err != nil {
			return token{kind: tEOF, pos: Pos{Line: lx.line, Col: lx.col}}
		}
		pos := Pos{Line: line, Col: col}

		switch r {
		case ' ', '\t':
			continue
		case '\n':
			return token{kind: tNewline, pos: pos}
		case '#':
			lx.skipComment()
			continue
		case ';':
			return token{kind: tSemi, pos: pos}
		case '&':
			if lx.consumeIf('&') {
				return token{kind: tAndAnd, pos: pos}
			}
			return token{kind: tAmp, pos: pos}
		case '|':
			if lx.consumeIf('|') {
				return token{kind: tOrOr, pos: pos}
			}
			return token{kind: tPipe, pos: pos}
		case '(':
			return token{kind: tLParen, pos: pos}
		case ')':
			return token{kind: tRParen, pos: pos}
		case '<', '>':
			lx.errorf("%d:%d: redirection is not supported", line, col)
			return token{kind: tEOF, pos: pos}
		default:
			word, ok := lx.readWord(r, pos)
			if !ok {
				return token{kind: tEOF, pos: pos}
			}
			return token{kind: tWord, word: word, pos: pos}
		}
	}
}

func (lx *Lexer) skipComment() {
	for {
		r, _, _, err := lx.readRune()
		if err != nil || r == '\n' {
			return
		}
	}
}

// readWord scans one word starting at first, collecting segments until an
// unquoted metacharacter or whitespace.
func (lx *Lexer) readWord(first rune, pos Pos) (*Word, bool) {
	w := &Word{Pos: pos}
	var lit strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			w.Segs = append(w.Segs, Segment{Kind: SegLiteral, Text: lit.String(), Pos: pos})
			lit.Reset()
		}
	}

	r := first
	have := true
	for {
		if !have {
			var err error
			var pr rune
			pr, _, _, err = lx.peekRune()
			if err != nil {
				break
			}
			if !lx.raw && isMeta(pr) {
				break
			}
			r, _, _, _ = lx.readRune()
		}
		have = false

		switch r {
		case '\\':
			esc, _, _, err := lx.readRune()
			if err != nil {
				lit.WriteRune('\\')
				continue
			}
			if esc == '\n' {
				continue // line continuation
			}
			flushLit()
			w.Segs = append(w.Segs, Segment{Kind: SegLiteral, Text: string(esc), Quoted: true, Pos: pos})
		case '\'':
			text, ok := lx.readSingleQuoted()
			if !ok {
				lx.errorf("%d:%d: unterminated single quote", pos.Line, pos.Col)
				return nil, false
			}
			flushLit()
			w.Segs = append(w.Segs, Segment{Kind: SegLiteral, Text: text, Quoted: true, Pos: pos})
		case '"':
			segs, ok := lx.readDoubleQuoted(pos)
			if !ok {
				return nil, false
			}
			flushLit()
			if len(segs) == 0 {
				// "" contributes an empty quoted segment so the word
				// still produces a field.
				segs = []Segment{{Kind: SegLiteral, Quoted: true, Pos: pos}}
			}
			w.Segs = append(w.Segs, segs...)
		case '`':
			text, ok := lx.readBackquoted()
			if !ok {
				lx.errorf("%d:%d: unterminated backquote", pos.Line, pos.Col)
				return nil, false
			}
			flushLit()
			w.Segs = append(w.Segs, Segment{Kind: SegCmdSub, Text: text, Pos: pos})
		case '$':
			seg, lit2, ok := lx.readDollar(false, pos)
			if !ok {
				return nil, false
			}
			if lit2 != "" {
				lit.WriteString(lit2)
				continue
			}
			flushLit()
			w.Segs = append(w.Segs, seg)
		default:
			lit.WriteRune(r)
		}
	}
	flushLit()
	if len(w.Segs) == 0 {
		return nil, false
	}
	return w, true
}

func isMeta(r rune) bool {
	switch r {
	case ' ', '\t', '\n', ';', '&', '|', '(', ')', '<', '>':
		return true
	}
	return false
}

func (lx *Lexer) readSingleQuoted() (string, bool) {
	var b strings.Builder
	for {
		r, _, _, err := lx.readRune()
		if err != nil {
			return "", false
		}
		if r == '\'' {
			return b.String(), true
		}
		b.WriteRune(r)
	}
}

// readDoubleQuoted scans until the closing quote, yielding quoted literal
// runs interleaved with quoted expansion segments.
func (lx *Lexer) readDoubleQuoted(pos Pos) ([]Segment, bool) {
	var segs []Segment
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, Segment{Kind: SegLiteral, Text: lit.String(), Quoted: true, Pos: pos})
			lit.Reset()
		}
	}
	for {
		r, line, col, err := lx.readRune()
		if err != nil {
			lx.errorf("%d:%d: unterminated double quote", pos.Line, pos.Col)
			return nil, false
		}
		switch r {
		case '"':
			flush()
			return segs, true
		case '\\':
			esc, _, _, err := lx.readRune()
			if err != nil {
				lx.errorf("%d:%d: unterminated double quote", pos.Line, pos.Col)
				return nil, false
			}
			switch esc {
			case '$', '`', '"', '\\':
				lit.WriteRune(esc)
			case '\n':
				// line continuation
			default:
				lit.WriteRune('\\')
				lit.WriteRune(esc)
			}
		case '`':
			text, ok := lx.readBackquoted()
			if !ok {
				lx.errorf("%d:%d: unterminated backquote", line, col)
				return nil, false
			}
			flush()
			segs = append(segs, Segment{Kind: SegCmdSub, Text: text, Quoted: true, Pos: Pos{Line: line, Col: col}})
		case '$':
			seg, lit2, ok := lx.readDollar(true, Pos{Line: line, Col: col})
			if !ok {
				return nil, false
			}
			if lit2 != "" {
				lit.WriteString(lit2)
				continue
			}
			flush()
			segs = append(segs, seg)
		default:
			lit.WriteRune(r)
		}
	}
}

func (lx *Lexer) readBackquoted() (string, bool) {
	var b strings.Builder
	for {
		r, _, _, err := lx.readRune()
		if err != nil {
			return "", false
		}
		switch r {
		case '`':
			return b.String(), true
		case '\\':
			esc, _, _, err := lx.readRune()
			if err != nil {
				return "", false
			}
			switch esc {
			case '`', '$', '\\':
				b.WriteRune(esc)
			default:
				b.WriteRune('\\')
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

// readDollar scans the construct following $. It returns either an
// expansion segment or, for a lone dollar, the literal text to append.
func (lx *Lexer) readDollar(quoted bool, pos Pos) (Segment, string, bool) {
	r, _, _, err := lx.peekRune()
	if err != nil {
		return Segment{}, "$", true
	}
	switch {
	case r == '(':
		lx.readRune()
		if r2, _, _, err2 := lx.peekRune(); err2 == nil && r2 == '(' {
			lx.readRune()
			expr, ok := lx.readArith()
			if !ok {
				lx.errorf("%d:%d: unterminated arithmetic expansion", pos.Line, pos.Col)
				return Segment{}, "", false
			}
			return Segment{Kind: SegArith, Text: expr, Quoted: quoted, Pos: pos}, "", true
		}
		text, ok := lx.readCmdSub()
		if !ok {
			lx.errorf("%d:%d: unterminated command substitution", pos.Line, pos.Col)
			return Segment{}, "", false
		}
		return Segment{Kind: SegCmdSub, Text: text, Quoted: quoted, Pos: pos}, "", true
	case r == '{':
		lx.readRune()
		text, ok := lx.readBraced()
		if !ok {
			lx.errorf("%d:%d: unterminated ${", pos.Line, pos.Col)
			return Segment{}, "", false
		}
		return Segment{Kind: SegParam, Text: text, Quoted: quoted, Pos: pos}, "", true
	case isNameStart(r):
		name := lx.readName()
		return Segment{Kind: SegParam, Text: name, Quoted: quoted, Pos: pos}, "", true
	case r >= '0' && r <= '9' || isSpecialParam(r):
		lx.readRune()
		return Segment{Kind: SegParam, Text: string(r), Quoted: quoted, Pos: pos}, "", true
	default:
		return Segment{}, "$", true
	}
}

func isNameStart(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func isNameRune(r rune) bool {
	return isNameStart(r) || r >= '0' && r <= '9'
}

func isSpecialParam(r rune) bool {
	switch r {
	case '?', '#', '*', '@', '$', '!':
		return true
	}
	return false
}

func (lx *Lexer) readName() string {
	var b strings.Builder
	for {
		r, _, _, err := lx.peekRune()
		if err != nil || !isNameRune(r) {
			break
		}
		r, _, _, _ = lx.readRune()
		b.WriteRune(r)
	}
	return b.String()
}

// readArith consumes up to the closing )) of $((...)), balancing inner
// parenthesis pairs so nested $((...)) and grouping survive intact.
func (lx *Lexer) readArith() (string, bool) {
	var b strings.Builder
	depth := 0
	for {
		r, _, _, err := lx.readRune()
		if err != nil {
			return "", false
		}
		switch r {
		case '(':
			depth++
			b.WriteRune(r)
		case ')':
			if depth > 0 {
				depth--
				b.WriteRune(r)
				continue
			}
			r2, _, _, err := lx.peekRune()
			if err != nil {
				return "", false
			}
			if r2 == ')' {
				lx.readRune()
				return b.String(), true
			}
			// A stray ) at depth zero not followed by ) cannot
			// close the expansion.
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
}

// readCmdSub consumes up to the ) closing $(...), skipping parens inside
// quotes and nested substitutions.
func (lx *Lexer) readCmdSub() (string, bool) {
	var b strings.Builder
	depth := 0
	for {
		r, _, _, err := lx.readRune()
		if err != nil {
			return "", false
		}
		switch r {
		case '(':
			depth++
			b.WriteRune(r)
		case ')':
			if depth == 0 {
				return b.String(), true
			}
			depth--
			b.WriteRune(r)
		case '\\':
			b.WriteRune(r)
			if esc, _, _, err := lx.readRune(); err == nil {
				b.WriteRune(esc)
			}
		case '\'', '"':
			b.WriteRune(r)
			if !lx.copyQuoted(&b, r) {
				return "", false
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (lx *Lexer) copyQuoted(b *strings.Builder, quote rune) bool {
	for {
		r, _, _, err := lx.readRune()
		if err != nil {
			return false
		}
		b.WriteRune(r)
		if r == quote {
			return true
		}
		if r == '\\' && quote == '"' {
			if esc, _, _, err := lx.readRune(); err == nil {
				b.WriteRune(esc)
			}
		}
	}
}

// readBraced consumes up to the } closing ${...}, balancing nested braces
// so defaults like ${x:-${y}} scan correctly.
func (lx *Lexer) readBraced() (string, bool) {
	var b strings.Builder
	depth := 0
	for {
		r, _, _, err := lx.readRune()
		if err != nil {
			return "", false
		}
		switch r {
		case '{':
			depth++
			b.WriteRune(r)
		case '}':
			if depth == 0 {
				return b.String(), true
			}
			depth--
			b.WriteRune(r)
		case '\\':
			b.WriteRune(r)
			if esc, _, _, err := lx.readRune(); err == nil {
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (lx *Lexer) consumeIf(want rune) bool {
	r, _, _, err := lx.peekRune()
	if err != nil || r != want {
		return false
	}
	_, _, _, _ = lx.readRune()
	return true
}

func (lx *Lexer) readRune() (rune, int, int, error) {
	if lx.peeked {
		pr := lx.peek
		lx.peeked = false
		lx.line = pr.nextLine
		lx.col = pr.nextCol
		return pr.r, pr.line, pr.col, pr.err
	}
	pr := lx.readRawRune()
	lx.line = pr.nextLine
	lx.col = pr.nextCol
	return pr.r, pr.line, pr.col, pr.err
}

func (lx *Lexer) peekRune() (rune, int, int, error) {
	if lx.peeked {
		return lx.peek.r, lx.peek.line, lx.peek.col, lx.peek.err
	}
	lx.peek = lx.readRawRune()
	lx.peeked = true
	return lx.peek.r, lx.peek.line, lx.peek.col, lx.peek.err
}

func (lx *Lexer) readRawRune() lexRune {
	r, _, err := lx.r.ReadRune()
	if err != nil {
		if errors.Is(err, io.EOF) {
			lx.eof = true
		}
		return lexRune{r: 0, err: err, line: lx.line, col: lx.col, nextLine: lx.line, nextCol: lx.col}
	}
	line := lx.line
	col := lx.col + 1
	nextLine := line
	nextCol := col
	if r == '\n' {
		nextLine = line + 1
		nextCol = 0
	}
	return lexRune{r: r, line: line, col: col, nextLine: nextLine, nextCol: nextCol}
}
