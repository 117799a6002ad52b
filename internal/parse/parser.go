package parse

import (
	"fmt"
	"io"
	"strings"
)

// Parse reads the whole input into a command list.
func Parse(rd io.Reader) (*List, error) {
	p := &parser{lx: NewLexer(rd)}
	p.next()
	list, err := p.parseList("")
	if err != nil {
		return nil, err
	}
	if p.lx.Err != nil {
		return nil, p.lx.Err
	}
	if p.tok.kind != tEOF {
		return nil, p.errorf("unexpected token")
	}
	return list, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(src string) (*List, error) {
	return Parse(strings.NewReader(src))
}

type parser struct {
	lx  *Lexer
	tok token
}

func (p *parser) next() {
	p.tok = p.lx.Next()
}

func (p *parser) errorf(format string, args ...any) error {
	if p.lx.Err != nil {
		return p.lx.Err
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%d:%d: %s", p.tok.pos.Line, p.tok.pos.Col, msg)
}

func (p *parser) skipSeparators() {
	for p.tok.kind == tNewline || p.tok.kind == tSemi {
		p.next()
	}
}

func (p *parser) skipNewlines() {
	for p.tok.kind == tNewline {
		p.next()
	}
}

// parseList parses commands until EOF, or until the given terminator word
// appears at command position.
func (p *parser) parseList(terminator string) (*List, error) {
	list := &List{}
	for {
		p.skipSeparators()
		if p.tok.kind == tEOF {
			if terminator != "" {
				return nil, p.errorf("expected %q", terminator)
			}
			return list, nil
		}
		if terminator != "" && p.atWordLit(terminator) {
			return list, nil
		}
		ao, err := p.parseAndOr()
		if err != nil {
			return nil, err
		}
		list.AndOrs = append(list.AndOrs, ao)
		switch p.tok.kind {
		case tSemi, tNewline:
			p.next()
		case tEOF:
		default:
			if terminator != "" && p.atWordLit(terminator) {
				return list, nil
			}
			return nil, p.errorf("unexpected token after command")
		}
	}
}

func (p *parser) atWordLit(text string) bool {
	if p.tok.kind != tWord {
		return false
	}
	lit, ok := p.tok.word.Lit()
	return ok && lit == text
}

func (p *parser) parseAndOr() (*AndOr, error) {
	pp, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	ao := &AndOr{Pipelines: []*Pipeline{pp}}
	for p.tok.kind == tAndAnd || p.tok.kind == tOrOr {
		op := "&&"
		if p.tok.kind == tOrOr {
			op = "||"
		}
		p.next()
		p.skipNewlines()
		pp, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		ao.Ops = append(ao.Ops, op)
		ao.Pipelines = append(ao.Pipelines, pp)
	}
	return ao, nil
}

func (p *parser) parsePipeline() (*Pipeline, error) {
	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	pp := &Pipeline{Cmds: []Command{cmd}}
	for p.tok.kind == tPipe {
		p.next()
		p.skipNewlines()
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pp.Cmds = append(pp.Cmds, cmd)
	}
	return pp, nil
}

func (p *parser) parseCommand() (Command, error) {
	if p.tok.kind != tWord {
		return nil, p.errorf("expected command")
	}
	simple := &Simple{Pos: p.tok.pos}

	// Assignment prefixes are only recognized before the first plain word.
	for p.tok.kind == tWord {
		assign, ok := splitAssign(p.tok.word)
		if !ok {
			break
		}
		simple.Assigns = append(simple.Assigns, assign)
		p.next()
	}

	if p.tok.kind == tWord {
		first := p.tok.word
		p.next()
		if p.tok.kind == tLParen && len(simple.Assigns) == 0 {
			return p.parseFnDef(first)
		}
		simple.Words = append(simple.Words, first)
		for p.tok.kind == tWord {
			simple.Words = append(simple.Words, p.tok.word)
			p.next()
		}
	}
	if len(simple.Assigns) == 0 && len(simple.Words) == 0 {
		return nil, p.errorf("expected command")
	}
	if p.tok.kind == tAmp {
		return nil, p.errorf("background jobs are not supported")
	}
	if p.tok.kind == tLParen || p.tok.kind == tRParen {
		return nil, p.errorf("unexpected parenthesis")
	}
	return simple, nil
}

// parseFnDef handles name() { body } once name and ( have been consumed.
func (p *parser) parseFnDef(nameWord *Word) (Command, error) {
	name, ok := nameWord.Lit()
	if !ok || !validName(name) {
		return nil, p.errorf("invalid function name")
	}
	p.next() // consume (
	if p.tok.kind != tRParen {
		return nil, p.errorf("expected ) in function definition")
	}
	p.next()
	p.skipNewlines()
	if !p.atWordLit("{") {
		return nil, p.errorf("expected { in function definition")
	}
	pos := p.tok.pos
	p.next()
	body, err := p.parseList("}")
	if err != nil {
		return nil, err
	}
	p.next() // consume }
	return &FnDef{Name: name, Body: body, Pos: pos}, nil
}

// splitAssign recognizes name=value words. The name must be entirely in
// the leading unquoted literal run; the value keeps whatever segments
// follow the = sign.
func splitAssign(w *Word) (*Assign, bool) {
	if w == nil || len(w.Segs) == 0 {
		return nil, false
	}
	s := w.Segs[0]
	if s.Kind != SegLiteral || s.Quoted {
		return nil, false
	}
	i := strings.IndexByte(s.Text, '=')
	if i <= 0 {
		return nil, false
	}
	name := s.Text[:i]
	if !validName(name) {
		return nil, false
	}
	val := &Word{Pos: w.Pos}
	if rest := s.Text[i+1:]; rest != "" {
		val.Segs = append(val.Segs, Segment{Kind: SegLiteral, Text: rest, Pos: s.Pos})
	}
	val.Segs = append(val.Segs, w.Segs[1:]...)
	return &Assign{Name: name, Value: val}, true
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isNameStart(r) {
			return false
		}
		if !isNameRune(r) {
			return false
		}
	}
	return true
}
