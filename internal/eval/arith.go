package eval

import (
	"fmt"
	"strconv"
	"strings"
)

// Arithmetic expansion: a C-like integer expression grammar evaluated
// with standard precedence and short-circuit && and ||. The AST is built
// per evaluation and discarded. Nested $((...)) inside the expression is
// evaluated eagerly while scanning, so the grammar itself only ever sees
// numbers, names and operators.

// evalArith evaluates expr and returns the signed integer result.
func evalArith(expr string, env *Env) (int64, error) {
	p := &arithParser{env: env}
	if err := p.tokenize(expr); err != nil {
		return 0, err
	}
	node, err := p.parseExpr(0)
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, fmt.Errorf("%w: unexpected %q", ErrArithSyntax, p.toks[p.pos].text)
	}
	return node.eval(env)
}

type arithTok struct {
	text string
	num  int64
	name string
	kind arithTokKind
}

type arithTokKind int

const (
	atNum arithTokKind = iota
	atName
	atOp
)

type arithParser struct {
	env  *Env
	toks []arithTok
	pos  int
}

var arithOps = []string{
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "!", "(", ")", "&", "|", "^", "~",
}

func (p *arithParser) tokenize(expr string) error {
	s := expr
	for {
		s = strings.TrimLeft(s, " \t\n")
		if s == "" {
			return nil
		}
		switch {
		case s[0] >= '0' && s[0] <= '9':
			i := 1
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			n, err := strconv.ParseInt(s[:i], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad number %q", ErrArithSyntax, s[:i])
			}
			p.toks = append(p.toks, arithTok{text: s[:i], num: n, kind: atNum})
			s = s[i:]
		case isNameByte(s[0], true):
			i := 1
			for i < len(s) && isNameByte(s[i], false) {
				i++
			}
			p.toks = append(p.toks, arithTok{text: s[:i], name: s[:i], kind: atName})
			s = s[i:]
		case s[0] == '$':
			rest, tok, err := p.dollarTok(s)
			if err != nil {
				return err
			}
			p.toks = append(p.toks, tok)
			s = rest
		default:
			op := ""
			for _, cand := range arithOps {
				if strings.HasPrefix(s, cand) {
					op = cand
					break
				}
			}
			if op == "" {
				return fmt.Errorf("%w: unexpected character %q", ErrArithSyntax, s[0])
			}
			p.toks = append(p.toks, arithTok{text: op, kind: atOp})
			s = s[len(op):]
		}
	}
}

// dollarTok resolves a $ construct at the head of s: $name, ${name}, or a
// nested $((...)) evaluated recursively right here.
func (p *arithParser) dollarTok(s string) (string, arithTok, error) {
	if strings.HasPrefix(s, "$((") {
		inner, rest, ok := balancedArith(s[len("$(("):])
		if !ok {
			return "", arithTok{}, fmt.Errorf("%w: unbalanced $((", ErrArithSyntax)
		}
		n, err := evalArith(inner, p.env)
		if err != nil {
			return "", arithTok{}, err
		}
		return rest, arithTok{text: inner, num: n, kind: atNum}, nil
	}
	if strings.HasPrefix(s, "${") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", arithTok{}, fmt.Errorf("%w: unbalanced ${", ErrArithSyntax)
		}
		name := s[2:end]
		return s[end+1:], arithTok{text: name, name: name, kind: atName}, nil
	}
	i := 1
	for i < len(s) && isNameByte(s[i], i == 1) {
		i++
	}
	if i == 1 && i < len(s) && s[i] >= '0' && s[i] <= '9' {
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i == 1 {
		return "", arithTok{}, fmt.Errorf("%w: stray $", ErrArithSyntax)
	}
	name := s[1:i]
	return s[i:], arithTok{text: name, name: name, kind: atName}, nil
}

// balancedArith splits "expr)) rest" into expr and rest, balancing inner
// parenthesis pairs.
func balancedArith(s string) (inner, rest string, ok bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
				continue
			}
			if i+1 < len(s) && s[i+1] == ')' {
				return s[:i], s[i+2:], true
			}
		}
	}
	return "", "", false
}

func isNameByte(b byte, start bool) bool {
	if b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' {
		return true
	}
	return !start && b >= '0' && b <= '9'
}

type arithNode struct {
	op          string // "" for leaves
	num         int64
	name        string
	left, right *arithNode
}

// Binary operator precedence, loosest first.
var arithPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (p *arithParser) parseExpr(minPrec int) (*arithNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peekOp()
		if !ok {
			return left, nil
		}
		prec, isBinary := arithPrec[tok]
		if !isBinary || prec < minPrec {
			return left, nil
		}
		p.pos++
		// Left associative: the right operand binds one level tighter.
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &arithNode{op: tok, left: left, right: right}
	}
}

func (p *arithParser) parseUnary() (*arithNode, error) {
	if tok, ok := p.peekOp(); ok {
		switch tok {
		case "-", "+", "!", "~":
			p.pos++
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &arithNode{op: "u" + tok, left: operand}, nil
		case "(":
			p.pos++
			node, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if tok, ok := p.peekOp(); !ok || tok != ")" {
				return nil, fmt.Errorf("%w: missing )", ErrArithSyntax)
			}
			p.pos++
			return node, nil
		}
	}
	if p.pos >= len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrArithSyntax)
	}
	tok := p.toks[p.pos]
	p.pos++
	switch tok.kind {
	case atNum:
		return &arithNode{num: tok.num}, nil
	case atName:
		return &arithNode{name: tok.name}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrArithSyntax, tok.text)
	}
}

func (p *arithParser) peekOp() (string, bool) {
	if p.pos >= len(p.toks) || p.toks[p.pos].kind != atOp {
		return "", false
	}
	return p.toks[p.pos].text, true
}

func (n *arithNode) eval(env *Env) (int64, error) {
	switch n.op {
	case "":
		if n.name != "" {
			return lookupArith(n.name, env), nil
		}
		return n.num, nil
	case "u-":
		v, err := n.left.eval(env)
		return -v, err
	case "u+":
		return n.left.eval(env)
	case "u!":
		v, err := n.left.eval(env)
		if err != nil {
			return 0, err
		}
		return boolInt(v == 0), nil
	case "u~":
		v, err := n.left.eval(env)
		return ^v, err
	case "&&":
		l, err := n.left.eval(env)
		if err != nil {
			return 0, err
		}
		if l == 0 {
			return 0, nil
		}
		r, err := n.right.eval(env)
		if err != nil {
			return 0, err
		}
		return boolInt(r != 0), nil
	case "||":
		l, err := n.left.eval(env)
		if err != nil {
			return 0, err
		}
		if l != 0 {
			return 1, nil
		}
		r, err := n.right.eval(env)
		if err != nil {
			return 0, err
		}
		return boolInt(r != 0), nil
	}

	l, err := n.left.eval(env)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(env)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, ErrDivideByZero
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, ErrDivideByZero
		}
		return l % r, nil
	case "<<":
		return l << uint64(r&63), nil
	case ">>":
		return l >> uint64(r&63), nil
	case "&":
		return l & r, nil
	case "|":
		return l | r, nil
	case "^":
		return l ^ r, nil
	case "==":
		return boolInt(l == r), nil
	case "!=":
		return boolInt(l != r), nil
	case "<":
		return boolInt(l < r), nil
	case "<=":
		return boolInt(l <= r), nil
	case ">":
		return boolInt(l > r), nil
	case ">=":
		return boolInt(l >= r), nil
	}
	return 0, fmt.Errorf("%w: unknown operator %q", ErrArithSyntax, n.op)
}

// lookupArith resolves a name in arithmetic context: unset, empty and
// non-numeric values all evaluate to zero.
func lookupArith(name string, env *Env) int64 {
	v, ok := env.Lookup(name)
	if !ok {
		return 0
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
