package eval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"posh/internal/parse"
)

// expandParam resolves the text of a $name or ${...} reference to its
// replacement string. spec is the raw text between the braces.
func (r *Runner) expandParam(ctx context.Context, spec string, env *Env) (string, error) {
	if spec == "" {
		return "", ErrBadSubstitution
	}
	if spec[0] == '#' && len(spec) > 1 {
		name := spec[1:]
		if !validParamName(name) {
			return "", fmt.Errorf("%w: ${%s}", ErrBadSubstitution, spec)
		}
		val, _ := env.Lookup(name)
		return strconv.Itoa(len(val)), nil
	}

	name := scanParamName(spec)
	if name == "" {
		return "", fmt.Errorf("%w: ${%s}", ErrBadSubstitution, spec)
	}
	rest := spec[len(name):]
	val, set := env.Lookup(name)

	if rest == "" {
		if !set && r.Strict {
			return "", fmt.Errorf("%s: %w", name, ErrUnsetVariable)
		}
		return val, nil
	}

	op, operand := splitParamOp(rest)
	if op == "" {
		return "", fmt.Errorf("%w: ${%s}", ErrBadSubstitution, spec)
	}

	switch op {
	case "-", ":-":
		if !set || op == ":-" && val == "" {
			return r.expandOperand(ctx, operand, env)
		}
		return val, nil
	case "=", ":=":
		if !set || op == ":=" && val == "" {
			word, err := r.expandOperand(ctx, operand, env)
			if err != nil {
				return "", err
			}
			if isDigits(name) || !validName(name) {
				return "", fmt.Errorf("%w: cannot assign to %s", ErrBadSubstitution, name)
			}
			env.Set(name, word)
			return word, nil
		}
		return val, nil
	case "+", ":+":
		if set && (op == "+" || val != "") {
			return r.expandOperand(ctx, operand, env)
		}
		return "", nil
	case "?", ":?":
		if !set || op == ":?" && val == "" {
			msg := operand
			if msg == "" {
				msg = ErrUnsetVariable.Error()
			}
			return "", fmt.Errorf("%s: %w: %s", name, ErrUnsetVariable, msg)
		}
		return val, nil
	case "#":
		return stripPrefix(val, operand, false), nil
	case "##":
		return stripPrefix(val, operand, true), nil
	case "%":
		return stripSuffix(val, operand, false), nil
	case "%%":
		return stripSuffix(val, operand, true), nil
	case "/", "//":
		pat, repl := splitPatternRepl(operand)
		if pat == "" {
			// An empty pattern matches nothing; the value is unchanged.
			return val, nil
		}
		if op == "/" {
			return replaceFirst(val, pat, repl), nil
		}
		return replaceAll(val, pat, repl), nil
	}
	return "", fmt.Errorf("%w: ${%s}", ErrBadSubstitution, spec)
}

// scanParamName takes the leading parameter name: a normal identifier, a
// run of digits, or a single special character.
func scanParamName(spec string) string {
	switch spec[0] {
	case '?', '#', '*', '@', '$', '!':
		return spec[:1]
	}
	if spec[0] >= '0' && spec[0] <= '9' {
		i := 1
		for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
			i++
		}
		return spec[:i]
	}
	i := 0
	for i < len(spec) && isNameByte(spec[i], i == 0) {
		i++
	}
	return spec[:i]
}

func validParamName(name string) bool {
	if name == "" {
		return false
	}
	return scanParamName(name) == name
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i], i == 0) {
			return false
		}
	}
	return true
}

// splitParamOp recognizes the operator at the head of rest and returns it
// with its operand.
func splitParamOp(rest string) (op, operand string) {
	for _, cand := range []string{":-", ":=", ":+", ":?", "##", "%%", "//"} {
		if strings.HasPrefix(rest, cand) {
			return cand, rest[len(cand):]
		}
	}
	switch rest[0] {
	case '-', '=', '+', '?', '#', '%', '/':
		return rest[:1], rest[1:]
	}
	return "", ""
}

// splitPatternRepl divides the operand of ${var/pat/repl} at the first
// unescaped slash. A missing replacement deletes the match. The pattern
// keeps its escapes for the matcher; an escaped delimiter in the
// replacement becomes a literal slash.
func splitPatternRepl(operand string) (pat, repl string) {
	esc := false
	for i := 0; i < len(operand); i++ {
		switch {
		case esc:
			esc = false
		case operand[i] == '\\':
			esc = true
		case operand[i] == '/':
			return operand[:i], strings.ReplaceAll(operand[i+1:], `\/`, "/")
		}
	}
	return operand, ""
}

// expandOperand runs parameter, command and arithmetic expansion over the
// operand of a ${...} form. Patterns are excluded: they are taken
// verbatim so their wildcards and escapes reach the matcher intact.
func (r *Runner) expandOperand(ctx context.Context, operand string, env *Env) (string, error) {
	if !strings.ContainsAny(operand, "$`'\"\\") {
		return operand, nil
	}
	w, err := parse.ParseWordText(operand)
	if err != nil {
		return "", err
	}
	pieces, err := r.substitute(ctx, w, env)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, pc := range pieces {
		b.WriteString(pc.text)
	}
	return b.String(), nil
}
