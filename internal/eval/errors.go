package eval

import (
	"errors"
	"fmt"

	"posh/internal/parse"
)

// Sentinel error kinds surfaced by word expansion. Callers classify with
// errors.Is.
var (
	// ErrArithSyntax reports a malformed arithmetic expression.
	ErrArithSyntax = errors.New("arithmetic syntax error")
	// ErrDivideByZero reports division or modulo by zero.
	ErrDivideByZero = errors.New("division by zero")
	// ErrUnsetVariable reports use of an unset variable in strict mode,
	// or a ${name?word} form on an unset parameter.
	ErrUnsetVariable = errors.New("parameter not set")
	// ErrBadSubstitution reports a malformed ${...} form.
	ErrBadSubstitution = errors.New("bad substitution")
)

// ExpandError wraps a failure in one word's expansion with the original
// word text and the failing segment's source position. The rest of the
// command line is unaffected; each word fails independently.
type ExpandError struct {
	Word string
	Pos  parse.Pos
	Err  error
}

func (e *ExpandError) Error() string {
	if e.Word == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%d:%d: %s: %v", e.Pos.Line, e.Pos.Col, e.Word, e.Err)
}

func (e *ExpandError) Unwrap() error {
	return e.Err
}

func expandErr(w *parse.Word, pos parse.Pos, err error) error {
	var ee *ExpandError
	if errors.As(err, &ee) {
		return err
	}
	return &ExpandError{Word: wordText(w), Pos: pos, Err: err}
}

// wordText reconstructs an approximation of the word's source text for
// diagnostics.
func wordText(w *parse.Word) string {
	if w == nil {
		return ""
	}
	var out string
	for _, s := range w.Segs {
		switch s.Kind {
		case parse.SegParam:
			out += "${" + s.Text + "}"
		case parse.SegArith:
			out += "$((" + s.Text + "))"
		case parse.SegCmdSub:
			out += "$(" + s.Text + ")"
		default:
			out += s.Text
		}
	}
	return out
}
