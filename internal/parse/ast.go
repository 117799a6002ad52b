package parse

// SegKind identifies what a word segment holds.
type SegKind int

const (
	// SegLiteral is a run of ordinary characters.
	SegLiteral SegKind = iota
	// SegParam is a parameter reference: the text between ${ and },
	// or a bare name/special after $.
	SegParam
	// SegArith is the expression text between $(( and )).
	SegArith
	// SegCmdSub is the command text between $( and ), or backticks.
	SegCmdSub
)

// Pos tracks a source position.
type Pos struct {
	Line int
	Col  int
}

// Segment is one piece of a word. Quoted segments survive field
// splitting and pathname expansion intact.
type Segment struct {
	Kind   SegKind
	Text   string
	Quoted bool
	Pos    Pos
}

// Word is an ordered segment list. The quoting flags are fixed at parse
// time; the expansion engine never re-derives them.
type Word struct {
	Segs []Segment
	Pos  Pos
}

// Lit reports whether the word is a single unquoted literal, and its text.
func (w *Word) Lit() (string, bool) {
	if w == nil || len(w.Segs) != 1 {
		return "", false
	}
	s := w.Segs[0]
	if s.Kind != SegLiteral || s.Quoted {
		return "", false
	}
	return s.Text, true
}

// Assign is a name=value pair preceding or forming a command.
type Assign struct {
	Name  string
	Value *Word
}

// Command is either a *Simple or a *FnDef.
type Command interface {
	command()
}

// Simple is a plain command: optional assignment prefixes and a word list.
// A Simple with no words is a standalone assignment statement.
type Simple struct {
	Assigns []*Assign
	Words   []*Word
	Pos     Pos
}

func (*Simple) command() {}

// FnDef is a POSIX function definition: name() { body }.
type FnDef struct {
	Name string
	Body *List
	Pos  Pos
}

func (*FnDef) command() {}

// Pipeline is one or more commands connected by |.
type Pipeline struct {
	Cmds []Command
}

// AndOr is a pipeline chain connected by && and ||. Ops[i] joins
// Pipelines[i] to Pipelines[i+1] and is "&&" or "||".
type AndOr struct {
	Pipelines []*Pipeline
	Ops       []string
}

// List is a sequence of and-or lists separated by ; or newline.
type List struct {
	AndOrs []*AndOr
}
