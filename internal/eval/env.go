package eval

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"posh/internal/parse"
)

const defaultIFS = " \t\n"

// Env is the variable store for one interpreter instance. Scopes chain
// through parent; function calls push a child scope that shadows only the
// positional parameters, while plain assignments walk back to the scope
// that owns the variable (or the root).
type Env struct {
	parent   *Env
	vars     map[string]string
	exported map[string]bool
	funcs    map[string]*parse.List

	args    []string // positional parameters; args[0] is $0
	argsSet bool     // whether this scope shadows the positionals

	status int // root only
}

// NewEnv constructs an environment, optionally inheriting from parent.
func NewEnv(parent *Env) *Env {
	e := &Env{parent: parent, vars: make(map[string]string)}
	if parent == nil {
		e.exported = make(map[string]bool)
		e.funcs = make(map[string]*parse.List)
		e.args = []string{"posh"}
		e.argsSet = true
	}
	return e
}

// NewChild pushes a scope for a function call.
func NewChild(parent *Env) *Env {
	return NewEnv(parent)
}

func (e *Env) root() *Env {
	cur := e
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Get returns the value for name, searching parent scopes.
func (e *Env) Get(name string) (string, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return "", false
}

// Set assigns name in the scope that already owns it, or at the root.
func (e *Env) Set(name, value string) {
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = value
			return
		}
	}
	e.root().vars[name] = value
}

// SetLocal assigns name in this scope only.
func (e *Env) SetLocal(name, value string) {
	e.vars[name] = value
}

// Unset removes name wherever it is defined.
func (e *Env) Unset(name string) {
	for cur := e; cur != nil; cur = cur.parent {
		delete(cur.vars, name)
	}
	delete(e.root().exported, name)
}

// Export marks name for inclusion in the environment of external commands.
func (e *Env) Export(name string) {
	e.root().exported[name] = true
}

// Args returns the positional parameters in effect for this scope.
func (e *Env) Args() []string {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.argsSet {
			return cur.args
		}
	}
	return nil
}

// SetArgs installs positional parameters in this scope, shadowing any
// outer ones until the scope is discarded.
func (e *Env) SetArgs(args []string) {
	e.args = args
	e.argsSet = true
}

// Shift drops the first n positional parameters, keeping $0. It reports
// whether enough parameters were present.
func (e *Env) Shift(n int) bool {
	for cur := e; cur != nil; cur = cur.parent {
		if !cur.argsSet {
			continue
		}
		if n > len(cur.args)-1 {
			return false
		}
		cur.args = append(cur.args[:1], cur.args[1+n:]...)
		return true
	}
	return false
}

// Status returns the exit status of the last command.
func (e *Env) Status() int {
	return e.root().status
}

// SetStatus records the exit status of the last command.
func (e *Env) SetStatus(code int) {
	e.root().status = code
}

// SetFunc defines (or replaces) a shell function.
func (e *Env) SetFunc(name string, body *parse.List) {
	e.root().funcs[name] = body
}

// GetFunc looks up a shell function body.
func (e *Env) GetFunc(name string) (*parse.List, bool) {
	body, ok := e.root().funcs[name]
	return body, ok
}

// UnsetFunc removes a shell function.
func (e *Env) UnsetFunc(name string) {
	delete(e.root().funcs, name)
}

// Lookup resolves any parameter reference: plain variables, positional
// parameters and the special parameters. The second result is false only
// when the parameter is genuinely unset.
func (e *Env) Lookup(name string) (string, bool) {
	args := e.Args()
	switch name {
	case "#":
		n := 0
		if len(args) > 0 {
			n = len(args) - 1
		}
		return strconv.Itoa(n), true
	case "?":
		return strconv.Itoa(e.Status()), true
	case "$":
		return strconv.Itoa(os.Getpid()), true
	case "*", "@":
		if len(args) > 1 {
			return strings.Join(args[1:], " "), true
		}
		return "", true
	case "!":
		return "", true
	}
	if isDigits(name) {
		i, err := strconv.Atoi(name)
		if err != nil || i >= len(args) {
			return "", false
		}
		return args[i], true
	}
	return e.Get(name)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IFS returns the live field separator set: the IFS variable when set
// (possibly empty, which disables splitting), else space/tab/newline.
func (e *Env) IFS() string {
	if v, ok := e.Get("IFS"); ok {
		return v
	}
	return defaultIFS
}

// Subshell returns a flattened copy for command substitution: reads see
// the caller's state, writes stay in the copy.
func (e *Env) Subshell() *Env {
	sub := NewEnv(nil)
	var scopes []*Env
	for cur := e; cur != nil; cur = cur.parent {
		scopes = append(scopes, cur)
	}
	// Outermost first so nearer scopes win.
	for i := len(scopes) - 1; i >= 0; i-- {
		for k, v := range scopes[i].vars {
			sub.vars[k] = v
		}
	}
	root := e.root()
	for k := range root.exported {
		sub.exported[k] = true
	}
	for k, v := range root.funcs {
		sub.funcs[k] = v
	}
	sub.args = append([]string(nil), e.Args()...)
	sub.status = root.status
	return sub
}

// Snapshot returns a flattened copy of every visible variable.
func (e *Env) Snapshot() map[string]string {
	var scopes []*Env
	for cur := e; cur != nil; cur = cur.parent {
		scopes = append(scopes, cur)
	}
	out := make(map[string]string)
	for i := len(scopes) - 1; i >= 0; i-- {
		for k, v := range scopes[i].vars {
			out[k] = v
		}
	}
	return out
}

// FuncNames returns the defined function names, sorted.
func (e *Env) FuncNames() []string {
	funcs := e.root().funcs
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetFromEnviron seeds variables from "name=value" pairs, marking them
// exported.
func (e *Env) SetFromEnviron(pairs []string) {
	for _, kv := range pairs {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		e.Set(kv[:i], kv[i+1:])
		e.Export(kv[:i])
	}
}

// Environ builds the environment for external commands: the process
// environment overlaid with exported variables.
func (e *Env) Environ() []string {
	base := map[string]string{}
	for _, kv := range os.Environ() {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		base[kv[:i]] = kv[i+1:]
	}
	for name := range e.root().exported {
		if v, ok := e.Get(name); ok {
			base[name] = v
		}
	}
	out := make([]string, 0, len(base))
	for k, v := range base {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
