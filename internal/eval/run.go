package eval

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"posh/internal/parse"
)

// Runner executes parsed command lists. One Runner owns one variable
// store; expansion of a single command line is synchronous and ordered,
// so later words observe variable and IFS mutations made by earlier ones.
type Runner struct {
	Env      *Env
	Builtins map[string]Builtin
	Aliases  map[string][]string

	Trace       bool
	TraceWriter io.Writer
	// Strict makes expansion of an unset variable a fatal word error.
	Strict bool
	// Stderr receives diagnostics from nested command substitutions.
	Stderr io.Writer

	exitRequested bool
	exitCode      int
}

// Result captures the exit status.
type Result struct {
	Status int
}

// ExitRequested reports whether an exit builtin has been invoked.
func (r *Runner) ExitRequested() bool {
	return r != nil && r.exitRequested
}

// ExitCode returns the requested exit code.
func (r *Runner) ExitCode() int {
	if r == nil {
		return 0
	}
	return r.exitCode
}

// Run executes a command list and returns the final status.
func (r *Runner) Run(ctx context.Context, list *parse.List, stdin io.Reader, stdout, stderr io.Writer) Result {
	if r.Env == nil {
		r.Env = NewEnv(nil)
	}
	if r.Builtins == nil {
		r.Builtins = defaultBuiltins()
	}
	if r.Aliases == nil {
		r.Aliases = make(map[string][]string)
	}
	if r.Trace && r.TraceWriter == nil {
		r.TraceWriter = io.Discard
	}
	if r.Stderr == nil {
		r.Stderr = stderr
	}
	return Result{Status: r.runList(ctx, list, stdin, stdout, stderr)}
}

func (r *Runner) runList(ctx context.Context, list *parse.List, stdin io.Reader, stdout, stderr io.Writer) int {
	status := 0
	if list == nil {
		return status
	}
	for _, ao := range list.AndOrs {
		if r.exitRequested {
			return r.exitCode
		}
		if ctx.Err() != nil {
			return 130
		}
		status = r.runAndOr(ctx, ao, stdin, stdout, stderr)
	}
	return status
}

func (r *Runner) runAndOr(ctx context.Context, ao *parse.AndOr, stdin io.Reader, stdout, stderr io.Writer) int {
	status := r.runPipeline(ctx, ao.Pipelines[0], stdin, stdout, stderr)
	for i, op := range ao.Ops {
		if r.exitRequested || ctx.Err() != nil {
			break
		}
		if op == "&&" && status != 0 || op == "||" && status == 0 {
			continue
		}
		status = r.runPipeline(ctx, ao.Pipelines[i+1], stdin, stdout, stderr)
	}
	return status
}

func (r *Runner) runPipeline(ctx context.Context, pp *parse.Pipeline, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(pp.Cmds) == 1 {
		status := r.runCommand(ctx, pp.Cmds[0], r.Env, stdin, stdout, stderr)
		r.Env.SetStatus(status)
		return status
	}

	// Every stage but the last runs a nested runner against its own
	// snapshot of the variable store, so concurrent stages never share
	// live state.
	n := len(pp.Cmds)
	type stage struct {
		run *Runner
		in  io.Reader
		out io.Writer
	}
	stages := make([]stage, n)
	in := stdin
	for i := 0; i < n; i++ {
		st := stage{in: in}
		if i < n-1 {
			pr, pw := io.Pipe()
			st.out = pw
			st.run = r.fork(r.Env.Subshell())
			in = pr
		} else {
			st.out = stdout
			st.run = r
		}
		stages[i] = st
	}

	done := make(chan int, n)
	for i := 0; i < n; i++ {
		go func(i int, st stage) {
			status := st.run.runCommand(ctx, pp.Cmds[i], st.run.Env, st.in, st.out, stderr)
			if pw, ok := st.out.(*io.PipeWriter); ok {
				_ = pw.Close()
			}
			if pr, ok := st.in.(*io.PipeReader); ok {
				_ = pr.Close()
			}
			if i == n-1 {
				done <- status
			} else {
				done <- -1
			}
		}(i, stages[i])
	}
	status := 0
	for i := 0; i < n; i++ {
		if s := <-done; s >= 0 {
			status = s
		}
	}
	r.Env.SetStatus(status)
	return status
}

func (r *Runner) runCommand(ctx context.Context, cmd parse.Command, env *Env, stdin io.Reader, stdout, stderr io.Writer) int {
	switch c := cmd.(type) {
	case *parse.FnDef:
		env.SetFunc(c.Name, c.Body)
		return 0
	case *parse.Simple:
		return r.runSimple(ctx, c, env, stdin, stdout, stderr)
	}
	return 0
}

func (r *Runner) runSimple(ctx context.Context, cmd *parse.Simple, env *Env, stdin io.Reader, stdout, stderr io.Writer) int {
	// Standalone assignments mutate the current scope chain. The status
	// of a command substitution in the value becomes the statement's
	// status.
	if len(cmd.Words) == 0 {
		env.SetStatus(0)
		for _, as := range cmd.Assigns {
			val, err := r.ExpandWordNoSplit(ctx, as.Value, env)
			if err != nil {
				fmt.Fprintln(stderr, "posh:", err)
				return 1
			}
			env.Set(as.Name, val)
		}
		return env.Status()
	}

	// Assignment prefixes are visible only to this command.
	execEnv := env
	var prefix []string
	if len(cmd.Assigns) > 0 {
		child := NewChild(env)
		for _, as := range cmd.Assigns {
			val, err := r.ExpandWordNoSplit(ctx, as.Value, child)
			if err != nil {
				fmt.Fprintln(stderr, "posh:", err)
				return 1
			}
			child.SetLocal(as.Name, val)
			prefix = append(prefix, as.Name+"="+val)
		}
		execEnv = child
	}

	// Each word expands independently; a failing word aborts only this
	// command.
	var argv []string
	for _, w := range cmd.Words {
		fields, err := r.ExpandWord(ctx, w, execEnv)
		if err != nil {
			fmt.Fprintln(stderr, "posh:", err)
			return 1
		}
		argv = append(argv, fields...)
	}
	if len(argv) == 0 {
		return 0
	}
	argv = r.expandAlias(argv)
	r.tracef("+ %s\n", strings.Join(argv, " "))

	if body, ok := execEnv.GetFunc(argv[0]); ok {
		return r.runFuncCall(ctx, body, argv, execEnv, stdin, stdout, stderr)
	}
	if builtin, ok := r.Builtins[argv[0]]; ok {
		return r.runBuiltin(builtin, argv, execEnv, stdin, stdout, stderr)
	}
	return r.runExternal(ctx, argv, execEnv, prefix, stdin, stdout, stderr)
}

// fork builds a nested runner over its own variable store. The alias
// table is copied like the variables: concurrent pipeline stages must
// never share a live map, and alias definitions made in a substitution
// or a non-final stage stay there.
func (r *Runner) fork(env *Env) *Runner {
	aliases := make(map[string][]string, len(r.Aliases))
	for name, words := range r.Aliases {
		aliases[name] = words
	}
	return &Runner{
		Env:         env,
		Builtins:    r.Builtins,
		Aliases:     aliases,
		Trace:       r.Trace,
		TraceWriter: r.TraceWriter,
		Strict:      r.Strict,
		Stderr:      r.Stderr,
	}
}

// expandAlias rewrites the command name through the alias table. The
// replacement's own first word is not re-expanded, so self-referential
// aliases terminate.
func (r *Runner) expandAlias(argv []string) []string {
	words, ok := r.Aliases[argv[0]]
	if !ok || len(words) == 0 {
		return argv
	}
	out := make([]string, 0, len(words)+len(argv)-1)
	out = append(out, words...)
	out = append(out, argv[1:]...)
	return out
}

func (r *Runner) runFuncCall(ctx context.Context, body *parse.List, argv []string, env *Env, stdin io.Reader, stdout, stderr io.Writer) int {
	// The call shadows the positional parameters for its dynamic
	// extent only; plain variables still resolve through the chain.
	child := NewChild(env)
	child.SetArgs(append([]string(nil), argv...))
	orig := r.Env
	r.Env = child
	status := r.runList(ctx, body, stdin, stdout, stderr)
	r.Env = orig
	return status
}

func (r *Runner) runBuiltin(builtin Builtin, argv []string, env *Env, stdin io.Reader, stdout, stderr io.Writer) int {
	orig := r.Env
	r.Env = env
	status := builtin(stdin, stdout, stderr, argv, r)
	r.Env = orig
	return status
}

func (r *Runner) runExternal(ctx context.Context, argv []string, env *Env, prefix []string, stdin io.Reader, stdout, stderr io.Writer) int {
	path, ok := resolvePath(argv[0], env)
	if !ok {
		fmt.Fprintf(stderr, "posh: %s: command not found\n", argv[0])
		return 127
	}
	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = append(env.Environ(), prefix...)
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		fmt.Fprintln(stderr, "posh:", err)
		return 126
	}
	err := cmd.Wait()
	return exitStatus(err)
}

// runCapturing runs a command substitution body: the text is parsed and
// executed against a snapshot of the caller's variables with standard
// output captured. The nested exit status lands in the caller's $?; a
// non-zero status is not itself an expansion error.
func (r *Runner) runCapturing(ctx context.Context, text string, env *Env) (string, error) {
	list, err := parse.ParseString(text)
	if err != nil {
		return "", err
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	nested := r.fork(env.Subshell())
	nested.Stderr = stderr
	var out bytes.Buffer
	res := nested.Run(ctx, list, strings.NewReader(""), &out, stderr)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	env.SetStatus(res.Status)
	return out.String(), nil
}

func (r *Runner) tracef(format string, args ...any) {
	if !r.Trace || r.TraceWriter == nil {
		return
	}
	fmt.Fprintf(r.TraceWriter, format, args...)
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 127
}

// resolvePath finds an executable for name: a name with a slash is used
// as-is, anything else searches PATH.
func resolvePath(name string, env *Env) (string, bool) {
	if name == "" {
		return "", false
	}
	if strings.ContainsRune(name, '/') {
		if canExec(name) {
			return name, true
		}
		return "", false
	}
	pathVar, ok := env.Get("PATH")
	if !ok {
		pathVar = os.Getenv("PATH")
	}
	for _, dir := range strings.Split(pathVar, string(os.PathListSeparator)) {
		if dir == "" {
			dir = "."
		}
		full := dir + "/" + name
		if canExec(full) {
			return full, true
		}
	}
	return "", false
}

func canExec(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
