package eval

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Builtin executes a built-in command and returns an exit status.
type Builtin func(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int

func defaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		":":       builtinColon,
		"alias":   builtinAlias,
		"cd":      builtinCD,
		"echo":    builtinEcho,
		"exit":    builtinExit,
		"export":  builtinExport,
		"false":   builtinFalse,
		"pwd":     builtinPWD,
		"set":     builtinSet,
		"shift":   builtinShift,
		"true":    builtinTrue,
		"unalias": builtinUnalias,
		"unset":   builtinUnset,
	}
}

// BuiltinNames returns the default builtin names, sorted. The REPL uses
// it for completion.
func BuiltinNames() []string {
	builtins := defaultBuiltins()
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinColon(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _, _, _, _ = stdin, stdout, stderr, args, r
	return 0
}

func builtinTrue(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _, _, _, _ = stdin, stdout, stderr, args, r
	return 0
}

func builtinFalse(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _, _, _, _ = stdin, stdout, stderr, args, r
	return 1
}

func builtinEcho(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _, _ = stdin, stderr, r
	rest := args[1:]
	newline := true
	if len(rest) > 0 && rest[0] == "-n" {
		newline = false
		rest = rest[1:]
	}
	fmt.Fprint(stdout, strings.Join(rest, " "))
	if newline {
		fmt.Fprintln(stdout)
	}
	return 0
}

func builtinCD(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _ = stdin, stdout
	var dir string
	if len(args) > 1 {
		dir = args[1]
	} else {
		if home, ok := r.Env.Get("HOME"); ok {
			dir = home
		}
		if dir == "" {
			h, err := os.UserHomeDir()
			if err != nil {
				fmt.Fprintln(stderr, "cd:", err)
				return 1
			}
			dir = h
		}
	}
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintln(stderr, "cd:", err)
		return 1
	}
	if cwd, err := os.Getwd(); err == nil {
		r.Env.Set("PWD", cwd)
	}
	return 0
}

func builtinPWD(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _, _ = stdin, args, r
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(stderr, "pwd:", err)
		return 1
	}
	fmt.Fprintln(stdout, cwd)
	return 0
}

func builtinExit(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _, _ = stdin, stdout, stderr
	code := r.Env.Status()
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			code = n
		}
	}
	r.exitRequested = true
	r.exitCode = code
	return code
}

func builtinExport(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _ = stdin, stderr
	if len(args) == 1 {
		for _, kv := range r.Env.Environ() {
			fmt.Fprintln(stdout, "export", kv)
		}
		return 0
	}
	for _, arg := range args[1:] {
		name := arg
		if i := strings.IndexByte(arg, '='); i > 0 {
			name = arg[:i]
			r.Env.Set(name, arg[i+1:])
		}
		r.Env.Export(name)
	}
	return 0
}

func builtinUnset(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _, _ = stdin, stdout, stderr
	rest := args[1:]
	funcs := false
	if len(rest) > 0 && (rest[0] == "-f" || rest[0] == "-v") {
		funcs = rest[0] == "-f"
		rest = rest[1:]
	}
	for _, name := range rest {
		if funcs {
			r.Env.UnsetFunc(name)
		} else {
			r.Env.Unset(name)
		}
	}
	return 0
}

// builtinSet handles option toggles and positional parameter updates:
// set -u / +u, set -x / +x, and set -- arg... .
func builtinSet(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _ = stdin, stderr
	if len(args) == 1 {
		vars := r.Env.Snapshot()
		names := make([]string, 0, len(vars))
		for name := range vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(stdout, "%s=%s\n", name, vars[name])
		}
		return 0
	}
	rest := args[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case "-u":
			r.Strict = true
		case "+u":
			r.Strict = false
		case "-x":
			r.Trace = true
			if r.TraceWriter == nil {
				r.TraceWriter = stderr
			}
		case "+x":
			r.Trace = false
		case "--":
			name := "posh"
			if old := r.Env.Args(); len(old) > 0 {
				name = old[0]
			}
			r.Env.SetArgs(append([]string{name}, rest[1:]...))
			return 0
		default:
			fmt.Fprintf(stderr, "set: unknown option %s\n", rest[0])
			return 1
		}
		rest = rest[1:]
	}
	return 0
}

// builtinShift drops the first n positional parameters, renumbering the
// remainder.
func builtinShift(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _ = stdin, stdout
	n := 1
	if len(args) > 1 {
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			fmt.Fprintf(stderr, "shift: bad count %s\n", args[1])
			return 1
		}
		n = v
	}
	if !r.Env.Shift(n) {
		fmt.Fprintln(stderr, "shift: shift count out of range")
		return 1
	}
	return 0
}

// builtinAlias defines or lists command aliases. The replacement text is
// stored as a word list substituted at command-name position.
func builtinAlias(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _ = stdin, stderr
	if len(args) == 1 {
		names := make([]string, 0, len(r.Aliases))
		for name := range r.Aliases {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(stdout, "alias %s='%s'\n", name, strings.Join(r.Aliases[name], " "))
		}
		return 0
	}
	status := 0
	for _, arg := range args[1:] {
		i := strings.IndexByte(arg, '=')
		if i <= 0 {
			if words, ok := r.Aliases[arg]; ok {
				fmt.Fprintf(stdout, "alias %s='%s'\n", arg, strings.Join(words, " "))
			} else {
				fmt.Fprintf(stderr, "alias: %s: not found\n", arg)
				status = 1
			}
			continue
		}
		name := arg[:i]
		words := strings.Fields(arg[i+1:])
		r.Aliases[name] = words
	}
	return status
}

func builtinUnalias(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_, _, _ = stdin, stdout, stderr
	for _, name := range args[1:] {
		delete(r.Aliases, name)
	}
	return 0
}
