package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"posh/internal/eval"
	"posh/internal/parse"
)

var errColor = color.New(color.FgRed)

func main() {
	command := flag.StringP("command", "c", "", "run this command string and exit")
	noexec := flag.BoolP("noexec", "n", false, "parse commands without executing them")
	trace := flag.BoolP("xtrace", "x", false, "trace expanded commands")
	strict := flag.BoolP("nounset", "u", false, "treat unset variables as expansion errors")
	noEnvFile := flag.Bool("no-env", false, "skip loading ~/.posh.env")
	flag.Parse()

	env := eval.NewEnv(nil)
	env.SetFromEnviron(os.Environ())
	if !*noEnvFile {
		loadEnvFile(env)
	}
	runner := &eval.Runner{
		Env:         env,
		Trace:       *trace,
		TraceWriter: os.Stderr,
		Strict:      *strict,
		Stderr:      os.Stderr,
	}

	switch {
	case *command != "":
		env.SetArgs(append([]string{"posh"}, flag.Args()...))
		os.Exit(runScript(runner, strings.NewReader(*command), *noexec))
	case len(flag.Args()) > 0:
		path := flag.Args()[0]
		f, err := os.Open(path)
		if err != nil {
			errColor.Fprintln(os.Stderr, "posh:", err)
			os.Exit(1)
		}
		defer f.Close()
		env.SetArgs(flag.Args())
		os.Exit(runScript(runner, f, *noexec))
	case term.IsTerminal(int(os.Stdin.Fd())):
		runInteractive(runner, *noexec)
	default:
		os.Exit(runScript(runner, os.Stdin, *noexec))
	}
}

// loadEnvFile seeds exported variables from ~/.posh.env when present.
func loadEnvFile(env *eval.Env) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return
	}
	vars, err := godotenv.Read(filepath.Join(home, ".posh.env"))
	if err != nil {
		return
	}
	for name, value := range vars {
		env.Set(name, value)
		env.Export(name)
	}
}

func runScript(runner *eval.Runner, rd io.Reader, noexec bool) int {
	list, err := parse.Parse(rd)
	if err != nil {
		errColor.Fprintln(os.Stderr, "posh:", err)
		return 2
	}
	if noexec {
		return 0
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res := runner.Run(ctx, list, os.Stdin, os.Stdout, os.Stderr)
	if runner.ExitRequested() {
		return runner.ExitCode()
	}
	return res.Status
}

func runInteractive(runner *eval.Runner, noexec bool) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completer(runner))

	historyPath := historyFile()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)

	for {
		prompt := "$ "
		if ps1, ok := runner.Env.Get("PS1"); ok && ps1 != "" {
			prompt = ps1
		}
		input, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			errColor.Fprintln(os.Stderr, "posh:", err)
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		list, err := parse.ParseString(input + "\n")
		if err != nil {
			errColor.Fprintln(os.Stderr, "posh:", err)
			continue
		}
		if noexec {
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-sigc:
				cancel()
			case <-ctx.Done():
			}
		}()
		runner.Run(ctx, list, os.Stdin, os.Stdout, os.Stderr)
		cancel()
		if runner.ExitRequested() {
			break
		}
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}
	if runner.ExitRequested() {
		os.Exit(runner.ExitCode())
	}
}

// completer offers builtin, function and alias names for the command
// word, and filesystem entries elsewhere.
func completer(runner *eval.Runner) liner.Completer {
	return func(line string) []string {
		i := strings.LastIndexAny(line, " \t")
		head, word := line[:i+1], line[i+1:]

		var out []string
		if head == "" {
			var names []string
			names = append(names, eval.BuiltinNames()...)
			names = append(names, runner.Env.FuncNames()...)
			for name := range runner.Aliases {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if strings.HasPrefix(name, word) {
					out = append(out, head+name+" ")
				}
			}
		}
		matches, _ := filepath.Glob(word + "*")
		sort.Strings(matches)
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				m += "/"
			}
			out = append(out, head+m)
		}
		return out
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".posh_history")
}
