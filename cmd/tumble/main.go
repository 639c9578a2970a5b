package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterh/liner"

	"github.com/tumblelang/tumble/pkg/capabilities"
	"github.com/tumblelang/tumble/pkg/diagnostics"
	"github.com/tumblelang/tumble/pkg/evaluator"
	"github.com/tumblelang/tumble/pkg/parser"
	"github.com/tumblelang/tumble/pkg/stdlib"
)

const (
	appName     = "tumble"
	historyFile = ".tumble_history"
	promptMain  = "==> "
	promptCont  = "... "
)

func red(s string) string  { return "\x1b[31m" + s + "\x1b[0m" }
func blue(s string) string { return "\x1b[94m" + s + "\x1b[0m" }

// errQuit unwinds the REPL when the quit intrinsic runs.
var errQuit = errors.New("quit")

func main() {
	if len(os.Args) < 2 {
		os.Exit(cmdRepl(os.Args[1:]))
	}
	switch os.Args[1] {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		v := evaluator.EngineVersion
		fmt.Printf("%s %d.%d.%d\n", appName, v.Major, v.Minor, v.Patch)
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  %[1]s run [--seed S] <file>   evaluate a script and print its final value
  %[1]s repl [--seed S]         interactive session
  %[1]s version                 print the engine version
`, appName)
}

// newSession builds a session over the default intrinsics plus the REPL
// extras, with file access gated by the local policy files.
func newSession(seed string, replExtras bool) (*evaluator.Session, *stdlib.Registry) {
	reg := stdlib.NewRegistry()
	stdlib.RegisterDefaults(reg)
	if replExtras {
		registerREPLIntrinsics(reg)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	policy := capabilities.LoadPolicyOrDefault(cwd, capabilities.AllowAll())

	opts := evaluator.Options{
		Intrinsics: reg.Table(),
		FS:         capabilities.NewOSFS(policy),
	}
	if seed != "" {
		opts.Seed = []byte(seed)
	}
	sess := evaluator.NewSession(opts)
	stdlib.Install(sess, reg)
	if replExtras {
		sess.Bind("print", evaluator.Intrinsic{Name: "print"})
		sess.Bind("quit", evaluator.Intrinsic{Name: "quit"})
	}
	return sess, reg
}

// registerREPLIntrinsics adds print and quit, which only make sense with a
// terminal attached.
func registerREPLIntrinsics(reg *stdlib.Registry) {
	reg.Register(evaluator.IntrinsicDef{
		Name:  "print",
		Arity: -1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			for _, arg := range args {
				fmt.Println(evaluator.Print(arg))
			}
			return evaluator.Null{}, nil
		},
	})
	reg.Register(evaluator.IntrinsicDef{
		Name:  "quit",
		Arity: 0,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			return nil, errQuit
		},
	})
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	seed := fs.String("seed", "", "deterministic RNG seed")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
		return 2
	}
	path := fs.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	exprs, diags := parser.ParseProgram(string(source), filepath.Base(path))
	if diags != nil {
		fmt.Fprintln(os.Stderr, red(diagnostics.FormatDiagnostics(diags, true)))
		return 1
	}

	sess, _ := newSession(*seed, false)
	var last evaluator.Value = evaluator.Null{}
	for _, expr := range exprs {
		v, err := sess.Eval(expr)
		if err != nil {
			printEvalError(err)
			return 1
		}
		last = v
	}
	fmt.Println(evaluator.Print(last))
	return 0
}

func cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	seed := fs.String("seed", "", "deterministic RNG seed")
	_ = fs.Parse(args)

	sess, _ := newSession(*seed, true)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	v := evaluator.EngineVersion
	fmt.Printf("Tumble %d.%d.%d\nCtrl+C cancels input, Ctrl+D exits. quit() exits too.\n", v.Major, v.Minor, v.Patch)

	for {
		input, ok := readInput(line)
		if !ok {
			return 0
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		exprs, diags := parser.ParseProgram(input, "<repl>")
		if diags != nil {
			fmt.Fprintln(os.Stderr, red(diagnostics.FormatDiagnostics(diags, true)))
			continue
		}
		for _, expr := range exprs {
			val, err := sess.Eval(expr)
			if err != nil {
				if errors.Is(err, errQuit) {
					return 0
				}
				printEvalError(err)
				break
			}
			fmt.Println(blue(evaluator.Print(val)))
		}
	}
}

// readInput collects one logical input, continuing over lines while
// brackets stay unbalanced. Returns ok=false on EOF.
func readInput(line *liner.State) (string, bool) {
	input := ""
	prompt := promptMain
	for {
		text, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				return "", true // Ctrl+C: drop the pending input
			}
			return "", false // EOF
		}
		if input == "" {
			input = text
		} else {
			input += "\n" + text
		}
		if !needsMore(input) {
			return input, true
		}
		prompt = promptCont
	}
}

// needsMore reports whether the input has unbalanced brackets outside of
// strings and comments, meaning the REPL should keep reading lines.
func needsMore(src string) bool {
	depth := 0
	i := 0
	for i < len(src) {
		ch := src[i]
		switch ch {
		case '"', '\'':
			quote := ch
			i++
			for i < len(src) {
				if src[i] == '\\' {
					i += 2
					continue
				}
				if src[i] == quote {
					break
				}
				i++
			}
			if i >= len(src) {
				return true // unterminated string
			}
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
				continue
			}
			if i+1 < len(src) && src[i+1] == '*' {
				level := 1
				i += 2
				for i < len(src) && level > 0 {
					if src[i] == '/' && i+1 < len(src) && src[i+1] == '*' {
						level++
						i += 2
					} else if src[i] == '*' && i+1 < len(src) && src[i+1] == '/' {
						level--
						i += 2
					} else {
						i++
					}
				}
				if level > 0 {
					return true // unterminated comment
				}
				continue
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '<':
			if i+1 < len(src) && src[i+1] == '|' {
				depth++
				i++
			}
		case '|':
			if i+1 < len(src) && src[i+1] == '>' {
				depth--
				i++
			}
		}
		i++
	}
	return depth > 0
}

func printEvalError(err error) {
	var re *evaluator.RuntimeError
	if errors.As(err, &re) {
		fmt.Fprintln(os.Stderr, red(diagnostics.FormatDiagnostic(re.Diag(), true)))
		return
	}
	fmt.Fprintln(os.Stderr, red(err.Error()))
}
