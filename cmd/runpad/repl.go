package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/runpad/console"
	"github.com/caffeineduck/runpad/runner"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive console",
	Long: `Start an interactive console. Every snippet runs in a fresh interpreter
and its entries are appended to one console log.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)

Console commands:
  :lang <tag>    Switch language
  :clear         Clear the console log
  :log           Print the whole console log
  :save <file>   Save the console log as text

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	Run: runRepl,
}

func init() {
	replCmd.Flags().String("history", "", "History file path (default: ~/.runpad_history)")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) {
	lang, _ := cmd.Flags().GetString("lang")
	historyFile, _ := cmd.Flags().GetString("history")

	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".runpad_history")
	}

	env, err := setupEnvironment(cmd, false)
	if err != nil {
		fatalf("%v", err)
	}
	defer env.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fatalf("initializing readline: %v", err)
	}
	defer rl.Close()

	session := newReplSession(env, resolveLanguage(lang, ""))
	fmt.Fprintf(os.Stderr, "runpad console, language %s (type 'exit' to quit, Ctrl+D to exit)\n", session.lang)

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt(">>> ")
				}
				continue
			}
			if err == io.EOF {
				fmt.Println()
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			break
		}

		// Handle multi-line input
		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt(">>> ")
		}

		if session.handle(context.Background(), line, os.Stdout, os.Stderr) {
			break
		}
	}
}

// replSession is the state behind one interactive console: the active
// language and the log every snippet appends to.
type replSession struct {
	registry *runner.Registry
	log      *console.Log
	disp     *runner.Dispatcher
	lang     string
	printed  uint64 // highest sequence already shown
}

func newReplSession(env *environment, lang string) *replSession {
	log := console.NewLog()
	return &replSession{
		registry: env.registry,
		log:      log,
		disp:     env.dispatcher(log),
		lang:     lang,
	}
}

// handle processes one input line. It reports whether the console should
// exit.
func (s *replSession) handle(ctx context.Context, line string, out, errOut io.Writer) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return false
	case trimmed == "exit" || trimmed == "quit":
		return true
	case strings.HasPrefix(trimmed, ":"):
		s.command(trimmed, out, errOut)
		return false
	}

	run, err := s.disp.Run(ctx, s.lang, line)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return false
	}
	if err := waitRun(ctx, run); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return false
	}
	s.printNew(out, errOut)
	return false
}

func (s *replSession) command(line string, out, errOut io.Writer) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":lang":
		if arg == "" {
			fmt.Fprintf(out, "%s (available: %s)\n", s.lang, strings.Join(s.registry.Languages(), ", "))
			return
		}
		tag := resolveLanguage(arg, "")
		if _, ok := s.registry.Get(tag); !ok {
			fmt.Fprintf(errOut, "Error: unsupported language %q\n", tag)
			return
		}
		s.lang = tag
	case ":clear":
		s.log.Clear()
	case ":log":
		printEntries(out, errOut, s.log.Snapshot())
	case ":save":
		if arg == "" {
			fmt.Fprintln(errOut, "Error: usage :save <file>")
			return
		}
		if err := saveLog(s.log, arg); err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "saved %d entries to %s\n", s.log.Len(), arg)
	default:
		fmt.Fprintf(errOut, "Error: unknown command %s\n", name)
	}
}

// printNew prints the entries appended since the last call.
func (s *replSession) printNew(out, errOut io.Writer) {
	var fresh []console.Entry
	for _, e := range s.log.Snapshot() {
		if e.Sequence > s.printed {
			fresh = append(fresh, e)
			s.printed = e.Sequence
		}
	}
	printEntries(out, errOut, fresh)
}

func saveLog(log *console.Log, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := log.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
