package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/runpad/console"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run code once and print the console log",
	Long: `Execute JavaScript or Python code and print the resulting console log.

Code can be provided via:
  - File argument: runpad run script.js
  - Inline flag: runpad run -l python -c 'print(1+1)'
  - Stdin: echo 'console.log(1+1)' | runpad run

Each log entry is printed with its sequence number. Error entries go to
stderr and make the command exit with status 1.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Code to execute")
	cmd.Flags().Duration("timeout", 0, "Execution timeout (default: run.timeout from config)")
}

func runRun(cmd *cobra.Command, args []string) {
	code, _ := cmd.Flags().GetString("code")
	lang, _ := cmd.Flags().GetString("lang")

	var source string
	var filename string

	switch {
	case code != "":
		source = code
	case len(args) > 0:
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			fatalf("%v", err)
		}
		source = string(data)
	default:
		// Check if stdin has data (not a terminal)
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			cmd.Help()
			return
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatalf("%v", err)
		}
		source = string(data)
		if source == "" {
			cmd.Help()
			return
		}
	}

	env, err := setupEnvironment(cmd, false)
	if err != nil {
		fatalf("%v", err)
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		env.cfg.Run.Timeout = timeout
	}

	entries, err := runOnce(context.Background(), env, resolveLanguage(lang, filename), source)
	env.Close()
	if err != nil {
		fatalf("%v", err)
	}

	if printEntries(cmd.OutOrStdout(), cmd.ErrOrStderr(), entries) {
		os.Exit(1)
	}
}

// runOnce dispatches source on a fresh log and returns the log once the run
// has completed.
func runOnce(ctx context.Context, env *environment, lang, source string) ([]console.Entry, error) {
	log := console.NewLog()
	run, err := env.dispatcher(log).Run(ctx, lang, source)
	if err != nil {
		return nil, err
	}
	if err := waitRun(ctx, run); err != nil {
		return nil, err
	}
	return log.Snapshot(), nil
}

// printEntries writes output entries to out and error entries to errOut. It
// reports whether any error entry was printed.
func printEntries(out, errOut io.Writer, entries []console.Entry) bool {
	failed := false
	for _, e := range entries {
		if e.IsError() {
			failed = true
			fmt.Fprintf(errOut, "[%d] error: %s\n", e.Sequence, e.Text)
			continue
		}
		fmt.Fprintf(out, "[%d] %s\n", e.Sequence, e.Text)
	}
	return failed
}
