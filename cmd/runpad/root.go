package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/runpad/config"
	"github.com/caffeineduck/runpad/executor"
	"github.com/caffeineduck/runpad/language/javascript"
	"github.com/caffeineduck/runpad/language/python"
	"github.com/caffeineduck/runpad/language/quickjs"
	"github.com/caffeineduck/runpad/logger"
	"github.com/caffeineduck/runpad/runner"
)

const defaultLanguage = "javascript"

var rootCmd = &cobra.Command{
	Use:   "runpad [file]",
	Short: "Code console for JavaScript and Python snippets",
	Long: `runpad - Run untrusted JavaScript and Python snippets and collect their
output as an ordered console log.

The javascript language is evaluated in-process by a restricted VM whose only
capability is console.log. The quickjs and python languages run inside a
WebAssembly interpreter with no filesystem or network access.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun, // Default to run command behavior
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./runpad.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringP("lang", "l", "", "Language: javascript, quickjs, python (default: auto-detect)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable compilation cache")

	addRunFlags(rootCmd)
}

// loadConfig reads the config file named by --config and applies the
// persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Executor.DiskCache = false
	}
	return cfg, nil
}

// environment is the set of long-lived components shared by every command.
type environment struct {
	cfg      *config.Config
	log      *zap.Logger
	exec     *executor.Executor
	registry *runner.Registry
}

// newEnvironment builds the executor and the language registry. When
// precompile is set the emulated interpreters are compiled up front.
func newEnvironment(cfg *config.Config, log *zap.Logger, precompile bool) (*environment, error) {
	var emulated []executor.Language
	if cfg.Languages.QuickJSEnabled {
		emulated = append(emulated, quickjs.New())
	}

	py, err := python.Load(cfg.Languages.Python.WasmPath)
	switch {
	case err == nil:
		emulated = append(emulated, py)
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("python interpreter not found, language disabled",
			zap.String("path", cfg.Languages.Python.WasmPath))
	default:
		return nil, err
	}

	execOpts := []executor.ExecutorOption{
		executor.WithLogger(log.Named("executor")),
		executor.WithMemoryLimit(cfg.Executor.MemoryLimitPages),
	}
	if cfg.Executor.DiskCache {
		execOpts = append(execOpts, executor.WithDiskCache(cfg.Executor.CacheDir))
	}
	if precompile {
		execOpts = append(execOpts, executor.WithPrecompile(emulated...))
	}

	exec, err := executor.New(execOpts...)
	if err != nil {
		return nil, err
	}

	registry := runner.NewRegistry()
	registry.Register("javascript", javascript.New(
		javascript.WithMaxCallStackSize(cfg.Languages.JavaScript.MaxCallStackSize),
	))
	for _, lang := range emulated {
		registry.Register(lang.Name(), exec.Runner(lang))
	}

	return &environment{cfg: cfg, log: log, exec: exec, registry: registry}, nil
}

// setupEnvironment loads config and logger for cmd and builds the
// environment from them.
func setupEnvironment(cmd *cobra.Command, precompile bool) (*environment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return newEnvironment(cfg, log, precompile)
}

func (e *environment) dispatcher(sink runner.Sink, opts ...runner.Option) *runner.Dispatcher {
	base := []runner.Option{
		runner.WithTimeout(e.cfg.Run.Timeout),
		runner.WithLogger(e.log.Named("dispatcher")),
	}
	return runner.NewDispatcher(e.registry, sink, append(base, opts...)...)
}

func (e *environment) Close() error {
	err := e.exec.Close()
	_ = e.log.Sync()
	return err
}

// resolveLanguage maps the --lang flag (or the file extension when the flag
// is empty) to a registry tag. Unknown names are passed through so the
// dispatcher can report them.
func resolveLanguage(langFlag, filename string) string {
	lang := strings.ToLower(langFlag)

	if lang == "" && filename != "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".py":
			lang = "python"
		case ".js", ".mjs":
			lang = "javascript"
		}
	}

	switch lang {
	case "":
		return defaultLanguage
	case "js":
		return "javascript"
	case "py":
		return "python"
	case "qjs":
		return "quickjs"
	default:
		return lang
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// waitRun blocks until run completes. Only ctx expiry is reported; the
// run's own failure is already in the log.
func waitRun(ctx context.Context, run *runner.Run) error {
	select {
	case <-run.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
