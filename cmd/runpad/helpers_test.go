package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/caffeineduck/runpad/config"
	"github.com/caffeineduck/runpad/console"
	"github.com/caffeineduck/runpad/runner"
)

// newTestEnvironment returns an environment with only the in-process
// javascript language and no disk cache.
func newTestEnvironment(t *testing.T) *environment {
	t.Helper()

	cfg := config.Default()
	cfg.Executor.DiskCache = false
	cfg.Languages.QuickJSEnabled = false
	cfg.Languages.Python.WasmPath = filepath.Join(t.TempDir(), "python.wasm")

	env, err := newEnvironment(cfg, zap.NewNop(), false)
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })
	return env
}

// gateRunner is an async runner that blocks until release is closed.
type gateRunner struct {
	release chan struct{}
}

func newGateRunner() *gateRunner {
	return &gateRunner{release: make(chan struct{})}
}

func (g *gateRunner) Mode() runner.Mode { return runner.Async }

func (g *gateRunner) Execute(ctx context.Context, source string, sink runner.Sink) error {
	select {
	case <-g.release:
		sink.Append(console.Output, source)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
