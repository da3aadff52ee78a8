package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/runpad/console"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestCLIHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "--help")
	require.NoError(t, err)

	for _, phrase := range []string{"runpad", "javascript", "python", "run", "repl", "serve", "languages", "fetch", "--config"} {
		assert.Contains(t, output, phrase)
	}
}

func TestCLIRunHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "run", "--help")
	require.NoError(t, err)

	for _, phrase := range []string{"--code", "--lang", "--timeout", "stderr"} {
		assert.Contains(t, output, phrase)
	}
}

func TestCLIReplHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "repl", "--help")
	require.NoError(t, err)

	for _, phrase := range []string{"--history", ":lang", ":clear", ":log", ":save", "Command history"} {
		assert.Contains(t, output, phrase)
	}
}

func TestCLIServeHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "serve", "--help")
	require.NoError(t, err)

	for _, phrase := range []string{"--port", "/sessions", "/sessions/{id}/run", "/log.txt", "/health", "/metrics"} {
		assert.Contains(t, output, phrase)
	}
}

func TestCLILanguageAutoDetect(t *testing.T) {
	tests := []struct {
		filename string
		wantLang string
	}{
		{"script.py", "python"},
		{"script.js", "javascript"},
		{"script.mjs", "javascript"},
		{"SCRIPT.PY", "python"},
		{"notes.txt", "javascript"},
		{"", "javascript"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.wantLang, resolveLanguage("", tc.filename), tc.filename)
	}
}

func TestCLILanguageExplicit(t *testing.T) {
	tests := []struct {
		langFlag string
		wantLang string
	}{
		{"python", "python"},
		{"py", "python"},
		{"js", "javascript"},
		{"JavaScript", "javascript"},
		{"qjs", "quickjs"},
		{"ruby", "ruby"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.wantLang, resolveLanguage(tc.langFlag, "script.py"), tc.langFlag)
	}
}

func TestEnvironmentLanguages(t *testing.T) {
	env := newTestEnvironment(t)
	assert.Equal(t, []string{"javascript"}, env.registry.Languages())
}

func TestEnvironmentPythonLoadError(t *testing.T) {
	env := newTestEnvironment(t)

	cfg := *env.cfg
	cfg.Languages.Python.WasmPath = t.TempDir() // a directory cannot be read as a module
	_, err := newEnvironment(&cfg, env.log, false)
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	env := newTestEnvironment(t)

	entries, err := runOnce(context.Background(), env, "javascript", `console.log("a"); console.log("b")`)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Text)
	assert.Equal(t, "b", entries[1].Text)
}

func TestRunOnceUnknownLanguage(t *testing.T) {
	env := newTestEnvironment(t)

	entries, err := runOnce(context.Background(), env, "ruby", `puts 1`)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, console.Error, entries[0].Kind)
	assert.Equal(t, `unsupported language "ruby"`, entries[0].Text)
}

func TestPrintEntries(t *testing.T) {
	var out, errOut bytes.Buffer

	failed := printEntries(&out, &errOut, []console.Entry{
		{Sequence: 1, Kind: console.Output, Text: "hello"},
		{Sequence: 2, Kind: console.Error, Text: "boom"},
	})

	assert.True(t, failed)
	assert.Equal(t, "[1] hello\n", out.String())
	assert.Equal(t, "[2] error: boom\n", errOut.String())

	out.Reset()
	assert.False(t, printEntries(&out, &errOut, []console.Entry{{Sequence: 3, Text: "ok"}}))
}

func TestReplSession(t *testing.T) {
	env := newTestEnvironment(t)
	s := newReplSession(env, "javascript")
	ctx := context.Background()

	var out, errOut bytes.Buffer

	t.Run("PrintsOnlyNewEntries", func(t *testing.T) {
		out.Reset()
		assert.False(t, s.handle(ctx, `console.log("one")`, &out, &errOut))
		assert.False(t, s.handle(ctx, `console.log("two")`, &out, &errOut))
		assert.Equal(t, "[1] one\n[2] two\n", out.String())
	})

	t.Run("ErrorEntry", func(t *testing.T) {
		errOut.Reset()
		s.handle(ctx, `throw new Error("bad")`, &out, &errOut)
		assert.Equal(t, "[3] error: bad\n", errOut.String())
	})

	t.Run("Log", func(t *testing.T) {
		out.Reset()
		s.handle(ctx, ":log", &out, &errOut)
		assert.Equal(t, "[1] one\n[2] two\n", out.String())
	})

	t.Run("Save", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "console.txt")
		s.handle(ctx, ":save "+path, &out, &errOut)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\nbad", string(data))
	})

	t.Run("Clear", func(t *testing.T) {
		s.handle(ctx, ":clear", &out, &errOut)
		assert.Equal(t, 0, s.log.Len())

		out.Reset()
		s.handle(ctx, `console.log("after")`, &out, &errOut)
		assert.Equal(t, "[4] after\n", out.String())
	})

	t.Run("Lang", func(t *testing.T) {
		errOut.Reset()
		s.handle(ctx, ":lang ruby", &out, &errOut)
		assert.Contains(t, errOut.String(), `unsupported language "ruby"`)
		assert.Equal(t, "javascript", s.lang)

		s.handle(ctx, ":lang js", &out, &errOut)
		assert.Equal(t, "javascript", s.lang)
	})

	t.Run("UnknownCommand", func(t *testing.T) {
		errOut.Reset()
		s.handle(ctx, ":nope", &out, &errOut)
		assert.Contains(t, errOut.String(), "unknown command :nope")
	})

	t.Run("Exit", func(t *testing.T) {
		assert.True(t, s.handle(ctx, "exit", &out, &errOut))
		assert.True(t, s.handle(ctx, " quit ", &out, &errOut))
		assert.False(t, s.handle(ctx, "   ", &out, &errOut))
	})
}

func TestFetchFile(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("\x00asm"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	output := filepath.Join(dir, "bin", "python.wasm")
	ctx := context.Background()

	t.Run("Downloads", func(t *testing.T) {
		fetched, err := fetchFile(ctx, srv.Client(), srv.URL+"/python.wasm", output, false)
		require.NoError(t, err)
		assert.True(t, fetched)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Equal(t, "\x00asm", string(data))
	})

	t.Run("SkipsExisting", func(t *testing.T) {
		before := hits.Load()
		fetched, err := fetchFile(ctx, srv.Client(), srv.URL+"/python.wasm", output, false)
		require.NoError(t, err)
		assert.False(t, fetched)
		assert.Equal(t, before, hits.Load())
	})

	t.Run("Force", func(t *testing.T) {
		fetched, err := fetchFile(ctx, srv.Client(), srv.URL+"/python.wasm", output, true)
		require.NoError(t, err)
		assert.True(t, fetched)
	})

	t.Run("HTTPError", func(t *testing.T) {
		target := filepath.Join(dir, "other.wasm")
		_, err := fetchFile(ctx, srv.Client(), srv.URL+"/missing", target, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")

		_, statErr := os.Stat(target)
		assert.True(t, os.IsNotExist(statErr))
	})
}
