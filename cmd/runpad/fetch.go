package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download an interpreter WebAssembly binary",
	Long: `Download an interpreter binary, such as a RustPython WASI build, to the
path python is loaded from (languages.python.wasm_path).

The download is skipped when the file already exists unless --force is set.`,
	Args: cobra.ExactArgs(1),
	Run:  runFetch,
}

func init() {
	fetchCmd.Flags().StringP("output", "o", "", "Output path (default: languages.python.wasm_path)")
	fetchCmd.Flags().Bool("force", false, "Overwrite an existing file")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")

	if output == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		output = cfg.Languages.Python.WasmPath
	}

	fetched, err := fetchFile(cmd.Context(), http.DefaultClient, args[0], output, force)
	if err != nil {
		fatalf("%v", err)
	}
	if !fetched {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, skipping\n", output)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", output)
}

// fetchFile downloads url to output. It reports false without contacting
// the server when output already exists and force is unset. The file is
// written to a temporary name first so a failed download leaves nothing
// behind.
func fetchFile(ctx context.Context, client *http.Client, url, output string, force bool) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !force {
		if _, err := os.Stat(output); err == nil {
			return false, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("download failed: %s", resp.Status)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(output), ".runpad-fetch-*")
	if err != nil {
		return false, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return false, fmt.Errorf("download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(tmpPath, output); err != nil {
		return false, err
	}
	return true, nil
}
