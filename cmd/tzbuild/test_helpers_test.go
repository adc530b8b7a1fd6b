package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tzbuild/internal/config"
	"tzbuild/internal/testsupport"
)

// cliStubScript stands in for the installer in CLI tests: it appends each
// invocation to the file named by TZB_CALLS and rejects installfrompath for
// any directory carrying a FAIL file.
const cliStubScript = `#!/bin/sh
if [ -n "${TZB_CALLS}" ]; then
	echo "$@" >> "${TZB_CALLS}"
fi
case "$1" in
version)
	echo "TrainzUtil 1.3 build 61388"
	;;
installfrompath)
	if [ -e "$2/FAIL" ]; then
		echo "rejected: missing mesh"
		exit 3
	fi
	;;
esac
exit 0
`

// cliEnv bundles what a CLI test needs: the generated config and the TOML
// file describing it, ready to pass via --config.
type cliEnv struct {
	cfg        *config.Config
	configPath string
}

// setupCLIEnv isolates HOME, generates a config backed by temp directories
// and a stub installer, and writes it to a TOML file.
func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedInstaller(cliStubScript))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "tzbuild.toml")
	writeCLIConfig(t, configPath, cfg)

	return &cliEnv{cfg: cfg, configPath: configPath}
}

func writeCLIConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	content := fmt.Sprintf(`[paths]
content_dir = %q
staging_dir = %q
log_dir = %q

[trainzutil]
binary = %q
command_timeout = %d

[build]
settle_delay = %d

[history]
enabled = %t
path = %q
`,
		cfg.Paths.ContentDir,
		cfg.Paths.StagingDir,
		cfg.Paths.LogDir,
		cfg.TrainzUtil.Binary,
		cfg.TrainzUtil.CommandTimeout,
		cfg.Build.SettleDelay,
		cfg.History.Enabled,
		cfg.History.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

// runCLI executes the root command with the given arguments, prepending
// --config when a path is supplied, and returns captured stdout and stderr.
func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	cliArgs := args
	if configPath != "" {
		cliArgs = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(cliArgs)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output does not contain %q:\n%s", want, output)
	}
}

// extractRunID pulls the run ID off a rendered batch result.
func extractRunID(t *testing.T, output string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(line, "Run ID: "); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("no run ID in output:\n%s", output)
	return ""
}

// recordedCalls reads the stub installer's call log, dropping version probes
// so tests see only the catalog commands they care about.
func recordedCalls(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read call log: %v", err)
	}
	var calls []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" || line == "version" {
			continue
		}
		calls = append(calls, line)
	}
	return calls
}
