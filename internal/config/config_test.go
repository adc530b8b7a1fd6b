package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tzbuild/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "tzbuild", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.ContentDir != "" {
		t.Fatalf("expected empty content dir by default, got %q", cfg.Paths.ContentDir)
	}
	if cfg.TrainzUtil.Binary != "TrainzUtil" {
		t.Fatalf("unexpected default binary: %q", cfg.TrainzUtil.Binary)
	}
	if !cfg.Scan.Recursive {
		t.Fatal("expected recursive scanning by default")
	}
	if len(cfg.Scan.SkipDirs) != 2 || cfg.Scan.SkipDirs[0] != ".git" {
		t.Fatalf("unexpected skip dirs: %v", cfg.Scan.SkipDirs)
	}
	if cfg.Build.SettleDelay != 2 {
		t.Fatalf("unexpected settle delay: %d", cfg.Build.SettleDelay)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir, filepath.Dir(cfg.History.Path)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tzbuild.toml")

	type payload struct {
		Paths struct {
			ContentDir string `toml:"content_dir"`
		} `toml:"paths"`
		TrainzUtil struct {
			Binary         string `toml:"binary"`
			CommandTimeout int    `toml:"command_timeout"`
		} `toml:"trainzutil"`
		Scan struct {
			Recursive bool     `toml:"recursive"`
			SkipDirs  []string `toml:"skip_dirs"`
		} `toml:"scan"`
	}
	custom := payload{}
	custom.Paths.ContentDir = filepath.Join(tempDir, "content")
	custom.TrainzUtil.Binary = filepath.Join(tempDir, "bin", "TrainzUtil.exe")
	custom.TrainzUtil.CommandTimeout = 45
	custom.Scan.Recursive = false
	custom.Scan.SkipDirs = []string{".git", " .svn ", ".git", ""}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.ContentDir != custom.Paths.ContentDir {
		t.Fatalf("content dir = %q, want %q", cfg.Paths.ContentDir, custom.Paths.ContentDir)
	}
	if cfg.TrainzUtil.Binary != custom.TrainzUtil.Binary {
		t.Fatalf("binary = %q, want %q", cfg.TrainzUtil.Binary, custom.TrainzUtil.Binary)
	}
	if cfg.TrainzUtil.CommandTimeout != 45 {
		t.Fatalf("command timeout = %d, want 45", cfg.TrainzUtil.CommandTimeout)
	}
	if cfg.Scan.Recursive {
		t.Fatal("expected recursive=false from file")
	}
	want := []string{".git", ".svn"}
	if len(cfg.Scan.SkipDirs) != len(want) || cfg.Scan.SkipDirs[0] != want[0] || cfg.Scan.SkipDirs[1] != want[1] {
		t.Fatalf("skip dirs = %v, want %v", cfg.Scan.SkipDirs, want)
	}
}

func TestEnvVarSuppliesBinary(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TRAINZUTIL", "/opt/trainz/TrainzUtil")

	configPath := filepath.Join(tempHome, "tzbuild.toml")
	if err := os.WriteFile(configPath, []byte("[trainzutil]\nbinary = \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TrainzUtil.Binary != "/opt/trainz/TrainzUtil" {
		t.Fatalf("expected binary from env, got %q", cfg.TrainzUtil.Binary)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[trainzutil]") {
		t.Fatalf("sample config missing trainzutil section: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.TrainzUtil.Binary != "TrainzUtil" {
		t.Fatalf("sample binary = %q", cfg.TrainzUtil.Binary)
	}
	if !cfg.History.Enabled {
		t.Fatal("sample should enable history")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.TrainzUtil.CommandTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive timeout")
	}

	cfg = config.Default()
	cfg.TrainzUtil.Binary = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty binary")
	}

	cfg = config.Default()
	cfg.Paths.ContentDir = cfg.Paths.StagingDir
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when staging dir equals content dir")
	}

	cfg = config.Default()
	cfg.Build.StaleAfterHours = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero stale age")
	}

	cfg = config.Default()
	cfg.History.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when history enabled without path")
	}
}
