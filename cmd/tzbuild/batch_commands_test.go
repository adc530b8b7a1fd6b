package main

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tzbuild/internal/staging"
	"tzbuild/internal/testsupport"
)

func TestBuildCommandProcessesTree(t *testing.T) {
	env := setupCLIEnv(t)
	callLog := filepath.Join(testsupport.BaseDir(env.cfg), "calls.log")
	t.Setenv("TZB_CALLS", callLog)

	testsupport.WriteMarker(t, filepath.Join(env.cfg.Paths.ContentDir, "alpha"),
		"username \"Brick Loop\"\nkuid <kuid:414976:1055:2>\n")
	testsupport.WriteMarker(t, filepath.Join(env.cfg.Paths.ContentDir, "beta"),
		"kuid2 <kuid2:5555:100:1:3>\n")

	stdout, _, err := runCLI(t, []string{"build"}, env.configPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContains(t, stdout, "<kuid:414976:1055:2>")
	requireContains(t, stdout, "Brick Loop")
	requireContains(t, stdout, "<kuid2:5555:100:1:3>")
	requireContains(t, stdout, "2 assets processed in")
	requireContains(t, stdout, "Run ID: ")
	if strings.Contains(stdout, "failed") {
		t.Fatalf("clean run reported failures:\n%s", stdout)
	}

	calls := recordedCalls(t, callLog)
	if len(calls) != 8 {
		t.Fatalf("installer calls = %d, want 8:\n%s", len(calls), strings.Join(calls, "\n"))
	}

	dirs, err := staging.ListDirectories(env.cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("list staging: %v", err)
	}
	if len(dirs) != 0 {
		t.Fatalf("staged copies left behind: %v", dirs)
	}
}

func TestBuildCommandJSON(t *testing.T) {
	env := setupCLIEnv(t)
	testsupport.WriteMarker(t, filepath.Join(env.cfg.Paths.ContentDir, "alpha"),
		"kuid <kuid:414976:1055:2>\n")

	stdout, _, err := runCLI(t, []string{"build", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("build --json: %v", err)
	}

	var report struct {
		RunID     string `json:"run_id"`
		Verb      string `json:"verb"`
		Root      string `json:"root"`
		Total     int    `json:"total"`
		Failed    int    `json:"failed"`
		Succeeded bool   `json:"succeeded"`
		Outcomes  []struct {
			Asset string `json:"asset"`
			Kind  string `json:"kind"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode run report: %v\n%s", err, stdout)
	}
	if report.RunID == "" || report.Verb != "build" || report.Root != env.cfg.Paths.ContentDir {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if report.Total != 1 || report.Failed != 0 || !report.Succeeded {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Asset != "kuid:414976:1055:2" || report.Outcomes[0].Kind != "ok" {
		t.Fatalf("unexpected outcomes: %+v", report.Outcomes)
	}
}

func TestBuildCommandReportsFailures(t *testing.T) {
	env := setupCLIEnv(t)
	testsupport.WriteMarker(t, filepath.Join(env.cfg.Paths.ContentDir, "good"),
		"kuid <kuid:414976:1055:2>\n")
	badDir := filepath.Join(env.cfg.Paths.ContentDir, "rejected")
	testsupport.WriteMarker(t, badDir, "kuid <kuid:6:7:1>\n")
	testsupport.WriteFile(t, filepath.Join(badDir, "FAIL"), 1)

	stdout, _, err := runCLI(t, []string{"build"}, env.configPath)
	if err == nil {
		t.Fatal("expected the run to report failures")
	}
	if !strings.Contains(err.Error(), "1 of 2 assets failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := exitCodeFor(err); got != 1 {
		t.Fatalf("exit code = %d, want 1", got)
	}
	requireContains(t, stdout, "rejected: missing mesh")
	requireContains(t, stdout, "2 assets processed in")
	requireContains(t, stdout, ", 1 failed")
}

func TestInstallCommandCommitsRealIdentity(t *testing.T) {
	env := setupCLIEnv(t)
	callLog := filepath.Join(testsupport.BaseDir(env.cfg), "calls.log")
	t.Setenv("TZB_CALLS", callLog)

	wagonDir := filepath.Join(env.cfg.Paths.ContentDir, "wagon")
	testsupport.WriteMarker(t, wagonDir, "kuid <kuid:1:2:3>\n")

	stdout, _, err := runCLI(t, []string{"install", wagonDir}, env.configPath)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	requireContains(t, stdout, "1 assets processed in")

	want := []string{"installfrompath " + wagonDir, "commit kuid:1:2:3"}
	if calls := recordedCalls(t, callLog); !reflect.DeepEqual(calls, want) {
		t.Fatalf("installer calls = %v, want %v", calls, want)
	}
}

func TestBuildCommandHonorsStagingOverride(t *testing.T) {
	env := setupCLIEnv(t)
	callLog := filepath.Join(testsupport.BaseDir(env.cfg), "calls.log")
	t.Setenv("TZB_CALLS", callLog)

	testsupport.WriteMarker(t, filepath.Join(env.cfg.Paths.ContentDir, "alpha"),
		"kuid <kuid:414976:1055:2>\n")
	altStaging := filepath.Join(testsupport.BaseDir(env.cfg), "alt-staging")

	_, _, err := runCLI(t, []string{"build", "--staging-dir", altStaging}, env.configPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	calls := recordedCalls(t, callLog)
	if len(calls) == 0 || !strings.HasPrefix(calls[0], "installfrompath "+altStaging+string(filepath.Separator)) {
		t.Fatalf("staged install did not use the override base: %v", calls)
	}
}

func TestBuildCommandRequiresRoot(t *testing.T) {
	env := setupCLIEnv(t)
	env.cfg.Paths.ContentDir = ""
	writeCLIConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"build"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "paths.content_dir is not configured") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildCommandRejectsExtraArguments(t *testing.T) {
	env := setupCLIEnv(t)

	_, _, err := runCLI(t, []string{"build", "one", "two"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "accepts at most 1 arg") {
		t.Fatalf("unexpected error: %v", err)
	}
}
