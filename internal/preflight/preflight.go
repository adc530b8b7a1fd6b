package preflight

import (
	"context"

	"tzbuild/internal/config"
	"tzbuild/internal/trainzutil"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config. The
// version probe runs only when the binary check passed and a client is
// supplied; root is the resolved scan root and may be empty for checks that
// run without one.
func RunAll(ctx context.Context, cfg *config.Config, client *trainzutil.Client, root string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	installer := CheckInstaller(cfg.TrainzUtil.Binary)
	results = append(results, installer)
	if installer.Passed && client != nil {
		results = append(results, CheckInstallerVersion(ctx, client))
	}

	if root != "" {
		results = append(results, CheckReadableDirectory("Content root", root))
	}

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))

	if cfg.History.Enabled {
		results = append(results, CheckHistoryDir(cfg.History.Path))
	}

	results = append(results, CheckSingleInstance())

	return results
}

// Failures returns the required checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}

// Warnings returns the optional checks that did not pass.
func Warnings(results []Result) []Result {
	var warned []Result
	for _, result := range results {
		if !result.Passed && result.Optional {
			warned = append(warned, result)
		}
	}
	return warned
}
