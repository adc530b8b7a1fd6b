package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tzbuild/internal/batch"
	"tzbuild/internal/config"
	"tzbuild/internal/history"
	"tzbuild/internal/logging"
	"tzbuild/internal/preflight"
	"tzbuild/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the environment is ready for a batch run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(ctx, cmd)
		},
	}
	cmd.Flags().Bool("json", false, "Emit the status report as JSON")
	return cmd
}

type statusReport struct {
	Ready   bool           `json:"ready"`
	Checks  []checkReport  `json:"checks"`
	Staging stagingReport  `json:"staging"`
	LastRun *lastRunReport `json:"last_run,omitempty"`
}

type checkReport struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional"`
	Detail   string `json:"detail,omitempty"`
}

type stagingReport struct {
	Directories int   `json:"directories"`
	Bytes       int64 `json:"bytes"`
}

type lastRunReport struct {
	ID         string `json:"id"`
	Verb       string `json:"verb"`
	Root       string `json:"root"`
	FinishedAt string `json:"finished_at"`
	Total      int    `json:"total"`
	Failed     int    `json:"failed"`
	Succeeded  bool   `json:"succeeded"`
}

func runStatus(ctx *commandContext, cmd *cobra.Command) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	// A client that cannot be built just skips the version probe; the
	// binary check itself still reports why.
	client, _ := ctx.newClient()
	results := preflight.RunAll(cmd.Context(), cfg, client, cfg.Paths.ContentDir)

	stagingInfo := collectStagingReport(cfg)
	lastRun := collectLastRun(cmd, cfg)
	failures := preflight.Failures(results)

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		report := statusReport{
			Ready:   len(failures) == 0,
			Staging: stagingInfo,
			LastRun: lastRun,
		}
		for _, result := range results {
			report.Checks = append(report.Checks, checkReport{
				Name:     result.Name,
				Passed:   result.Passed,
				Optional: result.Optional,
				Detail:   result.Detail,
			})
		}
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		renderStatus(cmd.OutOrStdout(), cfg, results, stagingInfo, lastRun)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %d required checks failed", batch.ErrEnvironment, len(failures))
	}
	return nil
}

func collectStagingReport(cfg *config.Config) stagingReport {
	dirs, err := staging.ListDirectories(cfg.Paths.StagingDir)
	if err != nil {
		return stagingReport{}
	}
	report := stagingReport{Directories: len(dirs)}
	for _, dir := range dirs {
		report.Bytes += dir.Size
	}
	return report
}

func collectLastRun(cmd *cobra.Command, cfg *config.Config) *lastRunReport {
	if !cfg.History.Enabled || cfg.History.Path == "" {
		return nil
	}
	store, err := history.Open(cfg.History.Path, nil)
	if err != nil {
		return nil
	}
	defer store.Close()

	runs, err := store.RecentRuns(cmd.Context(), 1)
	if err != nil || len(runs) == 0 {
		return nil
	}
	run := runs[0]
	return &lastRunReport{
		ID:         run.ID,
		Verb:       run.Verb,
		Root:       run.Root,
		FinishedAt: run.FinishedAt.Local().Format("2006-01-02 15:04"),
		Total:      run.Total,
		Failed:     run.Failed,
		Succeeded:  run.Succeeded,
	}
}

func renderStatus(out io.Writer, cfg *config.Config, results []preflight.Result, stagingInfo stagingReport, lastRun *lastRunReport) {
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Environment", colorize))
	for _, result := range results {
		kind := statusError
		switch {
		case result.Passed:
			kind = statusOK
		case result.Optional:
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Staging", colorize))
	message := "none"
	if stagingInfo.Directories > 0 {
		message = fmt.Sprintf("%d directories, %s", stagingInfo.Directories, logging.FormatBytes(stagingInfo.Bytes))
	}
	fmt.Fprintln(out, renderStatusLine("Staged copies", statusInfo, message, colorize))

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Run history", colorize))
	switch {
	case !cfg.History.Enabled:
		fmt.Fprintln(out, renderStatusLine("Last run", statusInfo, "ledger disabled", colorize))
	case lastRun == nil:
		fmt.Fprintln(out, renderStatusLine("Last run", statusInfo, "no runs recorded", colorize))
	default:
		kind := statusOK
		if !lastRun.Succeeded {
			kind = statusWarn
		}
		message := fmt.Sprintf("%s of %s at %s: %d assets, %d failed",
			lastRun.Verb, lastRun.Root, lastRun.FinishedAt, lastRun.Total, lastRun.Failed)
		fmt.Fprintln(out, renderStatusLine("Last run", kind, message, colorize))
	}
}
