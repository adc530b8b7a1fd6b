package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tzbuild/internal/batch"
	"tzbuild/internal/config"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [path]",
		Short: "Test-build every asset under a directory",
		Long: "Build scans the given path (or paths.content_dir) for assets and runs\n" +
			"each through a disposable install/commit/validate/delete cycle on a\n" +
			"staged copy. Real assets and their catalog entries stay untouched.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(ctx, cmd, args, batch.VerbBuild)
		},
	}
	addBatchFlags(cmd)
	return cmd
}

func newInstallCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [path]",
		Short: "Install every asset under a directory",
		Long: "Install submits each discovered asset directory to the installer and\n" +
			"commits it under its real identity.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(ctx, cmd, args, batch.VerbInstall)
		},
	}
	addBatchFlags(cmd)
	return cmd
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("recursive", true, "Descend into subdirectories (default from config)")
	cmd.Flags().Bool("json", false, "Emit the run result as JSON")
}

func runBatch(ctx *commandContext, cmd *cobra.Command, args []string, verb batch.Verb) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	root, err := resolveRoot(cfg, args)
	if err != nil {
		return err
	}
	recursive := cfg.Scan.Recursive
	if flag := cmd.Flags().Lookup("recursive"); flag != nil && flag.Changed {
		recursive, _ = cmd.Flags().GetBool("recursive")
	}
	jsonOut, _ := cmd.Flags().GetBool("json")

	runner, _, cleanup, err := ctx.newRunner()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := runner.Run(cmd.Context(), batch.Request{
		Verb:      verb,
		Root:      root,
		Recursive: recursive,
	})
	if err != nil {
		return err
	}

	if jsonOut {
		if err := writeJSON(cmd, newRunReport(result)); err != nil {
			return err
		}
	} else {
		renderRunResult(cmd, result)
	}

	if failed := result.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d assets failed", failed, len(result.Outcomes))
	}
	return nil
}

// resolveRoot picks the batch root: the positional argument when given,
// otherwise the configured content directory.
func resolveRoot(cfg *config.Config, args []string) (string, error) {
	root := cfg.Paths.ContentDir
	if len(args) == 1 {
		root = args[0]
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return "", errors.New("no path given and paths.content_dir is not configured")
	}
	return config.ExpandPath(root)
}

func renderRunResult(cmd *cobra.Command, result *batch.Result) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(result.Outcomes))
	for i, outcome := range result.Outcomes {
		id := ""
		if !outcome.Asset.IsZero() {
			id = outcome.Asset.Bracketed()
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			id,
			outcome.Name,
			outcome.Kind.Label(),
			formatTableDuration(outcome.Duration),
			truncateDetail(outcome.Detail(), 70),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Asset", "Name", "Status", "Duration", "Detail"}, rows, 0, 4))

	failed := result.Failed()
	summary := fmt.Sprintf("%d assets processed in %s", len(result.Outcomes), formatTableDuration(result.Duration()))
	if failed > 0 {
		summary += fmt.Sprintf(", %d failed", failed)
	}
	fmt.Fprintln(out, summary)
	fmt.Fprintf(out, "Run ID: %s\n", result.RunID)
}

func formatTableDuration(d time.Duration) string {
	if d >= time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Millisecond).String()
}

func truncateDetail(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
