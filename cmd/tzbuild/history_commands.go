package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tzbuild/internal/batch"
	"tzbuild/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(ctx, cmd)
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	cmd.Flags().Bool("json", false, "Emit runs as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

type historyRunReport struct {
	ID         string    `json:"id"`
	Verb       string    `json:"verb"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Failed     int       `json:"failed"`
	Succeeded  bool      `json:"succeeded"`
}

func newHistoryRunReport(run history.Run) historyRunReport {
	return historyRunReport{
		ID:         run.ID,
		Verb:       run.Verb,
		Root:       run.Root,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Total:      run.Total,
		Failed:     run.Failed,
		Succeeded:  run.Succeeded,
	}
}

func runHistoryList(ctx *commandContext, cmd *cobra.Command) error {
	store, err := ctx.requireHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		reports := make([]historyRunReport, 0, len(runs))
		for _, run := range runs {
			reports = append(reports, newHistoryRunReport(run))
		}
		return writeJSON(cmd, reports)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortRunID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Verb,
			run.Root,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Failed),
			runResultWord(run),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Run", "Started", "Verb", "Root", "Assets", "Failed", "Result"}, rows, 4, 5))
	return nil
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Show one run's per-asset outcomes",
		Long: "Show accepts a full run id or any unique prefix of at least four\n" +
			"characters, as printed by `tzbuild history`.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(ctx, cmd, args[0])
		},
	}
	cmd.Flags().Bool("json", false, "Emit the run as JSON")
	return cmd
}

type historyShowReport struct {
	Run      historyRunReport       `json:"run"`
	Outcomes []historyOutcomeReport `json:"outcomes"`
}

type historyOutcomeReport struct {
	Asset      string  `json:"asset,omitempty"`
	Name       string  `json:"name,omitempty"`
	Dir        string  `json:"dir"`
	Kind       string  `json:"kind"`
	Detail     string  `json:"detail,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

func runHistoryShow(ctx *commandContext, cmd *cobra.Command, id string) error {
	store, err := ctx.requireHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	outcomes, err := store.RunOutcomes(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		report := historyShowReport{Run: newHistoryRunReport(*run)}
		for _, outcome := range outcomes {
			report.Outcomes = append(report.Outcomes, historyOutcomeReport{
				Asset:      outcome.Asset,
				Name:       outcome.Name,
				Dir:        outcome.Dir,
				Kind:       outcome.Kind,
				Detail:     outcome.Detail,
				DurationMS: float64(outcome.Duration) / float64(time.Millisecond),
			})
		}
		return writeJSON(cmd, report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %s of %s\n", run.ID, run.Verb, run.Root)
	fmt.Fprintf(out, "Started %s, finished %s (%s)\n",
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
		formatTableDuration(run.FinishedAt.Sub(run.StartedAt)))
	fmt.Fprintf(out, "Assets: %d, failed: %d, result: %s\n\n", run.Total, run.Failed, runResultWord(*run))

	rows := make([][]string, 0, len(outcomes))
	for i, outcome := range outcomes {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			outcome.Asset,
			outcome.Name,
			batch.OutcomeKind(outcome.Kind).Label(),
			formatTableDuration(outcome.Duration),
			truncateDetail(outcome.Detail, 70),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Asset", "Name", "Status", "Duration", "Detail"}, rows, 0, 4))
	return nil
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d recorded runs\n", removed)
			return nil
		},
	}
}

func shortRunID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func runResultWord(run history.Run) string {
	if run.Succeeded {
		return "ok"
	}
	return "failed"
}
