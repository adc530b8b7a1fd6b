package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"tzbuild/internal/batch"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runReport is the JSON shape of a batch run.
type runReport struct {
	RunID      string          `json:"run_id"`
	Verb       string          `json:"verb"`
	Root       string          `json:"root"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Total      int             `json:"total"`
	Failed     int             `json:"failed"`
	Succeeded  bool            `json:"succeeded"`
	Outcomes   []outcomeReport `json:"outcomes"`
}

type outcomeReport struct {
	Asset      string  `json:"asset,omitempty"`
	Name       string  `json:"name,omitempty"`
	Dir        string  `json:"dir"`
	Kind       string  `json:"kind"`
	Detail     string  `json:"detail,omitempty"`
	Output     string  `json:"output,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

func newRunReport(result *batch.Result) runReport {
	report := runReport{
		RunID:      result.RunID,
		Verb:       string(result.Verb),
		Root:       result.Root,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Total:      len(result.Outcomes),
		Failed:     result.Failed(),
		Succeeded:  result.Succeeded(),
		Outcomes:   make([]outcomeReport, 0, len(result.Outcomes)),
	}
	for _, outcome := range result.Outcomes {
		id := ""
		if !outcome.Asset.IsZero() {
			id = outcome.Asset.String()
		}
		report.Outcomes = append(report.Outcomes, outcomeReport{
			Asset:      id,
			Name:       outcome.Name,
			Dir:        outcome.Dir,
			Kind:       string(outcome.Kind),
			Detail:     outcome.Detail(),
			Output:     outcome.Output,
			DurationMS: float64(outcome.Duration) / float64(time.Millisecond),
		})
	}
	return report
}
