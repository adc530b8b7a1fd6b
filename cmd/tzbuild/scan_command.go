package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"tzbuild/internal/asset"
	"tzbuild/internal/batch"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "List the assets a build would process",
		Long: "Scan walks the given path (or paths.content_dir) and reports every\n" +
			"directory holding a config.txt marker, including ones a build would\n" +
			"reject, without calling the installer.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(ctx, cmd, args)
		},
	}
	cmd.Flags().Bool("recursive", true, "Descend into subdirectories (default from config)")
	cmd.Flags().Bool("json", false, "Emit the scan result as JSON")
	return cmd
}

type scanReport struct {
	Root    string            `json:"root"`
	Total   int               `json:"total"`
	Invalid int               `json:"invalid"`
	Assets  []scanAssetReport `json:"assets"`
}

type scanAssetReport struct {
	Asset string `json:"asset,omitempty"`
	Name  string `json:"name,omitempty"`
	Dir   string `json:"dir"`
	Error string `json:"error,omitempty"`
}

func runScan(ctx *commandContext, cmd *cobra.Command, args []string) error {
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

	discoveries, err := asset.Scan(cmd.Context(), root, asset.Options{
		Recursive: recursive,
		SkipDirs:  cfg.Scan.SkipDirs,
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}
	if len(discoveries) == 0 {
		return fmt.Errorf("%w under %s", batch.ErrNoAssets, root)
	}

	invalid := 0
	for _, d := range discoveries {
		if d.Err != nil {
			invalid++
		}
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		report := scanReport{Root: root, Total: len(discoveries), Invalid: invalid}
		for _, d := range discoveries {
			entry := scanAssetReport{Dir: d.Root.Dir}
			if d.Err != nil {
				entry.Error = d.Err.Error()
			} else {
				entry.Asset = d.Root.Identity.String()
				entry.Name = d.Root.DisplayName()
			}
			report.Assets = append(report.Assets, entry)
		}
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		renderScanResult(cmd, root, discoveries, invalid)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d discovered directories are not valid assets", invalid, len(discoveries))
	}
	return nil
}

func renderScanResult(cmd *cobra.Command, root string, discoveries []asset.Discovery, invalid int) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(discoveries))
	for i, d := range discoveries {
		id, name, problem := "", "", ""
		if d.Err != nil {
			problem = d.Err.Error()
		} else {
			id = d.Root.Identity.Bracketed()
			name = d.Root.DisplayName()
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			id,
			name,
			relativeTo(root, d.Root.Dir),
			truncateDetail(problem, 60),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Asset", "Name", "Directory", "Problem"}, rows, 0))

	if invalid > 0 {
		fmt.Fprintf(out, "Found %d asset directories under %s (%d invalid)\n", len(discoveries), root, invalid)
		return
	}
	fmt.Fprintf(out, "Found %d assets under %s\n", len(discoveries), root)
}

// relativeTo shortens dir for display by making it relative to root.
func relativeTo(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return dir
	}
	return rel
}
