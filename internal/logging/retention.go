package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the provided targets that are older
// than retentionDays. A retentionDays value of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	expiry := time.Now().AddDate(0, 0, -retentionDays)

	keep := make(map[string]bool)
	for _, target := range targets {
		for _, path := range target.Exclude {
			if abs := absolutePath(path); abs != "" {
				keep[abs] = true
			}
		}
	}

	for _, target := range targets {
		pruneTarget(logger, target, expiry, keep)
	}
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, expiry time.Time, keep map[string]bool) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	pattern := strings.TrimSpace(target.Pattern)
	for _, entry := range entries {
		if entry.IsDir() || !nameMatches(pattern, entry.Name()) {
			continue
		}
		path := absolutePath(filepath.Join(dir, entry.Name()))
		if keep[path] {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(expiry) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "could not remove expired log", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check log_dir permissions"),
				String(FieldImpact, "expired log file stays on disk"),
			)
			continue
		}
		if logger != nil {
			logger.Info("expired log removed",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
}

func nameMatches(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}

func absolutePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
