package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTrainzUtil(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeBuild()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	// ContentDir may stay empty: the scan root is usually given on the
	// command line.
	if strings.TrimSpace(c.Paths.ContentDir) != "" {
		if c.Paths.ContentDir, err = expandPath(c.Paths.ContentDir); err != nil {
			return fmt.Errorf("paths.content_dir: %w", err)
		}
	} else {
		c.Paths.ContentDir = ""
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTrainzUtil() error {
	c.TrainzUtil.Binary = strings.TrimSpace(c.TrainzUtil.Binary)
	if c.TrainzUtil.Binary == "" {
		if value, ok := os.LookupEnv("TRAINZUTIL"); ok && strings.TrimSpace(value) != "" {
			c.TrainzUtil.Binary = strings.TrimSpace(value)
		} else {
			c.TrainzUtil.Binary = defaultBinary
		}
	}
	// A bare name is resolved through PATH at preflight; anything with a
	// separator is treated as a filesystem path and expanded.
	if strings.ContainsAny(c.TrainzUtil.Binary, `/\`) {
		expanded, err := expandPath(c.TrainzUtil.Binary)
		if err != nil {
			return fmt.Errorf("trainzutil.binary: %w", err)
		}
		c.TrainzUtil.Binary = expanded
	}
	if c.TrainzUtil.CommandTimeout <= 0 {
		c.TrainzUtil.CommandTimeout = defaultCommandTimeout
	}
	return nil
}

func (c *Config) normalizeScan() {
	dirs := make([]string, 0, len(c.Scan.SkipDirs))
	seen := make(map[string]struct{}, len(c.Scan.SkipDirs))
	for _, dir := range c.Scan.SkipDirs {
		normalized := strings.TrimSpace(dir)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		dirs = append(dirs, normalized)
	}
	c.Scan.SkipDirs = dirs
}

func (c *Config) normalizeBuild() {
	if c.Build.SettleDelay < 0 {
		c.Build.SettleDelay = 0
	}
	if c.Build.StaleAfterHours <= 0 {
		c.Build.StaleAfterHours = defaultStaleAfterHours
	}
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if c.History.KeepRuns <= 0 {
		c.History.KeepRuns = defaultHistoryKeepRuns
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
