package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTrainzUtil(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.StagingDir == c.Paths.ContentDir {
		return errors.New("paths.staging_dir must not equal paths.content_dir")
	}
	return nil
}

func (c *Config) validateTrainzUtil() error {
	if c.TrainzUtil.Binary == "" {
		return errors.New("trainzutil.binary must be set (or set the TRAINZUTIL env var)")
	}
	if err := ensurePositiveMap(map[string]int{
		"trainzutil.command_timeout": c.TrainzUtil.CommandTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBuild() error {
	if c.Build.SettleDelay < 0 {
		return errors.New("build.settle_delay must be >= 0")
	}
	if c.Build.StaleAfterHours <= 0 {
		return errors.New("build.stale_after_hours must be positive")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if !c.History.Enabled {
		return nil
	}
	if c.History.Path == "" {
		return errors.New("history.path must be set when history.enabled is true")
	}
	if c.History.KeepRuns <= 0 {
		return errors.New("history.keep_runs must be positive when history.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
