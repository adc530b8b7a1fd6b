package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"tzbuild/internal/batch"
	"tzbuild/internal/config"
	"tzbuild/internal/history"
	"tzbuild/internal/logging"
	"tzbuild/internal/staging"
	"tzbuild/internal/trainzutil"
)

// commandContext carries state shared across subcommands: the loaded config
// and the lazily built logger. Flags are read at use time so cobra has parsed
// them by then.
type commandContext struct {
	configFlag    *string
	installerFlag *string
	stagingFlag   *string
	verboseFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	logPath    string
	loggerErr  error
}

func newCommandContext(configFlag, installerFlag, stagingFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		installerFlag: installerFlag,
		stagingFlag:   stagingFlag,
		verboseFlag:   verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyFlagOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// applyFlagOverrides lets command line flags win over config file values.
func (c *commandContext) applyFlagOverrides(cfg *config.Config) error {
	if c.installerFlag != nil {
		if binary := strings.TrimSpace(*c.installerFlag); binary != "" {
			expanded, err := config.ExpandPath(binary)
			if err != nil {
				return fmt.Errorf("resolve trainzutil path: %w", err)
			}
			cfg.TrainzUtil.Binary = expanded
		}
	}
	if c.stagingFlag != nil {
		if base := strings.TrimSpace(*c.stagingFlag); base != "" {
			expanded, err := config.ExpandPath(base)
			if err != nil {
				return fmt.Errorf("resolve staging path: %w", err)
			}
			cfg.Paths.StagingDir = expanded
		}
	}
	if c.verboseFlag != nil && *c.verboseFlag {
		cfg.Logging.Level = "debug"
	}
	return nil
}

// ensureLogger builds the process logger from config, pruning expired run
// logs on the way. The current run's log file is never pruned.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		logger, logPath, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
		c.logPath = logPath
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: logging.RunLogPattern,
			Exclude: []string{logPath},
		})
	})
	return c.logger, c.loggerErr
}

// openHistory opens the run ledger when enabled. The ledger is advisory: an
// open failure is logged and nil is returned so the run proceeds without it.
func (c *commandContext) openHistory(logger *slog.Logger) *history.Store {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	if !cfg.History.Enabled || strings.TrimSpace(cfg.History.Path) == "" {
		return nil
	}
	store, err := history.Open(cfg.History.Path, logger)
	if err != nil {
		logging.WarnWithContext(logger, "run ledger unavailable",
			"history_open_failed",
			logging.String(logging.FieldImpact, "this run will not be recorded"),
			logging.String("path", cfg.History.Path),
			logging.Error(err),
		)
		return nil
	}
	return store
}

// requireHistory opens the run ledger for commands whose whole purpose is
// reading it, where silent absence would be misleading.
func (c *commandContext) requireHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("run history is disabled in the configuration")
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		return nil, fmt.Errorf("run history has no path configured")
	}
	return history.Open(cfg.History.Path, nil)
}

// newClient builds the installer client from the effective config.
func (c *commandContext) newClient() (*trainzutil.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return trainzutil.New(cfg.TrainzUtil.Binary, cfg.TrainzUtil.CommandTimeout)
}

// newRunner wires a batch runner with logger, installer client, staging
// builder, and (best-effort) the run ledger. The returned cleanup closes the
// ledger.
func (c *commandContext) newRunner() (*batch.Runner, *slog.Logger, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := c.newClient()
	if err != nil {
		return nil, nil, nil, err
	}
	store := c.openHistory(logger)
	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
	}
	runner, err := batch.NewRunner(cfg, client, staging.NewBuilder(cfg.Paths.StagingDir, logger), store, logger)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return runner, logger, cleanup, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
