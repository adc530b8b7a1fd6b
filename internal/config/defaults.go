package config

const (
	defaultStagingDir       = "~/.local/share/tzbuild/staging"
	defaultLogDir           = "~/.local/share/tzbuild/logs"
	defaultHistoryPath      = "~/.local/share/tzbuild/history.db"
	defaultHistoryKeepRuns  = 200
	defaultBinary           = "TrainzUtil"
	defaultCommandTimeout   = 300
	defaultSettleDelay      = 2
	defaultStaleAfterHours  = 24
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

// Default returns a Config populated with repository defaults. Scanning is
// recursive by default; the flat mode exists for trees where nested packs
// should stay untouched.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		TrainzUtil: TrainzUtil{
			Binary:         defaultBinary,
			CommandTimeout: defaultCommandTimeout,
		},
		Scan: Scan{
			Recursive: true,
			SkipDirs:  []string{".git", ".hg"},
		},
		Build: Build{
			SettleDelay:     defaultSettleDelay,
			StaleAfterHours: defaultStaleAfterHours,
		},
		History: History{
			Enabled:  true,
			Path:     defaultHistoryPath,
			KeepRuns: defaultHistoryKeepRuns,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
