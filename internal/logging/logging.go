package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tzbuild/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
}

// RunLogPattern matches the per-run log files NewFromConfig creates.
const RunLogPattern = "tzbuild-*.log"

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	min := new(slog.LevelVar)
	min.Set(levelFromName(opts.Level))

	sink, err := openSinks(opts.sinkPaths())
	if err != nil {
		return nil, err
	}

	withCaller := opts.Development || min.Level() <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "console", "":
		return slog.New(newConsoleHandler(sink, min, withCaller)), nil
	case "json":
		return slog.New(newJSONHandler(sink, min, withCaller)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig creates a logger using application config defaults. Each
// invocation opens its own timestamped file under the configured log
// directory; the returned path identifies that file, or is empty when no log
// directory is configured.
func NewFromConfig(cfg *config.Config) (*slog.Logger, string, error) {
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console"})
		return logger, "", err
	}

	sinks := []string{"stderr"}
	logPath := ""
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, "", fmt.Errorf("ensure log directory: %w", err)
		}
		logPath = filepath.Join(cfg.Paths.LogDir, "tzbuild-"+time.Now().Format("20060102-150405")+".log")
		sinks = append(sinks, logPath)
	}

	logger, err := New(Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      sinks,
		ErrorOutputPaths: sinks,
	})
	if err != nil {
		return nil, "", err
	}
	return logger, logPath, nil
}

// sinkPaths merges the output and error path lists, substituting the
// standard streams when either list is empty.
func (o Options) sinkPaths() []string {
	out := o.OutputPaths
	if len(out) == 0 {
		out = []string{"stdout"}
	}
	errOut := o.ErrorOutputPaths
	if len(errOut) == 0 {
		errOut = []string{"stderr"}
	}
	merged := make([]string, 0, len(out)+len(errOut))
	merged = append(merged, out...)
	return append(merged, errOut...)
}

func openSinks(paths []string) (io.Writer, error) {
	seen := make(map[string]bool, len(paths))
	var writers []io.Writer
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		w, err := openSink(path)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func openSink(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

var levelsByName = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func levelFromName(name string) slog.Level {
	if level, ok := levelsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return level
	}
	return slog.LevelInfo
}
