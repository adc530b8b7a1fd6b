package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tzbuild/internal/asset"
	"tzbuild/internal/config"
	"tzbuild/internal/history"
	"tzbuild/internal/logging"
	"tzbuild/internal/preflight"
	"tzbuild/internal/staging"
	"tzbuild/internal/trainzutil"
)

var (
	// ErrEnvironment reports that the run never reached the installer:
	// another run holds the lock, or a required preflight check failed.
	ErrEnvironment = errors.New("environment not ready")
	// ErrNoAssets reports a scan that finished without finding a single
	// marker file under the requested root.
	ErrNoAssets = errors.New("no assets found")
)

// LockPath returns the lock file guarding concurrent runs for cfg. It lives
// in the staging base: the lock exists to serialize installer access, and
// the staging sweep ignores non-staged entries.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StagingDir, "tzbuild.lock")
}

// Request describes one batch run.
type Request struct {
	Verb      Verb
	Root      string
	Recursive bool
}

// Runner drives batch runs: it takes the run lock, checks the environment,
// scans for assets, and pushes each one through the installer.
type Runner struct {
	cfg     *config.Config
	client  *trainzutil.Client
	builder *staging.Builder
	store   *history.Store
	logger  *slog.Logger
}

// NewRunner wires a Runner. Config, client, and builder are required; store
// may be nil when the run ledger is disabled, and a nil logger disables
// logging.
func NewRunner(cfg *config.Config, client *trainzutil.Client, builder *staging.Builder, store *history.Store, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || client == nil || builder == nil {
		return nil, errors.New("batch runner requires config, client, and builder")
	}
	return &Runner{
		cfg:     cfg,
		client:  client,
		builder: builder,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "batch"),
	}, nil
}

// Run executes one batch run over req.Root. Per-asset failures are reported
// through the returned Result, never as an error; the error return is
// reserved for runs that abort before processing any asset.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	switch req.Verb {
	case VerbBuild, VerbInstall:
	default:
		return nil, fmt.Errorf("unknown batch verb %q", req.Verb)
	}
	if req.Root == "" {
		return nil, errors.New("batch run requires a content root")
	}

	unlock, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.builder.EnsureBase(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	if err := r.checkEnvironment(ctx, req.Root); err != nil {
		return nil, err
	}

	r.sweepStale()

	discoveries, err := asset.Scan(ctx, req.Root, asset.Options{
		Recursive: req.Recursive,
		SkipDirs:  r.cfg.Scan.SkipDirs,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", req.Root, err)
	}
	if len(discoveries) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoAssets, req.Root)
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Verb:      req.Verb,
		Root:      req.Root,
		StartedAt: time.Now(),
		Outcomes:  make([]Outcome, 0, len(discoveries)),
	}

	r.logger.Info("run started",
		logging.String(logging.FieldRunID, result.RunID),
		logging.String(logging.FieldVerb, string(req.Verb)),
		logging.String("root", req.Root),
		logging.Int("assets", len(discoveries)),
	)

	for _, d := range discoveries {
		result.Outcomes = append(result.Outcomes, r.processAsset(ctx, req.Verb, d))
	}
	result.FinishedAt = time.Now()

	r.recordRun(ctx, result)

	r.logger.Info("run finished",
		logging.String(logging.FieldRunID, result.RunID),
		logging.String(logging.FieldVerb, string(req.Verb)),
		logging.Int("assets", len(result.Outcomes)),
		logging.Int("failed", result.Failed()),
		logging.Duration("duration", result.Duration()),
	)

	return result, nil
}

// acquireLock takes the single-run lock without blocking. The returned
// release func is safe to call when the lock was taken.
func (r *Runner) acquireLock() (func(), error) {
	lockPath := LockPath(r.cfg)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create lock directory: %v", ErrEnvironment, err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire run lock %s: %v", ErrEnvironment, lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another tzbuild run is active (lock %s)", ErrEnvironment, lockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logging.WarnWithContext(r.logger, "failed to release run lock",
				"lock_release_failed",
				logging.String(logging.FieldErrorHint, "the lock clears once this process exits"),
				logging.Error(err),
			)
		}
	}, nil
}

// checkEnvironment runs the preflight checks. Required failures abort the
// run; optional failures are logged and the run proceeds.
func (r *Runner) checkEnvironment(ctx context.Context, root string) error {
	results := preflight.RunAll(ctx, r.cfg, r.client, root)
	for _, warn := range preflight.Warnings(results) {
		logging.WarnWithContext(r.logger, "preflight warning",
			"preflight_warning",
			logging.String(logging.FieldErrorHint, "run continues; check the environment if results look wrong"),
			logging.String("check", warn.Name),
			logging.String("detail", warn.Detail),
		)
	}
	failures := preflight.Failures(results)
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures {
		r.logger.Error("preflight check failed",
			logging.String("check", f.Name),
			logging.String("detail", f.Detail),
		)
	}
	first := failures[0]
	return fmt.Errorf("%w: %s: %s", ErrEnvironment, first.Name, first.Detail)
}

// sweepStale removes leftovers of crashed runs from the staging base before
// new staging directories are created next to them.
func (r *Runner) sweepStale() {
	hours := r.cfg.Build.StaleAfterHours
	if hours <= 0 {
		return
	}
	swept := staging.CleanStale(r.builder.Base(), time.Duration(hours)*time.Hour, r.logger)
	if len(swept.Removed) > 0 {
		r.logger.Info("stale staging directories removed",
			logging.Int("count", len(swept.Removed)),
		)
	}
}

// recordRun writes the run into the history ledger. The ledger is advisory:
// failures are logged and swallowed so they never fail a finished run.
func (r *Runner) recordRun(ctx context.Context, result *Result) {
	if r.store == nil {
		return
	}
	run := history.Run{
		ID:         result.RunID,
		Verb:       string(result.Verb),
		Root:       result.Root,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Total:      len(result.Outcomes),
		Failed:     result.Failed(),
		Succeeded:  result.Succeeded(),
	}
	outcomes := make([]history.Outcome, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		id := ""
		if !o.Asset.IsZero() {
			id = o.Asset.String()
		}
		outcomes = append(outcomes, history.Outcome{
			Asset:    id,
			Name:     o.Name,
			Dir:      o.Dir,
			Kind:     string(o.Kind),
			Detail:   o.Detail(),
			Duration: o.Duration,
		})
	}
	if err := r.store.RecordRun(ctx, run, outcomes); err != nil {
		logging.WarnWithContext(r.logger, "failed to record run history",
			"history_write_failed",
			logging.String(logging.FieldImpact, "run results were not persisted"),
			logging.String(logging.FieldRunID, result.RunID),
			logging.Error(err),
		)
		return
	}
	if keep := r.cfg.History.KeepRuns; keep > 0 {
		if _, err := r.store.Prune(ctx, keep); err != nil {
			logging.WarnWithContext(r.logger, "failed to prune run history",
				"history_prune_failed",
				logging.String(logging.FieldImpact, "old runs accumulate until the next successful prune"),
				logging.Error(err),
			)
		}
	}
}
