package batch

import (
	"context"
	"errors"
	"time"

	"tzbuild/internal/asset"
	"tzbuild/internal/kuid"
	"tzbuild/internal/logging"
	"tzbuild/internal/staging"
	"tzbuild/internal/trainzutil"
)

// processAsset pushes one discovery through the verb's pipeline. Failures
// never escape as errors: each asset fails alone, recorded in the outcome.
func (r *Runner) processAsset(ctx context.Context, verb Verb, d asset.Discovery) Outcome {
	outcome := Outcome{
		Asset: d.Root.Identity,
		Name:  d.Root.DisplayName(),
		Dir:   d.Root.Dir,
	}
	start := time.Now()

	switch {
	case ctx.Err() != nil:
		outcome.Kind = OutcomeInterrupted
		outcome.Err = ctx.Err()
	case d.Err != nil:
		outcome.Kind = classifyDiscovery(d.Err)
		outcome.Err = d.Err
	case verb == VerbInstall:
		outcome.Kind, outcome.Output, outcome.Err = r.installAsset(ctx, d.Root)
	default:
		outcome.Kind, outcome.Output, outcome.Err = r.buildAsset(ctx, d.Root)
	}
	outcome.Duration = time.Since(start)

	r.logOutcome(verb, outcome)
	return outcome
}

// buildAsset verifies an asset without touching its real catalog entry: a
// disposable copy is staged under a placeholder identity, installed,
// committed, validated, and deleted again. The first failing step ends the
// sequence, so a rejected placeholder may stay behind in the catalog until
// the next run replaces it.
func (r *Runner) buildAsset(ctx context.Context, root asset.Root) (OutcomeKind, string, error) {
	staged, err := r.builder.Stage(root)
	if err != nil {
		return OutcomeStagingIO, "", err
	}
	defer r.release(staged)

	if res, err := r.client.InstallFromPath(ctx, staged.Dir); err != nil {
		return classifyInstaller(err), res.Output, err
	}
	if res, err := r.client.Commit(ctx, staged.Identity); err != nil {
		return classifyInstaller(err), res.Output, err
	}
	if err := r.settle(ctx); err != nil {
		return OutcomeInterrupted, "", err
	}
	if res, err := r.client.Validate(ctx, staged.Identity); err != nil {
		return classifyInstaller(err), res.Output, err
	}
	if res, err := r.client.Delete(ctx, staged.Identity); err != nil {
		return classifyInstaller(err), res.Output, err
	}
	return OutcomeOK, "", nil
}

// installAsset installs the asset directory into the catalog under its real
// identity. No staging copy is made; the installer reads the source tree.
func (r *Runner) installAsset(ctx context.Context, root asset.Root) (OutcomeKind, string, error) {
	if res, err := r.client.InstallFromPath(ctx, root.Dir); err != nil {
		return classifyInstaller(err), res.Output, err
	}
	if res, err := r.client.Commit(ctx, root.Identity); err != nil {
		return classifyInstaller(err), res.Output, err
	}
	return OutcomeOK, "", nil
}

// release drops the staged copy. A copy that cannot be removed is left for
// the stale sweep of a later run.
func (r *Runner) release(staged *staging.Staged) {
	if err := staged.Release(); err != nil {
		logging.WarnWithContext(r.logger, "failed to remove staged copy",
			"staging_release_failed",
			logging.String(logging.FieldImpact, "leftover directory is swept as stale on a later run"),
			logging.String("dir", staged.Dir),
			logging.Error(err),
		)
	}
}

// settle waits out the configured post-commit delay so the installer's
// database settles before validation reads it back.
func (r *Runner) settle(ctx context.Context) error {
	delay := time.Duration(r.cfg.Build.SettleDelay) * time.Second
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// classifyDiscovery maps a scan error to the outcome kind shown in reports.
func classifyDiscovery(err error) OutcomeKind {
	switch {
	case errors.Is(err, kuid.ErrMissingIdentity):
		return OutcomeMissingIdentity
	case errors.Is(err, kuid.ErrMalformedIdentity):
		return OutcomeMalformedIdentity
	default:
		return OutcomeDiscoveryIO
	}
}

// classifyInstaller maps a client error to an outcome kind. A command that
// outlived its per-command timeout counts as an installer failure; only a
// cancelled run context counts as interruption.
func classifyInstaller(err error) OutcomeKind {
	switch {
	case errors.Is(err, context.Canceled):
		return OutcomeInterrupted
	case errors.Is(err, trainzutil.ErrLaunch):
		return OutcomeInstallerLaunch
	default:
		return OutcomeInstallerExit
	}
}

// logOutcome reports one finished asset at a level matching its outcome.
func (r *Runner) logOutcome(verb Verb, o Outcome) {
	subject := o.Name
	if !o.Asset.IsZero() {
		subject = o.Asset.Bracketed()
	}
	if !o.Kind.Failed() {
		r.logger.Info("asset "+passedVerb(verb),
			logging.String(logging.FieldAsset, subject),
			logging.String(logging.FieldVerb, string(verb)),
			logging.Duration("duration", o.Duration),
		)
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldAsset, subject),
		logging.String(logging.FieldVerb, string(verb)),
		logging.String(logging.FieldErrorHint, outcomeHint(o.Kind)),
		logging.String("dir", o.Dir),
		logging.Duration("duration", o.Duration),
		logging.Error(o.Err),
	}
	if o.Output != "" {
		attrs = append(attrs, logging.String("output", o.Output))
	}
	logging.ErrorWithContext(r.logger, "asset "+string(verb)+" failed",
		string(o.Kind), attrs...)
}

// passedVerb renders the verb for a success message.
func passedVerb(verb Verb) string {
	if verb == VerbInstall {
		return "installed"
	}
	return "built"
}

// outcomeHint suggests the most likely fix for a failure kind.
func outcomeHint(kind OutcomeKind) string {
	switch kind {
	case OutcomeMissingIdentity:
		return "add a kuid tag to the asset's config.txt"
	case OutcomeMalformedIdentity:
		return "fix the kuid tag in the asset's config.txt"
	case OutcomeDiscoveryIO:
		return "check directory permissions under the content root"
	case OutcomeStagingIO:
		return "check free space and permissions on the staging directory"
	case OutcomeInstallerLaunch:
		return "check the trainzutil.binary setting"
	case OutcomeInstallerExit:
		return "inspect the captured installer output"
	case OutcomeInterrupted:
		return "rerun once the interruption is resolved"
	default:
		return "check logs for details"
	}
}
