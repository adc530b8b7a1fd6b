package batch

import (
	"time"

	"tzbuild/internal/kuid"
)

// Verb selects what a run does with each discovered asset.
type Verb string

const (
	// VerbBuild test-builds a staged copy of each asset under the
	// placeholder identity.
	VerbBuild Verb = "build"
	// VerbInstall submits each asset's real directory and identity.
	VerbInstall Verb = "install"
)

// OutcomeKind classifies how processing one asset ended.
type OutcomeKind string

const (
	OutcomeOK                OutcomeKind = "ok"
	OutcomeMissingIdentity   OutcomeKind = "missing_identity"
	OutcomeMalformedIdentity OutcomeKind = "malformed_identity"
	OutcomeDiscoveryIO       OutcomeKind = "discovery_io"
	OutcomeStagingIO         OutcomeKind = "staging_io"
	OutcomeInstallerLaunch   OutcomeKind = "installer_launch"
	OutcomeInstallerExit     OutcomeKind = "installer_exit"
	OutcomeInterrupted       OutcomeKind = "interrupted"
)

// Failed reports whether the kind counts against the run.
func (k OutcomeKind) Failed() bool {
	return k != OutcomeOK
}

// Label returns the short human-readable form used in tables.
func (k OutcomeKind) Label() string {
	switch k {
	case OutcomeOK:
		return "OK"
	case OutcomeMissingIdentity:
		return "no kuid"
	case OutcomeMalformedIdentity:
		return "malformed kuid"
	case OutcomeDiscoveryIO:
		return "unreadable"
	case OutcomeStagingIO:
		return "staging failed"
	case OutcomeInstallerLaunch:
		return "installer unavailable"
	case OutcomeInstallerExit:
		return "rejected"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return string(k)
	}
}

// Outcome is the result of processing one discovered asset.
type Outcome struct {
	Asset    kuid.Identity
	Name     string
	Dir      string
	Kind     OutcomeKind
	Err      error
	Output   string
	Duration time.Duration
}

// Detail returns the failure explanation, or "" for successful outcomes.
func (o Outcome) Detail() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Result aggregates one batch run.
type Result struct {
	RunID      string
	Verb       Verb
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
}

// Failed counts the outcomes that did not succeed.
func (r *Result) Failed() int {
	failed := 0
	for _, outcome := range r.Outcomes {
		if outcome.Kind.Failed() {
			failed++
		}
	}
	return failed
}

// Succeeded reports whether every asset processed cleanly.
func (r *Result) Succeeded() bool {
	return r.Failed() == 0
}

// Duration returns the wall-clock span of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
