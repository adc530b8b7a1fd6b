// Package preflight provides readiness checks for the installer executable
// and the filesystem paths tzbuild depends on.
//
// These checks run in two contexts:
//   - Batch runs call RunAll before touching any asset. A failed required
//     check aborts the run before the first installer invocation, so a
//     misconfigured environment never half-processes a content tree.
//   - The CLI "tzbuild status" command uses the same checks to display
//     environment health.
//
// Checks marked Optional never abort a run; they surface as warnings.
package preflight
