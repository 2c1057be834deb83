// SPDX-License-Identifier: MIT
package engine

// Outcome is the named result of a sync pass. Warning outcomes mark
// passes that completed but swallowed a best-effort failure, so callers
// can tell true success from "succeeded, but a cleanup step failed".
type Outcome string

const (
	// OutcomeSkipped means the pass had nothing to do: the session is
	// uninitialized or the store has no remote.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeSucceeded means fetch, merge, and any due push completed.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeSucceededWithWarning means the pass completed but a
	// best-effort step failed and was swallowed.
	OutcomeSucceededWithWarning Outcome = "succeeded_with_warning"
	// OutcomeFailed means the pass aborted; transient failures are
	// retried on the next tick.
	OutcomeFailed Outcome = "failed"
)
