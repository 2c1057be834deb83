// SPDX-License-Identifier: MIT
package gitx

import (
	"context"
	"errors"
	"strings"
)

// Kind is the closed classification for git subprocess failures. All
// substring matching on git's unstructured error text happens in
// Classify; the rest of the engine switches on kinds only.
type Kind string

const (
	// KindNone is returned for a nil error.
	KindNone Kind = ""
	// KindNotRepo marks operations against a path that is not a git
	// working tree. Fatal; the caller must remediate externally.
	KindNotRepo Kind = "not_repo"
	// KindPermission marks unambiguous write denial by the remote.
	// Sticky: the session stops pushing until reset.
	KindPermission Kind = "permission"
	// KindNetwork marks unreachable-remote and transport failures.
	// Transient; retried on the next tick.
	KindNetwork Kind = "network"
	// KindNonFastForward marks push rejection due to divergence.
	// Transient; a pull on the next tick converges the histories.
	KindNonFastForward Kind = "non_fast_forward"
	// KindMissingRef marks fetches of a ref the remote does not carry,
	// the steady state of a store whose data branch was never pushed.
	KindMissingRef Kind = "missing_ref"
	// KindMerge marks merge conflicts, resolved by the local-wins
	// fallback.
	KindMerge Kind = "merge"
	// KindWorktree marks corrupt or stale worktree state, repaired by
	// force-remove and recreate.
	KindWorktree Kind = "worktree"
	// KindNoop marks benign no-ops such as committing nothing.
	KindNoop Kind = "noop"
	// KindTimeout marks deadline or cancellation failures. Transient.
	KindTimeout Kind = "timeout"
	// KindUnknown is everything else. Treated as transient and
	// optimistically writable, deferring discovery to the real push.
	KindUnknown Kind = "unknown"
)

var (
	// ErrNotRepo marks a handle path outside any git working tree.
	ErrNotRepo = errors.New("not a version-controlled directory")
	// ErrPermission marks an unambiguous remote write denial.
	ErrPermission = errors.New("write access denied")
	// ErrWorktreeInvalid marks broken worktree state found structurally
	// rather than via subprocess output.
	ErrWorktreeInvalid = errors.New("worktree state invalid")
)

// Classify maps a git subprocess failure into a Kind. It is the single
// boundary where git's error text is interpreted; a residual
// misclassification risk remains (for example, localized git output)
// and unmatched failures deliberately land in KindUnknown, which the
// engine treats as transient.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	if errors.Is(err, ErrNotRepo) {
		return KindNotRepo
	}
	if errors.Is(err, ErrPermission) {
		return KindPermission
	}
	if errors.Is(err, ErrWorktreeInvalid) {
		return KindWorktree
	}

	msg := strings.ToLower(errorText(err))
	switch {
	case containsAny(msg, "not a git repository"):
		return KindNotRepo
	// Denial has to be unambiguous before it latches the session
	// read-only; ambiguous transport/auth text stays transient so the
	// next real push can still discover the truth.
	case containsAny(msg,
		"403", "forbidden", "permission denied", "access denied",
		"not allowed", "unauthorized", "protected branch",
		"pre-receive hook declined", "authentication failed",
		"could not read username", "invalid credentials"):
		return KindPermission
	case containsAny(msg, "non-fast-forward", "fetch first", "[rejected]"):
		return KindNonFastForward
	case containsAny(msg, "couldn't find remote ref", "no such ref"):
		return KindMissingRef
	case containsAny(msg,
		"automatic merge failed", "merge conflict", "needs merge",
		"not something we can merge", "unrelated histories",
		"you have not concluded your merge"):
		return KindMerge
	case containsAny(msg,
		"nothing to commit", "nothing added to commit",
		"no changes added to commit"):
		return KindNoop
	case containsAny(msg,
		"is not a working tree", "missing but already registered",
		"locked working tree", "validation failed, cannot remove",
		"bad object", "object file", "corrupt"):
		return KindWorktree
	case containsAny(msg,
		"could not resolve host", "connection refused",
		"connection timed out", "network is unreachable",
		"failed to connect", "unable to access", "unable to connect",
		"could not read from remote", "remote hung up",
		"temporary failure in name resolution", "tls handshake",
		"timed out", "operation timed out"):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// Transient reports whether the kind should be retried on a later tick
// rather than surfaced as a terminal state.
func (k Kind) Transient() bool {
	switch k {
	case KindNetwork, KindNonFastForward, KindTimeout, KindUnknown:
		return true
	default:
		return false
	}
}

// errorText flattens an error chain into the richest text available.
// *Error values contribute their combined subprocess output.
func errorText(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Output + " " + err.Error()
	}
	return err.Error()
}

func containsAny(msg string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
