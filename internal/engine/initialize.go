// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
)

// InitResult reports what Initialize found and built.
type InitResult struct {
	// Writable is false when the remote unambiguously denied the
	// write-access probe. The session is then read-only and holds no
	// local branch or worktree.
	Writable bool
	// HadRemoteContent is true when the remote already carried the data
	// branch, meaning this store existed before this writer joined.
	HadRemoteContent bool
	// WorktreePath is the resolved message worktree, empty when not
	// writable.
	WorktreePath string
	// Warning aggregates swallowed best-effort failures (probe ref
	// cleanup, raw worktree deletion).
	Warning string
}

// Initialize attaches the session to its store, creating whatever is
// missing: the data branch (fabricated or tracking), the isolated
// worktree (reused, repaired, or fresh), the seeded layout for a
// brand-new store, and the remote branch for a fresh store with a
// writable remote. It is idempotent: a second call finds every step
// already satisfied and changes nothing.
//
// When a remote exists but carries no data branch yet, write access is
// probed before anything is created, so a read-only visitor leaves no
// local residue behind.
func (s *Session) Initialize(ctx context.Context) (InitResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	// A session switched to this store must not inherit access or queue
	// state from whatever it synced before.
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	dir := s.handle.Path
	ok, err := s.repo.IsRepo(ctx, dir)
	if err != nil || !ok {
		return InitResult{}, fmt.Errorf("initialize %s: %w", dir, gitx.ErrNotRepo)
	}

	remoteURL, hasRemote, err := s.repo.RemoteURL(ctx, dir, s.handle.Remote)
	if err != nil {
		return InitResult{}, fmt.Errorf("resolve remote: %w", err)
	}
	s.mu.Lock()
	s.remoteURL = remoteURL
	s.hasRemote = hasRemote
	s.mu.Unlock()

	if !hasRemote {
		// Local-only mode is always permitted.
		s.markWritable()
	}

	if hasRemote {
		// Best effort: an unreachable remote must not block local use.
		if err := s.repo.FetchBranch(ctx, dir, s.handle.Remote, model.DataBranch); err != nil {
			s.log.Debug("initial fetch failed", zap.Error(err))
		}
	}

	st, err := s.detectState(ctx)
	if err != nil {
		return InitResult{}, err
	}
	s.log.Debug("store state detected",
		zap.Bool("remote", st.HasRemote),
		zap.Bool("remote_branch", st.HasRemoteBranch),
		zap.Bool("local_branch", st.HasLocalBranch),
		zap.Bool("worktree", st.HasWorktree),
		zap.Bool("worktree_valid", st.WorktreeValid))

	var warnings []string

	// Joining a remote that has no data branch means this writer would
	// create the store. Ask for the server's verdict before building
	// anything, and clean leftovers from a prior flawed run on denial.
	if hasRemote && !st.HasRemoteBranch {
		probe := s.checkWriteAccess(ctx)
		if probe.Warning != "" {
			warnings = append(warnings, probe.Warning)
		}
		if !probe.CanWrite {
			s.cleanupDeniedStore(ctx, st)
			s.enterReadOnly(probe.Reason)
			s.mu.Lock()
			s.initialized = true
			s.mu.Unlock()
			return InitResult{Writable: false, Warning: strings.Join(warnings, "; ")}, nil
		}
		s.markWritable()
	}

	fabricated, err := s.ensureBranch(ctx, st)
	if err != nil {
		return InitResult{}, err
	}

	worktree, created, wtWarnings, err := s.ensureWorktree(ctx)
	warnings = append(warnings, wtWarnings...)
	if err != nil {
		return InitResult{}, err
	}
	s.mu.Lock()
	s.worktree = worktree
	s.mu.Unlock()

	if fabricated && created {
		if err := s.seedWorktree(ctx, worktree); err != nil {
			return InitResult{}, err
		}
	}

	if st.HasRemoteBranch {
		res, err := s.pull(ctx)
		if err != nil {
			// The scheduler retries; joining must not fail on a flaky
			// network.
			s.log.Warn("initial pull failed", zap.Error(err))
			warnings = append(warnings, "initial pull failed: "+err.Error())
		} else if res.Warning != "" {
			warnings = append(warnings, res.Warning)
		}
	}

	if fabricated && hasRemote {
		if err := s.pushDataBranch(ctx); err != nil {
			if gitx.Classify(err) == gitx.KindPermission {
				// The probe said yes but the real push said no; latch
				// read-only. Local state stays usable.
				s.enterReadOnly(reasonNoPermission)
			} else {
				s.log.Warn("initial push failed, queuing", zap.Error(err))
				s.mu.Lock()
				s.queuePushLocked()
				s.mu.Unlock()
			}
		} else {
			s.markWritable()
		}
	}

	s.mu.Lock()
	s.initialized = true
	writable := !s.access.ReadOnly()
	s.mu.Unlock()

	s.log.Info("session initialized",
		zap.String("worktree", worktree),
		zap.Bool("writable", writable),
		zap.Bool("had_remote_content", st.HasRemoteBranch))

	return InitResult{
		Writable:         writable,
		HadRemoteContent: st.HasRemoteBranch,
		WorktreePath:     worktree,
		Warning:          strings.Join(warnings, "; "),
	}, nil
}

// cleanupDeniedStore removes local state a prior flawed run may have
// left: without write access nothing local should exist, or a later
// grant would push stale fabricated history.
func (s *Session) cleanupDeniedStore(ctx context.Context, st model.StoreState) {
	dir := s.handle.Path
	if st.HasWorktree {
		expected, err := s.expectedWorktreePath(ctx)
		if err == nil {
			s.removeWorktree(ctx, expected)
		}
	}
	if st.HasLocalBranch {
		if err := s.repo.DeleteBranch(ctx, dir, model.DataBranch); err != nil {
			s.log.Warn("cleanup: branch deletion failed", zap.Error(err))
		}
	}
}

// markWritable records positive access evidence (a passed probe or a
// confirmed push). It never unlatches read-only.
func (s *Session) markWritable() {
	s.mu.Lock()
	if !s.access.ReadOnly() {
		s.access = model.AccessState{Level: model.AccessWritable}
	}
	s.mu.Unlock()
}

// enterReadOnly latches the sticky read-only state, clears the push
// queue, and emits the one-time transition event.
func (s *Session) enterReadOnly(reason string) {
	s.mu.Lock()
	already := s.access.ReadOnly()
	s.access = model.AccessState{Level: model.AccessReadOnly, Reason: reason}
	s.queued = false
	announce := !already && !s.announced
	if announce {
		s.announced = true
	}
	s.mu.Unlock()

	if announce {
		s.log.Info("session entered read-only", zap.String("reason", reason))
		s.emit(Event{Kind: EventReadOnly, Reason: reason})
	}
}

// pushDataBranch pushes the data branch, setting the upstream on the
// first push so later pushes and divergence checks can rely on it.
func (s *Session) pushDataBranch(ctx context.Context) error {
	dir := s.handle.Path
	setUpstream := !s.repo.HasUpstream(ctx, dir, model.DataBranch)
	return s.repo.Push(ctx, dir, s.handle.Remote, model.DataBranch, setUpstream)
}
