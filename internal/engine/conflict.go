// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
)

// pullResult reports what a pull changed.
type pullResult struct {
	// Merged is true when remote content was incorporated.
	Merged bool
	// Resolved is true when the local-wins fallback produced the merge.
	Resolved bool
	// Head is the data branch head after the pull.
	Head string
	// Warning records a swallowed fallback failure.
	Warning string
}

// pull fetches the remote data branch and merges it into the worktree.
//
// Merge conflicts resolve deterministically in favor of the local side:
// record names carry timestamp, sender, and a random id, so two writers
// genuinely colliding on content is close to impossible and keeping the
// session usable outranks perfect merge semantics. Failures inside the
// fallback are logged and swallowed; the caller sees a warning, not an
// error.
func (s *Session) pull(ctx context.Context) (pullResult, error) {
	dir := s.handle.Path
	remoteRef := s.handle.Remote + "/" + model.DataBranch

	if err := s.repo.FetchBranch(ctx, dir, s.handle.Remote, model.DataBranch); err != nil {
		return pullResult{}, fmt.Errorf("fetch %s: %w", model.DataBranch, err)
	}

	mergeErr := s.repo.Merge(ctx, s.worktree, remoteRef)
	if mergeErr == nil {
		head, err := s.repo.RevParse(ctx, dir, model.DataBranch)
		if err != nil {
			return pullResult{Merged: true}, nil
		}
		return pullResult{Merged: true, Head: head}, nil
	}

	if gitx.Classify(mergeErr) != gitx.KindMerge {
		s.abortMerge(ctx)
		return pullResult{}, fmt.Errorf("merge %s: %w", remoteRef, mergeErr)
	}

	s.log.Info("merge conflict, resolving local-wins")
	res, ok := s.resolveLocalWins(ctx)
	if !ok {
		s.abortMerge(ctx)
		return res, nil
	}
	head, err := s.repo.RevParse(ctx, dir, model.DataBranch)
	if err == nil {
		res.Head = head
	}
	// The resolution commit is local content that now needs replication.
	s.mu.Lock()
	s.queuePushLocked()
	s.mu.Unlock()
	return res, nil
}

// resolveLocalWins forces every conflicted path back to the local side
// and commits the resolution. The bool reports whether the merge got
// committed; on false the caller aborts the merge and the next tick
// retries from scratch.
func (s *Session) resolveLocalWins(ctx context.Context) (pullResult, bool) {
	paths, err := s.repo.ConflictedPaths(ctx, s.worktree)
	if err != nil {
		s.log.Warn("conflict resolution: listing conflicts failed", zap.Error(err))
		return pullResult{Warning: "conflict resolution failed: " + err.Error()}, false
	}
	if err := s.repo.CheckoutOurs(ctx, s.worktree, paths); err != nil {
		s.log.Warn("conflict resolution: checkout ours failed", zap.Error(err))
		return pullResult{Warning: "conflict resolution failed: " + err.Error()}, false
	}
	if err := s.repo.AddAll(ctx, s.worktree); err != nil {
		s.log.Warn("conflict resolution: staging failed", zap.Error(err))
		return pullResult{Warning: "conflict resolution failed: " + err.Error()}, false
	}
	if err := s.repo.Commit(ctx, s.worktree, "gitpost: resolve sync conflict (local wins)"); err != nil {
		if gitx.Classify(err) != gitx.KindNoop {
			s.log.Warn("conflict resolution: commit failed", zap.Error(err))
			return pullResult{Warning: "conflict resolution failed: " + err.Error()}, false
		}
	}
	s.log.Info("sync conflict resolved", zap.Int("paths", len(paths)))
	return pullResult{
		Merged:   true,
		Resolved: true,
		Warning:  "sync conflict resolved local-wins",
	}, true
}

func (s *Session) abortMerge(ctx context.Context) {
	if err := s.repo.MergeAbort(ctx, s.worktree); err != nil {
		s.log.Debug("merge abort failed", zap.Error(err))
	}
}
