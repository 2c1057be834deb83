// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/model"
)

// detectState gathers the tuple driving branch and worktree resolution.
// Remote branch truth comes from ls-remote so a stale local tracking ref
// cannot misreport a deleted or brand-new remote branch.
func (s *Session) detectState(ctx context.Context) (model.StoreState, error) {
	dir := s.handle.Path
	st := model.StoreState{HasRemote: s.hasRemote}

	var err error
	st.HasLocalBranch, err = s.repo.HasLocalBranch(ctx, dir, model.DataBranch)
	if err != nil {
		return st, fmt.Errorf("detect local branch: %w", err)
	}

	if s.hasRemote {
		st.HasRemoteBranch, err = s.repo.HasRemoteBranch(ctx, dir, s.handle.Remote, model.DataBranch)
		if err != nil {
			// An unreachable remote cannot veto initialization; treat
			// the branch as absent and let the probe/push find out.
			s.log.Warn("detect: remote branch query failed", zap.Error(err))
			st.HasRemoteBranch = false
		}
	}

	expected, err := s.expectedWorktreePath(ctx)
	if err != nil {
		return st, err
	}
	entries, err := s.repo.Worktrees(ctx, dir)
	if err != nil {
		return st, fmt.Errorf("detect worktrees: %w", err)
	}
	for _, entry := range entries {
		if entry.Branch != model.DataBranch {
			continue
		}
		st.HasWorktree = true
		st.WorktreeValid = entry.Path == expected && !entry.Prunable && s.worktreeMetadataIntact(expected)
		break
	}
	return st, nil
}

// ensureBranch makes the local data branch exist. The returned flag is
// true only when the branch was fabricated from scratch, which is the
// precondition for seeding.
func (s *Session) ensureBranch(ctx context.Context, st model.StoreState) (bool, error) {
	dir := s.handle.Path

	if st.HasLocalBranch {
		return false, nil
	}
	if st.HasRemoteBranch {
		if err := s.repo.CreateTrackingBranch(ctx, dir, model.DataBranch, s.handle.Remote); err != nil {
			return false, fmt.Errorf("track remote branch: %w", err)
		}
		s.log.Info("data branch tracking remote", zap.String("branch", model.DataBranch))
		return false, nil
	}

	// No branch anywhere: fabricate an orphan root from pure
	// object-database operations. The primary working directory is
	// never touched.
	tree, err := s.repo.WriteEmptyTree(ctx, dir)
	if err != nil {
		return false, fmt.Errorf("fabricate branch root: %w", err)
	}
	commit, err := s.repo.CommitTree(ctx, dir, tree, "gitpost: data branch root")
	if err != nil {
		return false, fmt.Errorf("fabricate branch root: %w", err)
	}
	if err := s.repo.UpdateRef(ctx, dir, "refs/heads/"+model.DataBranch, commit); err != nil {
		return false, fmt.Errorf("fabricate branch ref: %w", err)
	}
	s.log.Info("data branch fabricated", zap.String("branch", model.DataBranch), zap.String("root", commit))
	return true, nil
}
