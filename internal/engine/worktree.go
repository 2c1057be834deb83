// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/model"
)

// expectedWorktreePath is where the data worktree belongs: inside the
// repository's metadata directory, out of the primary working tree and
// out of sight of its status. Deriving it from the resolved git dir
// also makes host-repo relocation detectable, because the expected path
// moves with the repository while stale registrations keep the old one.
func (s *Session) expectedWorktreePath(ctx context.Context) (string, error) {
	gitDir, err := s.repo.GitDir(ctx, s.handle.Path)
	if err != nil {
		return "", fmt.Errorf("resolve worktree location: %w", err)
	}
	return model.WorktreePathIn(gitDir), nil
}

// worktreeMetadataIntact checks the structural health of a worktree
// checkout: the directory exists and carries its .git metadata link.
func (s *Session) worktreeMetadataIntact(path string) bool {
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return false
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return false
	}
	return true
}

// ensureWorktree resolves a valid worktree for the data branch at the
// expected path, repairing stale, orphaned, or relocated state on the
// way. It returns the worktree path, whether a fresh checkout was
// created, and any swallowed-cleanup warnings.
func (s *Session) ensureWorktree(ctx context.Context) (string, bool, []string, error) {
	dir := s.handle.Path
	var warnings []string

	expected, err := s.expectedWorktreePath(ctx)
	if err != nil {
		return "", false, nil, err
	}

	entries, err := s.repo.Worktrees(ctx, dir)
	if err != nil {
		return "", false, nil, fmt.Errorf("list worktrees: %w", err)
	}

	registered := false
	for _, entry := range entries {
		if entry.Branch != model.DataBranch {
			continue
		}
		switch {
		case entry.Path == expected && !entry.Prunable && s.worktreeMetadataIntact(expected):
			return expected, false, nil, nil
		case entry.Path == expected:
			// Registered in the right place but structurally broken.
			s.log.Warn("worktree invalid, recreating", zap.String("path", entry.Path))
			warnings = append(warnings, s.removeWorktree(ctx, entry.Path)...)
		default:
			// Registered somewhere else: the host repository moved and
			// left a stale registration pointing at the old location.
			s.log.Warn("worktree registered at stale path, repairing",
				zap.String("stale", entry.Path), zap.String("expected", expected))
			warnings = append(warnings, s.removeWorktree(ctx, entry.Path)...)
		}
		registered = true
	}

	// A directory at the expected path without a registration is an
	// orphan from an interrupted run; git refuses to add over it.
	if !registered {
		if _, err := os.Stat(expected); err == nil {
			s.log.Warn("orphaned worktree directory, clearing", zap.String("path", expected))
			warnings = append(warnings, s.removeWorktree(ctx, expected)...)
		}
	}

	if err := s.repo.WorktreeAdd(ctx, dir, expected, model.DataBranch); err != nil {
		// One repair attempt: clear whatever blocked the add and retry.
		warnings = append(warnings, s.removeWorktree(ctx, expected)...)
		if err := s.repo.WorktreeAdd(ctx, dir, expected, model.DataBranch); err != nil {
			return "", false, warnings, fmt.Errorf("add worktree: %w", err)
		}
	}
	s.log.Info("worktree created", zap.String("path", expected))
	return expected, true, warnings, nil
}

// removeWorktree removes a worktree registration and its directory.
// When git's own removal fails the directory is deleted raw and the
// registration pruned; that fallback is reported as a warning rather
// than an error because a leftover checkout must never block a session.
func (s *Session) removeWorktree(ctx context.Context, path string) []string {
	err := s.repo.WorktreeRemove(ctx, s.handle.Path, path)
	if err == nil {
		return nil
	}
	s.log.Warn("worktree remove failed, deleting raw", zap.String("path", path), zap.Error(err))

	var warnings []string
	if err := os.RemoveAll(path); err != nil {
		s.log.Warn("raw worktree deletion failed", zap.String("path", path), zap.Error(err))
		warnings = append(warnings, "worktree deletion incomplete: "+path)
	} else {
		warnings = append(warnings, "worktree removed raw: "+path)
	}
	if err := s.repo.WorktreePrune(ctx, s.handle.Path); err != nil {
		s.log.Warn("worktree prune failed", zap.Error(err))
		warnings = append(warnings, "worktree prune failed")
	}
	return warnings
}
