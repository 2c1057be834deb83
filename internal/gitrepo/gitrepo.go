// SPDX-License-Identifier: MIT

// Package gitrepo puts the git primitives the sync engine relies on
// behind a stubbable interface. The method set is the engine's complete
// capability surface: fetch, push, branch create/delete, object-database
// hash and commit creation, ref update, worktree add/list/remove/prune,
// merge, and staging. Nothing else of the underlying tool is used.
package gitrepo

import (
	"context"

	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
)

// Repo is the engine's view of a git repository.
type Repo interface {
	IsRepo(ctx context.Context, dir string) (bool, error)
	GitDir(ctx context.Context, dir string) (string, error)
	RemoteURL(ctx context.Context, dir, remote string) (string, bool, error)
	Remotes(ctx context.Context, dir string) ([]model.Remote, error)
	HasLocalBranch(ctx context.Context, dir, branch string) (bool, error)
	HasRemoteBranch(ctx context.Context, dir, remote, branch string) (bool, error)
	RevParse(ctx context.Context, dir, ref string) (string, error)
	AheadBehind(ctx context.Context, dir, local, upstream string) (int, int, error)
	HasUpstream(ctx context.Context, dir, branch string) bool
	Worktrees(ctx context.Context, dir string) ([]model.WorktreeEntry, error)

	FetchBranch(ctx context.Context, dir, remote, branch string) error
	CreateTrackingBranch(ctx context.Context, dir, branch, remote string) error
	WriteEmptyTree(ctx context.Context, dir string) (string, error)
	CommitTree(ctx context.Context, dir, tree, message string) (string, error)
	UpdateRef(ctx context.Context, dir, ref, commit string) error
	DeleteBranch(ctx context.Context, dir, branch string) error
	PushRef(ctx context.Context, dir, remote, refspec string) error
	Push(ctx context.Context, dir, remote, branch string, setUpstream bool) error

	WorktreeAdd(ctx context.Context, dir, path, branch string) error
	WorktreeRemove(ctx context.Context, dir, path string) error
	WorktreePrune(ctx context.Context, dir string) error

	Merge(ctx context.Context, worktree, ref string) error
	MergeAbort(ctx context.Context, worktree string) error
	ConflictedPaths(ctx context.Context, worktree string) ([]string, error)
	CheckoutOurs(ctx context.Context, worktree string, paths []string) error
	AddAll(ctx context.Context, worktree string) error
	AddPath(ctx context.Context, worktree, rel string) error
	Commit(ctx context.Context, worktree, message string) error
}

// Git implements Repo with the git CLI via gitx.
type Git struct {
	Runner gitx.Runner
}

// NewGit returns a Git backed by the given runner, or the default
// subprocess runner when nil.
func NewGit(runner gitx.Runner) *Git {
	if runner == nil {
		runner = &gitx.GitRunner{}
	}
	return &Git{Runner: runner}
}

func (g *Git) IsRepo(ctx context.Context, dir string) (bool, error) {
	return gitx.IsRepo(ctx, g.Runner, dir)
}

func (g *Git) GitDir(ctx context.Context, dir string) (string, error) {
	return gitx.GitDir(ctx, g.Runner, dir)
}

func (g *Git) RemoteURL(ctx context.Context, dir, remote string) (string, bool, error) {
	return gitx.RemoteURL(ctx, g.Runner, dir, remote)
}

func (g *Git) Remotes(ctx context.Context, dir string) ([]model.Remote, error) {
	return gitx.Remotes(ctx, g.Runner, dir)
}

func (g *Git) HasLocalBranch(ctx context.Context, dir, branch string) (bool, error) {
	return gitx.HasLocalBranch(ctx, g.Runner, dir, branch)
}

func (g *Git) HasRemoteBranch(ctx context.Context, dir, remote, branch string) (bool, error) {
	return gitx.HasRemoteBranch(ctx, g.Runner, dir, remote, branch)
}

func (g *Git) RevParse(ctx context.Context, dir, ref string) (string, error) {
	return gitx.RevParse(ctx, g.Runner, dir, ref)
}

func (g *Git) AheadBehind(ctx context.Context, dir, local, upstream string) (int, int, error) {
	return gitx.AheadBehind(ctx, g.Runner, dir, local, upstream)
}

func (g *Git) HasUpstream(ctx context.Context, dir, branch string) bool {
	return gitx.HasUpstream(ctx, g.Runner, dir, branch)
}

func (g *Git) Worktrees(ctx context.Context, dir string) ([]model.WorktreeEntry, error) {
	return gitx.Worktrees(ctx, g.Runner, dir)
}

func (g *Git) FetchBranch(ctx context.Context, dir, remote, branch string) error {
	return gitx.FetchBranch(ctx, g.Runner, dir, remote, branch)
}

func (g *Git) CreateTrackingBranch(ctx context.Context, dir, branch, remote string) error {
	return gitx.CreateTrackingBranch(ctx, g.Runner, dir, branch, remote)
}

func (g *Git) WriteEmptyTree(ctx context.Context, dir string) (string, error) {
	return gitx.WriteEmptyTree(ctx, g.Runner, dir)
}

func (g *Git) CommitTree(ctx context.Context, dir, tree, message string) (string, error) {
	return gitx.CommitTree(ctx, g.Runner, dir, tree, message)
}

func (g *Git) UpdateRef(ctx context.Context, dir, ref, commit string) error {
	return gitx.UpdateRef(ctx, g.Runner, dir, ref, commit)
}

func (g *Git) DeleteBranch(ctx context.Context, dir, branch string) error {
	return gitx.DeleteBranch(ctx, g.Runner, dir, branch)
}

func (g *Git) PushRef(ctx context.Context, dir, remote, refspec string) error {
	return gitx.PushRef(ctx, g.Runner, dir, remote, refspec)
}

func (g *Git) Push(ctx context.Context, dir, remote, branch string, setUpstream bool) error {
	return gitx.Push(ctx, g.Runner, dir, remote, branch, setUpstream)
}

func (g *Git) WorktreeAdd(ctx context.Context, dir, path, branch string) error {
	return gitx.WorktreeAdd(ctx, g.Runner, dir, path, branch)
}

func (g *Git) WorktreeRemove(ctx context.Context, dir, path string) error {
	return gitx.WorktreeRemove(ctx, g.Runner, dir, path)
}

func (g *Git) WorktreePrune(ctx context.Context, dir string) error {
	return gitx.WorktreePrune(ctx, g.Runner, dir)
}

func (g *Git) Merge(ctx context.Context, worktree, ref string) error {
	return gitx.Merge(ctx, g.Runner, worktree, ref)
}

func (g *Git) MergeAbort(ctx context.Context, worktree string) error {
	return gitx.MergeAbort(ctx, g.Runner, worktree)
}

func (g *Git) ConflictedPaths(ctx context.Context, worktree string) ([]string, error) {
	return gitx.ConflictedPaths(ctx, g.Runner, worktree)
}

func (g *Git) CheckoutOurs(ctx context.Context, worktree string, paths []string) error {
	return gitx.CheckoutOurs(ctx, g.Runner, worktree, paths)
}

func (g *Git) AddAll(ctx context.Context, worktree string) error {
	return gitx.AddAll(ctx, g.Runner, worktree)
}

func (g *Git) AddPath(ctx context.Context, worktree, rel string) error {
	return gitx.AddPath(ctx, g.Runner, worktree, rel)
}

func (g *Git) Commit(ctx context.Context, worktree, message string) error {
	return gitx.Commit(ctx, g.Runner, worktree, message)
}
