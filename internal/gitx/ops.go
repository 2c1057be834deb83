// SPDX-License-Identifier: MIT
package gitx

import (
	"context"
	"fmt"
	"strings"
)

// FetchBranch fetches a single branch from the remote. Fetches are always
// scoped to one branch; the engine never pulls the whole ref namespace of
// a shared repository.
func FetchBranch(ctx context.Context, r Runner, dir, remote, branch string) error {
	_, err := r.Run(ctx, dir, "fetch", "--no-tags", remote, branch)
	return err
}

// CreateTrackingBranch creates a local branch tracking remote/branch
// without checking anything out.
func CreateTrackingBranch(ctx context.Context, r Runner, dir, branch, remote string) error {
	_, err := r.Run(ctx, dir, "branch", "--track", branch, remote+"/"+branch)
	return err
}

// WriteEmptyTree writes the empty tree object to the object database and
// returns its hash. Pure object-database operation; no working tree is
// touched.
func WriteEmptyTree(ctx context.Context, r Runner, dir string) (string, error) {
	out, err := r.Run(ctx, dir, "hash-object", "-w", "-t", "tree", "/dev/null")
	if err != nil {
		return "", fmt.Errorf("write empty tree: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// CommitTree creates a parentless commit on the given tree and returns
// its hash.
func CommitTree(ctx context.Context, r Runner, dir, tree, message string) (string, error) {
	out, err := r.Run(ctx, dir, "commit-tree", tree, "-m", message)
	if err != nil {
		return "", fmt.Errorf("commit-tree %s: %w", tree, err)
	}
	return strings.TrimSpace(out), nil
}

// UpdateRef points a ref at a commit, creating it when absent.
func UpdateRef(ctx context.Context, r Runner, dir, ref, commit string) error {
	_, err := r.Run(ctx, dir, "update-ref", ref, commit)
	return err
}

// DeleteBranch force-deletes a local branch.
func DeleteBranch(ctx context.Context, r Runner, dir, branch string) error {
	_, err := r.Run(ctx, dir, "branch", "-D", branch)
	return err
}

// PushRef pushes an arbitrary refspec. An empty source side
// (":refs/...") deletes the remote ref.
func PushRef(ctx context.Context, r Runner, dir, remote, refspec string) error {
	_, err := r.Run(ctx, dir, "push", remote, refspec)
	return err
}

// Push pushes the branch, optionally configuring it as upstream.
func Push(ctx context.Context, r Runner, dir, remote, branch string, setUpstream bool) error {
	args := []string{"push"}
	if setUpstream {
		args = append(args, "--set-upstream")
	}
	args = append(args, remote, branch)
	_, err := r.Run(ctx, dir, args...)
	return err
}

// WorktreeAdd attaches a new worktree for the branch at path.
func WorktreeAdd(ctx context.Context, r Runner, dir, path, branch string) error {
	_, err := r.Run(ctx, dir, "worktree", "add", path, branch)
	return err
}

// WorktreeRemove removes a registered worktree. Force is always used:
// the caller only removes worktrees it owns, and stale metadata would
// otherwise block removal.
func WorktreeRemove(ctx context.Context, r Runner, dir, path string) error {
	_, err := r.Run(ctx, dir, "worktree", "remove", "--force", path)
	return err
}

// WorktreePrune drops worktree registrations whose directories are gone.
func WorktreePrune(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, dir, "worktree", "prune")
	return err
}

// Merge merges ref into the branch checked out in the worktree.
// Unrelated histories are allowed: a store bootstrapped offline has an
// independent root commit that must still converge with the remote.
func Merge(ctx context.Context, r Runner, worktree, ref string) error {
	_, err := r.Run(ctx, worktree, "merge", "--no-edit", "--allow-unrelated-histories", ref)
	return err
}

// MergeAbort abandons an in-progress merge.
func MergeAbort(ctx context.Context, r Runner, worktree string) error {
	_, err := r.Run(ctx, worktree, "merge", "--abort")
	return err
}

// ConflictedPaths lists paths still unmerged in the index.
func ConflictedPaths(ctx context.Context, r Runner, worktree string) ([]string, error) {
	out, err := r.Run(ctx, worktree, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// CheckoutOurs forces the given paths back to the local side of an
// in-progress merge.
func CheckoutOurs(ctx context.Context, r Runner, worktree string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"checkout", "--ours", "--"}, paths...)
	_, err := r.Run(ctx, worktree, args...)
	return err
}

// AddAll stages every change in the worktree.
func AddAll(ctx context.Context, r Runner, worktree string) error {
	_, err := r.Run(ctx, worktree, "add", "-A")
	return err
}

// AddPath stages a single path.
func AddPath(ctx context.Context, r Runner, worktree, rel string) error {
	_, err := r.Run(ctx, worktree, "add", "--", rel)
	return err
}

// Commit records staged changes. Committing with nothing staged returns
// an error that classifies as KindNoop; callers treat that as benign.
func Commit(ctx context.Context, r Runner, worktree, message string) error {
	_, err := r.Run(ctx, worktree, "commit", "-m", message)
	return err
}

// SetRemoteURL rewrites the fetch/push URL of an existing remote.
func SetRemoteURL(ctx context.Context, r Runner, dir, remote, url string) error {
	_, err := r.Run(ctx, dir, "remote", "set-url", remote, url)
	return err
}
