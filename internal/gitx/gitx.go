// Package gitx executes git primitives and parses their output. It shells
// out to the installed git binary and is the only package allowed to
// inspect git's unstructured error text.
package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/skaphos/gitpost/internal/model"
)

// Runner executes git commands in a given directory.
// This interface allows mocking in tests.
type Runner interface {
	// Run executes a git command in the given directory and returns
	// combined stdout/stderr output.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// GitRunner is the default Runner implementation that shells out to git.
type GitRunner struct {
	// GitBin is the path to the git binary. Defaults to "git".
	GitBin string
}

// Run executes a git command. Failures are returned as *Error so the
// classifier can see the combined output text.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, &Error{Args: args, Dir: dir, Output: output, Err: err}
	}
	return output, nil
}

// Error records a failed git invocation. Output holds the combined
// stdout/stderr text git emitted, which is the only failure signal the
// tool exposes for most operations.
type Error struct {
	Args   []string
	Dir    string
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsRepo checks whether the given path is inside a git working tree.
func IsRepo(ctx context.Context, r Runner, dir string) (bool, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(out) == "true", nil
}

// GitDir resolves the absolute git metadata directory for the repository
// containing dir.
func GitDir(ctx context.Context, r Runner, dir string) (string, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", fmt.Errorf("resolve git dir: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// TopLevel resolves the root of the working tree containing dir.
func TopLevel(ctx context.Context, r Runner, dir string) (string, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("resolve worktree root: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// IsBare reports whether dir points into a bare repository.
func IsBare(ctx context.Context, r Runner, dir string) (bool, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "--is-bare-repository")
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(out) == "true", nil
}

// RemoteURL returns the URL of the named remote and whether it exists.
func RemoteURL(ctx context.Context, r Runner, dir, remote string) (string, bool, error) {
	out, err := r.Run(ctx, dir, "remote", "get-url", remote)
	if err != nil {
		// An unconfigured remote is a normal local-only state, not a failure.
		return "", false, nil
	}
	return strings.TrimSpace(out), true, nil
}

// Remotes returns all configured remotes for the repo.
func Remotes(ctx context.Context, r Runner, dir string) ([]model.Remote, error) {
	out, err := r.Run(ctx, dir, "remote")
	if err != nil {
		return nil, fmt.Errorf("git remote: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	var remotes []model.Remote
	for _, name := range strings.Split(strings.TrimSpace(out), "\n") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		url, err := r.Run(ctx, dir, "remote", "get-url", name)
		if err != nil {
			continue
		}
		remotes = append(remotes, model.Remote{Name: name, URL: strings.TrimSpace(url)})
	}
	return remotes, nil
}

// HasLocalBranch reports whether the branch exists in refs/heads.
func HasLocalBranch(ctx context.Context, r Runner, dir, branch string) (bool, error) {
	_, err := r.Run(ctx, dir, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// HasTrackingBranch reports whether a remote-tracking ref for the branch
// exists locally. Unlike HasRemoteBranch this never touches the network,
// so the answer can lag behind the server.
func HasTrackingBranch(ctx context.Context, r Runner, dir, remote, branch string) (bool, error) {
	_, err := r.Run(ctx, dir, "rev-parse", "--verify", "--quiet", "refs/remotes/"+remote+"/"+branch)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// HasRemoteBranch asks the remote whether it carries the branch. This
// contacts the server so the answer stays truthful even when local
// remote-tracking refs are stale.
func HasRemoteBranch(ctx context.Context, r Runner, dir, remote, branch string) (bool, error) {
	out, err := r.Run(ctx, dir, "ls-remote", "--heads", remote, "refs/heads/"+branch)
	if err != nil {
		return false, fmt.Errorf("ls-remote %s: %w", remote, err)
	}
	return strings.TrimSpace(out) != "", nil
}

// RevParse resolves a ref to a full commit hash.
func RevParse(ctx context.Context, r Runner, dir, ref string) (string, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "--verify", ref)
	if err != nil {
		return "", fmt.Errorf("rev-parse %s: %w", ref, err)
	}
	return strings.TrimSpace(out), nil
}

// AheadBehind counts commits unique to each side of local...upstream.
func AheadBehind(ctx context.Context, r Runner, dir, local, upstream string) (int, int, error) {
	out, err := r.Run(ctx, dir, "rev-list", "--left-right", "--count", local+"..."+upstream)
	if err != nil {
		return 0, 0, fmt.Errorf("rev-list %s...%s: %w", local, upstream, err)
	}
	ahead, behind := ParseRevListCount(out)
	return ahead, behind, nil
}

// HasUpstream reports whether the branch has an upstream configured.
func HasUpstream(ctx context.Context, r Runner, dir, branch string) bool {
	out, err := r.Run(ctx, dir, "config", "--get", "branch."+branch+".remote")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) != ""
}

// Worktrees enumerates all registered worktrees of the repository.
func Worktrees(ctx context.Context, r Runner, dir string) ([]model.WorktreeEntry, error) {
	out, err := r.Run(ctx, dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("worktree list: %w", err)
	}
	return ParseWorktreeList(out), nil
}
