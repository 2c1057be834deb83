// Package discovery walks directory trees to find git repositories and
// reports which of them carry a message store branch.
package discovery

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
)

// Result represents a discovered git repository.
type Result struct {
	// Path is the absolute path to the repo root.
	Path string `json:"path"`
	// StoreID is the normalized remote URL, or the path for remote-less repos.
	StoreID string `json:"store_id"`
	// RemoteURL is the raw remote URL of the primary remote.
	RemoteURL string `json:"remote_url,omitempty"`
	// PrimaryRemote is the primary remote name.
	PrimaryRemote string `json:"primary_remote,omitempty"`
	Remotes       []model.Remote `json:"remotes,omitempty"`
	Bare          bool           `json:"bare"`
	// HasStore is true when the repo carries the message data branch.
	HasStore bool `json:"has_store"`
}

// Options configures the discovery scan.
type Options struct {
	Roots          []string
	Exclude        []string // glob patterns to skip
	FollowSymlinks bool
	Runner         gitx.Runner
}

// Scan walks all roots and returns discovered repos.
// It skips directories matching exclude patterns and does not recurse
// into .git directories or matched exclusions.
func Scan(ctx context.Context, opts Options) ([]Result, error) {
	if opts.Runner == nil {
		opts.Runner = &gitx.GitRunner{}
	}

	visited := make(map[string]struct{})
	var results []Result
	skipDirs := make(map[string]struct{})

	for _, root := range opts.Roots {
		if root == "" {
			continue
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		if err := walkRoot(ctx, absRoot, opts, visited, skipDirs, &results); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Stores filters scan results down to repositories carrying a store.
func Stores(results []Result) []Result {
	var stores []Result
	for _, res := range results {
		if res.HasStore {
			stores = append(stores, res)
		}
	}
	return stores
}

// FindRepoRoot resolves the enclosing repository root for dir, so commands
// run from a subdirectory register the store under a stable path.
func FindRepoRoot(ctx context.Context, r gitx.Runner, dir string) (string, error) {
	if r == nil {
		r = &gitx.GitRunner{}
	}
	return gitx.TopLevel(ctx, r, dir)
}

// MatchesExclude checks whether a path matches any of the given exclude
// glob patterns.
func MatchesExclude(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	slashPath := filepath.ToSlash(path)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		match, err := doublestar.Match(pattern, slashPath)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}

func walkRoot(ctx context.Context, root string, opts Options, visited map[string]struct{}, skipDirs map[string]struct{}, results *[]Result) error {
	realRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		realRoot = resolved
	}
	if _, ok := visited[realRoot]; ok {
		return nil
	}
	visited[realRoot] = struct{}{}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type()&os.ModeSymlink != 0 && d.IsDir() && !opts.FollowSymlinks {
			return fs.SkipDir
		}

		if d.IsDir() {
			if _, ok := skipDirs[path]; ok {
				return fs.SkipDir
			}
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			if MatchesExclude(path, opts.Exclude) {
				return fs.SkipDir
			}
		} else {
			return nil
		}

		isRepoRoot, bare, gitdir, err := detectRepo(ctx, opts.Runner, path)
		if err != nil {
			return err
		}
		if isRepoRoot {
			if gitdir != "" {
				skipDirs[gitdir] = struct{}{}
			}
			result, err := buildResult(ctx, opts.Runner, path, bare)
			if err != nil {
				return err
			}
			*results = append(*results, result)
			return fs.SkipDir
		}

		if d.Type()&os.ModeSymlink != 0 && d.IsDir() && opts.FollowSymlinks {
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil
			}
			info, err := os.Stat(target)
			if err != nil || !info.IsDir() {
				return nil
			}
			if err := walkRoot(ctx, target, opts, visited, skipDirs, results); err != nil {
				return err
			}
			return fs.SkipDir
		}

		return nil
	})
}

func detectRepo(ctx context.Context, r gitx.Runner, dir string) (bool, bool, string, error) {
	gitPath := filepath.Join(dir, ".git")
	if info, err := os.Stat(gitPath); err == nil {
		if info.Mode().IsRegular() {
			if gitdir, ok := gitdirFromFile(gitPath); ok {
				bare, _ := gitx.IsBare(ctx, r, dir)
				return true, bare, gitdir, nil
			}
		}
		bare, err := gitx.IsBare(ctx, r, dir)
		if err != nil {
			return true, false, "", nil
		}
		return true, bare, "", nil
	}

	// Bare repo heuristic: HEAD file and objects dir.
	if _, err := os.Stat(filepath.Join(dir, "HEAD")); err == nil {
		if info, err := os.Stat(filepath.Join(dir, "objects")); err == nil && info.IsDir() {
			return true, true, "", nil
		}
	}

	ok, err := gitx.IsRepo(ctx, r, dir)
	if err != nil {
		return false, false, "", err
	}
	if ok {
		bare, _ := gitx.IsBare(ctx, r, dir)
		return true, bare, "", nil
	}
	return false, false, "", nil
}

func gitdirFromFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "gitdir:") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(content, "gitdir:"))
	if raw == "" {
		return "", false
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw), true
	}
	return filepath.Clean(filepath.Join(filepath.Dir(path), raw)), true
}

func buildResult(ctx context.Context, r gitx.Runner, dir string, bare bool) (Result, error) {
	remotes, err := gitx.Remotes(ctx, r, dir)
	if err != nil {
		return Result{}, err
	}
	var remoteNames []string
	for _, remote := range remotes {
		remoteNames = append(remoteNames, remote.Name)
	}
	primary := gitx.PrimaryRemote(remoteNames)
	var remoteURL string
	for _, remote := range remotes {
		if remote.Name == primary {
			remoteURL = remote.URL
			break
		}
	}
	storeID := gitx.NormalizeURL(remoteURL)
	if storeID == "" {
		storeID = filepath.Clean(dir)
	}
	return Result{
		Path:          dir,
		StoreID:       storeID,
		RemoteURL:     remoteURL,
		PrimaryRemote: primary,
		Remotes:       remotes,
		Bare:          bare,
		HasStore:      hasStoreBranch(ctx, r, dir, primary),
	}, nil
}

// hasStoreBranch checks for the data branch locally, then for a
// remote-tracking ref. Both checks stay offline; a scan never dials out.
func hasStoreBranch(ctx context.Context, r gitx.Runner, dir, primary string) bool {
	if ok, _ := gitx.HasLocalBranch(ctx, r, dir, model.DataBranch); ok {
		return true
	}
	if primary == "" {
		return false
	}
	ok, _ := gitx.HasTrackingBranch(ctx, r, dir, primary, model.DataBranch)
	return ok
}
