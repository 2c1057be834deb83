// SPDX-License-Identifier: MIT
package engine_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/skaphos/gitpost/internal/engine"
	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
)

// testingT is the slice of testing.TB the stub needs; ginkgo's GinkgoT()
// satisfies it too, so both test styles share one stub.
type testingT interface {
	Helper()
	Fatal(args ...any)
	TempDir() string
}

// storeStub simulates a host repository and its remote at the level of
// the primitives the engine uses. Worktree checkouts are materialized
// on the real filesystem so seeding, message writes, and listings hit
// actual directories. Error queues script failures per call; an empty
// queue means success.
type storeStub struct {
	t  testingT
	mu sync.Mutex

	root   string
	gitDir string

	repoOK    bool
	remoteURL string

	remoteBranch bool
	remoteHead   string
	localBranch  bool
	upstream     bool
	head         string
	behind       int

	worktrees []model.WorktreeEntry
	checkout  map[string]string

	fetchErrs       []error
	branchQueryErrs []error
	probePushErrs   []error
	probeDeleteErrs []error
	pushErrs        []error
	mergeErrs       []error
	addErrs         []error
	removeErrs      []error
	commitErrs      []error

	conflicted []string

	fetches     int
	pushes      int
	probePushes []string
	mergeAborts int
	oursPaths   [][]string
	commits     []string
}

func newStoreStub(t testingT) *storeStub {
	t.Helper()
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return &storeStub{t: t, root: root, gitDir: gitDir, repoOK: true}
}

// expectedWorktree mirrors the engine's worktree placement rule.
func (s *storeStub) expectedWorktree() string {
	return filepath.Join(s.gitDir, "gitpost", "worktree")
}

func (s *storeStub) session(opts ...engine.Option) *engine.Session {
	opts = append([]engine.Option{engine.WithRepo(s)}, opts...)
	return engine.NewSession(model.Handle{Path: s.root}, opts...)
}

func popErr(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func gitErr(output string) error {
	return &gitx.Error{Args: []string{"git"}, Output: output, Err: errors.New("exit status 1")}
}

func permissionErr() error {
	return gitErr("remote: Permission denied (publickey).")
}

func networkErr() error {
	return gitErr("fatal: unable to access 'https://host/r.git/': Connection refused")
}

func conflictErr() error {
	return gitErr("CONFLICT (content): Merge conflict\nAutomatic merge failed; fix conflicts and then commit the result.")
}

func (s *storeStub) IsRepo(context.Context, string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repoOK, nil
}

func (s *storeStub) GitDir(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gitDir, nil
}

func (s *storeStub) RemoteURL(context.Context, string, string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteURL, s.remoteURL != "", nil
}

func (s *storeStub) Remotes(context.Context, string) ([]model.Remote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteURL == "" {
		return nil, nil
	}
	return []model.Remote{{Name: "origin", URL: s.remoteURL}}, nil
}

func (s *storeStub) HasLocalBranch(context.Context, string, string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localBranch, nil
}

func (s *storeStub) HasRemoteBranch(context.Context, string, string, string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := popErr(&s.branchQueryErrs); err != nil {
		return false, err
	}
	return s.remoteBranch, nil
}

func (s *storeStub) RevParse(context.Context, string, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.localBranch {
		return "", gitErr("fatal: bad revision 'gitpost-data'")
	}
	return s.head, nil
}

func (s *storeStub) AheadBehind(context.Context, string, string, string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 0, s.behind, nil
}

func (s *storeStub) HasUpstream(context.Context, string, string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upstream
}

func (s *storeStub) Worktrees(context.Context, string) ([]model.WorktreeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.WorktreeEntry(nil), s.worktrees...), nil
}

func (s *storeStub) FetchBranch(context.Context, string, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if err := popErr(&s.fetchErrs); err != nil {
		return err
	}
	if !s.remoteBranch {
		return gitErr("fatal: couldn't find remote ref gitpost-data")
	}
	return nil
}

func (s *storeStub) CreateTrackingBranch(context.Context, string, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localBranch = true
	s.head = s.remoteHead
	s.upstream = true
	return nil
}

func (s *storeStub) WriteEmptyTree(context.Context, string) (string, error) {
	return "4b825dc642cb6eb9a060e54bf8d69288fbee4904", nil
}

func (s *storeStub) CommitTree(context.Context, string, string, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "root" + fmt.Sprintf("%04d", len(s.commits)), nil
}

func (s *storeStub) UpdateRef(_ context.Context, _, _, commit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localBranch = true
	s.head = commit
	return nil
}

func (s *storeStub) DeleteBranch(context.Context, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localBranch = false
	s.head = ""
	return nil
}

func (s *storeStub) PushRef(_ context.Context, _, _, refspec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probePushes = append(s.probePushes, refspec)
	if strings.HasPrefix(refspec, ":") {
		return popErr(&s.probeDeleteErrs)
	}
	return popErr(&s.probePushErrs)
}

func (s *storeStub) Push(_ context.Context, _, _, _ string, setUpstream bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes++
	if err := popErr(&s.pushErrs); err != nil {
		return err
	}
	s.remoteBranch = true
	s.remoteHead = s.head
	if setUpstream {
		s.upstream = true
	}
	return nil
}

func (s *storeStub) WorktreeAdd(_ context.Context, _, path, branch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := popErr(&s.addErrs); err != nil {
		return err
	}
	if !s.localBranch {
		return gitErr("fatal: invalid reference: " + branch)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(path, ".git"), []byte("gitdir: "+s.gitDir+"\n"), 0o644); err != nil {
		return err
	}
	for name, content := range s.checkout {
		p := filepath.Join(path, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	s.worktrees = append(s.worktrees, model.WorktreeEntry{Path: path, Head: s.head, Branch: branch})
	return nil
}

func (s *storeStub) WorktreeRemove(_ context.Context, _, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := popErr(&s.removeErrs); err != nil {
		return err
	}
	var rest []model.WorktreeEntry
	found := false
	for _, wt := range s.worktrees {
		if wt.Path == path {
			found = true
			continue
		}
		rest = append(rest, wt)
	}
	if !found {
		return gitErr("fatal: '" + path + "' is not a working tree")
	}
	s.worktrees = rest
	return os.RemoveAll(path)
}

func (s *storeStub) WorktreePrune(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rest []model.WorktreeEntry
	for _, wt := range s.worktrees {
		if _, err := os.Stat(wt.Path); err == nil {
			rest = append(rest, wt)
		}
	}
	s.worktrees = rest
	return nil
}

func (s *storeStub) Merge(context.Context, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := popErr(&s.mergeErrs); err != nil {
		return err
	}
	if s.behind == 0 {
		return nil
	}
	s.behind = 0
	s.head = "merged-" + s.remoteHead
	return nil
}

func (s *storeStub) MergeAbort(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeAborts++
	return nil
}

func (s *storeStub) ConflictedPaths(context.Context, string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.conflicted...), nil
}

func (s *storeStub) CheckoutOurs(_ context.Context, _ string, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oursPaths = append(s.oursPaths, append([]string(nil), paths...))
	return nil
}

func (s *storeStub) AddAll(context.Context, string) error { return nil }

func (s *storeStub) AddPath(context.Context, string, string) error { return nil }

func (s *storeStub) Commit(_ context.Context, _, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := popErr(&s.commitErrs); err != nil {
		return err
	}
	s.commits = append(s.commits, message)
	s.head = fmt.Sprintf("local%04d", len(s.commits))
	return nil
}

func (s *storeStub) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *storeStub) Pushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes
}

func (s *storeStub) Commits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commits...)
}

func (s *storeStub) ProbePushes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.probePushes...)
}

func (s *storeStub) MergeAborts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeAborts
}

func (s *storeStub) OursPaths() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.oursPaths...)
}

func (s *storeStub) WorktreeEntries() []model.WorktreeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.WorktreeEntry(nil), s.worktrees...)
}

func (s *storeStub) Head() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

func (s *storeStub) LocalBranch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localBranch
}

func (s *storeStub) RemoteBranch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteBranch
}

func (s *storeStub) Upstream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upstream
}

func (s *storeStub) SetBehind(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behind = n
}

// eventCollector gathers events via the synchronous callback.
type eventCollector struct {
	mu     sync.Mutex
	events []engine.Event
}

func (c *eventCollector) add(ev engine.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *eventCollector) kinds() []engine.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]engine.EventKind, 0, len(c.events))
	for _, ev := range c.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (c *eventCollector) count(kind engine.EventKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (c *eventCollector) last(kind engine.EventKind) (engine.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Kind == kind {
			return c.events[i], true
		}
	}
	return engine.Event{}, false
}
