// SPDX-License-Identifier: MIT

// Package watcher observes a store worktree for out-of-band edits.
// Editors and scripts that write message files directly leave the
// worktree dirty; the watcher coalesces those change bursts and hands
// them to the session as a single external-changes commit, which also
// queues the push.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period required after the last observed
// change before a commit is attempted.
const DefaultDebounce = 500 * time.Millisecond

// Committer records out-of-band worktree edits as a commit and queues
// the push. *engine.Session satisfies it.
type Committer interface {
	CommitExternalChanges(ctx context.Context) (bool, error)
}

// Options tunes a Watcher.
type Options struct {
	// Debounce is the quiet period before committing a change burst.
	// Zero means DefaultDebounce.
	Debounce time.Duration
	// Ignore holds doublestar globs, matched against the slash-separated
	// path relative to the worktree. Matched paths never trigger commits.
	Ignore []string
	// Logger receives watch diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// Watcher tails filesystem events under a worktree and commits external
// edits after each burst settles.
type Watcher struct {
	worktree string
	commit   Committer
	debounce time.Duration
	ignore   []string
	log      *zap.Logger
	notify   *fsnotify.Watcher
}

// New builds a Watcher over the worktree rooted at path. The worktree
// and every directory below it are registered; directories created
// while watching are picked up from their create events.
func New(path string, commit Committer, opts Options) (*Watcher, error) {
	if commit == nil {
		return nil, errors.New("watcher: nil committer")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", path)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start watcher: %w", err)
	}
	w := &Watcher{
		worktree: filepath.Clean(path),
		commit:   commit,
		debounce: debounce,
		ignore:   opts.Ignore,
		log:      log,
		notify:   notify,
	}
	if err := w.addTree(w.worktree); err != nil {
		notify.Close()
		return nil, err
	}
	return w, nil
}

// Close stops delivery of filesystem events and unblocks Run.
func (w *Watcher) Close() error { return w.notify.Close() }

// Run consumes filesystem events until ctx is done or the watcher is
// closed. Each burst of relevant events is followed, after the debounce
// quiet period, by one CommitExternalChanges call. Commit failures are
// logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	// The timer starts drained so the only receive on its channel is
	// the select below.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.notify.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				w.maybeWatchDir(ev.Name)
			}
			w.log.Debug("worktree change", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			if committed, err := w.commit.CommitExternalChanges(ctx); err != nil {
				w.log.Warn("external changes commit failed", zap.Error(err))
			} else if committed {
				w.log.Info("external changes committed")
			}
		}
	}
}

// relevant filters events down to content changes on paths the store
// cares about. Pure permission-bit churn never dirties the tree.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	return !w.shouldIgnore(ev.Name)
}

// shouldIgnore reports whether path is git metadata, dot-prefixed, or
// matches a configured ignore glob.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.worktree, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	for _, segment := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	slashed := filepath.ToSlash(rel)
	for _, pattern := range w.ignore {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return true
		}
	}
	return false
}

// maybeWatchDir registers a newly created directory, typically a fresh
// channel, so files written inside it are observed too.
func (w *Watcher) maybeWatchDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.notify.Add(path); err != nil {
		w.log.Warn("watch new directory", zap.String("path", path), zap.Error(err))
	}
}

// addTree registers root and every non-ignored directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.notify.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
