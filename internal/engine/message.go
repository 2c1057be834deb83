// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
	"github.com/skaphos/gitpost/internal/msgfile"
)

// ErrNotInitialized marks operations on a session before a successful
// Initialize.
var ErrNotInitialized = errors.New("session not initialized")

// ErrNoLocalStore marks operations on a session whose store was never
// created locally because the write-access probe was denied.
var ErrNoLocalStore = errors.New("no local store: write access was denied")

// CreateChannel creates a channel directory and commits it so other
// writers can see it. Creating an existing channel is a benign no-op.
func (s *Session) CreateChannel(ctx context.Context, name string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	worktree, err := s.worktreeForWrite()
	if err != nil {
		return err
	}
	if err := validateChannelName(name); err != nil {
		return err
	}

	dir := filepath.Join(worktree, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create channel %s: %w", name, err)
	}
	keep := filepath.Join(dir, ".gitkeep")
	if _, err := os.Stat(keep); os.IsNotExist(err) {
		if err := os.WriteFile(keep, nil, 0o644); err != nil {
			return fmt.Errorf("create channel %s: %w", name, err)
		}
	}

	if err := s.repo.AddPath(ctx, worktree, name); err != nil {
		return fmt.Errorf("stage channel %s: %w", name, err)
	}
	if err := s.commitAndQueue(ctx, worktree, "gitpost: create channel "+name); err != nil {
		return err
	}
	s.log.Info("channel created", zap.String("channel", name))
	return nil
}

// WriteMessage writes a message file into a channel, stages it, and
// commits it. The commit sets the push queue; replication happens on
// the next sync pass. Message files are immutable: writing over an
// existing name is rejected.
func (s *Session) WriteMessage(ctx context.Context, channel, filename string, content []byte) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	worktree, err := s.worktreeForWrite()
	if err != nil {
		return err
	}
	if err := validateChannelName(channel); err != nil {
		return err
	}
	if filename == "" || filename != filepath.Base(filename) {
		return fmt.Errorf("invalid message filename %q", filename)
	}

	channelDir := filepath.Join(worktree, channel)
	if info, err := os.Stat(channelDir); err != nil || !info.IsDir() {
		return fmt.Errorf("unknown channel %q, create it first", channel)
	}
	path := filepath.Join(channelDir, filename)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("message %s already exists", filename)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	rel := channel + "/" + filename
	if err := s.repo.AddPath(ctx, worktree, rel); err != nil {
		return fmt.Errorf("stage message: %w", err)
	}
	if err := s.commitAndQueue(ctx, worktree, "gitpost: post "+rel); err != nil {
		return err
	}
	s.log.Info("message posted", zap.String("record", rel))
	return nil
}

// CommitExternalChanges stages and commits edits made directly in the
// worktree by other tooling, then queues a push. Returns true when a
// commit was created.
func (s *Session) CommitExternalChanges(ctx context.Context) (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	worktree, err := s.worktreeForWrite()
	if err != nil {
		return false, err
	}
	if err := s.repo.AddAll(ctx, worktree); err != nil {
		return false, fmt.Errorf("stage external changes: %w", err)
	}
	if err := s.repo.Commit(ctx, worktree, "gitpost: record external changes"); err != nil {
		if gitx.Classify(err) == gitx.KindNoop {
			return false, nil
		}
		return false, fmt.Errorf("commit external changes: %w", err)
	}
	s.mu.Lock()
	s.queuePushLocked()
	s.mu.Unlock()
	s.log.Info("external changes recorded")
	return true, nil
}

// ListChannels returns the store's channels, sorted.
func (s *Session) ListChannels() ([]string, error) {
	worktree, err := s.worktreeForWrite()
	if err != nil {
		return nil, err
	}
	return msgfile.Channels(worktree)
}

// ListMessages returns a channel's entries, sorted by name. Malformed
// names are listed like well-formed ones; interpretation is the
// consumer's job. A non-empty pattern narrows the listing by glob.
func (s *Session) ListMessages(channel, pattern string) ([]string, error) {
	worktree, err := s.worktreeForWrite()
	if err != nil {
		return nil, err
	}
	return msgfile.Messages(worktree, channel, pattern)
}

// HeadCommit resolves the current data branch head hash.
func (s *Session) HeadCommit(ctx context.Context) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		return "", ErrNotInitialized
	}
	return s.repo.RevParse(ctx, s.handle.Path, model.DataBranch)
}

// commitAndQueue commits staged changes and queues a push. A no-op
// commit is benign and queues nothing.
func (s *Session) commitAndQueue(ctx context.Context, worktree, message string) error {
	if err := s.repo.Commit(ctx, worktree, message); err != nil {
		if gitx.Classify(err) == gitx.KindNoop {
			return nil
		}
		return fmt.Errorf("commit: %w", err)
	}
	s.mu.Lock()
	s.queuePushLocked()
	s.mu.Unlock()
	return nil
}

// worktreeForWrite returns the worktree path of an initialized session.
func (s *Session) worktreeForWrite() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return "", ErrNotInitialized
	}
	if s.worktree == "" {
		return "", ErrNoLocalStore
	}
	return s.worktree, nil
}

func validateChannelName(name string) error {
	switch {
	case name == "":
		return errors.New("channel name is empty")
	case name == model.AttachmentsDir:
		return fmt.Errorf("%s is reserved for binary content", model.AttachmentsDir)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("channel name %q may not start with a dot", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("channel name %q may not contain path separators", name)
	default:
		return nil
	}
}
