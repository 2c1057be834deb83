// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/model"
)

const seedReadme = `# Message store

This branch holds a GitPost message store. Channels are directories,
messages are files; see PROTOCOL.md for the record format. Do not edit
this branch by hand unless you know what you are doing.
`

const seedProtocol = `# GitPost record protocol

- Every top-level directory except attachments/ is a channel.
- A message is a file named {YYYYMMDDTHHMMSS}-{sender}-{id}.md with a
  UTC timestamp, a lowercase alphanumeric sender, and a 6 character
  random id.
- A message starts with a YAML header (required: from, date; optional:
  reply_to, tags, edited, attachments, images, files), then a blank
  line, then free text.
- Messages are never rewritten. Edits and deletions are new operations
  on new files; binary content goes under attachments/.
`

// seedWorktree populates a brand-new store with the default layout: one
// default channel, the attachments directory, and the protocol docs,
// committed as one snapshot. Runs only for a freshly fabricated branch,
// and backs off when the worktree already holds content, so data left
// by an interrupted earlier run is never clobbered.
func (s *Session) seedWorktree(ctx context.Context, worktree string) error {
	entries, err := os.ReadDir(worktree)
	if err != nil {
		return fmt.Errorf("inspect worktree for seeding: %w", err)
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		s.log.Info("seed skipped, worktree has content", zap.String("found", entry.Name()))
		return nil
	}

	files := map[string]string{
		"README.md":   seedReadme,
		"PROTOCOL.md": seedProtocol,
		filepath.Join(model.SeedChannel, ".gitkeep"):    "",
		filepath.Join(model.AttachmentsDir, ".gitkeep"): "",
	}
	for name, content := range files {
		path := filepath.Join(worktree, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}

	if err := s.repo.AddAll(ctx, worktree); err != nil {
		return fmt.Errorf("stage seed: %w", err)
	}
	if err := s.repo.Commit(ctx, worktree, "gitpost: initialize message store"); err != nil {
		if gitx.Classify(err) != gitx.KindNoop {
			return fmt.Errorf("commit seed: %w", err)
		}
	}
	s.log.Info("store seeded", zap.String("worktree", worktree))
	return nil
}
