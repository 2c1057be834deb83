// SPDX-License-Identifier: MIT
package msgfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/skaphos/gitpost/internal/model"
)

// Channels lists the channel directories of a worktree, sorted. The
// attachments directory and dot-prefixed entries (the worktree's .git
// link and similar metadata) are not channels.
func Channels(worktree string) ([]string, error) {
	entries, err := os.ReadDir(worktree)
	if err != nil {
		return nil, fmt.Errorf("read worktree %s: %w", worktree, err)
	}
	var channels []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == model.AttachmentsDir || name[0] == '.' {
			continue
		}
		channels = append(channels, name)
	}
	sort.Strings(channels)
	return channels, nil
}

// Messages lists the entries of a channel directory, sorted by name.
// Every regular file is returned whether or not its name follows the
// record protocol; interpreting or filtering malformed entries is the
// consumer's job. Dot-prefixed entries are store metadata (.gitkeep),
// not messages. A non-empty pattern narrows the listing with doublestar
// glob matching against the bare filename.
func Messages(worktree, channel, pattern string) ([]string, error) {
	dir := filepath.Join(worktree, channel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read channel %s: %w", channel, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name[0] == '.' {
			continue
		}
		if pattern != "" {
			match, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, fmt.Errorf("bad message pattern %q: %w", pattern, err)
			}
			if !match {
				continue
			}
		}
		names = append(names, name)
	}
	// Lexical order is chronological order for well-formed names.
	sort.Strings(names)
	return names, nil
}
