// SPDX-License-Identifier: MIT
package msgfile_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/skaphos/gitpost/internal/msgfile"
)

func seedWorktree(t *testing.T) string {
	t.Helper()
	worktree := t.TempDir()
	for _, dir := range []string{"general", "dev", "attachments", ".git"} {
		if err := os.MkdirAll(filepath.Join(worktree, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	files := map[string]string{
		"general/20260101T080000-alice-a1b2c3.md": "from: alice\ndate: 2026-01-01T08:00:00Z\n\nhi\n",
		"general/20260101T090000-bob-d4e5f6.md":   "from: bob\ndate: 2026-01-01T09:00:00Z\n\nhey\n",
		"general/20260102T100000-alice-g7h8i9.md": "from: alice\ndate: 2026-01-02T10:00:00Z\n\nmore\n",
		"general/notes.txt":                       "not a message",
		"general/README.md":                       "also not a message",
		"general/.gitkeep":                        "",
		"dev/.gitkeep":                            "",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(worktree, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return worktree
}

func TestChannels(t *testing.T) {
	worktree := seedWorktree(t)
	channels, err := msgfile.Channels(worktree)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"dev", "general"}
	if !reflect.DeepEqual(channels, want) {
		t.Fatalf("unexpected channels: got %v want %v", channels, want)
	}
}

func TestMessagesListsMalformedEntries(t *testing.T) {
	worktree := seedWorktree(t)
	names, err := msgfile.Messages(worktree, "general", "")
	if err != nil {
		t.Fatal(err)
	}
	// Three well-formed records plus two malformed files; .gitkeep is
	// metadata and stays hidden.
	want := []string{
		"20260101T080000-alice-a1b2c3.md",
		"20260101T090000-bob-d4e5f6.md",
		"20260102T100000-alice-g7h8i9.md",
		"README.md",
		"notes.txt",
	}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("unexpected listing: got %v want %v", names, want)
	}
}

func TestMessagesPatternFilter(t *testing.T) {
	worktree := seedWorktree(t)
	names, err := msgfile.Messages(worktree, "general", "*-alice-*.md")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"20260101T080000-alice-a1b2c3.md",
		"20260102T100000-alice-g7h8i9.md",
	}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("unexpected filtered listing: got %v want %v", names, want)
	}
}

func TestMessagesBadPattern(t *testing.T) {
	worktree := seedWorktree(t)
	if _, err := msgfile.Messages(worktree, "general", "["); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}

func TestMessagesMissingChannel(t *testing.T) {
	worktree := seedWorktree(t)
	if _, err := msgfile.Messages(worktree, "nope", ""); err == nil {
		t.Fatal("expected error for missing channel")
	}
}

func TestMessagesEmptyChannel(t *testing.T) {
	worktree := seedWorktree(t)
	names, err := msgfile.Messages(worktree, "dev", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty listing, got %v", names)
	}
}
