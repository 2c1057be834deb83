package gitx

import (
	"strconv"
	"strings"

	"github.com/skaphos/gitpost/internal/model"
)

// ParseWorktreeList parses the output of `git worktree list --porcelain`.
//
// Entries are blank-line separated blocks:
//
//	worktree /abs/path
//	HEAD <hash>
//	branch refs/heads/<name>
//
// with optional attribute lines such as "bare", "detached",
// "locked [reason]" and "prunable [reason]".
func ParseWorktreeList(output string) []model.WorktreeEntry {
	if strings.TrimSpace(output) == "" {
		return nil
	}
	var entries []model.WorktreeEntry
	var cur *model.WorktreeEntry
	flush := func() {
		if cur != nil {
			entries = append(entries, *cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur = &model.WorktreeEntry{Path: strings.TrimPrefix(line, "worktree ")}
		case cur == nil:
			// Attribute line with no open entry; tolerate and skip.
			continue
		case strings.HasPrefix(line, "HEAD "):
			cur.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = shortRef(strings.TrimPrefix(line, "branch "))
		case line == "bare":
			cur.Bare = true
		case line == "detached":
			cur.Detached = true
		case strings.HasPrefix(line, "prunable"):
			cur.Prunable = true
		}
	}
	flush()
	return entries
}

func shortRef(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), "refs/heads/")
}

// ParseRevListCount parses the output of:
//
//	git rev-list --left-right --count <local>...<upstream>
//
// Returns (ahead, behind).
func ParseRevListCount(output string) (int, int) {
	output = strings.TrimSpace(output)
	if output == "" {
		return 0, 0
	}
	parts := strings.Fields(output)
	if len(parts) != 2 {
		return 0, 0
	}
	ahead, _ := strconv.Atoi(parts[0])
	behind, _ := strconv.Atoi(parts[1])
	return ahead, behind
}
