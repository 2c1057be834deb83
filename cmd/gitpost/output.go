package gitpost

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// logOutputWriteFailure swallows write/flush errors on the output
// stream. A reader that hangs up early (`gitpost messages | head`) must
// not turn a successful operation into a failed command; the error is
// still visible under -v.
func logOutputWriteFailure(cmd *cobra.Command, context string, err error) {
	if err == nil {
		return
	}
	debugf(cmd, "ignored output write failure (%s): %v", context, err)
}

// shortHash abbreviates a commit hash for table cells.
func shortHash(hash string) string {
	if hash == "" {
		return "-"
	}
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// orDash substitutes "-" for blank cells so empty columns stay visible.
func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

// displayStorePath prefers a path relative to the working directory
// when the store sits below it; registry entries keep absolute paths.
func displayStorePath(path, cwd string) string {
	if path == "" {
		return path
	}
	if rel, ok := relWithin(cwd, path); ok {
		return rel
	}
	return path
}

// relWithin reports target relative to base, but only when target is
// strictly inside base; everything else stays absolute.
func relWithin(base, target string) (string, bool) {
	if strings.TrimSpace(base) == "" || strings.TrimSpace(target) == "" {
		return "", false
	}
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return "", false
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil || rel == "." || rel == ".." {
		return "", false
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
