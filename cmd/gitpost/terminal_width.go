// SPDX-License-Identifier: MIT
package gitpost

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Status tables degrade in two steps instead of wrapping: below
// narrowTableWidth columns the least useful column is dropped and long
// cells are truncated harder; below tinyTableWidth the table keeps only
// what identifies a store and whether it is usable.
const (
	narrowTableWidth = 100
	tinyTableWidth   = 80
)

// getTerminalSize is swapped out by tests that simulate a TTY.
var getTerminalSize = term.GetSize

// tableWidth reports the column count of the terminal the command
// writes to. ok is false when output is not a terminal (pipes, files,
// test buffers), in which case tables render at full width.
func tableWidth(cmd *cobra.Command) (width int, ok bool) {
	if cmd == nil {
		return 0, false
	}
	file, isFile := cmd.OutOrStdout().(*os.File)
	if !isFile {
		return 0, false
	}
	fd := int(file.Fd())
	if !isTerminalFD(fd) {
		return 0, false
	}
	width, _, err := getTerminalSize(fd)
	if err != nil || width <= 0 {
		return 0, false
	}
	return width, true
}

// adaptiveCellLimit picks a truncation limit for a table cell based on
// the terminal the command writes to. Zero means unlimited.
func adaptiveCellLimit(cmd *cobra.Command, normal, narrow, tiny int) int {
	width, ok := tableWidth(cmd)
	if !ok {
		return normal
	}
	return adaptiveCellLimitForWidth(width, normal, narrow, tiny)
}

// adaptiveCellLimitForWidth resolves the limit for a known width. A
// zero narrow or tiny value means that band imposes no limit of its own
// and the wider band's value applies instead.
func adaptiveCellLimitForWidth(width, normal, narrow, tiny int) int {
	if width <= 0 {
		return normal
	}
	if width < tinyTableWidth && tiny > 0 {
		return tiny
	}
	if width < narrowTableWidth && narrow > 0 {
		return narrow
	}
	return normal
}
