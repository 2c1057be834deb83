// SPDX-License-Identifier: MIT

// Package termstyle provides the ANSI palette for gitpost's tabular
// output. Values are colored by meaning rather than by column: healthy
// green, warning yellow, error red, informational blue.
package termstyle

import "github.com/liggitt/tabwriter"

const (
	Reset  = "\x1b[0m"
	Green  = "\x1b[32m"
	Yellow = "\x1b[33m"
	Red    = "\x1b[31m"
	Blue   = "\x1b[34m"

	Healthy = Green
	Warn    = Yellow
	Error   = Red
	Info    = Blue
)

// escape brackets a cell's ANSI sequences so tabwriter measures only
// the visible characters when sizing columns.
var escape = string([]byte{tabwriter.Escape})

// Colorize wraps value in color when enabled. Empty values and empty
// colors pass through untouched.
func Colorize(enabled bool, value, color string) string {
	if !enabled || value == "" || color == "" {
		return value
	}
	return escape + color + escape + value + escape + Reset + escape
}
