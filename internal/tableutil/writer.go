// Package tableutil configures the column writer behind every tabular
// view: status, sync, discover, messages, and channel listings.
package tableutil

import (
	"fmt"
	"io"
	"strings"

	"github.com/liggitt/tabwriter"
)

// New creates a tabwriter with the spacing every gitpost table uses.
// stripEscape hides the markers termstyle wraps around ANSI sequences
// so colored cells still align.
func New(out io.Writer, stripEscape bool) *tabwriter.Writer {
	var flags uint
	if stripEscape {
		flags = tabwriter.StripEscape
	}
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', flags)
}

// PrintHeaders writes a tab-separated header row unless disabled.
func PrintHeaders(w io.Writer, noHeaders bool, headers string) error {
	if noHeaders {
		return nil
	}
	_, err := fmt.Fprintln(w, headers)
	return err
}

// Row writes one table row from its cells.
func Row(w io.Writer, cells ...string) error {
	_, err := fmt.Fprintln(w, strings.Join(cells, "\t"))
	return err
}
