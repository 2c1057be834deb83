// Package cliio holds the small input/output helpers shared by CLI
// commands: confirmation prompts and plain tab tables that do not need
// the adaptive layout of the status view.
package cliio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/skaphos/gitpost/internal/tableutil"
)

// PromptYesNo writes prompt and interprets the next input line. Only an
// explicit yes answers true; EOF or anything else declines, so a piped
// run can never confirm by accident.
func PromptYesNo(out io.Writer, in io.Reader, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, err
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	answer := strings.TrimSpace(scanner.Text())
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"), nil
}

// WriteTable renders rows as a tab-aligned table, optionally without the
// header line.
func WriteTable(out io.Writer, stripEscape, noHeaders bool, headers []string, rows [][]string) error {
	w := tableutil.New(out, stripEscape)
	lines := rows
	if !noHeaders {
		lines = append([][]string{headers}, rows...)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, strings.Join(line, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}
