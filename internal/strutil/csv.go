// SPDX-License-Identifier: MIT

// Package strutil holds small string helpers shared by the CLI.
package strutil

import "strings"

// SplitCSV splits a comma-separated flag value into its fields,
// trimming whitespace and dropping empty entries.
func SplitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var fields []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields = append(fields, part)
	}
	return fields
}
