package gitpost

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const noHeadersUsage = "when using table format, do not print headers"

func addFormatFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("format", "o", "table", usage)
}

func addNoHeadersFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("no-headers", false, noHeadersUsage)
}

const (
	formatTable = "table"
	formatWide  = "wide"
	formatJSON  = "json"
)

// parseFormat normalizes the --format value. Wide is tabular with every
// column; callers that have no wide rendering pass allowWide false.
func parseFormat(raw string, allowWide bool) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	switch format {
	case "", formatTable:
		return formatTable, nil
	case formatWide:
		if allowWide {
			return formatWide, nil
		}
	case formatJSON:
		return formatJSON, nil
	}
	return "", fmt.Errorf("unsupported format %q", raw)
}
