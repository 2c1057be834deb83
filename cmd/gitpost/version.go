package gitpost

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), Version)
			return err
		}
		_, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"gitpost %s\n  commit:  %s\n  built:   %s\n  go:      %s\n  os/arch: %s/%s\n",
			Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH,
		)
		return err
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}
