// Package gitpost contains the Cobra command tree for the GitPost CLI.
package gitpost

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Persistent flags shared by every subcommand.
var (
	flagVerbose int
	flagQuiet   bool
	flagConfig  string
	flagNoColor bool
)

// Per-run state. exitCode carries the worst severity any subcommand
// reported: 0 clean, 1 a store degraded (read-only latch, sync
// warning), 2 a store operation failed, 3 usage or fatal errors.
var (
	colorOutputEnabled bool
	exitCode           int
)

// Test seams.
var (
	isTerminalFD = term.IsTerminal
	exitFunc     = os.Exit
)

var rootCmd = &cobra.Command{
	Use:   "gitpost",
	Short: "Share messages through a git repository",
	Long: "GitPost turns a git repository you already push to into a multi-writer " +
		"message store: channels are directories, messages are immutable files, " +
		"and plain commits replicate them between machines.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Honor the NO_COLOR convention as if --no-color was passed.
		if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
			flagNoColor = true
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.CountVarP(&flagVerbose, "verbose", "v", "increase output verbosity (repeatable)")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress non-essential output")
	pf.StringVar(&flagConfig, "config", "", "override config file path")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits the process.
func Execute() {
	exitFunc(ExecuteWithExitCode())
}

// ExecuteWithExitCode runs the root command and returns the shell exit
// code instead of exiting, so tests can drive full command runs.
func ExecuteWithExitCode() int {
	exitCode = 0
	colorOutputEnabled = false
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 3
	}
	return exitCode
}

// raiseExitCode records a severity; a later lower severity never
// shadows an earlier higher one.
func raiseExitCode(code int) {
	if code > exitCode {
		exitCode = code
	}
}

// infof prints user-facing progress to stderr unless --quiet.
func infof(cmd *cobra.Command, format string, args ...any) {
	if flagQuiet {
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

// debugf prints extra detail to stderr when -v was given; --quiet wins.
func debugf(cmd *cobra.Command, format string, args ...any) {
	if flagVerbose <= 0 || flagQuiet {
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

func setColorOutputMode(cmd *cobra.Command, format string) {
	colorOutputEnabled = shouldUseColorOutput(cmd, format)
}

// shouldUseColorOutput enables color only for tabular formats going to
// a real terminal. Machine formats (json, yaml) and piped output stay
// plain so downstream tools never see escape sequences.
func shouldUseColorOutput(cmd *cobra.Command, format string) bool {
	if flagNoColor {
		return false
	}
	if !isTabularFormat(format) {
		return false
	}
	file, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isTerminalFD(int(file.Fd()))
}

func isTabularFormat(format string) bool {
	f := strings.ToLower(strings.TrimSpace(format))
	return f == "table" || f == "wide"
}
