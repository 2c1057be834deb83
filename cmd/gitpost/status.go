// SPDX-License-Identifier: MIT
package gitpost

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitpost/internal/cliio"
	"github.com/skaphos/gitpost/internal/config"
	"github.com/skaphos/gitpost/internal/gitx"
	"github.com/skaphos/gitpost/internal/inspect"
	"github.com/skaphos/gitpost/internal/model"
	"github.com/skaphos/gitpost/internal/registry"
	"github.com/skaphos/gitpost/internal/remotemismatch"
	"github.com/skaphos/gitpost/internal/tableutil"
	"github.com/skaphos/gitpost/internal/termstyle"
)

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Report store health for registered message stores",
	Long: "Inspects every registered store (or just the one at path) and reports access " +
		"level, channel count, data branch head, and last sync outcome.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting status")
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, cfgPath, err := loadConfig()
		if err != nil {
			return err
		}
		debugf(cmd, "using config %s", cfgPath)

		format, _ := cmd.Flags().GetString("format")
		mode, err := parseFormat(format, true)
		if err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		reconcileRaw, _ := cmd.Flags().GetString("reconcile-remote-mismatch")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")
		registryOverride, _ := cmd.Flags().GetString("registry")
		reconcileMode, err := remotemismatch.ParseReconcileMode(reconcileRaw)
		if err != nil {
			return err
		}

		reg := cfg.Registry
		if registryOverride != "" {
			reg, err = registry.Load(registryOverride)
			if err != nil {
				return err
			}
		}

		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		report, reg, err := buildStatusReport(cmd, cfg, reg, target)
		if err != nil {
			return err
		}

		plans := remotemismatch.BuildPlans(report.Stores, reg, reconcileMode)
		if len(plans) > 0 {
			planOnly := dryRun || reconcileMode == remotemismatch.ReconcileNone
			logOutputWriteFailure(cmd, "status remote mismatch plan", writeRemoteMismatchPlan(cmd, plans, cwd, planOnly))
		}
		if reconcileMode != remotemismatch.ReconcileNone && !dryRun && len(plans) > 0 {
			if !yes {
				confirmed, err := cliio.PromptYesNo(cmd.ErrOrStderr(), cmd.InOrStdin(), "Proceed with remote mismatch reconciliation? [y/N]: ")
				if err != nil {
					return err
				}
				if !confirmed {
					infof(cmd, "remote mismatch reconcile cancelled")
					return nil
				}
			}
			if err := remotemismatch.ApplyPlans(cmd.Context(), plans, reg, reconcileMode, &gitx.GitRunner{}, nil); err != nil {
				return err
			}
			if reconcileMode == remotemismatch.ReconcileRegistry {
				if registryOverride != "" {
					if err := registry.Save(reg, registryOverride); err != nil {
						return err
					}
				} else if err := saveRegistry(cfg, cfgPath, reg); err != nil {
					return err
				}
			}
			// The store facts changed under either mode; report the new truth.
			report, reg, err = buildStatusReport(cmd, cfg, reg, target)
			if err != nil {
				return err
			}
		}

		switch mode {
		case formatJSON:
			setColorOutputMode(cmd, mode)
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			logOutputWriteFailure(cmd, "status json", err)
		case formatTable, formatWide:
			setColorOutputMode(cmd, mode)
			logOutputWriteFailure(cmd, "status table", writeStatusTable(cmd, report, cwd, noHeaders, mode == formatWide))
		}

		if code := statusExitCode(report, reg); code > 0 {
			raiseExitCode(code)
		}
		infof(cmd, "status completed: %d stores", len(report.Stores))
		return nil
	},
}

func init() {
	addFormatFlag(statusCmd, "output format: table, wide, or json")
	addNoHeadersFlag(statusCmd)
	statusCmd.Flags().Bool("wrap", false, "allow table columns to wrap instead of truncating")
	statusCmd.Flags().String("registry", "", "override registry file path")
	statusCmd.Flags().String("reconcile-remote-mismatch", "none", "optional reconcile mode for remote mismatch: none, registry, git")
	statusCmd.Flags().Bool("dry-run", true, "preview reconcile actions without modifying registry or git remotes")
	statusCmd.Flags().Bool("yes", false, "skip the reconcile confirmation prompt")

	rootCmd.AddCommand(statusCmd)
}

// buildStatusReport inspects either the single store at target or every
// registry entry. Registry paths are validated first so relocated or
// deleted checkouts report as such instead of as git failures.
func buildStatusReport(cmd *cobra.Command, cfg *config.Config, reg *registry.Registry, target string) (*model.StatusReport, *registry.Registry, error) {
	ins := inspect.New(nil)
	if target != "" {
		root, err := storeRoot(cmd.Context(), target)
		if err != nil {
			return nil, reg, err
		}
		if reg != nil {
			_ = reg.ValidatePaths()
			if entry := reg.FindByPath(root); entry != nil {
				scoped := &registry.Registry{Entries: []registry.Entry{*entry}}
				report, err := ins.Report(cmd.Context(), scoped, inspect.Options{Timeout: cfg.OpTimeout()})
				return report, reg, err
			}
		}
		status, err := ins.InspectStore(cmd.Context(), root)
		if err != nil {
			return nil, reg, err
		}
		report := &model.StatusReport{GeneratedAt: time.Now(), Stores: []model.StoreStatus{*status}}
		return report, reg, nil
	}

	if reg == nil || len(reg.Entries) == 0 {
		return nil, reg, fmt.Errorf("no stores registered (run `gitpost init` in a repository or `gitpost discover --write`)")
	}
	_ = reg.ValidatePaths()
	report, err := ins.Report(cmd.Context(), reg, inspect.Options{Timeout: cfg.OpTimeout()})
	return report, reg, err
}

func writeStatusTable(cmd *cobra.Command, report *model.StatusReport, cwd string, noHeaders, wide bool) error {
	w := tableutil.New(cmd.OutOrStdout(), true)
	showChannels := true
	showSync := true
	if !wide {
		width, hasWidth := tableWidth(cmd)
		switch {
		case hasWidth && width < tinyTableWidth:
			showChannels = false
			showSync = false
		case hasWidth && width < narrowTableWidth:
			showChannels = false
		}
	}
	headers := "STORE\tPATH\tACCESS"
	if showChannels {
		headers += "\tCHANNELS"
	}
	if showSync {
		headers += "\tLAST_SYNC"
	}
	if wide {
		headers = "STORE\tPATH\tACCESS\tCHANNELS\tHEAD\tREMOTE\tWORKTREE\tLAST_SYNC\tERROR_CLASS"
	}
	if err := tableutil.PrintHeaders(w, noHeaders, headers); err != nil {
		return err
	}
	wrap, _ := cmd.Flags().GetBool("wrap")
	storeMax := adaptiveCellLimit(cmd, 0, 40, 28)
	pathMax := adaptiveCellLimit(cmd, 0, 48, 32)
	now := time.Now()
	for _, store := range report.Stores {
		storeID := formatCell(store.StoreID, wrap, storeMax)
		path := formatCell(displayStorePath(store.Path, cwd), wrap, pathMax)
		access := displayAccess(colorOutputEnabled, store)
		channels := "-"
		if store.Error == "" {
			channels = fmt.Sprintf("%d", store.Channels)
		}
		lastSync := displayLastSync(colorOutputEnabled, store.LastSync, now)
		if !wide {
			row := []string{storeID, path, access}
			if showChannels {
				row = append(row, channels)
			}
			if showSync {
				row = append(row, lastSync)
			}
			if err := tableutil.Row(w, row...); err != nil {
				return err
			}
			continue
		}
		if err := tableutil.Row(
			w,
			storeID,
			path,
			access,
			channels,
			shortHash(store.Head),
			orDash(store.RemoteURL),
			orDash(displayStorePath(store.WorktreePath, cwd)),
			lastSync,
			orDash(store.ErrorClass),
		); err != nil {
			return err
		}
	}
	return w.Flush()
}

func displayAccess(colorEnabled bool, store model.StoreStatus) string {
	switch {
	case store.Error != "":
		return termstyle.Colorize(colorEnabled, "error", termstyle.Error)
	case store.ReadOnly:
		return termstyle.Colorize(colorEnabled, "read-only", termstyle.Warn)
	case store.Head == "" && store.WorktreePath == "":
		// A repository that carries no store yet.
		return termstyle.Colorize(colorEnabled, "uninitialized", termstyle.Info)
	default:
		return termstyle.Colorize(colorEnabled, "writable", termstyle.Healthy)
	}
}

func displayLastSync(colorEnabled bool, last *model.SyncRecord, now time.Time) string {
	if last == nil || last.At.IsZero() {
		return "never"
	}
	age := ageString(now.Sub(last.At))
	if !last.OK {
		return termstyle.Colorize(colorEnabled, "failed "+age, termstyle.Error)
	}
	return age
}

// ageString renders a duration as a compact single-unit age.
func ageString(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func formatCell(value string, wrap bool, max int) string {
	if wrap || max <= 0 {
		return value
	}
	return truncateASCII(value, max)
}

func truncateASCII(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func writeRemoteMismatchPlan(cmd *cobra.Command, plans []remotemismatch.Plan, cwd string, dryRun bool) error {
	if len(plans) == 0 {
		return nil
	}
	modeLabel := "planned"
	if !dryRun {
		modeLabel = "applying"
	}
	if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "Remote mismatch reconcile (%s):\n", modeLabel); err != nil {
		return err
	}
	rows := make([][]string, 0, len(plans))
	for _, plan := range plans {
		rows = append(rows, []string{
			displayStorePath(plan.Path, cwd),
			plan.Action,
			plan.PrimaryRemote,
			plan.StoreRemoteURL,
			plan.RegistryURL,
			plan.StoreID,
		})
	}
	return cliio.WriteTable(
		cmd.ErrOrStderr(),
		false,
		false,
		[]string{"PATH", "ACTION", "PRIMARY_REMOTE", "GIT_REMOTE_URL", "REGISTRY_REMOTE_URL", "STORE"},
		rows,
	)
}

func statusExitCode(report *model.StatusReport, reg *registry.Registry) int {
	code := 0
	for _, store := range report.Stores {
		if store.Error != "" {
			code = 2
		} else if store.ReadOnly && code < 1 {
			code = 1
		}
	}
	if code < 2 && reg != nil {
		for _, entry := range reg.Entries {
			if entry.Status == registry.StatusMissing || entry.Status == registry.StatusMoved {
				code = 1
				break
			}
		}
	}
	return code
}
