// SPDX-License-Identifier: MIT
package gitpost

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitpost/internal/config"
	"github.com/skaphos/gitpost/internal/engine"
	"github.com/skaphos/gitpost/internal/inspect"
	"github.com/skaphos/gitpost/internal/registry"
	"github.com/skaphos/gitpost/internal/tableutil"
	"github.com/skaphos/gitpost/internal/termstyle"
)

type syncResult struct {
	StoreID string `json:"store_id"`
	Path    string `json:"path"`
	Outcome string `json:"outcome"`
	Queued  bool   `json:"push_queued"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Run one sync pass: fetch, merge remote posts, push queued posts",
	Long: "Performs a single replication pass for the store at path (default: the " +
		"enclosing repository) or for every registered store with --all. A pass " +
		"never rewrites history; remote posts are merged with local files winning " +
		"name collisions.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting sync")
		all, _ := cmd.Flags().GetBool("all")
		format, _ := cmd.Flags().GetString("format")
		mode, err := parseFormat(format, false)
		if err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		if all && len(args) > 0 {
			return fmt.Errorf("--all and an explicit path are mutually exclusive")
		}

		cfg, cfgPath, err := loadConfig()
		if err != nil {
			return err
		}
		debugf(cmd, "using config %s", cfgPath)

		var results []syncResult
		reg := cfg.Registry
		if all {
			reg, err = requireRegistry(cfg)
			if err != nil {
				return err
			}
			_ = reg.ValidatePaths()
			for _, entry := range reg.Entries {
				if entry.Status == registry.StatusMissing {
					results = append(results, syncResult{
						StoreID: entry.StoreID,
						Path:    entry.Path,
						Outcome: string(engine.OutcomeSkipped),
						Error:   "path missing",
					})
					continue
				}
				results = append(results, syncStore(cmd, cfg, reg, entry.Path, entry.RemoteName))
			}
		} else {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			root, err := storeRoot(cmd.Context(), target)
			if err != nil {
				return err
			}
			results = append(results, syncStore(cmd, cfg, reg, root, ""))
		}

		if reg != nil {
			if err := saveRegistry(cfg, cfgPath, reg); err != nil {
				return err
			}
		}

		switch mode {
		case formatJSON:
			setColorOutputMode(cmd, mode)
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			logOutputWriteFailure(cmd, "sync json", err)
		case formatTable:
			setColorOutputMode(cmd, mode)
			logOutputWriteFailure(cmd, "sync table", writeSyncTable(cmd, results, noHeaders))
		}

		failed := 0
		for _, res := range results {
			if !res.OK {
				failed++
			}
		}
		if failed > 0 {
			raiseExitCode(2)
		}
		infof(cmd, "sync completed: %d stores, %d failed", len(results), failed)
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("all", false, "sync every registered store")
	addFormatFlag(syncCmd, "output format: table or json")
	addNoHeadersFlag(syncCmd)

	rootCmd.AddCommand(syncCmd)
}

// syncStore runs one full pass for a single store. Failures land in the
// result so one broken store never aborts an --all run.
func syncStore(cmd *cobra.Command, cfg *config.Config, reg *registry.Registry, root, remote string) syncResult {
	res := syncResult{Path: root}
	sess := openSession(cfg, root, remote)
	defer sess.Close()

	if _, err := sess.Initialize(cmd.Context()); err != nil {
		res.Outcome = string(engine.OutcomeFailed)
		res.Error = err.Error()
		return res
	}
	outcome, err := sess.SyncOnce(cmd.Context())
	res.Outcome = string(outcome)
	res.Queued = sess.PushQueued()
	res.OK = err == nil
	if err != nil {
		res.Error = err.Error()
	}

	status, inspectErr := inspect.New(nil).InspectStore(cmd.Context(), root)
	if inspectErr == nil {
		res.StoreID = status.StoreID
		if reg != nil {
			reg.RecordSync(status.StoreID, time.Now(), res.OK)
		}
	}
	return res
}

func writeSyncTable(cmd *cobra.Command, results []syncResult, noHeaders bool) error {
	w := tableutil.New(cmd.OutOrStdout(), true)
	if err := tableutil.PrintHeaders(w, noHeaders, "STORE\tPATH\tOUTCOME\tQUEUED\tERROR"); err != nil {
		return err
	}
	for _, res := range results {
		outcome := res.Outcome
		switch engine.Outcome(res.Outcome) {
		case engine.OutcomeSucceeded:
			outcome = termstyle.Colorize(colorOutputEnabled, outcome, termstyle.Healthy)
		case engine.OutcomeSucceededWithWarning:
			outcome = termstyle.Colorize(colorOutputEnabled, outcome, termstyle.Warn)
		case engine.OutcomeFailed:
			outcome = termstyle.Colorize(colorOutputEnabled, outcome, termstyle.Error)
		}
		queued := "no"
		if res.Queued {
			queued = "yes"
		}
		if err := tableutil.Row(w, orDash(res.StoreID), res.Path, outcome, queued, orDash(res.Error)); err != nil {
			return err
		}
	}
	return w.Flush()
}
