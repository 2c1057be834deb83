// SPDX-License-Identifier: MIT
package gitpost

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitpost/internal/discovery"
	"github.com/skaphos/gitpost/internal/registry"
	"github.com/skaphos/gitpost/internal/sortutil"
	"github.com/skaphos/gitpost/internal/strutil"
	"github.com/skaphos/gitpost/internal/tableutil"
	"github.com/skaphos/gitpost/internal/termstyle"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [roots...]",
	Short: "Scan directories for repositories carrying message stores",
	Long: "Walks the given roots (default: the working directory) looking for git " +
		"repositories and reports which of them already carry the message data " +
		"branch. With --write, discovered stores are recorded in the registry.",
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting discover")
		exclude, _ := cmd.Flags().GetString("exclude")
		followSymlinks, _ := cmd.Flags().GetBool("follow-symlinks")
		storesOnly, _ := cmd.Flags().GetBool("stores-only")
		write, _ := cmd.Flags().GetBool("write")
		pruneStale, _ := cmd.Flags().GetBool("prune-stale")
		format, _ := cmd.Flags().GetString("format")
		mode, err := parseFormat(format, false)
		if err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")

		cfg, cfgPath, err := loadConfig()
		if err != nil {
			return err
		}
		debugf(cmd, "using config %s", cfgPath)

		roots := args
		if len(roots) == 0 {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			roots = []string{cwd}
		}
		patterns := append([]string(nil), cfg.Exclude...)
		patterns = append(patterns, strutil.SplitCSV(exclude)...)

		results, err := discovery.Scan(cmd.Context(), discovery.Options{
			Roots:          roots,
			Exclude:        patterns,
			FollowSymlinks: followSymlinks,
		})
		if err != nil {
			return err
		}
		if storesOnly {
			results = discovery.Stores(results)
		}
		sort.SliceStable(results, func(i, j int) bool {
			return sortutil.LessStoreIDPath(results[i].StoreID, results[i].Path, results[j].StoreID, results[j].Path)
		})

		if write {
			reg := cfg.Registry
			if reg == nil {
				reg = &registry.Registry{}
			}
			now := time.Now()
			recorded := 0
			for _, result := range results {
				if !result.HasStore {
					continue
				}
				reg.Upsert(registry.Entry{
					StoreID:    result.StoreID,
					Path:       result.Path,
					RemoteURL:  result.RemoteURL,
					RemoteName: result.PrimaryRemote,
					LastSeen:   now,
					Status:     registry.StatusPresent,
				})
				recorded++
			}
			_ = reg.ValidatePaths()
			if pruneStale {
				pruned := reg.PruneStale(time.Duration(cfg.RegistryStaleDays) * 24 * time.Hour)
				if pruned > 0 {
					infof(cmd, "pruned %d stale registry entries", pruned)
				}
			}
			sortutil.SortRegistryEntries(reg.Entries)
			if err := saveRegistry(cfg, cfgPath, reg); err != nil {
				return err
			}
			infof(cmd, "recorded %d stores in the registry", recorded)
		}

		switch mode {
		case formatJSON:
			setColorOutputMode(cmd, mode)
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			logOutputWriteFailure(cmd, "discover json", err)
		case formatTable:
			setColorOutputMode(cmd, mode)
			logOutputWriteFailure(cmd, "discover table", writeDiscoverTable(cmd, results, noHeaders))
		}
		infof(cmd, "discover completed: %d repositories", len(results))
		return nil
	},
}

func init() {
	discoverCmd.Flags().String("exclude", "", "comma-separated glob patterns to exclude (in addition to config)")
	discoverCmd.Flags().Bool("follow-symlinks", false, "follow symbolic links during the scan")
	discoverCmd.Flags().Bool("stores-only", false, "report only repositories already carrying the data branch")
	discoverCmd.Flags().Bool("write", false, "record discovered stores in the registry")
	discoverCmd.Flags().Bool("prune-stale", false, "with --write, drop registry entries missing beyond the stale threshold")
	addFormatFlag(discoverCmd, "output format: table or json")
	addNoHeadersFlag(discoverCmd)

	rootCmd.AddCommand(discoverCmd)
}

func writeDiscoverTable(cmd *cobra.Command, results []discovery.Result, noHeaders bool) error {
	w := tableutil.New(cmd.OutOrStdout(), true)
	if err := tableutil.PrintHeaders(w, noHeaders, "STORE\tPATH\tBARE\tPRIMARY_REMOTE\tDATA_BRANCH"); err != nil {
		return err
	}
	for _, result := range results {
		bare := "no"
		if result.Bare {
			bare = "yes"
		}
		hasStore := termstyle.Colorize(colorOutputEnabled, "no", termstyle.Info)
		if result.HasStore {
			hasStore = termstyle.Colorize(colorOutputEnabled, "yes", termstyle.Healthy)
		}
		if err := tableutil.Row(w, result.StoreID, result.Path, bare, orDash(result.PrimaryRemote), hasStore); err != nil {
			return err
		}
	}
	return w.Flush()
}
