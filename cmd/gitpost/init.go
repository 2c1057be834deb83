// SPDX-License-Identifier: MIT
package gitpost

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitpost/internal/config"
	"github.com/skaphos/gitpost/internal/inspect"
	"github.com/skaphos/gitpost/internal/registry"
	"github.com/skaphos/gitpost/internal/sortutil"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a message store in a git repository",
	Long: "Creates the data branch, the isolated message worktree, and the seed channel " +
		"in the repository at path (default: the enclosing repository), probes the remote " +
		"for write access, and registers the store. Running init on an existing store is a no-op.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		remote, _ := cmd.Flags().GetString("remote")

		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		root, err := storeRoot(cmd.Context(), target)
		if err != nil {
			return err
		}
		debugf(cmd, "initializing store in %s", root)

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfgPath, err := config.ResolveConfigPath(flagConfig, cwd)
		if err != nil {
			return err
		}
		cfg, err := config.Load(cfgPath)
		switch {
		case err == nil && force:
			defaults := config.DefaultConfig()
			cfg = &defaults
			if err := os.Remove(cfgPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove existing config %q: %w", cfgPath, err)
			}
			if err := config.Save(cfg, cfgPath); err != nil {
				return err
			}
			infof(cmd, "rewrote config at %s", cfgPath)
		case err == nil:
			debugf(cmd, "using config %s", cfgPath)
		case os.IsNotExist(err):
			cfgPath, err = config.InitConfigPath(flagConfig, cwd)
			if err != nil {
				return err
			}
			defaults := config.DefaultConfig()
			cfg = &defaults
			if err := config.Save(cfg, cfgPath); err != nil {
				return err
			}
			infof(cmd, "wrote config to %s", cfgPath)
		default:
			return err
		}

		sess := openSession(cfg, root, remote)
		defer sess.Close()
		res, err := sess.Initialize(cmd.Context())
		if err != nil {
			return err
		}

		status, err := inspect.New(nil).InspectStore(cmd.Context(), root)
		if err != nil {
			return err
		}

		reg := cfg.Registry
		if reg == nil {
			reg = &registry.Registry{}
		}
		reg.Upsert(entryForSession(sess, status))
		sortutil.SortRegistryEntries(reg.Entries)
		if err := saveRegistry(cfg, cfgPath, reg); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Initialized message store %s at %s\n", status.StoreID, root); err != nil {
			return err
		}
		if res.Writable {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Worktree: %s\n", res.WorktreePath); err != nil {
				return err
			}
		} else {
			infof(cmd, "remote denied write access; this machine follows the store read-only")
			raiseExitCode(1)
		}
		if res.HadRemoteContent {
			debugf(cmd, "joined a store that already had content")
		}
		if res.Warning != "" {
			infof(cmd, "warning: %s", res.Warning)
			raiseExitCode(1)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "rewrite the config file with defaults before initializing")
	initCmd.Flags().String("remote", "", "replication remote name (default from config)")

	rootCmd.AddCommand(initCmd)
}
