// SPDX-License-Identifier: MIT
package gitpost

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitpost/internal/engine"
	"github.com/skaphos/gitpost/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Keep the store in sync until interrupted",
	Long: "Runs the background sync loop and watches the worktree for out-of-band " +
		"edits. Posts made by other tooling are committed after a quiet period; " +
		"remote posts are merged as they arrive. Stops on SIGINT or SIGTERM.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetInt("interval")

		cfg, cfgPath, err := loadConfig()
		if err != nil {
			return err
		}
		debugf(cmd, "using config %s", cfgPath)
		if interval > 0 {
			cfg.Defaults.SyncIntervalSeconds = interval
		}

		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		root, err := storeRoot(cmd.Context(), target)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess := openSession(cfg, root, "")
		defer sess.Close()
		res, err := sess.Initialize(ctx)
		if err != nil {
			return err
		}

		printerDone := make(chan struct{})
		go func() {
			defer close(printerDone)
			for ev := range sess.Events() {
				printWatchEvent(cmd, ev)
			}
		}()

		if err := sess.StartScheduler(); err != nil {
			sess.Close()
			<-printerDone
			return err
		}
		infof(cmd, "watching %s (sync every %s; Ctrl-C to stop)", root, cfg.SyncInterval())

		var runErr error
		if res.Writable && sess.WorktreePath() != "" {
			w, err := watcher.New(sess.WorktreePath(), sess, watcher.Options{
				Debounce: cfg.Debounce(),
				Ignore:   cfg.Exclude,
				Logger:   sessionLogger(),
			})
			if err != nil {
				runErr = err
			} else {
				runErr = w.Run(ctx)
				_ = w.Close()
			}
		} else {
			infof(cmd, "store is read-only on this machine; following remote posts only")
			<-ctx.Done()
		}

		sess.Close()
		<-printerDone
		infof(cmd, "watch stopped")
		return runErr
	},
}

func init() {
	watchCmd.Flags().Int("interval", 0, "sync interval in seconds (default from config)")

	rootCmd.AddCommand(watchCmd)
}

func printWatchEvent(cmd *cobra.Command, ev engine.Event) {
	switch ev.Kind {
	case engine.EventSyncStart:
		debugf(cmd, "sync pass started")
	case engine.EventNewContent:
		infof(cmd, "new posts merged (head %s)", shortHash(ev.Head))
	case engine.EventPushComplete:
		infof(cmd, "queued posts pushed")
	case engine.EventPushError:
		infof(cmd, "push failed: %v (will retry)", ev.Err)
	case engine.EventSyncError:
		infof(cmd, "sync failed: %v", ev.Err)
	case engine.EventReadOnly:
		infof(cmd, "store became read-only: %s", ev.Reason)
	}
}
