// SPDX-License-Identifier: MIT
package gitpost

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitpost/internal/config"
	"github.com/skaphos/gitpost/internal/engine"
	"github.com/skaphos/gitpost/internal/model"
	"github.com/skaphos/gitpost/internal/msgfile"
)

var sendCmd = &cobra.Command{
	Use:   "send [message...]",
	Short: "Post a message to a channel",
	Long: "Writes a message file into the channel, commits it, and queues the push. " +
		"The message text comes from the arguments, or from stdin when none are given. " +
		"By default the queued push is attempted immediately; --push=false leaves it " +
		"for the next sync pass.",
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")
		senderFlag, _ := cmd.Flags().GetString("sender")
		replyTo, _ := cmd.Flags().GetString("reply-to")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		path, _ := cmd.Flags().GetString("path")
		push, _ := cmd.Flags().GetBool("push")

		body := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read message from stdin: %w", err)
			}
			body = string(data)
		}
		if strings.TrimSpace(body) == "" {
			return fmt.Errorf("empty message")
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		root, err := storeRoot(cmd.Context(), path)
		if err != nil {
			return err
		}
		sender := resolveSender(cfg, senderFlag)

		sess := openSession(cfg, root, "")
		defer sess.Close()
		if _, err := sess.Initialize(cmd.Context()); err != nil {
			return err
		}
		if sess.ReadOnly() {
			return fmt.Errorf("store is read-only on this machine: %s", sess.Access().Reason)
		}

		now := time.Now()
		meta := model.MessageMeta{
			From:    sender,
			Date:    now.UTC().Format(time.RFC3339),
			ReplyTo: replyTo,
			Tags:    tags,
		}
		content, err := msgfile.Compose(meta, body)
		if err != nil {
			return err
		}
		filename := msgfile.Filename(now, sender)
		if err := sess.WriteMessage(cmd.Context(), channel, filename, content); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Posted %s/%s\n", channel, filename); err != nil {
			return err
		}

		if !push {
			infof(cmd, "push queued for the next sync pass")
			return nil
		}
		outcome, err := sess.SyncOnce(cmd.Context())
		if err != nil {
			// The post is committed; replication retries on the next pass.
			infof(cmd, "push not confirmed (%v); the message is committed and will retry", err)
			raiseExitCode(1)
			return nil
		}
		if outcome == engine.OutcomeSkipped {
			debugf(cmd, "no remote configured; the post stays local")
		} else if sess.PushQueued() {
			infof(cmd, "push still queued; will retry on the next sync pass")
			raiseExitCode(1)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringP("channel", "c", model.SeedChannel, "channel to post into")
	sendCmd.Flags().String("sender", "", "sender identity (default from config, then $USER)")
	sendCmd.Flags().String("reply-to", "", "filename of the message being replied to")
	sendCmd.Flags().StringSlice("tag", nil, "free-form tag (repeatable)")
	sendCmd.Flags().String("path", "", "store path (default: the enclosing repository)")
	sendCmd.Flags().Bool("push", true, "attempt the push right away")

	rootCmd.AddCommand(sendCmd)
}

func resolveSender(cfg *config.Config, flag string) string {
	if strings.TrimSpace(flag) != "" {
		return flag
	}
	if strings.TrimSpace(cfg.Defaults.Sender) != "" {
		return cfg.Defaults.Sender
	}
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return "anon"
}
