// SPDX-License-Identifier: MIT
package gitpost

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitpost/internal/tableutil"
)

type channelRow struct {
	Channel  string `json:"channel"`
	Messages int    `json:"messages"`
}

var channelsCmd = &cobra.Command{
	Use:   "channels [path]",
	Short: "List the store's channels",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		mode, err := parseFormat(format, false)
		if err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		root, err := storeRoot(cmd.Context(), target)
		if err != nil {
			return err
		}

		sess := openSession(cfg, root, "")
		defer sess.Close()
		if _, err := sess.Initialize(cmd.Context()); err != nil {
			return err
		}
		channels, err := sess.ListChannels()
		if err != nil {
			return err
		}

		rows := make([]channelRow, 0, len(channels))
		for _, channel := range channels {
			names, err := sess.ListMessages(channel, "")
			if err != nil {
				return err
			}
			rows = append(rows, channelRow{Channel: channel, Messages: len(names)})
		}

		switch mode {
		case formatJSON:
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			logOutputWriteFailure(cmd, "channels json", err)
		case formatTable:
			w := tableutil.New(cmd.OutOrStdout(), false)
			if err := tableutil.PrintHeaders(w, noHeaders, "CHANNEL\tMESSAGES"); err != nil {
				return err
			}
			for _, row := range rows {
				if _, err := fmt.Fprintf(w, "%s\t%d\n", row.Channel, row.Messages); err != nil {
					return err
				}
			}
			logOutputWriteFailure(cmd, "channels table", w.Flush())
		}
		return nil
	},
}

var channelsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a channel and announce it to other writers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		push, _ := cmd.Flags().GetBool("push")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		root, err := storeRoot(cmd.Context(), path)
		if err != nil {
			return err
		}

		sess := openSession(cfg, root, "")
		defer sess.Close()
		if _, err := sess.Initialize(cmd.Context()); err != nil {
			return err
		}
		name := args[0]
		if err := sess.CreateChannel(cmd.Context(), name); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Created channel %s\n", name); err != nil {
			return err
		}
		if !push {
			infof(cmd, "push queued for the next sync pass")
			return nil
		}
		if _, err := sess.SyncOnce(cmd.Context()); err != nil {
			infof(cmd, "push not confirmed (%v); the channel is committed and will retry", err)
			raiseExitCode(1)
		}
		return nil
	},
}

func init() {
	addFormatFlag(channelsCmd, "output format: table or json")
	addNoHeadersFlag(channelsCmd)

	channelsCreateCmd.Flags().String("path", "", "store path (default: the enclosing repository)")
	channelsCreateCmd.Flags().Bool("push", true, "attempt the push right away")

	channelsCmd.AddCommand(channelsCreateCmd)
	rootCmd.AddCommand(channelsCmd)
}
