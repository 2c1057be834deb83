// SPDX-License-Identifier: MIT
package gitpost

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitpost/internal/model"
	"github.com/skaphos/gitpost/internal/msgfile"
	"github.com/skaphos/gitpost/internal/tableutil"
	"github.com/skaphos/gitpost/internal/termstyle"
)

type messageRow struct {
	File       string `json:"file"`
	Time       string `json:"time,omitempty"`
	Sender     string `json:"sender,omitempty"`
	ID         string `json:"id,omitempty"`
	WellFormed bool   `json:"well_formed"`
}

var messagesCmd = &cobra.Command{
	Use:   "messages [channel]",
	Short: "List the messages of a channel",
	Long: "Lists a channel's message files in chronological (lexical) order. Entries " +
		"whose names do not follow the record protocol are listed too; they just " +
		"cannot be ordered or attributed.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern, _ := cmd.Flags().GetString("pattern")
		path, _ := cmd.Flags().GetString("path")
		format, _ := cmd.Flags().GetString("format")
		mode, err := parseFormat(format, false)
		if err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")

		channel := model.SeedChannel
		if len(args) == 1 {
			channel = args[0]
		}

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
		names, err := sess.ListMessages(channel, pattern)
		if err != nil {
			return err
		}

		rows := make([]messageRow, 0, len(names))
		for _, name := range names {
			row := messageRow{File: name}
			if info, ok := msgfile.ParseFilename(name); ok {
				row.Time = info.Time.UTC().Format(time.RFC3339)
				row.Sender = info.Sender
				row.ID = info.ID
				row.WellFormed = true
			}
			rows = append(rows, row)
		}

		switch mode {
		case formatJSON:
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			logOutputWriteFailure(cmd, "messages json", err)
		case formatTable:
			setColorOutputMode(cmd, mode)
			logOutputWriteFailure(cmd, "messages table", writeMessagesTable(cmd, rows, noHeaders))
		}
		infof(cmd, "%d messages in %s", len(rows), channel)
		return nil
	},
}

func init() {
	messagesCmd.Flags().String("pattern", "", "glob filter on message filenames")
	messagesCmd.Flags().String("path", "", "store path (default: the enclosing repository)")
	addFormatFlag(messagesCmd, "output format: table or json")
	addNoHeadersFlag(messagesCmd)

	rootCmd.AddCommand(messagesCmd)
}

func writeMessagesTable(cmd *cobra.Command, rows []messageRow, noHeaders bool) error {
	w := tableutil.New(cmd.OutOrStdout(), true)
	if err := tableutil.PrintHeaders(w, noHeaders, "TIME\tSENDER\tID\tFILE"); err != nil {
		return err
	}
	for _, row := range rows {
		if !row.WellFormed {
			malformed := termstyle.Colorize(colorOutputEnabled, "malformed", termstyle.Warn)
			if err := tableutil.Row(w, "-", malformed, "-", row.File); err != nil {
				return err
			}
			continue
		}
		if err := tableutil.Row(w, row.Time, row.Sender, row.ID, row.File); err != nil {
			return err
		}
	}
	return w.Flush()
}
