// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations.go - List and export conversations without the full-screen client.
package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/export"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/util"
)

func newConversationsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.authedClient()
			if err != nil {
				return err
			}
			list, err := c.ListConversations(cmd.Context())
			if err != nil {
				return err
			}
			convs := append([]model.Conversation(nil), list.Conversations...)
			model.SortByRecency(convs)
			if len(convs) == 0 {
				printHint(app.Out, "No conversations yet. Start one with `chatdesk ask` or `chatdesk chat`.")
				return nil
			}
			fmt.Fprintln(app.Out, conversationTable(convs, GetTerminalWidth()))
			return nil
		},
	}
}

func conversationTable(convs []model.Conversation, width int) string {
	titleWidth := width - 40
	if titleWidth < 20 {
		titleWidth = 20
	}
	rows := make([][]string, 0, len(convs))
	for i, conv := range convs {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			conv.ID,
			util.TruncateWidth(util.SingleLine(conv.Title), titleWidth),
			conv.RecencyTime().Local().Format("2006-01-02 15:04"),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Headers("#", "ID", "TITLE", "UPDATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		Render()
}

// =============================================================================
// EXPORT
// =============================================================================

func newExportCommand(app *App) *cobra.Command {
	var (
		format    string
		outputDir string
		toStdout  bool
		noMeta    bool
	)
	cmd := &cobra.Command{
		Use:   "export [CONVERSATION_ID]",
		Short: "Export a conversation to Markdown or JSON",
		Long: `Export a conversation transcript. Without an id the most recently
updated conversation is exported.`,
		Example: `  chatdesk export
  chatdesk export 3f2c... --format json --output ~/notes
  chatdesk export --stdout | less`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return NewValidationError("format", format, err.Error())
			}

			c, _, err := app.authedClient()
			if err != nil {
				return err
			}
			list, err := c.ListConversations(cmd.Context())
			if err != nil {
				return err
			}
			conv, err := pickConversation(list.Conversations, args)
			if err != nil {
				return err
			}
			msgs, err := c.ListMessages(cmd.Context(), conv.ID)
			if err != nil {
				return err
			}

			opts := export.DefaultOptions()
			opts.OutputDir = outputDir
			opts.IncludeMetadata = !noMeta
			exporter, err := export.New(f, opts)
			if err != nil {
				return err
			}
			transcript := &export.Transcript{Conversation: conv, Messages: msgs}

			if toStdout {
				data, err := exporter.Export(transcript)
				if err != nil {
					return err
				}
				_, err = app.Out.Write(data)
				return err
			}
			path, err := export.ExportToFile(transcript, exporter, opts)
			if err != nil {
				return err
			}
			printSuccess(app.Out, "Exported %q (%d messages) to %s", conv.Title, len(msgs), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown or json")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write to stdout instead of a file")
	cmd.Flags().BoolVar(&noMeta, "no-metadata", false, "omit front matter and footer")
	return cmd
}

// pickConversation returns the conversation named by args, or the most recent one.
func pickConversation(convs []model.Conversation, args []string) (model.Conversation, error) {
	if len(args) == 1 {
		for _, conv := range convs {
			if conv.ID == args[0] {
				return conv, nil
			}
		}
		return model.Conversation{}, NewValidationError("conversation", args[0], "not found in your conversations")
	}
	if len(convs) == 0 {
		return model.Conversation{}, NewValidationError("conversation", "", "you have no conversations yet")
	}
	sorted := append([]model.Conversation(nil), convs...)
	model.SortByRecency(sorted)
	return sorted[0], nil
}
