// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// feedback.go - Feedback form and the administrator review listing.
package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/server"
	"github.com/jeranaias/chatdesk/internal/util"
)

// =============================================================================
// FEEDBACK
// =============================================================================

func newFeedbackCommand(app *App) *cobra.Command {
	var fb api.Feedback
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Rate the assistant",
		Long: `Send a rating from 1 to 5 with an optional comment.

Without --rating the form is filled in interactively.`,
		Example: `  chatdesk feedback
  chatdesk feedback --rating 5 --comment "Very helpful"
  chatdesk feedback --rating 2 --conversation 3f2c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.authedClient()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("rating") {
				if err := promptFeedback(app.Prompter, &fb); err != nil {
					return err
				}
			}
			if err := validateFeedback(&fb); err != nil {
				return err
			}

			saved, err := c.SubmitFeedback(cmd.Context(), fb)
			if err != nil {
				return errors.Wrap(err, "failed to send feedback")
			}
			printSuccess(app.Out, "Thanks for your feedback (%s)", stars(saved.Rating))
			return nil
		},
	}
	cmd.Flags().IntVar(&fb.Rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&fb.Comment, "comment", "", "optional comment")
	cmd.Flags().StringVar(&fb.ConversationID, "conversation", "", "conversation the feedback is about")
	return cmd
}

func promptFeedback(p Prompter, fb *api.Feedback) error {
	answer, err := p.Prompt(fmt.Sprintf("Rating (%d-%d): ", api.MinRating, api.MaxRating))
	if err != nil {
		return err
	}
	rating, err := strconv.Atoi(answer)
	if err != nil {
		return NewValidationError("rating", answer, "must be a number")
	}
	fb.Rating = rating
	if fb.Comment == "" {
		if fb.Comment, err = p.Prompt("Comment (optional): "); err != nil {
			return err
		}
	}
	return nil
}

func validateFeedback(fb *api.Feedback) error {
	if fb.Rating < api.MinRating || fb.Rating > api.MaxRating {
		return NewValidationError("rating", strconv.Itoa(fb.Rating),
			fmt.Sprintf("must be between %d and %d", api.MinRating, api.MaxRating))
	}
	fb.Comment = strings.TrimSpace(fb.Comment)
	if len([]rune(fb.Comment)) > server.MaxCommentLength {
		return NewValidationError("comment", "", fmt.Sprintf("must be at most %d characters", server.MaxCommentLength))
	}
	fb.ConversationID = strings.TrimSpace(fb.ConversationID)
	return nil
}

func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > api.MaxRating {
		rating = api.MaxRating
	}
	return strings.Repeat("*", rating) + strings.Repeat(".", api.MaxRating-rating)
}

// =============================================================================
// ADMIN
// =============================================================================

func newAdminCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator commands",
	}
	cmd.AddCommand(newAdminFeedbackCommand(app))
	return cmd
}

func newAdminFeedbackCommand(app *App) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Review feedback from all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := app.authedClient()
			if err != nil {
				return err
			}
			items, err := c.ListFeedback(cmd.Context())
			if err != nil {
				if errors.Is(err, api.ErrForbidden) {
					return errAdminRequired
				}
				return err
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}

			if asJSON {
				enc := json.NewEncoder(app.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			if len(items) == 0 {
				printHint(app.Out, "No feedback yet.")
				return nil
			}
			fmt.Fprintln(app.Out, TitleStyle.Render(fmt.Sprintf("Feedback (%d)", len(items))))
			fmt.Fprintln(app.Out, feedbackTable(items, GetTerminalWidth()))
			printHint(app.Out, "Average rating: %.1f", averageRating(items))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many entries (newest first)")
	return cmd
}

// feedbackTable renders feedback newest first, as the backend returns it.
func feedbackTable(items []api.Feedback, width int) string {
	commentWidth := width - 60
	if commentWidth < 20 {
		commentWidth = 20
	}

	rows := make([][]string, 0, len(items))
	for _, fb := range items {
		conv := fb.ConversationID
		if conv == "" {
			conv = "-"
		}
		rows = append(rows, []string{
			fb.CreatedAt.Local().Format("2006-01-02 15:04"),
			fb.UserEmail,
			stars(fb.Rating),
			shortID(conv),
			util.TruncateWidth(util.SingleLine(fb.Comment), commentWidth),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Headers("DATE", "USER", "RATING", "CONV", "COMMENT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	return t.Render()
}

// shortID keeps the first eight characters of an id, like short git hashes.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func averageRating(items []api.Feedback) float64 {
	if len(items) == 0 {
		return 0
	}
	total := 0
	for _, fb := range items {
		total += fb.Rating
	}
	return float64(total) / float64(len(items))
}
