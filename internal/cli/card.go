package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/memobox/internal/domain"
	"github.com/conorfennell/memobox/internal/leitner"
)

func newCardCmd(configPath *string) *cobra.Command {
	cardCmd := &cobra.Command{
		Use:   "card",
		Short: "Manage cards",
	}

	addCmd := &cobra.Command{
		Use:   "add <box-id> <source-text> <target-text>",
		Short: "Add a card to a box",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			boxID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.db.GetBox(cmd.Context(), boxID); err != nil {
				return fmt.Errorf("box %d: %w", boxID, err)
			}
			card := &domain.Card{BoxID: boxID, SourceText: args[1], TargetText: args[2]}
			if err := a.db.InsertCard(cmd.Context(), card, a.clock.Now()); err != nil {
				return fmt.Errorf("create card: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created card %d, due %s\n", card.ID, card.NextRecallAt.Format(time.RFC3339))
			return nil
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list <box-id>",
		Short: "List the cards of a box",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			boxID, err := parseID(args[0])
			if err != nil {
				return err
			}
			cards, err := a.db.ListCards(cmd.Context(), boxID)
			if err != nil {
				return fmt.Errorf("list cards: %w", err)
			}
			return printCards(cmd.OutOrStdout(), cards, a.clock.Now())
		}),
	}

	cardCmd.AddCommand(addCmd, listCmd)
	return cardCmd
}

func newDueCmd(configPath *string) *cobra.Command {
	var boxID int64
	var limit int
	dueCmd := &cobra.Command{
		Use:   "due",
		Short: "List cards due for recall",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			cards, err := a.reviews.Due(cmd.Context(), boxID, limit)
			if err != nil {
				return fmt.Errorf("due cards: %w", err)
			}
			if len(cards) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing due")
				return nil
			}
			return printCards(cmd.OutOrStdout(), cards, a.clock.Now())
		}),
	}
	dueCmd.Flags().Int64Var(&boxID, "box", 0, "Only cards of this box")
	dueCmd.Flags().IntVar(&limit, "limit", 0, "Maximum cards to list (0 for all)")
	return dueCmd
}

func newRecallCmd(configPath *string) *cobra.Command {
	var forgot bool
	recallCmd := &cobra.Command{
		Use:   "recall <card-id>",
		Short: "Record a recall attempt",
		Long:  "Record that a card was remembered, or with --forgot that it was not, and print the new schedule.",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			card, err := a.reviews.Recall(cmd.Context(), id, !forgot)
			if err != nil {
				return fmt.Errorf("recall card %d: %w", id, err)
			}
			days := a.reviews.Scheduler().Ladder().Days(card.IntervalIndex)
			fmt.Fprintf(cmd.OutOrStdout(), "card %d: step %d, next recall in %d days (%s)\n",
				card.ID, card.IntervalIndex, days, card.NextRecallAt.Format(time.RFC3339))
			return nil
		}),
	}
	recallCmd.Flags().BoolVar(&forgot, "forgot", false, "The card was not remembered")
	return recallCmd
}

func printCards(w io.Writer, cards []domain.Card, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBOX\tSOURCE\tTARGET\tSTEP\tNEXT\tDUE")
	for _, c := range cards {
		due := ""
		if leitner.IsDue(c.RecallState(), now) {
			due = "yes"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%s\t%s\n",
			c.ID, c.BoxID, c.SourceText, c.TargetText, c.IntervalIndex, c.NextRecallAt.Format(time.RFC3339), due)
	}
	return tw.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
