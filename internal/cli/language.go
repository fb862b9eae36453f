package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conorfennell/memobox/internal/domain"
)

func newLanguageCmd(configPath *string) *cobra.Command {
	languageCmd := &cobra.Command{
		Use:   "language",
		Short: "Manage languages",
	}

	addCmd := &cobra.Command{
		Use:   "add <code> <name>",
		Short: "Add a language",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			lang := &domain.Language{Code: args[0], Name: args[1]}
			if err := a.db.InsertLanguage(cmd.Context(), lang, a.clock.Now()); err != nil {
				return fmt.Errorf("add language: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added language %d %s (%s)\n", lang.ID, lang.Code, lang.Name)
			return nil
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List languages",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			langs, err := a.db.ListLanguages(cmd.Context())
			if err != nil {
				return fmt.Errorf("list languages: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tNAME")
			for _, l := range langs {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", l.ID, l.Code, l.Name)
			}
			return tw.Flush()
		}),
	}

	languageCmd.AddCommand(addCmd, listCmd)
	return languageCmd
}
