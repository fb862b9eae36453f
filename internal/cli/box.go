package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conorfennell/memobox/internal/domain"
)

func newBoxCmd(configPath *string) *cobra.Command {
	boxCmd := &cobra.Command{
		Use:   "box",
		Short: "Manage boxes",
	}

	var desc, srcLang, tgtLang string
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a box",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			box := &domain.Box{Name: args[0], Description: desc}
			var err error
			if box.SourceLanguageID, err = languageID(cmd, a, srcLang); err != nil {
				return err
			}
			if box.TargetLanguageID, err = languageID(cmd, a, tgtLang); err != nil {
				return err
			}
			if err := a.db.InsertBox(cmd.Context(), box, a.clock.Now()); err != nil {
				return fmt.Errorf("create box: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created box %d %q\n", box.ID, box.Name)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&desc, "description", "", "Box description")
	addCmd.Flags().StringVar(&srcLang, "from", "", "Source language code, see 'memobox language list'")
	addCmd.Flags().StringVar(&tgtLang, "to", "", "Target language code")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List boxes",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			boxes, err := a.db.ListBoxes(cmd.Context())
			if err != nil {
				return fmt.Errorf("list boxes: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tLANGUAGES\tDESCRIPTION")
			for _, b := range boxes {
				fmt.Fprintf(tw, "%d\t%s\t%s>%s\t%s\n", b.ID, b.Name, langCode(b.SourceLanguage), langCode(b.TargetLanguage), b.Description)
			}
			return tw.Flush()
		}),
	}

	boxCmd.AddCommand(addCmd, listCmd)
	return boxCmd
}

// languageID resolves a language code given on the command line.
func languageID(cmd *cobra.Command, a *app, code string) (*int64, error) {
	if code == "" {
		return nil, nil
	}
	lang, err := a.db.FindLanguageByCode(cmd.Context(), code)
	if err != nil {
		return nil, fmt.Errorf("unknown language %q, add it with 'memobox language add': %w", code, err)
	}
	return &lang.ID, nil
}

func langCode(l *domain.Language) string {
	if l == nil {
		return "-"
	}
	return l.Code
}
