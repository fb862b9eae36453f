package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSourceCmd(configPath *string) *cobra.Command {
	sourceCmd := &cobra.Command{
		Use:   "source",
		Short: "Manage deck sources",
	}
	addCmd := &cobra.Command{
		Use:   "add <path-or-git-url>",
		Short: "Register a local directory or git repository of decks",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := a.syncer.AddSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added source %d, run 'memobox sync' to import it\n", id)
			return nil
		}),
	}
	sourceCmd.AddCommand(addCmd)
	return sourceCmd
}

func newSyncCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Import cards from all registered sources",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(cmd *cobra.Command, a *app, args []string) error {
			reports, err := a.syncer.RunSync(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(out, "source %d -> box %d: %d parsed, %d inserted, %d deleted\n",
					r.SourceID, r.BoxID, r.Parsed, r.Inserted, r.Deleted)
				for _, e := range r.Errors {
					fmt.Fprintf(out, "  error: %v\n", e)
				}
			}
			return nil
		}),
	}
}
