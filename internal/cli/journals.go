package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/medjournal/internal/services"
)

func newJournalCommand(options *rootOptions) *cobra.Command {
	journal := &cobra.Command{
		Use:   "journal",
		Short: "Create and list journals",
	}

	var title string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a journal and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(options, stderrSink)
			if err != nil {
				return err
			}
			defer env.Close()

			created, err := services.NewJournalService(env.repositories.Journals, nil).Create(title)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.ID.String())
			return nil
		},
	}
	create.Flags().StringVar(&title, "title", "", "journal title")

	list := &cobra.Command{
		Use:   "list",
		Short: "List journals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(options, stderrSink)
			if err != nil {
				return err
			}
			defer env.Close()

			journals, err := env.repositories.Journals.List()
			if err != nil {
				return fmt.Errorf("list journals: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCREATED")
			for _, journal := range journals {
				fmt.Fprintf(w, "%s\t%s\t%s\n", journal.ID, journal.Title, journal.CreatedAt.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	journal.AddCommand(create, list)
	return journal
}
