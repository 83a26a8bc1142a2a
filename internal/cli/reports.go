package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/medjournal/internal/export"
	"github.com/terraincognita07/medjournal/internal/services"
)

// journalFlags are shared by the commands that read one journal.
type journalFlags struct {
	journal  string
	timezone string
	asJSON   bool
}

func (flags *journalFlags) register(cmd *cobra.Command, withJSON bool) {
	cmd.Flags().StringVar(&flags.journal, "journal", "", "journal id (required)")
	cmd.Flags().StringVar(&flags.timezone, "tz", "", "IANA time zone, defaults to the configured one")
	if withJSON {
		cmd.Flags().BoolVar(&flags.asJSON, "json", false, "print JSON instead of a table")
	}
	_ = cmd.MarkFlagRequired("journal")
}

func (flags *journalFlags) resolve(env *environment) (uuid.UUID, *time.Location, error) {
	journalID, err := uuid.Parse(flags.journal)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid journal id %q", flags.journal)
	}
	if _, err := services.NewJournalService(env.repositories.Journals, nil).Find(journalID); err != nil {
		return uuid.Nil, nil, err
	}
	return journalID, services.ResolveLocation(flags.timezone, env.config.Location()), nil
}

func newSnapshotCommand(options *rootOptions) *cobra.Command {
	flags := &journalFlags{}
	var date string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the quick log for one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(options, stderrSink)
			if err != nil {
				return err
			}
			defer env.Close()

			journalID, location, err := flags.resolve(env)
			if err != nil {
				return err
			}
			day := services.DateAtLocation(time.Now(), location)
			if date != "" {
				day, err = time.ParseInLocation("2006-01-02", date, location)
				if err != nil {
					return fmt.Errorf("invalid date %q", date)
				}
			}

			repos := env.repositories
			snapshot, err := services.NewQuickLogService(repos.Medications, repos.Schedules, repos.Intakes).BuildDailySnapshot(journalID, day, location)
			if err != nil {
				return err
			}
			if flags.asJSON {
				return writeJSON(cmd.OutOrStdout(), snapshot)
			}
			return writeSnapshotTable(cmd.OutOrStdout(), snapshot, location)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD, defaults to today")
	return cmd
}

func writeSnapshotTable(out io.Writer, snapshot services.DailySnapshot, location *time.Location) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tMEDICATION\tDOSE\tTAKEN")
	for _, row := range snapshot.Scheduled {
		taken := "no"
		if row.Taken {
			taken = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.ScheduledAt.In(location).Format("15:04"), row.MedicationName, row.DisplayAmount, taken)
	}
	for _, item := range snapshot.AsNeeded {
		last := "-"
		if item.LastLoggedAt != nil {
			last = item.LastLoggedAt.In(location).Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "as needed\t%s\t%s\tlast %s\n", item.MedicationName, item.DisplayAmount, last)
	}
	return w.Flush()
}

func newAdherenceCommand(options *rootOptions) *cobra.Command {
	flags := &journalFlags{}
	var rangeFlag string

	cmd := &cobra.Command{
		Use:   "adherence",
		Short: "Print per-medication adherence over the last 7, 30 or 90 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trendRange, err := services.ParseTrendRange(rangeFlag)
			if err != nil {
				return err
			}
			env, err := openEnvironment(options, stderrSink)
			if err != nil {
				return err
			}
			defer env.Close()

			journalID, location, err := flags.resolve(env)
			if err != nil {
				return err
			}
			now := time.Now()
			repos := env.repositories
			summaries, err := services.NewAdherenceService(repos.Medications, repos.Schedules, repos.Intakes).Report(journalID, trendRange.Start(now), now, location)
			if err != nil {
				return err
			}
			if flags.asJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MEDICATION\tSCHEDULED\tTAKEN\tRATE\tAVERAGE")
			for _, summary := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\t%s\n",
					summary.Name, summary.ScheduledCount, summary.TakenCount, summary.AdherenceRate*100, summary.AverageDose)
			}
			return w.Flush()
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&rangeFlag, "range", "7d", "7d, 30d or 90d")
	return cmd
}

func newExportCommand(options *rootOptions) *cobra.Command {
	flags := &journalFlags{}
	var formatFlag string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a journal as JSON, a CSV bundle or an XLSX workbook",
		Long: `Export every entry, medication, schedule and intake of a journal.

Examples:
  # Workbook in the current directory
  medjournal export --journal <id> --format xlsx

  # JSON to stdout
  medjournal export --journal <id> --output -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			env, err := openEnvironment(options, stderrSink)
			if err != nil {
				return err
			}
			defer env.Close()

			journalID, location, err := flags.resolve(env)
			if err != nil {
				return err
			}
			now := time.Now()
			repos := env.repositories
			dataset, err := services.NewExportService(repos.Medications, repos.Schedules, repos.Intakes, repos.Entries).BuildDataset(journalID, location, now)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := export.Write(cmd.OutOrStdout(), format, dataset)
				return err
			}
			if output == "" {
				output = format.FileName(now)
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			summary, err := export.Write(file, format, dataset)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d entries, %d medications, %d schedules, %d intakes to %s\n",
				summary.ExportedEntries, summary.ExportedMedications, summary.ExportedSchedules, summary.ExportedIntakes, output)
			return nil
		},
	}
	flags.register(cmd, false)
	cmd.Flags().StringVar(&formatFlag, "format", "json", "json, csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout")
	return cmd
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
