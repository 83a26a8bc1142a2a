package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/medjournal/internal/events"
	"github.com/terraincognita07/medjournal/internal/services"
)

func newWatchCommand(options *rootOptions) *cobra.Command {
	var journal string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print journal changes published on redis as JSON lines",
		Long: `Subscribe to the redis channel the server publishes journal changes on
and print each change as one JSON object per line. Requires redis.addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(options, stderrSink)
			if err != nil {
				return err
			}
			defer env.Close()
			if env.config.Redis.Addr == "" {
				return errors.New("redis.addr is not configured")
			}

			filter := uuid.Nil
			if journal != "" {
				if filter, err = uuid.Parse(journal); err != nil {
					return fmt.Errorf("invalid journal id %q", journal)
				}
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := redis.NewClient(&redis.Options{
				Addr:     env.config.Redis.Addr,
				Password: env.config.Redis.Password,
				DB:       env.config.Redis.DB,
			})
			defer client.Close()

			notifier := events.NewRedisNotifier(client, env.config.Redis.Channel, env.logger.Named("redis"))
			return notifier.Relay(ctx, newLinePrinter(cmd.OutOrStdout(), filter))
		},
	}
	cmd.Flags().StringVar(&journal, "journal", "", "only print changes of this journal")
	return cmd
}

// linePrinter writes each change as a JSON line, optionally for one journal.
type linePrinter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	journal uuid.UUID
}

func newLinePrinter(out io.Writer, journal uuid.UUID) *linePrinter {
	return &linePrinter{encoder: json.NewEncoder(out), journal: journal}
}

func (printer *linePrinter) Notify(change services.JournalChange) {
	if printer.journal != uuid.Nil && change.JournalID != printer.journal {
		return
	}
	printer.mu.Lock()
	defer printer.mu.Unlock()
	_ = printer.encoder.Encode(change)
}
