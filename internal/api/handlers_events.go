package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/medjournal/internal/services"
	"go.uber.org/zap"
)

const eventKeepAliveInterval = 25 * time.Second

// StreamEvents keeps a server-sent event stream open and writes one
// "change" event per journal change. Clients refetch the views they show.
func (handler *Handler) StreamEvents(c *fiber.Ctx) error {
	journalID, ok, err := handler.requireJournal(c)
	if !ok {
		return err
	}

	changes, cancel := handler.broadcaster.Subscribe(journalID)
	if handler.metrics != nil {
		handler.metrics.EventSubscribers.Inc()
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := handler.logger.With(zap.String("journal_id", journalID.String()))
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cancel()
			if handler.metrics != nil {
				handler.metrics.EventSubscribers.Dec()
			}
		}()

		if err := streamChanges(w, changes, eventKeepAliveInterval); err != nil {
			logger.Debug("event stream closed", zap.Error(err))
		}
	})
	return nil
}

type flushWriter interface {
	io.Writer
	Flush() error
}

// streamChanges writes changes until the channel closes or a write fails.
func streamChanges(w flushWriter, changes <-chan services.JournalChange, keepAlive time.Duration) error {
	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case change, open := <-changes:
			if !open {
				return nil
			}
			if err := writeChangeEvent(w, change); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}

func writeChangeEvent(w io.Writer, change services.JournalChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
	return err
}
