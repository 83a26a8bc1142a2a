package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/terraincognita07/medjournal/internal/services"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// RedisNotifier publishes every change as JSON on a redis channel so other
// processes can refresh their views. Publish failures are logged, never returned.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisNotifier(client *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (notifier *RedisNotifier) Notify(change services.JournalChange) {
	payload, err := json.Marshal(change)
	if err != nil {
		notifier.logger.Error("encode journal change", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := notifier.client.Publish(ctx, notifier.channel, payload).Err(); err != nil {
		notifier.logger.Warn("publish journal change failed",
			zap.String("channel", notifier.channel),
			zap.String("journal_id", change.JournalID.String()),
			zap.Error(err),
		)
	}
}

// Relay feeds changes published by other processes into target until ctx ends.
func (notifier *RedisNotifier) Relay(ctx context.Context, target services.ChangeNotifier) error {
	pubsub := notifier.client.Subscribe(ctx, notifier.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-messages:
			if !ok {
				return nil
			}
			var change services.JournalChange
			if err := json.Unmarshal([]byte(message.Payload), &change); err != nil {
				notifier.logger.Warn("discard malformed journal change", zap.Error(err))
				continue
			}
			target.Notify(change)
		}
	}
}

// Fanout forwards each change to every notifier in order.
type Fanout []services.ChangeNotifier

func (fanout Fanout) Notify(change services.JournalChange) {
	for _, notifier := range fanout {
		if notifier != nil {
			notifier.Notify(change)
		}
	}
}
