package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"exam-progress-service/internal/domain"
	"exam-progress-service/internal/logger"
	"github.com/redis/go-redis/v9"
)

// DefaultFeedChannel carries progress snapshots between instances.
const DefaultFeedChannel = "exam:progress"

type feedMessage struct {
	UserID   string          `json:"userId"`
	Progress domain.Progress `json:"progress"`
}

// FeedBus relays progress snapshots over Redis pub/sub so that a websocket
// connected to one instance sees writes made through another.
type FeedBus struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

func NewFeedBus(client *redis.Client, channel string, log *logger.Logger) *FeedBus {
	if channel == "" {
		channel = DefaultFeedChannel
	}
	return &FeedBus{client: client, channel: channel, log: log.With("service", "FeedBus")}
}

// Publish implements app.ProgressPublisher. Failures are logged; a lost
// notification never fails the write that caused it.
func (b *FeedBus) Publish(ctx context.Context, userID string, p domain.Progress) {
	raw, err := json.Marshal(feedMessage{UserID: userID, Progress: p})
	if err != nil {
		b.log.Warn("encode progress message", "error", err)
		return
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		b.log.Warn("publish progress", "user_id", userID, "error", err)
	}
}

// StartForwarder subscribes to the channel and hands every snapshot to onMsg
// until ctx is cancelled.
func (b *FeedBus) StartForwarder(ctx context.Context, onMsg func(userID string, p domain.Progress)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.client.Subscribe(ctx, b.channel)
	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var msg feedMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("bad progress payload", "error", err)
					continue
				}
				onMsg(msg.UserID, msg.Progress)
			}
		}
	}()
	return nil
}
