package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
)

// RedisFeed publishes events on a Redis PubSub channel so every server
// instance's monitors see every session.
type RedisFeed struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisFeed creates a RedisFeed.
func NewRedisFeed(rdb *redis.Client, log zerolog.Logger) *RedisFeed {
	return &RedisFeed{
		rdb: rdb,
		log: log.With().Str("component", "redis_feed").Logger(),
	}
}

// Publish implements Feed.
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := f.rdb.Publish(ctx, config.CacheKey.ProctorEventsChannel(), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe implements Feed.
func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	pubsub := f.rdb.Subscribe(ctx, config.CacheKey.ProctorEventsChannel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	subCtx, stop := context.WithCancel(ctx)
	var once sync.Once
	cancel := func() { once.Do(stop) }

	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					f.log.Warn().Err(err).Msg("Discarding malformed monitor event")
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, cancel, nil
}
