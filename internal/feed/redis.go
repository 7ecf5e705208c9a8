package feed

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/confhub/confhub/pkg/logger"
)

const channelPrefix = "feed:"

// RedisFeed broadcasts change events over Redis pub/sub. Every process
// connected to the same Redis sees every event, so caches stay fresh across
// replicas.
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed connects to Redis and verifies the connection.
func NewRedisFeed(ctx context.Context, addr, password string, db int) (*RedisFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, ErrFeedUnavailable
	}
	return &RedisFeed{client: client}, nil
}

func (f *RedisFeed) Publish(ctx context.Context, collection string) error {
	if err := f.client.Publish(ctx, channelPrefix+collection, collection).Err(); err != nil {
		logger.Warn().Err(err).Str("collection", collection).Msg("Failed to publish change event")
		return ErrFeedUnavailable
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, collections ...string) (*Subscription, error) {
	channels := make([]string, len(collections))
	for i, c := range collections {
		channels[i] = channelPrefix + c
	}

	pubsub := f.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, ErrFeedUnavailable
	}

	events := make(chan Event)
	errs := make(chan error, 1)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(events)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					select {
					case errs <- ErrFeedUnavailable:
					default:
					}
					return
				}
				select {
				case events <- Event{Collection: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		Events: events,
		Errs:   errs,
		cancel: func() {
			cancel()
			pubsub.Close()
		},
	}, nil
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}
