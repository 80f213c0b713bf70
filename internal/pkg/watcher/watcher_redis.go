package watcher

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/pkg/xredis"
)

// redisWatcher holds one pub/sub subscription while it has local subscribers.
type redisWatcher[T any] struct {
	client  *redis.Client
	channel string
	hub     *hub[T]

	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func NewRedisWatcher[T any](client *redis.Client, opts Options) (Notifier[T], error) {
	if client == nil {
		return nil, errors.New("watcher: redis client is required")
	}

	if opts.Channel == "" {
		return nil, errors.New("watcher: channel is required")
	}

	return &redisWatcher[T]{
		client:  client,
		channel: opts.Channel,
		hub:     newHub[T](opts.Buffer),
	}, nil
}

func NewRedisWatcherFromConfig[T any](ctx context.Context, cfg xredis.Config, opts Options) (Notifier[T], error) {
	client, err := xredis.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisWatcher[T](client, opts)
}

func (w *redisWatcher[T]) Watch() (<-chan T, func()) {
	return w.hub.subscribe(w.start, w.stop)
}

func (w *redisWatcher[T]) Notify(ctx context.Context, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return w.client.Publish(ctx, w.channel, payload).Err()
}

func (w *redisWatcher[T]) start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.pubsub = w.client.Subscribe(ctx, w.channel)
	// Wait for the subscription confirmation so that events published right
	// after Watch returns are not lost.
	_, _ = w.pubsub.Receive(ctx)

	go w.receive(ctx, w.pubsub)
}

func (w *redisWatcher[T]) stop() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}

	if w.pubsub != nil {
		_ = w.pubsub.Close()
		w.pubsub = nil
	}
}

func (w *redisWatcher[T]) receive(ctx context.Context, ps *redis.PubSub) {
	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, redis.ErrClosed) || ctx.Err() != nil {
				return
			}

			log.Warn(ctx, "watcher: receive failed", log.String("channel", w.channel), log.Cause(err))

			continue
		}

		var v T
		if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
			log.Warn(ctx, "watcher: decode failed", log.String("channel", w.channel), log.Cause(err))
			continue
		}

		w.hub.broadcast(v)
	}
}
