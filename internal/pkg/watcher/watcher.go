package watcher

import (
	"context"
	"errors"
	"sync"
)

// Watcher is a best-effort event stream used for cache invalidation.
// Events may be dropped when a subscriber is slow.
//
// Callers must call the returned stop function exactly once.
type Watcher[T any] interface {
	Watch() (<-chan T, func())
}

// Notifier is a Watcher that can also publish events.
type Notifier[T any] interface {
	Watcher[T]

	Notify(ctx context.Context, v T) error
}

type Options struct {
	// Channel is the redis pub/sub channel; required in redis mode.
	Channel string
	Buffer  int
}

// New builds a notifier for cfg.Mode. Empty mode is memory.
func New[T any](ctx context.Context, cfg Config, opts Options) (Notifier[T], error) {
	switch cfg.Mode {
	case ModeRedis:
		if opts.Channel == "" {
			return nil, errors.New("watcher: redis channel is required")
		}

		return NewRedisWatcherFromConfig[T](ctx, cfg.Redis, opts)
	case ModeMemory, "":
		return NewMemoryWatcher[T](opts), nil
	default:
		return nil, errors.New("watcher: invalid mode " + cfg.Mode)
	}
}

// hub fans events out to local subscribers.
type hub[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan T
	buffer int
}

func newHub[T any](buffer int) *hub[T] {
	if buffer <= 0 {
		buffer = 1
	}

	return &hub[T]{
		subs:   make(map[uint64]chan T),
		buffer: buffer,
	}
}

// subscribe registers a channel. onFirst and onLast run under the hub lock
// when the subscriber count leaves or reaches zero.
func (h *hub[T]) subscribe(onFirst, onLast func()) (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan T, h.buffer)
	h.subs[id] = ch

	if len(h.subs) == 1 && onFirst != nil {
		onFirst()
	}

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.subs, id)
			close(ch)

			if len(h.subs) == 0 && onLast != nil {
				onLast()
			}
		})
	}
}

func (h *hub[T]) broadcast(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- v:
		default:
		}
	}
}
