package watcher

import (
	"context"
)

type memoryWatcher[T any] struct {
	hub *hub[T]
}

func NewMemoryWatcher[T any](opts Options) Notifier[T] {
	return &memoryWatcher[T]{hub: newHub[T](opts.Buffer)}
}

func (w *memoryWatcher[T]) Watch() (<-chan T, func()) {
	return w.hub.subscribe(nil, nil)
}

func (w *memoryWatcher[T]) Notify(_ context.Context, v T) error {
	w.hub.broadcast(v)
	return nil
}
