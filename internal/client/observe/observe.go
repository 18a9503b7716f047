// Package observe implements a minimal publish/subscribe list used to expose
// client state changes to page controllers.
package observe

import (
	"fmt"
	"log/slog"
	"sync"
)

// List holds subscribers for values of type T.
// Deliveries are serialized: a subscriber must not publish to the list that
// is calling it.
type List[T any] struct {
	logger    *slog.Logger
	subs      map[int]func(T)
	order     []int
	nextID    int
	delivered uint64 // версия последнего доставленного значения
	mu        sync.Mutex
	deliver   sync.Mutex
}

// New creates an empty subscriber list
func New[T any](logger *slog.Logger) *List[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &List[T]{logger: logger, subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns a function that removes it
func (l *List[T]) Subscribe(fn func(T)) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs, id)
			for i, v := range l.order {
				if v == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish calls every subscriber with v in subscription order.
// Must not be called while holding the publisher's own state lock.
func (l *List[T]) Publish(v T) {
	l.deliver.Lock()
	defer l.deliver.Unlock()
	l.publishLocked(v)
}

// PublishAt delivers v only if version is newer than the last delivered one.
// Publishers number their state changes under their own lock and publish
// after releasing it; a value overtaken by a newer one is dropped, so
// subscribers never observe states out of order.
func (l *List[T]) PublishAt(version uint64, v T) {
	l.deliver.Lock()
	defer l.deliver.Unlock()

	if version <= l.delivered {
		l.logger.Debug("dropping outdated value", "version", version, "delivered", l.delivered)
		return
	}
	l.delivered = version
	l.publishLocked(v)
}

func (l *List[T]) publishLocked(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.subs[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		l.call(fn, v)
	}
}

// Len returns the number of subscribers
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

func (l *List[T]) call(fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("subscriber panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn(v)
}
