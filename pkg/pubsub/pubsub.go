// Package pubsub provides a basic in-process Publish/Subscribe implementation.
package pubsub

import (
	"log/slog"
	"sync"
)

// Publisher fans out values to all subscribed clients.
//
// Subscriber channels are buffered and Publish never blocks: a subscriber
// that is not keeping up misses updates rather than stalling the publisher.
// This matters because Publish may be called from a bus message callback.
type Publisher[T any] struct {
	subs   map[<-chan T]chan T
	logger *slog.Logger
	lock   sync.RWMutex
}

// New returns a new Publisher.
func New[T any](logger *slog.Logger) *Publisher[T] {
	return &Publisher[T]{
		subs:   make(map[<-chan T]chan T),
		logger: logger,
	}
}

// Subscribe registers the caller and returns the channel on which it will receive updates.
func (p *Publisher[T]) Subscribe() <-chan T {
	p.lock.Lock()
	defer p.lock.Unlock()
	ch := make(chan T, 1)
	p.subs[ch] = ch
	p.logger.Debug("subscriber added", slog.Int("subscribers", len(p.subs)))
	return ch
}

// Unsubscribe removes the registered client/channel.
func (p *Publisher[T]) Unsubscribe(ch <-chan T) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.subs, ch)
	p.logger.Debug("subscriber removed", slog.Int("subscribers", len(p.subs)))
}

// Publish sends value to all registered clients.
func (p *Publisher[T]) Publish(value T) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	for _, ch := range p.subs {
		select {
		case ch <- value:
		default:
			p.logger.Debug("subscriber not keeping up; update dropped")
		}
	}
}

// Subscribers returns the current number of subscribers.
func (p *Publisher[T]) Subscribers() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return len(p.subs)
}
