// Package bustest provides an in-memory Bus for tests.
package bustest

import (
	"sync"

	"github.com/sunwardhq/sunward/internal/bus"
)

var _ bus.Bus = &Bus{}

// Bus records everything published and, like a broker, loops published
// messages back to matching subscribers. Deliver injects inbound messages
// (i.e. the device's side of the conversation).
type Bus struct {
	mu        sync.Mutex
	handlers  map[string][]bus.HandlerFunc
	published []Message
}

type Message struct {
	Topic   string
	Payload string
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]bus.HandlerFunc)}
}

func (b *Bus) Publish(topic, payload string) error {
	b.mu.Lock()
	b.published = append(b.published, Message{Topic: topic, Payload: payload})
	handlers := append([]bus.HandlerFunc(nil), b.handlers[topic]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(topic, payload)
	}
	return nil
}

func (b *Bus) Subscribe(topic string, handler bus.HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

// Deliver feeds an inbound message to all subscribers of topic.
func (b *Bus) Deliver(topic, payload string) {
	b.mu.Lock()
	handlers := append([]bus.HandlerFunc(nil), b.handlers[topic]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Subscriptions returns the number of registered handlers.
func (b *Bus) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int
	for _, handlers := range b.handlers {
		n += len(handlers)
	}
	return n
}

// Published returns the payloads published to topic, in order.
func (b *Bus) Published(topic string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var payloads []string
	for _, m := range b.published {
		if m.Topic == topic {
			payloads = append(payloads, m.Payload)
		}
	}
	return payloads
}
