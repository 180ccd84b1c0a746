// Package heartbeat periodically requests the device's status, providing the
// signal the presence tracker measures.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/sunwardhq/sunward/internal/bus"
)

// Emitter publishes an empty status request at a fixed interval, plus once
// immediately on startup.
type Emitter struct {
	bus      bus.Bus
	topics   bus.Topics
	interval time.Duration
	logger   *slog.Logger
	poke     chan struct{}
}

func New(b bus.Bus, topics bus.Topics, interval time.Duration, logger *slog.Logger) *Emitter {
	return &Emitter{
		bus:      b,
		topics:   topics,
		interval: interval,
		logger:   logger,
		poke:     make(chan struct{}, 1),
	}
}

func (e *Emitter) Run(ctx context.Context) error {
	e.logger.Debug("started", slog.Duration("interval", e.interval))
	defer e.logger.Debug("stopped")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.request()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.request()
		case <-e.poke:
			e.request()
		}
	}
}

// Poke requests an immediate heartbeat, without waiting for the next tick.
func (e *Emitter) Poke() {
	select {
	case e.poke <- struct{}{}:
	default:
	}
}

func (e *Emitter) request() {
	if err := e.bus.Publish(e.topics.StatusRequest(), ""); err != nil {
		e.logger.Error("failed to publish status request", "err", err)
	}
}
