// Package engine drives the device towards the currently active rule. On
// every tick it resolves the rule for the current instant, consults the
// ledger, and if the rule still needs applying runs a single bounded apply
// transaction: publish the command, await the device's acknowledgment, or
// fail on timeout.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/sunwardhq/sunward/internal/bus"
	"github.com/sunwardhq/sunward/internal/presence"
	"github.com/sunwardhq/sunward/internal/rules"
)

// Ledger records successful rule applications.
type Ledger interface {
	IsApplied(rules.Resolved) bool
	MarkApplied(context.Context, rules.Resolved, time.Time) error
}

// PresenceMonitor announces device presence transitions.
type PresenceMonitor interface {
	Subscribe() <-chan presence.State
	Unsubscribe(<-chan presence.State)
}

type message struct {
	topic   string
	payload string
}

// Engine is the rule application orchestrator. All of its state, including
// the single in-flight transaction slot, is owned by the Run goroutine; bus
// callbacks only forward messages into a channel. That makes supersession
// and deadline handling plain sequential code.
type Engine struct {
	resolver     rules.Resolver
	ledger       Ledger
	bus          bus.Bus
	topics       bus.Topics
	presence     PresenceMonitor
	interval     time.Duration
	applyTimeout time.Duration
	logger       *slog.Logger
	acks         chan message
	poke         chan struct{}
	current      *transaction

	// GetCurrentTime allows the current time to be set during testing.
	GetCurrentTime func() time.Time
}

// New returns an Engine that checks the rule set every interval and bounds
// each apply transaction by applyTimeout.
func New(resolver rules.Resolver, ledger Ledger, b bus.Bus, topics bus.Topics, p PresenceMonitor, interval, applyTimeout time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		resolver:     resolver,
		ledger:       ledger,
		bus:          b,
		topics:       topics,
		presence:     p,
		interval:     interval,
		applyTimeout: applyTimeout,
		logger:       logger,
		acks:         make(chan message, 16),
		poke:         make(chan struct{}, 1),
	}
}

// Run subscribes to the acknowledgment topics of all configured actions and
// processes ticks, presence transitions, acknowledgments and deadlines until
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for _, action := range e.resolver.Actions() {
		if err := e.bus.Subscribe(e.topics.Ack(action), e.onMessage); err != nil {
			return err
		}
	}
	online := e.presence.Subscribe()
	defer e.presence.Unsubscribe(online)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Debug("started", slog.Duration("interval", e.interval), slog.Duration("applyTimeout", e.applyTimeout))
	defer e.logger.Debug("stopped")

	for {
		// a nil deadline channel blocks forever: no transaction, no deadline
		var deadline <-chan time.Time
		if e.current != nil {
			deadline = e.current.timer.C
		}

		select {
		case <-ctx.Done():
			if e.current != nil {
				e.resolveCurrent(resultAbandoned)
			}
			return nil
		case <-ticker.C:
			e.tick(ctx)
		case <-e.poke:
			e.tick(ctx)
		case state := <-online:
			if state == presence.Online {
				e.logger.Debug("device came online; checking rules")
				e.tick(ctx)
			}
		case m := <-e.acks:
			e.onAck(ctx, m)
		case <-deadline:
			e.logger.Warn("apply timed out", slog.String("rule", e.current.rule.Name))
			e.resolveCurrent(resultTimeout)
		}
	}
}

// Poke triggers an immediate scheduling check, without waiting for the next
// tick. Used once at startup after the ledger has loaded.
func (e *Engine) Poke() {
	select {
	case e.poke <- struct{}{}:
	default:
	}
}

// tick is the scheduling check: resolve the active rule and start an apply
// transaction if the ledger has no evidence for the current window.
func (e *Engine) tick(ctx context.Context) {
	now := e.now()
	rule, err := e.resolver.Resolve(now)
	if err != nil {
		// configuration defect; the next tick retries, so a fixed rule set
		// heals without a restart
		e.logger.Error("no rule for current time; check rule coverage", "err", err, slog.Time("time", now))
		return
	}
	for _, name := range e.resolver.Names() {
		var active float64
		if name == rule.Name {
			active = 1
		}
		ruleActive.WithLabelValues(name).Set(active)
	}
	if e.ledger.IsApplied(rule) {
		return
	}
	e.logger.Info("applying rule",
		slog.String("rule", rule.Name),
		slog.String("action", rule.Action),
		slog.String("payload", rule.Payload),
	)
	e.apply(rule, now)
}

func (e *Engine) apply(rule rules.Resolved, now time.Time) {
	if e.current != nil {
		e.logger.Warn("apply superseded",
			slog.String("old", e.current.rule.Name),
			slog.String("new", rule.Name),
		)
		e.resolveCurrent(resultSuperseded)
	}
	e.current = newTransaction(rule, now, e.applyTimeout)
	if err := e.bus.Publish(e.topics.Command(rule.Action), rule.Payload); err != nil {
		// leave the transaction armed: the deadline fails it and the next
		// tick re-attempts
		e.logger.Error("failed to publish command", "err", err)
	}
}

// onMessage runs on the bus callback goroutine.
func (e *Engine) onMessage(topic, payload string) {
	select {
	case e.acks <- message{topic: topic, payload: payload}:
	default:
		e.logger.Warn("ack queue full; message dropped", slog.String("topic", topic))
	}
}

func (e *Engine) onAck(ctx context.Context, m message) {
	if e.current == nil {
		return
	}
	switch e.current.match(e.topics.Ack(e.current.rule.Action), m.topic, m.payload) {
	case matchDone:
		if err := e.ledger.MarkApplied(ctx, e.current.rule, e.current.startedAt); err != nil {
			e.logger.Error("failed to record applied rule", "err", err)
		}
		e.logger.Info("rule applied", slog.String("rule", e.current.rule.Name))
		e.resolveCurrent(resultSuccess)
	case matchWaiting:
		e.logger.Debug("unexpected ack payload; still waiting",
			slog.String("topic", m.topic),
			slog.String("payload", m.payload),
		)
	case matchNone:
	}
}

func (e *Engine) resolveCurrent(result applyResult) {
	e.current.resolve()
	appliesTotal.WithLabelValues(result.String()).Inc()
	e.current = nil
}

func (e *Engine) now() time.Time {
	if e.GetCurrentTime != nil {
		return e.GetCurrentTime()
	}
	return time.Now()
}
