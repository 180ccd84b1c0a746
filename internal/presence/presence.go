// Package presence tracks whether the device is online, based on heartbeat
// request/response pairs observed on the bus.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sunwardhq/sunward/internal/bus"
	"github.com/sunwardhq/sunward/pkg/pubsub"
)

// State is the current belief about the device's reachability.
type State int

const (
	Offline State = iota
	Online
)

func (s State) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

// payload is the wire representation of a presence state.
func (s State) payload() string {
	if s == Online {
		return "YES"
	}
	return "NO"
}

// Tracker maintains the online/offline belief. It observes status requests
// and responses on the bus: a request arms an offline-detection timer, a
// response cancels it and marks the device online, and an expired timer
// marks it offline. Every transition is published on the presence event
// topic exactly once and fanned out to in-process subscribers.
//
// All state transitions happen on the Run goroutine; bus callbacks only
// enqueue events, which makes timer cancellation race-free.
type Tracker struct {
	*pubsub.Publisher[State]
	bus     bus.Bus
	topics  bus.Topics
	timeout time.Duration
	logger  *slog.Logger
	events  chan event

	mu      sync.RWMutex
	state   State
	changed time.Time
}

type eventKind int

const (
	statusRequested eventKind = iota
	statusAcked
	presenceQueried
)

type event struct {
	kind eventKind
}

// New returns a Tracker that reports the device offline after timeout
// without a heartbeat response. The initial belief is Offline.
func New(b bus.Bus, topics bus.Topics, timeout time.Duration, logger *slog.Logger) *Tracker {
	return &Tracker{
		Publisher: pubsub.New[State](logger),
		bus:       b,
		topics:    topics,
		timeout:   timeout,
		logger:    logger,
		events:    make(chan event, 16),
	}
}

// Run subscribes to the status and query topics and processes events until
// ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.subscribe(); err != nil {
		return err
	}
	t.logger.Debug("started", slog.Duration("timeout", t.timeout))
	defer t.logger.Debug("stopped")

	var timer *time.Timer
	var timerC <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return nil
		case ev := <-t.events:
			switch ev.kind {
			case statusRequested:
				// the timeout is measured from the latest request
				stopTimer()
				timer = time.NewTimer(t.timeout)
				timerC = timer.C
			case statusAcked:
				stopTimer()
				t.setState(Online)
			case presenceQueried:
				t.respond()
			}
		case <-timerC:
			timer, timerC = nil, nil
			t.setState(Offline)
		}
	}
}

// Current returns the present belief and when it last changed.
func (t *Tracker) Current() (State, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state, t.changed
}

func (t *Tracker) subscribe() error {
	for topic, kind := range map[string]eventKind{
		t.topics.StatusRequest():  statusRequested,
		t.topics.StatusResponse(): statusAcked,
		t.topics.PresenceQuery():  presenceQueried,
	} {
		if err := t.bus.Subscribe(topic, func(string, string) { t.enqueue(kind) }); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) enqueue(kind eventKind) {
	select {
	case t.events <- event{kind: kind}:
	default:
		t.logger.Warn("event queue full; event dropped")
	}
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	if t.state == s {
		t.mu.Unlock()
		return
	}
	t.state = s
	t.changed = time.Now()
	t.mu.Unlock()

	t.logger.Info("device presence changed", slog.String("state", s.String()))
	if s == Online {
		deviceOnline.Set(1)
	} else {
		deviceOnline.Set(0)
	}
	if err := t.bus.Publish(t.topics.PresenceEvent(), s.payload()); err != nil {
		t.logger.Error("failed to publish presence event", "err", err)
	}
	t.Publisher.Publish(s)
}

func (t *Tracker) respond() {
	state, _ := t.Current()
	if err := t.bus.Publish(t.topics.PresenceResponse(), state.payload()); err != nil {
		t.logger.Error("failed to answer presence query", "err", err)
	}
}
