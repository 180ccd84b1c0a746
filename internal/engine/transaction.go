package engine

import (
	"time"

	"github.com/sunwardhq/sunward/internal/rules"
)

// applyResult is the outcome of an apply transaction.
type applyResult int

const (
	resultSuccess applyResult = iota
	resultTimeout
	resultSuperseded
	resultAbandoned
)

func (r applyResult) String() string {
	switch r {
	case resultSuccess:
		return "success"
	case resultTimeout:
		return "timeout"
	case resultSuperseded:
		return "superseded"
	default:
		return "abandoned"
	}
}

// matchResult classifies an inbound message against a transaction's expected
// acknowledgment. A message on the right topic with the wrong payload is
// inconclusive (matchWaiting), not a failure: the device may send several
// state updates and a later one can still confirm. Only the deadline fails a
// transaction that never confirms.
type matchResult int

const (
	matchNone matchResult = iota
	matchWaiting
	matchDone
)

// A transaction is one attempt to make the device match a rule's command:
// publish, then await the acknowledgment until the deadline. At most one
// transaction exists at any time. It is owned exclusively by the engine's
// event loop, which resolves its outcome exactly once: success,
// failed-by-timeout, or failed-by-supersession.
type transaction struct {
	rule      rules.Resolved
	startedAt time.Time
	timer     *time.Timer
}

func newTransaction(rule rules.Resolved, now time.Time, timeout time.Duration) *transaction {
	return &transaction{
		rule:      rule,
		startedAt: now,
		timer:     time.NewTimer(timeout),
	}
}

// match classifies an inbound message. ackTopic is the topic the device
// reports this transaction's action on.
func (t *transaction) match(ackTopic, topic, payload string) matchResult {
	if topic != ackTopic {
		return matchNone
	}
	if payload == t.rule.Payload {
		return matchDone
	}
	return matchWaiting
}

// resolve stops the deadline timer. The engine loop guarantees at most one
// call per transaction.
func (t *transaction) resolve() {
	t.timer.Stop()
}
