// Package rules determines which control rule is active at a given instant.
//
// A rule is a named time window plus the command (action and payload) to
// apply while the window is active. Windows are configured as wall-clock
// times or solar events and may wrap around midnight.
package rules

import (
	"errors"
	"log/slog"
	"time"
)

// A Descriptor is one configured rule.
type Descriptor struct {
	Name          string   `yaml:"name"`
	Begin         TimeSpec `yaml:"begin"`
	End           TimeSpec `yaml:"end"`
	WrapsMidnight bool     `yaml:"wrapsMidnight"`
	Action        string   `yaml:"action"`
	Payload       string   `yaml:"payload"`
}

// A Resolved rule is a Descriptor resolved against one calendar day and
// location. Begin is always before End; the window is half-open: [Begin, End).
type Resolved struct {
	Name    string
	Begin   time.Time
	End     time.Time
	Action  string
	Payload string
}

// Contains reports whether t falls within the rule's window.
func (r Resolved) Contains(t time.Time) bool {
	return !t.Before(r.Begin) && t.Before(r.End)
}

// ErrNoRule is returned by Resolve when no rule's window contains the given
// instant. A well-formed rule set covers every instant of every day, so this
// indicates a configuration defect, not a transient condition.
var ErrNoRule = errors.New("no rule matches")

// A Resolver matches instants against an ordered list of rule Descriptors.
// When windows overlap, the earlier descriptor wins.
type Resolver struct {
	Descriptors []Descriptor
	Location    Location
	Logger      *slog.Logger
}

// Resolve returns the rule whose window contains now.
//
// A rule that wraps midnight is checked against two candidate windows:
// begin on the previous day with end today, then begin today with end
// tomorrow. Other rules resolve both bounds against today.
func (r Resolver) Resolve(now time.Time) (Resolved, error) {
	for _, desc := range r.Descriptors {
		if desc.WrapsMidnight {
			if w, ok := r.window(desc, now.AddDate(0, 0, -1), now); ok && w.Contains(now) {
				return w, nil
			}
			if w, ok := r.window(desc, now, now.AddDate(0, 0, 1)); ok && w.Contains(now) {
				return w, nil
			}
			continue
		}
		if w, ok := r.window(desc, now, now); ok && w.Contains(now) {
			return w, nil
		}
	}
	return Resolved{}, ErrNoRule
}

// window resolves desc's bounds against the given calendar days. It returns
// false for windows that cannot be used: a malformed time spec or an inverted
// window. Both are logged; a rule that never resolves shows up as a coverage
// gap in CoverageGaps.
func (r Resolver) window(desc Descriptor, beginDay, endDay time.Time) (Resolved, bool) {
	begin, err := desc.Begin.On(beginDay, r.Location)
	if err != nil {
		r.logger().Error("unusable rule window", "rule", desc.Name, "bound", "begin", "err", err)
		return Resolved{}, false
	}
	end, err := desc.End.On(endDay, r.Location)
	if err != nil {
		r.logger().Error("unusable rule window", "rule", desc.Name, "bound", "end", "err", err)
		return Resolved{}, false
	}
	if !begin.Before(end) {
		return Resolved{}, false
	}
	return Resolved{
		Name:    desc.Name,
		Begin:   begin,
		End:     end,
		Action:  desc.Action,
		Payload: desc.Payload,
	}, true
}

// Actions returns the distinct actions referenced by the rule set, in
// configuration order.
func (r Resolver) Actions() []string {
	seen := make(map[string]struct{}, len(r.Descriptors))
	actions := make([]string, 0, len(r.Descriptors))
	for _, desc := range r.Descriptors {
		if _, ok := seen[desc.Action]; ok {
			continue
		}
		seen[desc.Action] = struct{}{}
		actions = append(actions, desc.Action)
	}
	return actions
}

// Names returns the rule names, in configuration order.
func (r Resolver) Names() []string {
	names := make([]string, len(r.Descriptors))
	for i, desc := range r.Descriptors {
		names[i] = desc.Name
	}
	return names
}

func (r Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
