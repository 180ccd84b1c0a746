package rules

import "time"

// CoverageGaps checks the rule set against every minute of the given calendar
// day, from 00:00 through 24:00 inclusive, and returns the instants no rule
// matches. A non-empty result means the configuration has holes: the resolver
// will find no rule during those minutes.
//
// This is a configuration self-check, run at startup and from the check
// command, not on the scheduling path.
func (r Resolver) CoverageGaps(day time.Time) []time.Time {
	var gaps []time.Time
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	for minute := 0; minute <= 24*60; minute++ {
		instant := start.Add(time.Duration(minute) * time.Minute)
		if _, err := r.Resolve(instant); err != nil {
			gaps = append(gaps, instant)
		}
	}
	return gaps
}
