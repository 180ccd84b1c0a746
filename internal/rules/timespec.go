package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"gopkg.in/yaml.v3"
)

// Location is the geographic position used to resolve solar events.
type Location struct {
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude"`
	Longitude float64 `yaml:"longitude" mapstructure:"longitude"`
}

const (
	eventSunrise = "sunrise"
	eventSunset  = "sunset"
)

// A TimeSpec is either a fixed local wall-clock time ("HH:MM", leading zero
// required) or a symbolic solar event ("sunrise" or "sunset").
//
// The zero TimeSpec is invalid and resolves to an error.
type TimeSpec struct {
	hour   int
	minute int
	event  string
	valid  bool
}

// ParseTimeSpec parses a time specification string.
func ParseTimeSpec(s string) (TimeSpec, error) {
	switch s {
	case eventSunrise, eventSunset:
		return TimeSpec{event: s, valid: true}, nil
	}
	// fixed times must be exactly "HH:MM"; "3:34" is not accepted
	if len(s) != 5 || s[2] != ':' {
		return TimeSpec{}, fmt.Errorf("invalid time spec %q: want HH:MM, sunrise or sunset", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeSpec{}, fmt.Errorf("invalid time spec %q: %w", s, err)
	}
	return TimeSpec{hour: t.Hour(), minute: t.Minute(), valid: true}, nil
}

func (t *TimeSpec) UnmarshalYAML(value *yaml.Node) error {
	spec, err := ParseTimeSpec(value.Value)
	if err != nil {
		return err
	}
	*t = spec
	return nil
}

func (t TimeSpec) MarshalYAML() (any, error) {
	return t.String(), nil
}

func (t TimeSpec) String() string {
	if !t.valid {
		return ""
	}
	if t.event != "" {
		return t.event
	}
	return fmt.Sprintf("%02d:%02d", t.hour, t.minute)
}

// On resolves the spec against a calendar day, in the process's local timezone.
// Solar events are computed for the day and location; fixed times combine the
// day's date with the wall-clock time of day.
func (t TimeSpec) On(day time.Time, loc Location) (time.Time, error) {
	if !t.valid {
		return time.Time{}, errors.New("empty time spec")
	}
	if t.event != "" {
		rise, set := sunrise.SunriseSunset(loc.Latitude, loc.Longitude, day.Year(), day.Month(), day.Day())
		if t.event == eventSunrise {
			return rise.In(time.Local), nil
		}
		return set.In(time.Local), nil
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.hour, t.minute, 0, 0, time.Local), nil
}
