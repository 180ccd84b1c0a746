package rules_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunwardhq/sunward/internal/rules"
)

func mustSpec(t *testing.T, s string) rules.TimeSpec {
	t.Helper()
	spec, err := rules.ParseTimeSpec(s)
	require.NoError(t, err)
	return spec
}

// a rule set covering the full day: [00:00,06:00), [06:00,22:00), [22:00,24:00)
func fullDay(t *testing.T) []rules.Descriptor {
	t.Helper()
	return []rules.Descriptor{
		{Name: "night", Begin: mustSpec(t, "00:00"), End: mustSpec(t, "06:00"), Action: "POWER", Payload: "OFF"},
		{Name: "day", Begin: mustSpec(t, "06:00"), End: mustSpec(t, "22:00"), Action: "POWER", Payload: "ON"},
		{Name: "late", Begin: mustSpec(t, "22:00"), End: mustSpec(t, "00:00"), WrapsMidnight: true, Action: "POWER", Payload: "OFF"},
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := rules.Resolver{Descriptors: fullDay(t), Logger: slog.New(slog.DiscardHandler)}
	day := func(h, m int) time.Time {
		return time.Date(2024, time.June, 15, h, m, 0, 0, time.Local)
	}

	tests := []struct {
		name      string
		now       time.Time
		wantRule  string
		wantBegin time.Time
		wantEnd   time.Time
	}{
		{
			name:      "inside first window",
			now:       day(2, 0),
			wantRule:  "night",
			wantBegin: day(0, 0),
			wantEnd:   day(6, 0),
		},
		{
			name:      "window end is exclusive",
			now:       day(6, 0),
			wantRule:  "day",
			wantBegin: day(6, 0),
			wantEnd:   day(22, 0),
		},
		{
			name:      "wrapping window, before midnight",
			now:       day(23, 30),
			wantRule:  "late",
			wantBegin: day(22, 0),
			wantEnd:   day(0, 0).AddDate(0, 0, 1),
		},
		{
			name:      "first match wins after midnight",
			now:       day(0, 30),
			wantRule:  "night",
			wantBegin: day(0, 0),
			wantEnd:   day(6, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := r.Resolve(tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRule, rule.Name)
			assert.Equal(t, tt.wantBegin, rule.Begin)
			assert.Equal(t, tt.wantEnd, rule.End)
			assert.True(t, rule.Begin.Before(rule.End))
			assert.True(t, rule.Contains(tt.now))
			assert.False(t, rule.Contains(rule.End))
		})
	}
}

func TestResolver_Resolve_WrapsIntoPreviousDay(t *testing.T) {
	r := rules.Resolver{
		Descriptors: []rules.Descriptor{
			{Name: "overnight", Begin: mustSpec(t, "22:00"), End: mustSpec(t, "06:00"), WrapsMidnight: true, Action: "POWER", Payload: "OFF"},
		},
		Logger: slog.New(slog.DiscardHandler),
	}

	now := time.Date(2024, time.June, 15, 1, 0, 0, 0, time.Local)
	rule, err := r.Resolve(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 14, 22, 0, 0, 0, time.Local), rule.Begin)
	assert.Equal(t, time.Date(2024, time.June, 15, 6, 0, 0, 0, time.Local), rule.End)
}

func TestResolver_Resolve_NoRule(t *testing.T) {
	r := rules.Resolver{
		Descriptors: []rules.Descriptor{
			{Name: "night", Begin: mustSpec(t, "00:00"), End: mustSpec(t, "06:00"), Action: "POWER", Payload: "OFF"},
		},
		Logger: slog.New(slog.DiscardHandler),
	}

	_, err := r.Resolve(time.Date(2024, time.June, 15, 12, 0, 0, 0, time.Local))
	assert.ErrorIs(t, err, rules.ErrNoRule)
}

func TestResolver_Resolve_FirstMatchWins(t *testing.T) {
	r := rules.Resolver{
		Descriptors: []rules.Descriptor{
			{Name: "first", Begin: mustSpec(t, "00:00"), End: mustSpec(t, "12:00"), Action: "POWER", Payload: "ON"},
			{Name: "second", Begin: mustSpec(t, "06:00"), End: mustSpec(t, "18:00"), Action: "POWER", Payload: "OFF"},
		},
		Logger: slog.New(slog.DiscardHandler),
	}

	rule, err := r.Resolve(time.Date(2024, time.June, 15, 8, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.Equal(t, "first", rule.Name)
}

func TestResolver_Resolve_InvertedWindowNeverMatches(t *testing.T) {
	r := rules.Resolver{
		Descriptors: []rules.Descriptor{
			// end before begin without wrapsMidnight: unusable window
			{Name: "broken", Begin: mustSpec(t, "08:00"), End: mustSpec(t, "06:00"), Action: "POWER", Payload: "ON"},
		},
		Logger: slog.New(slog.DiscardHandler),
	}

	_, err := r.Resolve(time.Date(2024, time.June, 15, 7, 0, 0, 0, time.Local))
	assert.ErrorIs(t, err, rules.ErrNoRule)
}

func TestResolver_Resolve_SolarWindow(t *testing.T) {
	loc := rules.Location{Latitude: 0, Longitude: 0}
	r := rules.Resolver{
		Descriptors: []rules.Descriptor{
			{Name: "daylight", Begin: mustSpec(t, "sunrise"), End: mustSpec(t, "sunset"), Action: "POWER", Payload: "OFF"},
		},
		Location: loc,
		Logger:   slog.New(slog.DiscardHandler),
	}

	rise, set := sunrise.SunriseSunset(loc.Latitude, loc.Longitude, 2024, time.June, 15)
	now := rise.In(time.Local).Add(time.Hour)

	rule, err := r.Resolve(now)
	require.NoError(t, err)
	assert.Equal(t, "daylight", rule.Name)
	assert.Equal(t, rise.In(time.Local), rule.Begin)
	assert.Equal(t, set.In(time.Local), rule.End)
}

func TestResolver_Resolve_WrapToSunrise(t *testing.T) {
	loc := rules.Location{Latitude: 0, Longitude: 0}
	r := rules.Resolver{
		Descriptors: []rules.Descriptor{
			{Name: "overnight", Begin: mustSpec(t, "22:00"), End: mustSpec(t, "sunrise"), WrapsMidnight: true, Action: "POWER", Payload: "OFF"},
		},
		Location: loc,
		Logger:   slog.New(slog.DiscardHandler),
	}

	now := time.Date(2024, time.June, 15, 23, 30, 0, 0, time.Local)
	rule, err := r.Resolve(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 15, 22, 0, 0, 0, time.Local), rule.Begin)
	rise, _ := sunrise.SunriseSunset(loc.Latitude, loc.Longitude, 2024, time.June, 16)
	assert.Equal(t, rise.In(time.Local), rule.End)
}

func TestResolver_CoverageGaps(t *testing.T) {
	day := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.Local)

	r := rules.Resolver{Descriptors: fullDay(t), Logger: slog.New(slog.DiscardHandler)}
	assert.Empty(t, r.CoverageGaps(day))

	// drop the day rule: every minute from 06:00 to 21:59 is uncovered
	r.Descriptors = []rules.Descriptor{r.Descriptors[0], r.Descriptors[2]}
	gaps := r.CoverageGaps(day)
	require.NotEmpty(t, gaps)
	assert.Len(t, gaps, 16*60)
	assert.Equal(t, time.Date(2024, time.June, 15, 6, 0, 0, 0, time.Local), gaps[0])
}

func TestResolver_Actions(t *testing.T) {
	r := rules.Resolver{
		Descriptors: []rules.Descriptor{
			{Name: "a", Action: "POWER"},
			{Name: "b", Action: "DIMMER"},
			{Name: "c", Action: "POWER"},
		},
	}
	assert.Equal(t, []string{"POWER", "DIMMER"}, r.Actions())
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
}

func TestLoad(t *testing.T) {
	descriptors, err := rules.Load(strings.NewReader(`
- name: night
  begin: "00:00"
  end: "06:00"
  action: POWER
  payload: "OFF"
- name: late
  begin: "22:00"
  end: sunrise
  wrapsMidnight: true
  action: POWER
  payload: "OFF"
`))
	require.NoError(t, err)
	require.Len(t, descriptors, 2)
	assert.Equal(t, "night", descriptors[0].Name)
	assert.Equal(t, "00:00", descriptors[0].Begin.String())
	assert.True(t, descriptors[1].WrapsMidnight)
	assert.Equal(t, "sunrise", descriptors[1].End.String())

	_, err = rules.Load(strings.NewReader(`
- begin: "00:00"
  end: "06:00"
  action: POWER
`))
	assert.ErrorContains(t, err, "name is required")

	_, err = rules.Load(strings.NewReader(`
- name: broken
  begin: "3:00"
  end: "06:00"
  action: POWER
`))
	assert.Error(t, err)
}
