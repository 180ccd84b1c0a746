package rules_test

import (
	"testing"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunwardhq/sunward/internal/rules"
)

func TestParseTimeSpec(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "fixed time", input: "03:34", want: "03:34"},
		{name: "midnight", input: "00:00", want: "00:00"},
		{name: "sunrise", input: "sunrise", want: "sunrise"},
		{name: "sunset", input: "sunset", want: "sunset"},
		{name: "missing leading zero", input: "3:34", wantErr: true},
		{name: "invalid hour", input: "25:00", wantErr: true},
		{name: "not a time", input: "ab:cd", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "with seconds", input: "03:34:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := rules.ParseTimeSpec(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.String())
		})
	}
}

func TestTimeSpec_On(t *testing.T) {
	day := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.Local)
	loc := rules.Location{Latitude: 51.48, Longitude: 0}

	spec, err := rules.ParseTimeSpec("06:30")
	require.NoError(t, err)
	resolved, err := spec.On(day, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 15, 6, 30, 0, 0, time.Local), resolved)

	spec, err = rules.ParseTimeSpec("sunrise")
	require.NoError(t, err)
	resolved, err = spec.On(day, loc)
	require.NoError(t, err)
	wantRise, _ := sunrise.SunriseSunset(loc.Latitude, loc.Longitude, 2024, time.June, 15)
	assert.Equal(t, wantRise.In(time.Local), resolved)

	// the zero spec is unusable
	var zero rules.TimeSpec
	_, err = zero.On(day, loc)
	assert.Error(t, err)
}
