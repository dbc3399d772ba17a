package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("2d")
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, d)

	d, err = ParseDuration("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = ParseDuration("xd")
	assert.Error(t, err)
}

func TestExpirationParser_Durations(t *testing.T) {
	p := NewExpirationParser(-5)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	got, ok := p.Parse("1h30m", now)
	require.True(t, ok)
	assert.Equal(t, now.Add(90*time.Minute), got)

	got, ok = p.Parse("7d", now)
	require.True(t, ok)
	assert.Equal(t, now.Add(7*24*time.Hour), got)
}

func TestExpirationParser_NaturalLanguage(t *testing.T) {
	p := NewExpirationParser(-5)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	got, ok := p.Parse("in 2 hours", now)
	require.True(t, ok)
	assert.Equal(t, now.Add(2*time.Hour).Unix(), got.Unix())

	got, ok = p.Parse("3 days", now)
	require.True(t, ok, "bare amounts are read as relative to now")
	assert.Equal(t, now.Add(72*time.Hour).Unix(), got.Unix())
}

func TestExpirationParser_FixedOffsetIgnoresDST(t *testing.T) {
	p := NewExpirationParser(-5)
	// July is daylight saving time in New York, the fixed offset still applies.
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)

	got, ok := p.Parse("tomorrow at 5pm", now)
	require.True(t, ok)
	inZone := got.In(p.Location())
	assert.Equal(t, 11, inZone.Day())
	assert.Equal(t, 17, inZone.Hour())
	assert.Equal(t, 22, got.UTC().Hour())
}

func TestExpirationParser_Unparseable(t *testing.T) {
	p := NewExpirationParser(-5)
	now := time.Now()

	_, ok := p.Parse("not a real time", now)
	assert.False(t, ok)

	_, ok = p.Parse("   ", now)
	assert.False(t, ok)
}

func TestFormatExpiration(t *testing.T) {
	loc := FixedZone(-5)
	ts := time.Date(2024, 3, 3, 22, 4, 5, 0, time.UTC)
	assert.Equal(t, "March 3rd 2024, 5:04:05 pm", FormatExpiration(ts, loc))

	ts = time.Date(2024, 3, 12, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, "March 12th 2024, 12:00:00 am", FormatExpiration(ts, loc))
}
