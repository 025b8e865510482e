package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)

	parsed, err := parseRFC3339(formatTime(now))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(now))
}

func TestFormatTimeSortsLexicographically(t *testing.T) {
	// An exact-second timestamp must still sort before the same second
	// plus a fraction when compared as TEXT.
	exact := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	later := exact.Add(500 * time.Millisecond)

	assert.Less(t, formatTime(exact), formatTime(later))
	assert.Equal(t, "2026-03-14T09:26:53.000000000Z", formatTime(exact))
}

func TestParseRFC3339Invalid(t *testing.T) {
	_, err := parseRFC3339("not a timestamp")
	assert.Error(t, err)
}
