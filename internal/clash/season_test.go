package clash

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeasonKey(t *testing.T) {
	feb := time.Date(2026, time.February, 14, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-02", SeasonKey(feb))

	// Local times convert to UTC before keying.
	tz := time.FixedZone("UTC+13", 13*3600)
	lateJan := time.Date(2026, time.February, 1, 3, 0, 0, 0, tz)
	assert.Equal(t, "2026-01", SeasonKey(lateJan))
}

func TestSeasonDisplayName(t *testing.T) {
	feb := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Feb 2026 CWL", SeasonDisplayName(feb))
}

func TestDaysAgo(t *testing.T) {
	cutoff := DaysAgo(90)
	assert.True(t, cutoff.Before(time.Now().UTC()))
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -90), cutoff, time.Minute)
}
