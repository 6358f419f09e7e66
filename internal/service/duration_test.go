package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"expired", 0, "expired"},
		{"negative", -time.Minute, "expired"},
		{"seconds only", 42 * time.Second, "42 seconds"},
		{"one second", time.Second, "1 second"},
		{"minutes", 5 * time.Minute, "5 minutes"},
		{"hours and minutes", 2*time.Hour + 30*time.Minute, "2 hours 30 minutes"},
		{"whole days", 7 * 24 * time.Hour, "7 days"},
		{"mixed", 24*time.Hour + 3*time.Hour + 17*time.Minute, "1 day 3 hours 17 minutes"},
		{"seconds dropped next to larger units", time.Hour + 5*time.Second, "1 hour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRemaining(tt.d))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "Mar 1, 2026 12:30 UTC", FormatTimestamp(ts))
}
