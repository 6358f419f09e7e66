package service

import (
	"fmt"
	"strings"
	"time"
)

// FormatRemaining renders a duration as a human readable remaining-time
// string, e.g. "2 days 3 hours 17 minutes". Durations under a minute
// fall back to seconds; non-positive durations read "expired".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}

	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int(d / time.Second)

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	return strings.Join(parts, " ")
}

// FormatTimestamp renders an absolute expiration for operator display.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 MST")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
