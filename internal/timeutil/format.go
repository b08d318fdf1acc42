// Package timeutil provides timestamp formatting shared by the report
// writers and the results server.
package timeutil

import (
	"fmt"
	"math"
	"time"
)

// FormatMilliseconds renders a millisecond offset as HH:MM:SS.mmm. Negative
// offsets are clamped to zero. Hours wider than two digits are kept intact
// rather than wrapped.
func FormatMilliseconds(ms float64) string {
	if ms < 0 || math.IsNaN(ms) {
		ms = 0
	}
	d := time.Duration(math.Round(ms)) * time.Millisecond
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)
	millis := int(d % time.Second / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// ParseTimestamp parses a HH:MM:SS.mmm string back into a millisecond
// offset. It is the inverse of FormatMilliseconds for non-negative inputs.
func ParseTimestamp(s string) (float64, error) {
	var hours, minutes, seconds, millis int
	if _, err := fmt.Sscanf(s, "%d:%d:%d.%d", &hours, &minutes, &seconds, &millis); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	if minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || millis < 0 || millis > 999 || hours < 0 {
		return 0, fmt.Errorf("invalid timestamp %q: component out of range", s)
	}
	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return float64(d / time.Millisecond), nil
}
