// Package timecode converts between millisecond durations and "HH:MM:SS" display strings.
package timecode

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	// segmentBase is the scale between adjacent colon-separated segments.
	segmentBase = 60
)

// MsToTime formats a duration in milliseconds as "MM:SS", or "HH:MM:SS" when it spans at least an hour.
func MsToTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}

	seconds := (ms / msPerSecond) % segmentBase
	minutes := (ms / msPerMinute) % segmentBase
	hours := ms / msPerHour

	if hours == 0 {
		return fmt.Sprintf("%02d:%02d", minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// TimeToMs parses a colon-separated duration. The rightmost segment is seconds and every
// segment to its left is worth another factor of 60. Unparseable segments count as zero.
func TimeToMs(text string) int64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	parts := strings.Split(text, ":")
	var total, scale int64 = 0, 1
	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
		if err == nil {
			total += n * scale
		}
		scale *= segmentBase
	}

	return total * msPerSecond
}
