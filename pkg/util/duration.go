package util

import (
	"fmt"
	"time"
)

// FormatDuration renders a track duration as M:SS, or H:MM:SS once it
// crosses the hour mark.
//
// Example:
//
//	FormatDuration(75 * time.Second)   // "1:15"
//	FormatDuration(3725 * time.Second) // "1:02:05"
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	minutes, seconds := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
