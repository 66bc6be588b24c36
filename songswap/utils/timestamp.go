package utils

import (
	"fmt"
	"time"
)

// Discord renders <t:unix:style> markers in the reader's local time zone.

// FullTimestamp formats t as a full date-and-time marker
// ("Thursday, March 5, 2020 11:28 AM").
func FullTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:F>", t.Unix())
}

// RelativeTimestamp formats t as a relative marker ("in 2 days").
func RelativeTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

// DeadlineTimestamps renders the usual "full (relative)" pair used in
// deadline announcements.
func DeadlineTimestamps(t time.Time) string {
	return fmt.Sprintf("%s (%s)", FullTimestamp(t), RelativeTimestamp(t))
}
