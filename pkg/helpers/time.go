package helpers

import (
	"time"
)

// TimestampLayout renders as MM-dd-yyyy HH:mm:ss zone, e.g. "03-14-2024 09:26:53 PST".
const TimestampLayout = "01-02-2006 15:04:05 MST"

// FormatTimestamp renders t in loc using TimestampLayout. A nil loc means UTC.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp for the same location.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(TimestampLayout, s, loc)
}
