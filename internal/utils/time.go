package utils

import (
	"strings"
	"time"
)

const layoutDate = "2006-01-02"

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(layoutDate, strings.TrimSpace(s))
}

// Clock returns now() from an optional override, defaulting to NowUTC.
// Services keep a `Now func() time.Time` field so tests can pin time.
func Clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return NowUTC()
}
