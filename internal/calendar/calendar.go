// Package calendar works with hotel nights: dates truncated to midnight,
// where a stay [checkIn, checkOut) occupies every night except checkOut.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the wire and map-key format of a night.
const Layout = "2006-01-02"

// Day truncates t to midnight of its calendar date, expressed in UTC so that
// days compare equal regardless of the offset they were parsed with.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Key formats the night t falls on.
func Key(t time.Time) string { return Day(t).Format(Layout) }

// NightsInRange lists one entry per night from checkIn (inclusive) to
// checkOut (exclusive). It is empty when checkOut <= checkIn.
func NightsInRange(checkIn, checkOut time.Time) []time.Time {
	cur, end := Day(checkIn), Day(checkOut)
	if !cur.Before(end) {
		return nil
	}
	out := make([]time.Time, 0, int(end.Sub(cur).Hours()/24))
	for cur.Before(end) {
		out = append(out, cur)
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}

// Overlaps reports whether [a, b) and [c, d) share at least one instant.
func Overlaps(a, b, c, d time.Time) bool {
	return a.Before(d) && c.Before(b)
}

// Parse accepts a YYYY-MM-DD date or an RFC 3339 timestamp and returns the day.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Day(t), nil
	}
	return time.Time{}, fmt.Errorf("calendar: %q is not an ISO-8601 date", s)
}
