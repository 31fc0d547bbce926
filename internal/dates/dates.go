package dates

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	EventDateLayout     = "January 2, 2006"
	EventDateTimeLayout = "January 2, 2006 3:04 PM"
	ShortDateLayout     = "Jan 2, 2006"
)

// now is swapped in tests.
var now = time.Now

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps, HTML datetime-local values and plain
// dates.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func FormatEventDate(t time.Time) string {
	return t.Format(EventDateLayout)
}

func FormatEventDateTime(t time.Time) string {
	return t.Format(EventDateTimeLayout)
}

// RelativeTime describes t relative to now ("3 days ago", "2 hours from now").
func RelativeTime(t time.Time) string {
	return humanize.RelTime(t, now(), "ago", "from now")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func IsToday(t time.Time) bool {
	return sameDay(t, now().In(t.Location()))
}

func IsTomorrow(t time.Time) bool {
	return sameDay(t, now().In(t.Location()).AddDate(0, 0, 1))
}

func IsYesterday(t time.Time) bool {
	return sameDay(t, now().In(t.Location()).AddDate(0, 0, -1))
}

func IsPast(t time.Time) bool {
	return t.Before(now())
}

func IsUpcoming(t time.Time) bool {
	return t.After(now())
}

func FriendlyDate(t time.Time) string {
	switch {
	case IsToday(t):
		return "Today"
	case IsTomorrow(t):
		return "Tomorrow"
	case IsYesterday(t):
		return "Yesterday"
	}
	return t.Format(ShortDateLayout)
}

// DayBounds returns the first and last instant of t's calendar day.
func DayBounds(t time.Time) (start, end time.Time) {
	y, m, d := t.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
