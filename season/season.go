// Package season computes the festival season calendar: nine numbered weeks,
// each running Sunday through Saturday, anchored to the fourth Sunday on or
// after June 1.
package season

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Weeks is how many numbered weeks a season has.
const Weeks = 9

// DefaultTimezone is the grounds' zone. Season boundaries are midnights in
// this zone unless a caller supplies another location.
const DefaultTimezone = "America/New_York"

// A Season is one year's program calendar.
type Season struct {
	Year int

	// Start is midnight on opening Sunday. End is midnight on the Sunday
	// after closing Saturday, so the span is [Start, End).
	Start time.Time
	End   time.Time

	// WeekStarts[i] is midnight on the Sunday opening week i+1.
	WeekStarts []time.Time
}

// DefaultLocation loads DefaultTimezone, falling back to UTC if the zone
// database is missing it.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// For computes the season for a year. The anchor is found by scanning forward
// from June 1 a day at a time; June 1 itself may be the first Sunday. Years
// that can't anchor fall back to the known 2025 season rather than erroring:
// callers use seasons for defaulting, and a default must always exist.
func For(year int, loc *time.Location) Season {
	if loc == nil {
		loc = DefaultLocation()
	}
	if year < 1874 || year > 9999 {
		return fallback(loc)
	}

	day := time.Date(year, time.June, 1, 0, 0, 0, 0, loc)
	for day.Weekday() != time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	// day is now the first Sunday; the anchor is three Sundays later.
	anchor := day.AddDate(0, 0, 21)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Count:   Weeks,
		Dtstart: anchor,
	})
	if err != nil {
		return fallback(loc)
	}
	starts := r.All()
	if len(starts) != Weeks {
		return fallback(loc)
	}

	return Season{
		Year:       year,
		Start:      starts[0],
		End:        starts[Weeks-1].AddDate(0, 0, 7),
		WeekStarts: starts,
	}
}

// Current returns the season for now's year, judged in loc.
func Current(now time.Time, loc *time.Location) Season {
	if loc == nil {
		loc = DefaultLocation()
	}
	return For(now.In(loc).Year(), loc)
}

// fallback is the 2025 season, which is known good: June 1, 2025 was itself a
// Sunday, putting the anchor at June 22.
func fallback(loc *time.Location) Season {
	anchor := time.Date(2025, time.June, 22, 0, 0, 0, 0, loc)
	starts := make([]time.Time, Weeks)
	for i := range starts {
		starts[i] = anchor.AddDate(0, 0, 7*i)
	}
	return Season{
		Year:       2025,
		Start:      anchor,
		End:        anchor.AddDate(0, 0, 7*Weeks),
		WeekStarts: starts,
	}
}

// Contains reports whether t falls inside the season's span.
func (s Season) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// WeekOf returns the 1-based season week containing t, or 0 when t falls
// outside the season. The instant is what matters; t may be in any zone.
func (s Season) WeekOf(t time.Time) int {
	if !s.Contains(t) {
		return 0
	}
	for i := len(s.WeekStarts) - 1; i >= 0; i-- {
		if !t.Before(s.WeekStarts[i]) {
			return i + 1
		}
	}
	return 0
}

// WeekBounds returns the [start, end) span of week n. Weeks outside 1..Weeks
// return zero times.
func (s Season) WeekBounds(n int) (start, end time.Time) {
	if n < 1 || n > len(s.WeekStarts) {
		return time.Time{}, time.Time{}
	}
	start = s.WeekStarts[n-1]
	return start, start.AddDate(0, 0, 7)
}

// WeekLabel renders week n for display, eg. "Week 1 (Jun 22 - Jun 28)". The
// second date is the closing Saturday, inclusive. Weeks outside 1..Weeks
// return "".
func (s Season) WeekLabel(n int) string {
	start, end := s.WeekBounds(n)
	if start.IsZero() {
		return ""
	}
	last := end.AddDate(0, 0, -1)
	return fmt.Sprintf("Week %d (%s - %s)", n, start.Format("Jan 2"), last.Format("Jan 2"))
}
