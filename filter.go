package chqcal

import (
	"fmt"
	"strings"
	"time"
)

// DurationRange bounds an event's length in minutes, inclusive on both ends.
// A zero MaxMinutes leaves the range open above.
type DurationRange struct {
	MinMinutes int `json:"minMinutes"`
	MaxMinutes int `json:"maxMinutes,omitempty"`
}

// EventFilter narrows an event set along independent dimensions. Dimensions
// combine with AND; the values inside one dimension combine with OR. An empty
// dimension is unconstrained, so the zero filter matches everything.
//
// String dimensions match case-insensitively. Venue, series, discipline,
// audience and presenter values match either the slug or the display name of
// the corresponding taxonomy term.
type EventFilter struct {
	Venues      []string       `json:"venues,omitempty"`
	TimesOfDay  []TimeOfDay    `json:"timesOfDay,omitempty"`
	DaysOfWeek  []time.Weekday `json:"daysOfWeek,omitempty"`
	Categories  []string       `json:"categories,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Series      []string       `json:"series,omitempty"`
	Disciplines []string       `json:"disciplines,omitempty"`
	Audiences   []string       `json:"audiences,omitempty"`
	Weeks       []int          `json:"weeks,omitempty"`
	Presenters  []string       `json:"presenters,omitempty"`
	Locations   []string       `json:"locations,omitempty"`

	Duration       *DurationRange `json:"duration,omitempty"`
	TicketRequired *bool          `json:"ticketRequired,omitempty"`
}

// IsZero reports whether the filter constrains nothing.
func (f EventFilter) IsZero() bool {
	return len(f.Venues) == 0 &&
		len(f.TimesOfDay) == 0 &&
		len(f.DaysOfWeek) == 0 &&
		len(f.Categories) == 0 &&
		len(f.Tags) == 0 &&
		len(f.Series) == 0 &&
		len(f.Disciplines) == 0 &&
		len(f.Audiences) == 0 &&
		len(f.Weeks) == 0 &&
		len(f.Presenters) == 0 &&
		len(f.Locations) == 0 &&
		f.Duration == nil &&
		f.TicketRequired == nil
}

// Validate rejects filter values outside their dimension's domain. It returns
// a plain error; callers at a service boundary wrap it into their own error
// type.
func (f EventFilter) Validate() error {
	for _, w := range f.Weeks {
		if w < 1 || w > 9 {
			return fmt.Errorf("week %d out of range 1..9", w)
		}
	}
	for _, d := range f.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("day of week %d out of range 0..6", d)
		}
	}
	for _, tod := range f.TimesOfDay {
		switch tod {
		case Morning, Afternoon, Evening, Night:
		default:
			return fmt.Errorf("unknown time of day %q", tod)
		}
	}
	if r := f.Duration; r != nil {
		if r.MinMinutes < 0 {
			return fmt.Errorf("duration minimum %d is negative", r.MinMinutes)
		}
		if r.MaxMinutes != 0 && r.MaxMinutes < r.MinMinutes {
			return fmt.Errorf("duration range %d..%d is inverted", r.MinMinutes, r.MaxMinutes)
		}
	}
	return nil
}

// MatchesFilter reports whether the event satisfies every constrained
// dimension of the filter. An event missing the data a dimension tests (no
// venue, no season week) fails that dimension rather than passing it.
func MatchesFilter(e Event, f EventFilter) bool {
	if len(f.Venues) > 0 && !matchVenue(e, f.Venues) {
		return false
	}
	if len(f.TimesOfDay) > 0 && !matchTimeOfDay(e, f.TimesOfDay) {
		return false
	}
	if len(f.DaysOfWeek) > 0 && !matchDayOfWeek(e, f.DaysOfWeek) {
		return false
	}
	if len(f.Categories) > 0 && !matchCategory(e, f.Categories) {
		return false
	}
	if len(f.Tags) > 0 && !anyFold(e.Tags, f.Tags) {
		return false
	}
	if len(f.Series) > 0 && !anyFold(e.taxonomyValues("series"), f.Series) {
		return false
	}
	if len(f.Disciplines) > 0 && !anyFold(e.taxonomyValues("discipline"), f.Disciplines) {
		return false
	}
	if len(f.Audiences) > 0 && !anyFold(e.taxonomyValues("audience"), f.Audiences) {
		return false
	}
	if len(f.Weeks) > 0 && !matchWeek(e, f.Weeks) {
		return false
	}
	if len(f.Presenters) > 0 && !anyFold(e.taxonomyValues("presenter"), f.Presenters) {
		return false
	}
	if len(f.Locations) > 0 && !matchLocation(e, f.Locations) {
		return false
	}
	if f.Duration != nil && !matchDuration(e, *f.Duration) {
		return false
	}
	if f.TicketRequired != nil && e.TicketRequired() != *f.TicketRequired {
		return false
	}
	return true
}

func matchVenue(e Event, want []string) bool {
	if e.Venue == nil {
		return false
	}
	for _, w := range want {
		if strings.EqualFold(e.Venue.Name, w) {
			return true
		}
	}
	return false
}

func matchTimeOfDay(e Event, want []TimeOfDay) bool {
	got := e.TimeOfDay()
	for _, w := range want {
		if got == w {
			return true
		}
	}
	return false
}

func matchDayOfWeek(e Event, want []time.Weekday) bool {
	for _, w := range want {
		if e.DayOfWeek == w {
			return true
		}
	}
	return false
}

// matchCategory tests the primary category taxonomy plus the legacy Category
// string, so filters keep working on events stored before the taxonomy
// existed.
func matchCategory(e Event, want []string) bool {
	vals := e.taxonomyValues("category")
	if e.Category != "" {
		vals = append(vals, e.Category)
	}
	return anyFold(vals, want)
}

func matchWeek(e Event, want []int) bool {
	if e.Week == 0 {
		return false
	}
	for _, w := range want {
		if e.Week == w {
			return true
		}
	}
	return false
}

func matchLocation(e Event, want []string) bool {
	loc := e.Location
	if loc == "" && e.Venue != nil {
		loc = e.Venue.Name
	}
	if loc == "" {
		return false
	}
	for _, w := range want {
		if strings.EqualFold(loc, w) {
			return true
		}
	}
	return false
}

func matchDuration(e Event, r DurationRange) bool {
	mins := int(e.Duration() / time.Minute)
	if mins < r.MinMinutes {
		return false
	}
	if r.MaxMinutes != 0 && mins > r.MaxMinutes {
		return false
	}
	return true
}

// anyFold reports whether any value in have matches any value in want,
// ignoring case.
func anyFold(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
