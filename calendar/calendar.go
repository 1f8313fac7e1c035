// Package calendar renders canonical events into subscriber-facing calendar
// formats: an iCalendar feed, Google Calendar API event bodies, and Microsoft
// Graph event bodies.
package calendar

import (
	"fmt"
	"time"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
)

// Export renders events in the format req asks for. The events are assumed to
// be filtered already; Export only formats.
func Export(events []chqcal.Event, req chqcal.CalendarRequest) (chqcal.CalendarResponse, error) {
	const op errors.Op = "calendar.Export"

	var (
		data string
		err  error
	)
	switch req.Format {
	case chqcal.FormatICS:
		data, err = ICS(events, req.Timezone)
	case chqcal.FormatGoogle:
		data, err = Google(events, req.Timezone)
	case chqcal.FormatOutlook:
		data, err = Outlook(events, req.Timezone)
	default:
		return chqcal.CalendarResponse{}, errors.E(op, errors.Export,
			errors.Errorf("unsupported format %q", req.Format))
	}
	if err != nil {
		return chqcal.CalendarResponse{}, errors.E(op, err)
	}

	return chqcal.CalendarResponse{
		Success: true,
		Data:    data,
	}, nil
}

// renderZone picks the zone an event's times render in: the requested
// override, then the event's own zone, then UTC.
func renderZone(e chqcal.Event, override string) (*time.Location, error) {
	name := override
	if name == "" {
		name = e.Timezone
	}
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %v", name, err)
	}
	return loc, nil
}

func locationText(e chqcal.Event) string {
	if e.Venue != nil && e.Venue.Name != "" {
		if e.Venue.Address != "" {
			return e.Venue.Name + ", " + e.Venue.Address
		}
		return e.Venue.Name
	}
	return e.Location
}

// categoryNames lists the event's category-taxonomy names, falling back to
// the legacy primary category.
func categoryNames(e chqcal.Event) []string {
	var names []string
	for _, c := range e.Categories {
		if c.Taxonomy == "category" && c.Name != "" {
			names = append(names, c.Name)
		}
	}
	if len(names) == 0 && e.Category != "" {
		names = append(names, e.Category)
	}
	return names
}
