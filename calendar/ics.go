package calendar

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
)

const (
	prodID  = "-//Chautauqua Calendar//chqcalendar.org//EN"
	calName = "Chautauqua Schedule"

	// Wall-clock layout for TZID-qualified date-times.
	icsLocalLayout = "20060102T150405"
)

// ICS renders events as an RFC 5545 VCALENDAR. Times are written in tz, or in
// each event's own timezone when tz is empty. An empty input still produces a
// valid calendar wrapper; subscribers poll the feed before the season has any
// listings.
func ICS(events []chqcal.Event, tz string) (string, error) {
	const op errors.Op = "calendar.ICS"

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(prodID)
	cal.SetXWRCalName(calName)
	if tz != "" {
		cal.SetXWRTimezone(tz)
	}

	for _, e := range events {
		loc, err := renderZone(e, tz)
		if err != nil {
			return "", errors.E(op, errors.Export, e.UID, err)
		}

		ve := cal.AddEvent(string(e.UID))

		stamp := e.LastModified
		if stamp.IsZero() {
			stamp = e.UpdatedAt
		}
		if stamp.IsZero() {
			stamp = time.Now()
		}
		ve.SetDtStampTime(stamp.UTC())
		if !e.LastModified.IsZero() {
			ve.SetModifiedAt(e.LastModified.UTC())
		}

		setDateTime(ve, ics.ComponentPropertyDtStart, e.StartDate, loc)
		if !e.EndDate.IsZero() {
			setDateTime(ve, ics.ComponentPropertyDtEnd, e.EndDate, loc)
		}

		ve.SetSummary(escapeText(e.Title))
		if e.Description != "" {
			ve.SetDescription(escapeText(e.Description))
		}
		if l := locationText(e); l != "" {
			ve.SetLocation(escapeText(l))
		}
		ve.SetStatus(icsStatus(e))

		if names := categoryNames(e); len(names) != 0 {
			// The comma separates multiple CATEGORIES values, so each
			// name escapes its own before joining.
			escaped := make([]string, len(names))
			for i, n := range names {
				escaped[i] = escapeText(n)
			}
			ve.SetProperty(ics.ComponentPropertyCategories, strings.Join(escaped, ","))
		}
		if e.URL != "" {
			ve.SetURL(e.URL)
		}
	}

	return cal.Serialize(), nil
}

// setDateTime writes a date-time property in loc's wall-clock form: the Z
// suffix for UTC, a TZID parameter for any named zone.
func setDateTime(ve *ics.VEvent, prop ics.ComponentProperty, t time.Time, loc *time.Location) {
	t = t.In(loc)
	if loc == time.UTC {
		ve.SetProperty(prop, t.Format(icsLocalLayout)+"Z")
		return
	}
	ve.SetProperty(prop, t.Format(icsLocalLayout),
		&ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{loc.String()}})
}

func icsStatus(e chqcal.Event) ics.ObjectStatus {
	if e.SyncStatus == chqcal.SyncOutdated {
		return ics.ObjectStatusCancelled
	}
	switch e.Confidence {
	case chqcal.ConfidenceTentative, chqcal.ConfidenceTBA, chqcal.ConfidencePlaceholder:
		return ics.ObjectStatusTentative
	}
	if e.Status != chqcal.StatusPublished {
		return ics.ObjectStatusTentative
	}
	return ics.ObjectStatusConfirmed
}

// escapeText applies RFC 5545 TEXT escaping. The serializer folds lines and
// emits CRLF but leaves value escaping to the caller.
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
