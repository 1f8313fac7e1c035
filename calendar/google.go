package calendar

import (
	"encoding/json"
	"time"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
)

// googleEvent is the Calendar API v3 events.insert request body.
type googleEvent struct {
	Summary     string         `json:"summary"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Start       googleDateTime `json:"start"`
	End         googleDateTime `json:"end"`
	ICalUID     string         `json:"iCalUID,omitempty"`
	Status      string         `json:"status,omitempty"`
	Source      *googleSource  `json:"source,omitempty"`
}

type googleDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type googleSource struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Google renders events as a JSON array of Calendar API v3 insert bodies,
// one per event. iCalUID carries our UID so repeated imports land on the
// same Google event.
func Google(events []chqcal.Event, tz string) (string, error) {
	const op errors.Op = "calendar.Google"

	bodies := make([]googleEvent, 0, len(events))
	for _, e := range events {
		loc, err := renderZone(e, tz)
		if err != nil {
			return "", errors.E(op, errors.Export, e.UID, err)
		}

		end := e.EndDate
		if end.IsZero() {
			end = e.StartDate
		}

		body := googleEvent{
			Summary:     e.Title,
			Description: e.Description,
			Location:    locationText(e),
			Start:       googleTime(e.StartDate, loc),
			End:         googleTime(end, loc),
			ICalUID:     string(e.UID),
			Status:      providerStatus(e),
		}
		if e.URL != "" {
			body.Source = &googleSource{Title: e.Title, URL: e.URL}
		}
		bodies = append(bodies, body)
	}

	js, err := json.Marshal(bodies)
	if err != nil {
		return "", errors.E(op, errors.Export, err)
	}
	return string(js), nil
}

func googleTime(t time.Time, loc *time.Location) googleDateTime {
	return googleDateTime{
		DateTime: t.In(loc).Format(time.RFC3339),
		TimeZone: loc.String(),
	}
}

// providerStatus maps our status fields onto the confirmed/tentative/
// cancelled triple both providers understand.
func providerStatus(e chqcal.Event) string {
	if e.SyncStatus == chqcal.SyncOutdated {
		return "cancelled"
	}
	switch e.Confidence {
	case chqcal.ConfidenceTentative, chqcal.ConfidenceTBA, chqcal.ConfidencePlaceholder:
		return "tentative"
	}
	if e.Status != chqcal.StatusPublished {
		return "tentative"
	}
	return "confirmed"
}
