package calendar

import (
	"encoding/json"
	"time"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
)

// graphEvent is the Microsoft Graph POST /me/events request body.
type graphEvent struct {
	Subject       string         `json:"subject"`
	Body          *graphItemBody `json:"body,omitempty"`
	Start         graphDateTime  `json:"start"`
	End           graphDateTime  `json:"end"`
	Location      *graphLocation `json:"location,omitempty"`
	Categories    []string       `json:"categories,omitempty"`
	ShowAs        string         `json:"showAs,omitempty"`
	TransactionID string         `json:"transactionId,omitempty"`
}

type graphItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// graphDateTime is Graph's zone-split date-time: local wall clock plus a
// separate zone name, no offset.
type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphLocation struct {
	DisplayName string `json:"displayName"`
}

const graphLayout = "2006-01-02T15:04:05"

// Outlook renders events as a JSON array of Microsoft Graph create-event
// bodies. transactionId carries our UID so retried imports stay idempotent.
func Outlook(events []chqcal.Event, tz string) (string, error) {
	const op errors.Op = "calendar.Outlook"

	bodies := make([]graphEvent, 0, len(events))
	for _, e := range events {
		loc, err := renderZone(e, tz)
		if err != nil {
			return "", errors.E(op, errors.Export, e.UID, err)
		}

		end := e.EndDate
		if end.IsZero() {
			end = e.StartDate
		}

		body := graphEvent{
			Subject:       e.Title,
			Start:         graphTime(e.StartDate, loc),
			End:           graphTime(end, loc),
			Categories:    categoryNames(e),
			ShowAs:        graphShowAs(e),
			TransactionID: string(e.UID),
		}
		if e.Description != "" {
			body.Body = &graphItemBody{ContentType: "text", Content: e.Description}
		}
		if l := locationText(e); l != "" {
			body.Location = &graphLocation{DisplayName: l}
		}
		bodies = append(bodies, body)
	}

	js, err := json.Marshal(bodies)
	if err != nil {
		return "", errors.E(op, errors.Export, err)
	}
	return string(js), nil
}

func graphTime(t time.Time, loc *time.Location) graphDateTime {
	return graphDateTime{
		DateTime: t.In(loc).Format(graphLayout),
		TimeZone: loc.String(),
	}
}

// graphShowAs maps onto Graph's free/busy values; Graph has no direct
// confirmed/cancelled status on create.
func graphShowAs(e chqcal.Event) string {
	switch providerStatus(e) {
	case "cancelled":
		return "free"
	case "tentative":
		return "tentative"
	}
	return "busy"
}
