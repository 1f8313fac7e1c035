package chqcal

import "time"

// CalendarFormat selects a calendar export target.
type CalendarFormat string

const (
	// FormatICS produces an RFC 5545 iCalendar file.
	FormatICS CalendarFormat = "ics"
	// FormatGoogle produces Google Calendar API event bodies.
	FormatGoogle CalendarFormat = "google"
	// FormatOutlook produces Microsoft Graph event bodies.
	FormatOutlook CalendarFormat = "outlook"
)

// CalendarRequest asks for an export of the stored events that pass Filters.
type CalendarRequest struct {
	Filters EventFilter    `json:"filters"`
	Format  CalendarFormat `json:"format" validate:"required,oneof=ics google outlook"`

	// Timezone renders event times in a zone other than each event's own.
	// Empty keeps the events' native zones.
	Timezone string `json:"timezone,omitempty" validate:"omitempty,timezone"`

	// IncludeSeries keeps recurring-series events in the export. They are
	// dropped by default because weekly repeats crowd out the one-off
	// programs most subscribers want. A filter that names a series
	// overrides this.
	IncludeSeries bool `json:"includeSeries,omitempty"`

	// Start and End bound the export window. When both are zero the
	// current season's span is used.
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// CalendarResponse carries a finished export. Data holds the ICS text or the
// JSON-encoded provider payload, depending on the requested format.
type CalendarResponse struct {
	Success     bool   `json:"success"`
	Data        string `json:"data,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}
