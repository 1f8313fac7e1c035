package chqcal

import (
	"strings"
	"time"
)

// EventID is the numeric id assigned by the upstream events API. It is unique
// within one source but two sources can reuse the same number, so anything
// that crosses sources must key on EventUID instead.
type EventID int64

// EventUID is the stable identifier for an Event across syncs and across
// systems (database keys, ICS UID lines, provider payloads). It is derived
// deterministically from the source and the source's numeric id; see UIDFor.
type EventUID string

// Source tags where an event record came from.
type Source string

const (
	// SourceTribe is the primary upstream: the WordPress Events Calendar
	// ("tribe") REST API.
	SourceTribe Source = "tribe"
	// SourceLegacy marks records imported from the pre-tribe season API.
	SourceLegacy Source = "legacy"
	// SourceScraped marks records recovered by scraping the public site.
	SourceScraped Source = "scraped"
	// SourceManual marks hand-entered records.
	SourceManual Source = "manual"
	// SourcePlaceholder marks synthesized stand-ins for program slots that
	// have no real listing yet.
	SourcePlaceholder Source = "placeholder"
)

// Status is the upstream publication status.
type Status string

const (
	StatusPublished Status = "publish"
	StatusDraft     Status = "draft"
	StatusPrivate   Status = "private"
)

// Confidence grades how settled an event's scheduling data is.
type Confidence string

const (
	ConfidenceConfirmed   Confidence = "confirmed"
	ConfidenceTentative   Confidence = "tentative"
	ConfidencePlaceholder Confidence = "placeholder"
	// ConfidenceTBA means required fields (title, program details) were
	// filled with announced-later stand-ins by the source.
	ConfidenceTBA Confidence = "tba"
)

// SyncStatus records how the last sync left this event.
type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "pending"
	SyncError   SyncStatus = "error"
	// SyncOutdated is the soft-delete marker: the event stopped appearing
	// in the upstream feed. Rows are never physically removed.
	SyncOutdated SyncStatus = "outdated"
)

// Venue is where an event happens.
type Venue struct {
	ID      int64  `json:"id,omitempty"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	ShowMap bool   `json:"showMap,omitempty"`
}

// Category is one node of the upstream's shallow taxonomy tree. The same
// struct carries every taxonomy the feed exposes (category, series,
// discipline, audience, presenter); Taxonomy says which one this is.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Taxonomy string `json:"taxonomy"`
	Parent   int64  `json:"parent"`
}

// Image is an event's cover image plus its resized variants, keyed by the
// upstream's size name ("thumbnail", "medium", ...).
type Image struct {
	URL    string               `json:"url"`
	Width  int                  `json:"width,omitempty"`
	Height int                  `json:"height,omitempty"`
	Sizes  map[string]ImageSize `json:"sizes,omitempty"`
}

// ImageSize is one resized variant of an Image.
type ImageSize struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Event is the canonical event record. Everything downstream (storage,
// filtering, calendar export) works on this shape; the normalize package is
// the only place raw feed records get turned into it.
//
// Category, Location, DayOfWeek and Week are derived from the richer
// structured fields at normalization time. They exist for consumers that
// predate Categories and Venue, and are never written from anywhere else.
type Event struct {
	ID  EventID  `json:"id"`
	UID EventUID `json:"uid"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	// Timezone is the IANA zone the event's wall-clock times belong to,
	// eg. "America/New_York".
	Timezone string `json:"timezone"`

	Venue *Venue `json:"venue,omitempty"`
	// Location is the legacy free-text place string.
	Location string `json:"location,omitempty"`

	Categories []Category `json:"categories,omitempty"`
	// Category is the legacy primary category name.
	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`

	Cost     string `json:"cost,omitempty"`
	URL      string `json:"url,omitempty"`
	Image    *Image `json:"image,omitempty"`
	Status   Status `json:"status"`
	Featured bool   `json:"featured"`

	// DayOfWeek is the start day in the event's own timezone, Sunday = 0.
	DayOfWeek time.Weekday `json:"dayOfWeek"`
	// Week is the season week (1..9) containing StartDate, or 0 when the
	// event falls outside the season.
	Week int `json:"week,omitempty"`

	Confidence Confidence `json:"confidence"`
	SyncStatus SyncStatus `json:"syncStatus"`
	Source     Source     `json:"source"`

	// MissingSyncs counts consecutive syncs that did not see this event in
	// the feed. Sync bookkeeping, not event content: it is excluded from
	// field diffing.
	MissingSyncs int `json:"missingSyncs,omitempty"`

	// LastModified is bumped whenever a sync detects a field change.
	LastModified time.Time `json:"lastModified"`
	// ChangeLog is append-only and ordered oldest first.
	ChangeLog []Change `json:"changeLog,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Duration returns the event's length.
func (e Event) Duration() time.Duration {
	return e.EndDate.Sub(e.StartDate)
}

// TimeOfDay buckets an event's start hour.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // 05:00-11:59
	Afternoon TimeOfDay = "afternoon" // 12:00-16:59
	Evening   TimeOfDay = "evening"   // 17:00-20:59
	Night     TimeOfDay = "night"     // 21:00-04:59
)

// TimeOfDay returns the bucket containing the event's start time, judged on
// the wall clock in the event's own timezone.
func (e Event) TimeOfDay() TimeOfDay {
	t := e.StartDate
	if loc, err := time.LoadLocation(e.Timezone); err == nil {
		t = t.In(loc)
	}
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	case h >= 17 && h < 21:
		return Evening
	default:
		return Night
	}
}

// TicketRequired reports whether attending the event needs a ticket. The feed
// has no dedicated flag, so this is derived: a non-free cost string, or an
// explicit "ticketed" tag.
func (e Event) TicketRequired() bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, "ticketed") {
			return true
		}
	}
	switch strings.ToLower(strings.TrimSpace(e.Cost)) {
	case "", "free", "0", "$0", "$0.00":
		return false
	}
	return true
}

// InSeries reports whether the event belongs to a recurring series.
func (e Event) InSeries() bool {
	return len(e.taxonomyValues("series")) > 0
}

// taxonomyValues collects the slugs and names of the event's categories in
// the given taxonomy.
func (e Event) taxonomyValues(taxonomy string) []string {
	var vals []string
	for _, c := range e.Categories {
		if c.Taxonomy != taxonomy {
			continue
		}
		if c.Slug != "" {
			vals = append(vals, c.Slug)
		}
		if c.Name != "" {
			vals = append(vals, c.Name)
		}
	}
	return vals
}

// EventSearchRequest is passed to Service.EventSearch to find stored events
// in a time window, optionally narrowed by a filter.
type EventSearchRequest struct {
	// Start and End bound the search window. Zero values leave that side
	// open; when both are zero the current season's span is used.
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`

	Filters EventFilter `json:"filters"`

	// IncludeOutdated keeps soft-deleted events in the results.
	IncludeOutdated bool `json:"includeOutdated,omitempty"`
}

// FilterOptions lists the distinct values present in stored events for each
// filterable dimension. Clients use it to build pickers.
type FilterOptions struct {
	Venues      []string       `json:"venues"`
	Categories  []string       `json:"categories"`
	Tags        []string       `json:"tags"`
	Series      []string       `json:"series"`
	Disciplines []string       `json:"disciplines"`
	Audiences   []string       `json:"audiences"`
	Presenters  []string       `json:"presenters"`
	Weeks       []int          `json:"weeks"`
	DaysOfWeek  []time.Weekday `json:"daysOfWeek"`
	TimesOfDay  []TimeOfDay    `json:"timesOfDay"`

	// WeekLabels[i] describes Weeks[i], eg. "Week 2 (Jun 29 - Jul 5)".
	WeekLabels []string `json:"weekLabels,omitempty"`
}
