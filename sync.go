package chqcal

import "time"

// DefaultPerPage is the page size requested from the upstream feed when a
// SyncRequest doesn't say otherwise. It matches the upstream's own maximum.
const DefaultPerPage = 50

// DefaultDeleteAfterMisses is how many consecutive syncs an event may be
// absent from the feed before it is marked outdated.
const DefaultDeleteAfterMisses = 1

// SyncRequest asks the service to reconcile stored events against the
// upstream feed for a date range.
type SyncRequest struct {
	// Start and End bound the feed query, inclusive of Start and exclusive
	// of End. When both are zero the current season's span is used.
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`

	// PerPage overrides DefaultPerPage.
	PerPage int `json:"perPage,omitempty"`

	// MaxPages caps how many feed pages one run will fetch. Zero means no
	// cap beyond the feed's own page count.
	MaxPages int `json:"maxPages,omitempty"`

	// DeleteAfterMisses overrides DefaultDeleteAfterMisses.
	DeleteAfterMisses int `json:"deleteAfterMisses,omitempty"`
}

// SyncResult is the outcome of one sync run. Success means the run completed
// its pagination; individual event failures are reported in Errors without
// clearing it.
type SyncResult struct {
	Success   bool      `json:"success"`
	StartedAt time.Time `json:"startedAt"`

	EventsProcessed int `json:"eventsProcessed"`
	EventsCreated   int `json:"eventsCreated"`
	EventsUpdated   int `json:"eventsUpdated"`
	EventsDeleted   int `json:"eventsDeleted"`

	Errors []string `json:"errors,omitempty"`

	Duration time.Duration `json:"duration"`
}

// SyncRunID identifies one recorded sync run.
type SyncRunID string

// SyncRun is one recorded execution of Service.Sync, kept so operators can
// see what the last runs did without grepping logs.
type SyncRun struct {
	ID SyncRunID `json:"id"`

	// Start and End echo the date range the run covered.
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`

	Result SyncResult `json:"result"`

	CreatedAt time.Time `json:"createdAt"`
}

// SyncRunListRequest pages through recorded runs, newest first.
type SyncRunListRequest struct {
	Page int `json:"page"`
}
