// Package e2e contains end-to-end tests for the calendar service. They test
// from the rest interface all the way down to the database layer.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bbernstein/chq-calendar/normalize"
	"github.com/bbernstein/chq-calendar/pg"
	"github.com/bbernstein/chq-calendar/pg/pgtest"
	"github.com/bbernstein/chq-calendar/rest"
	"github.com/bbernstein/chq-calendar/service"
	"github.com/bbernstein/chq-calendar/tribe"
)

// stubNow is mid-season 2025. Syncs and searches that default to the current
// season cover Jun 22 - Aug 24.
var stubNow = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

// stubServer starts a new httptest.Server with a calendar service whose
// upstream feed is stubbed out. You must call Close on the returned server
// after you're done with it.
func stubServer(t *testing.T, feed *stubFeed) *httptest.Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	service := stubService(ctx, t, feed)
	handler := rest.New(service)

	return httptest.NewServer(handler)
}

// stubService returns a Service where the upstream feed is stubbed out and
// the database is backed by a pgtest temp db.
func stubService(ctx context.Context, t *testing.T, feed *stubFeed) *service.Service {
	db := pgtest.NewDB(t)

	eventStore := &pg.EventStore{DB: db}
	if err := eventStore.Init(ctx); err != nil {
		t.Fatal(err)
	}

	syncRunStore := &pg.SyncRunStore{DB: db}
	if err := syncRunStore.Init(ctx); err != nil {
		t.Fatal(err)
	}

	return &service.Service{
		EventStore:   eventStore,
		SyncRunStore: syncRunStore,

		Feed:       feed,
		Normalizer: &normalize.Normalizer{},

		ICSFeedURL: "https://api.chqcalendar.org/calendar/feed.ics",

		Time: stubTime(stubNow),
	}
}

// stubFeed serves canned feed pages in place of the live tribe API. Tests
// mutate the pages between syncs to simulate the feed changing.
type stubFeed struct {
	mu    sync.Mutex
	pages [][]json.RawMessage

	// Started and Unblock, when set, rendezvous page fetches: page()
	// signals Started and then waits on Unblock before returning. The
	// window-conflict test uses them to hold one sync mid-run.
	Started chan struct{}
	Unblock chan struct{}
}

func newStubFeed(pages ...[]json.RawMessage) *stubFeed {
	return &stubFeed{pages: pages}
}

// SetPages replaces the feed contents for the next sync.
func (f *stubFeed) SetPages(pages ...[]json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = pages
}

func (f *stubFeed) Events(ctx context.Context, req tribe.EventsRequest) (*tribe.EventsResponse, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	return f.page(page)
}

func (f *stubFeed) EventsPage(ctx context.Context, pageURL string) (*tribe.EventsResponse, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return nil, err
	}
	return f.page(page)
}

func (f *stubFeed) page(n int) (*tribe.EventsResponse, error) {
	if f.Started != nil {
		f.Started <- struct{}{}
	}
	if f.Unblock != nil {
		<-f.Unblock
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if n > len(f.pages) {
		return nil, tribe.Error{
			Code:    "rest_post_invalid_page_number",
			Message: "The page number requested is larger than the number of pages available.",
			Status:  http.StatusNotFound,
		}
	}

	var total int
	for _, p := range f.pages {
		total += len(p)
	}

	resp := &tribe.EventsResponse{
		Events:     f.pages[n-1],
		Total:      total,
		TotalPages: len(f.pages),
	}
	if n < len(f.pages) {
		resp.NextRestURL = fmt.Sprintf("https://stub.chq.org/wp-json/tribe/events/v1/events?page=%d", n+1)
	}
	return resp, nil
}

// stubEvent builds one tribe-shaped feed record. Dates are wall-clock
// strings in the grounds' zone, eg. "2025-07-01 19:30:00".
func stubEvent(id int, title, venue, category, start, end string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(stubEventTmpl, id, title, venue, category, start, end))
}

const stubEventTmpl = `{
	"id": %[1]d,
	"global_id": "www.chq.org?id=%[1]d",
	"status": "publish",
	"title": "%[2]s",
	"description": "<p>Part of the 2025 season at Chautauqua Institution.</p>",
	"url": "https://www.chq.org/event/stub-%[1]d/",
	"rest_url": "https://www.chq.org/wp-json/tribe/events/v1/events/%[1]d",
	"start_date": "%[5]s",
	"end_date": "%[6]s",
	"utc_start_date": "",
	"utc_end_date": "",
	"timezone": "America/New_York",
	"timezone_abbr": "EDT",
	"all_day": false,
	"cost": "",
	"website": "",
	"featured": false,
	"image": false,
	"venue": {
		"id": 90,
		"venue": "%[3]s",
		"slug": "stub-venue",
		"address": "1 Ames Ave",
		"city": "Chautauqua",
		"zip": "14722",
		"show_map": true
	},
	"organizer": [],
	"categories": [
		{
			"id": 7,
			"name": "%[4]s",
			"slug": "stub-category",
			"taxonomy": "tribe_events_cat",
			"parent": 0
		}
	],
	"tags": []
}`

// stubTime mocks out the time with a fixed time.
type stubTime time.Time

func (s stubTime) Now() time.Time {
	return time.Time(s)
}
