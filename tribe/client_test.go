package tribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-test/deep"
)

func TestEvents(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"events": [{"id": 1}, {"id": 2}],
			"rest_url": "https://example.com/wp-json/tribe/events/v1/events?page=1",
			"next_rest_url": "https://example.com/wp-json/tribe/events/v1/events?page=2",
			"total": 120,
			"total_pages": 3
		}`))
	}))
	defer server.Close()

	client := &Client{HTTP: server.Client(), BaseURL: server.URL}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	page, err := client.Events(context.Background(), EventsRequest{
		Start:   time.Date(2025, 6, 22, 0, 0, 0, 0, loc),
		End:     time.Date(2025, 8, 24, 0, 0, 0, 0, loc),
		Page:    1,
		PerPage: 50,
	})
	if err != nil {
		t.Fatal(err)
	}

	wantQuery := map[string]string{
		"start_date": "2025-06-22 00:00:00",
		"end_date":   "2025-08-24 00:00:00",
		"page":       "1",
		"per_page":   "50",
	}
	if diff := deep.Equal(gotQuery, wantQuery); diff != nil {
		t.Error(diff)
	}

	if got, want := len(page.Events), 2; got != want {
		t.Errorf("len(Events) = %d, want %d", got, want)
	}
	if got, want := page.Total, 120; got != want {
		t.Errorf("Total = %d, want %d", got, want)
	}
	if got, want := page.TotalPages, 3; got != want {
		t.Errorf("TotalPages = %d, want %d", got, want)
	}
	if page.NextRestURL == "" {
		t.Error("NextRestURL is empty, want a link")
	}
}

func TestEventsPageFollowsURL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.URL.Query().Get("page"), "2"; got != want {
			t.Errorf("page = %q, want %q", got, want)
		}
		w.Write([]byte(`{"events": [], "total": 0, "total_pages": 0}`))
	}))
	defer server.Close()

	client := &Client{HTTP: server.Client()}

	page, err := client.EventsPage(context.Background(), server.URL+"/events?page=2")
	if err != nil {
		t.Fatal(err)
	}
	if page.NextRestURL != "" {
		t.Errorf("NextRestURL = %q, want empty on last page", page.NextRestURL)
	}
}

func TestEventsAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{
			"code": "rest_invalid_param",
			"message": "Invalid parameter(s): page",
			"data": {"status": 400}
		}`))
	}))
	defer server.Close()

	client := &Client{HTTP: server.Client(), BaseURL: server.URL}

	_, err := client.Events(context.Background(), EventsRequest{Page: 99})
	if err == nil {
		t.Fatal("Events() past the last page succeeded, want error")
	}

	apiErr, ok := err.(Error)
	if !ok {
		t.Fatalf("error is %T, want tribe.Error", err)
	}
	if got, want := apiErr.Code, "rest_invalid_param"; got != want {
		t.Errorf("Code = %q, want %q", got, want)
	}
	if got, want := apiErr.Status, http.StatusBadRequest; got != want {
		t.Errorf("Status = %d, want %d", got, want)
	}
	if !IsPastEnd(err) {
		t.Error("IsPastEnd() = false, want true")
	}
}

func TestEventNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{
			"code": "event-not-found",
			"message": "An event with the specified ID does not exist.",
			"data": {"status": 404}
		}`))
	}))
	defer server.Close()

	client := &Client{HTTP: server.Client(), BaseURL: server.URL}

	_, err := client.Event(context.Background(), 123456)
	if err == nil {
		t.Fatal("Event() for a missing id succeeded, want error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
}

func TestEventDecodesRaw(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.URL.Path, "/events/10289"; got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
		w.Write([]byte(`{"id": 10289, "title": "Morning Lecture"}`))
	}))
	defer server.Close()

	client := &Client{HTTP: server.Client(), BaseURL: server.URL}

	raw, err := client.Event(context.Background(), 10289)
	if err != nil {
		t.Fatal(err)
	}

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatal(err)
	}
	if got, want := event.Title, "Morning Lecture"; got != want {
		t.Errorf("Title = %q, want %q", got, want)
	}
}
