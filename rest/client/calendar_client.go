package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
)

// CalendarClient provides access to the /calendar endpoint.
type CalendarClient struct {
	client *Client
}

// Export renders the events matching the request's filter in the requested
// format. Export failures are reported inside the response envelope.
func (c *CalendarClient) Export(ctx context.Context, req chqcal.CalendarRequest) (chqcal.CalendarResponse, error) {
	var resp chqcal.CalendarResponse
	if err := c.client.doJSON(ctx, "POST", "/calendar", req, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Feed fetches the subscribable ICS feed for the request's filter. The
// request's Format is ignored; the feed is always ICS.
func (c *CalendarClient) Feed(ctx context.Context, req chqcal.CalendarRequest) (string, error) {
	u := c.client.BaseURL + "/calendar/feed.ics"
	if q := feedQuery(req).Encode(); q != "" {
		u += "?" + q
	}

	r, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return "", err
	}
	r = r.WithContext(ctx)

	w, err := c.client.HTTP.Do(r)
	if err != nil {
		return "", err
	}
	defer w.Body.Close()

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", err
	}

	if w.StatusCode != http.StatusOK {
		return "", errors.Errorf("feed fetch failed: status %d: %s", w.StatusCode, body)
	}
	return string(body), nil
}

func feedQuery(req chqcal.CalendarRequest) url.Values {
	q := url.Values{}

	set := func(key string, vals []string) {
		if len(vals) > 0 {
			q.Set(key, strings.Join(vals, ","))
		}
	}

	f := req.Filters
	set("venue", f.Venues)
	set("category", f.Categories)
	set("tag", f.Tags)
	set("series", f.Series)
	set("discipline", f.Disciplines)
	set("audience", f.Audiences)
	set("presenter", f.Presenters)
	set("location", f.Locations)

	var weeks []string
	for _, w := range f.Weeks {
		weeks = append(weeks, strconv.Itoa(w))
	}
	set("week", weeks)

	var days []string
	for _, d := range f.DaysOfWeek {
		days = append(days, fmt.Sprint(int(d)))
	}
	set("day", days)

	var times []string
	for _, t := range f.TimesOfDay {
		times = append(times, string(t))
	}
	set("timeOfDay", times)

	if req.Timezone != "" {
		q.Set("tz", req.Timezone)
	}
	if req.IncludeSeries {
		q.Set("includeSeries", "true")
	}
	if !req.Start.IsZero() {
		q.Set("start", req.Start.Format(time.RFC3339))
	}
	if !req.End.IsZero() {
		q.Set("end", req.End.Format(time.RFC3339))
	}

	return q
}
