package tribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bbernstein/chq-calendar/log"
	"go.uber.org/zap"
)

// DefaultBaseURL is the institution's public feed mount.
const DefaultBaseURL = "https://www.chq.org/wp-json/tribe/events/v1"

// queryDateLayout is the wall-clock form the API expects in start_date and
// end_date query params.
const queryDateLayout = "2006-01-02 15:04:05"

// Client is a slimmed-down client for the WordPress Events Calendar ("tribe")
// REST API.
type Client struct {
	HTTP *http.Client
	// BaseURL points at a site's tribe/events/v1 mount. Empty means
	// DefaultBaseURL.
	BaseURL string
}

// EventsRequest selects one page of the events feed.
type EventsRequest struct {
	// Start and End bound the page by event date, interpreted by the
	// server in the site's own timezone.
	Start time.Time
	End   time.Time

	Page    int
	PerPage int

	// Status filters by publication status. Empty gets the API default
	// (published only).
	Status string
}

// Events fetches one page of the feed. Pagination state comes back in the
// response: follow NextRestURL with EventsPage, or count up Page against
// TotalPages.
func (c *Client) Events(ctx context.Context, req EventsRequest) (*EventsResponse, error) {
	u, err := url.Parse(c.baseURL() + "/events")
	if err != nil {
		return nil, err
	}

	q := u.Query()
	if !req.Start.IsZero() {
		q.Set("start_date", req.Start.Format(queryDateLayout))
	}
	if !req.End.IsZero() {
		q.Set("end_date", req.End.Format(queryDateLayout))
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(req.PerPage))
	}
	if req.Status != "" {
		q.Set("status", req.Status)
	}
	u.RawQuery = q.Encode()

	return c.fetchPage(ctx, u.String())
}

// EventsPage follows a NextRestURL from a previous page.
func (c *Client) EventsPage(ctx context.Context, pageURL string) (*EventsResponse, error) {
	return c.fetchPage(ctx, pageURL)
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*EventsResponse, error) {
	logger := log.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := parseError(resp.Body, resp.StatusCode)

		logger.Error("bad feed page response",
			zap.String("url", pageURL),
			zap.Int("status", apiErr.Status),
			zap.String("code", apiErr.Code),
			zap.String("error", apiErr.Message))

		return nil, apiErr
	}

	var page EventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding feed page: %v", err)
	}

	return &page, nil
}

// Event fetches a single event by its feed id. The record comes back raw so
// a malformed one can still be inspected and logged.
func (c *Client) Event(ctx context.Context, id int64) (json.RawMessage, error) {
	logger := log.FromContext(ctx)

	eventURL := fmt.Sprintf("%s/events/%d", c.baseURL(), id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := parseError(resp.Body, resp.StatusCode)

		logger.Error("bad event fetch response",
			zap.Int64("eventID", id),
			zap.Int("status", apiErr.Status),
			zap.String("code", apiErr.Code),
			zap.String("error", apiErr.Message))

		return nil, apiErr
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding event %d: %v", id, err)
	}

	return raw, nil
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

func (c *Client) http() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
