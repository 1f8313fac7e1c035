// Package client provides a Go client for the calendar service's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/bbernstein/chq-calendar/errors"
)

// Client provides a client to the calendar REST API.
//
// Don't construct a Client directly. Use New() instead.
type Client struct {
	// HTTP is the underlying HTTP client used to send requests.
	HTTP *http.Client
	// BaseURL is the HTTP endpoint for the REST API. Can be overridden for
	// tests. It defaults to https://api.chqcalendar.org
	BaseURL string

	Events   *EventsClient
	Calendar *CalendarClient
	Syncs    *SyncsClient
}

// New constructs a new Client
func New() *Client {
	client := &Client{
		HTTP:    http.DefaultClient,
		BaseURL: "https://api.chqcalendar.org",
	}

	client.Events = &EventsClient{client}
	client.Calendar = &CalendarClient{client}
	client.Syncs = &SyncsClient{client}

	return client
}

func (c Client) doJSON(ctx context.Context, method, path string, req interface{}, resp interface{}) error {
	var reqBody io.Reader
	if req != nil {
		reqJS, err := json.Marshal(req)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(reqJS)
	}

	r, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	r = r.WithContext(ctx)

	w, err := c.HTTP.Do(r)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if status := w.StatusCode; status != http.StatusOK {
		var resp errors.Response
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			return err
		}
		return resp.ToError()
	}

	if resp != nil {
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			return err
		}
	}

	return nil
}
