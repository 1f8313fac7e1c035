package client

import (
	"context"

	chqcal "github.com/bbernstein/chq-calendar"
)

// EventsClient provides access to the /events endpoint.
type EventsClient struct {
	client *Client
}

// Search queries the database for events matching the EventSearchRequest
// and returns Event objects for the matching results.
func (c *EventsClient) Search(ctx context.Context, req chqcal.EventSearchRequest) ([]chqcal.Event, error) {
	var resp []chqcal.Event
	if err := c.client.doJSON(ctx, "POST", "/events/search", req, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Get fetches a single event by its canonical UID.
func (c *EventsClient) Get(ctx context.Context, uid chqcal.EventUID) (chqcal.Event, error) {
	var resp chqcal.Event
	if err := c.client.doJSON(ctx, "GET", "/events/"+string(uid), nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Filters returns the distinct filterable values in the searched window,
// for building picker UIs.
func (c *EventsClient) Filters(ctx context.Context, req chqcal.EventSearchRequest) (chqcal.FilterOptions, error) {
	var resp chqcal.FilterOptions
	if err := c.client.doJSON(ctx, "POST", "/events/filters", req, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}
