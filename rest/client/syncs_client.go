package client

import (
	"context"
	"fmt"

	chqcal "github.com/bbernstein/chq-calendar"
)

// SyncsClient provides access to the /syncs endpoint.
type SyncsClient struct {
	client *Client
}

// Run starts a feed sync and blocks until it finishes.
func (c *SyncsClient) Run(ctx context.Context, req chqcal.SyncRequest) (chqcal.SyncResult, error) {
	var resp chqcal.SyncResult
	if err := c.client.doJSON(ctx, "POST", "/syncs", req, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// List returns past sync runs, newest first.
func (c *SyncsClient) List(ctx context.Context, req chqcal.SyncRunListRequest) ([]chqcal.SyncRun, error) {
	path := "/syncs"
	if req.Page > 0 {
		path = fmt.Sprintf("/syncs?page=%d", req.Page)
	}

	var resp []chqcal.SyncRun
	if err := c.client.doJSON(ctx, "GET", path, nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Latest returns the most recent sync run.
func (c *SyncsClient) Latest(ctx context.Context) (chqcal.SyncRun, error) {
	var resp chqcal.SyncRun
	if err := c.client.doJSON(ctx, "GET", "/syncs/latest", nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}
