package service

import (
	"context"
	"time"

	"github.com/bbernstein/chq-calendar/normalize"
	"github.com/bbernstein/chq-calendar/pg"
	"github.com/bbernstein/chq-calendar/season"
	"github.com/bbernstein/chq-calendar/tribe"
)

// Time mocks out time.Now for testing
type Time interface {
	Now() time.Time
}

// Service is a programmatic API to the calendar. It owns the sync pipeline
// between the upstream feed and the stores, and answers search and export
// requests from stored state.
type Service struct {
	EventStore   *pg.EventStore
	SyncRunStore *pg.SyncRunStore

	Feed       FeedClient
	Normalizer *normalize.Normalizer

	// ICSFeedURL, when set, is advertised as the subscription link in
	// calendar export responses.
	ICSFeedURL string

	// Location anchors season defaulting. Nil means the grounds' zone.
	Location *time.Location

	Time Time
}

// FeedClient mocks out access to the upstream events feed.
type FeedClient interface {
	Events(ctx context.Context, req tribe.EventsRequest) (*tribe.EventsResponse, error)
	EventsPage(ctx context.Context, pageURL string) (*tribe.EventsResponse, error)
}

func (s *Service) now() time.Time {
	if s.Time != nil {
		return s.Time.Now()
	}
	return time.Now()
}

func (s *Service) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return season.DefaultLocation()
}
