package service

import (
	"context"
	"sort"
	"time"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/season"
)

// EventSearch returns the stored events in the request window that pass its
// filter. The window defaults to the current season. Filtering happens here
// rather than in SQL: the dimensions are small, the window caps the result
// set, and one matcher serves both search and export.
func (s *Service) EventSearch(ctx context.Context, req chqcal.EventSearchRequest) ([]chqcal.Event, error) {
	const op errors.Op = "Service.EventSearch"

	if err := req.Filters.Validate(); err != nil {
		return nil, errors.E(op, errors.Invalid, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if req.Start.IsZero() && req.End.IsZero() {
		ssn := season.Current(s.now(), s.location())
		req.Start, req.End = ssn.Start, ssn.End
	}

	events, err := s.EventStore.Search(ctx, req)
	if err != nil {
		return nil, errors.E(op, "event search", err)
	}

	if req.Filters.IsZero() {
		return events, nil
	}

	matched := []chqcal.Event{}
	for _, e := range events {
		if chqcal.MatchesFilter(e, req.Filters) {
			matched = append(matched, e)
		}
	}

	return matched, nil
}

// EventGet retrieves an event by uid.
func (s *Service) EventGet(ctx context.Context, uid chqcal.EventUID) (chqcal.Event, error) {
	const op errors.Op = "Service.EventGet"

	event, err := s.EventStore.GetByUID(ctx, uid)
	if err != nil {
		return event, errors.E(op, err)
	}

	return event, nil
}

// FilterOptions aggregates the distinct filterable values of the stored
// events in a window so clients can build pickers. The window defaults to
// the current season.
func (s *Service) FilterOptions(ctx context.Context, req chqcal.EventSearchRequest) (chqcal.FilterOptions, error) {
	const op errors.Op = "Service.FilterOptions"

	opts := chqcal.FilterOptions{
		Venues:      []string{},
		Categories:  []string{},
		Tags:        []string{},
		Series:      []string{},
		Disciplines: []string{},
		Audiences:   []string{},
		Presenters:  []string{},
		Weeks:       []int{},
		DaysOfWeek:  []time.Weekday{},
		TimesOfDay:  []chqcal.TimeOfDay{},
	}

	loc := s.location()
	ssn := season.Current(s.now(), loc)
	if req.Start.IsZero() && req.End.IsZero() {
		req.Start, req.End = ssn.Start, ssn.End
	}

	events, err := s.EventStore.Search(ctx, req)
	if err != nil {
		return opts, errors.E(op, err)
	}

	var (
		venues     = map[string]bool{}
		categories = map[string]bool{}
		tags       = map[string]bool{}
		taxonomies = map[string]map[string]bool{}
		weeks      = map[int]bool{}
		days       = map[time.Weekday]bool{}
		timesOfDay = map[chqcal.TimeOfDay]bool{}
	)
	for _, tax := range []string{"series", "discipline", "audience", "presenter"} {
		taxonomies[tax] = map[string]bool{}
	}

	for _, e := range events {
		if e.Venue != nil && e.Venue.Name != "" {
			venues[e.Venue.Name] = true
		}
		if e.Category != "" {
			categories[e.Category] = true
		}
		for _, c := range e.Categories {
			if c.Name == "" {
				continue
			}
			if c.Taxonomy == "category" {
				categories[c.Name] = true
			} else if set, ok := taxonomies[c.Taxonomy]; ok {
				set[c.Name] = true
			}
		}
		for _, tag := range e.Tags {
			tags[tag] = true
		}
		if e.Week >= 1 && e.Week <= season.Weeks {
			weeks[e.Week] = true
		}
		days[e.DayOfWeek] = true
		timesOfDay[e.TimeOfDay()] = true
	}

	opts.Venues = sortedKeys(venues)
	opts.Categories = sortedKeys(categories)
	opts.Tags = sortedKeys(tags)
	opts.Series = sortedKeys(taxonomies["series"])
	opts.Disciplines = sortedKeys(taxonomies["discipline"])
	opts.Audiences = sortedKeys(taxonomies["audience"])
	opts.Presenters = sortedKeys(taxonomies["presenter"])

	for w := 1; w <= season.Weeks; w++ {
		if weeks[w] {
			opts.Weeks = append(opts.Weeks, w)
		}
	}

	// Labels come from the season the window falls in, not necessarily the
	// current one.
	labelSeason := ssn
	if !req.Start.IsZero() {
		labelSeason = season.For(req.Start.In(loc).Year(), loc)
	}
	for _, w := range opts.Weeks {
		opts.WeekLabels = append(opts.WeekLabels, labelSeason.WeekLabel(w))
	}

	for d := time.Sunday; d <= time.Saturday; d++ {
		if days[d] {
			opts.DaysOfWeek = append(opts.DaysOfWeek, d)
		}
	}

	for _, tod := range []chqcal.TimeOfDay{chqcal.Morning, chqcal.Afternoon, chqcal.Evening, chqcal.Night} {
		if timesOfDay[tod] {
			opts.TimesOfDay = append(opts.TimesOfDay, tod)
		}
	}

	return opts, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
