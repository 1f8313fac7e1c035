package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/calendar"
	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/log"
	"github.com/bbernstein/chq-calendar/season"
)

// Calendar exports the stored events that pass the request's filter in the
// requested format. The window defaults to the current season.
//
// A bad filter rejects the whole request: exports must be internally
// consistent, so there is no partial output. An unsupported format comes back
// inside the response envelope with Success=false, which is what subscriber
// clients expect to inspect.
func (s *Service) Calendar(ctx context.Context, req chqcal.CalendarRequest) (chqcal.CalendarResponse, error) {
	const op errors.Op = "Service.Calendar"

	logger := log.FromContext(ctx)

	if err := req.Filters.Validate(); err != nil {
		return chqcal.CalendarResponse{}, errors.E(op, errors.Invalid, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start, end := req.Start, req.End
	if start.IsZero() && end.IsZero() {
		ssn := season.Current(s.now(), s.location())
		start, end = ssn.Start, ssn.End
	}

	events, err := s.EventStore.Search(ctx, chqcal.EventSearchRequest{
		Start: start,
		End:   end,
	})
	if err != nil {
		return chqcal.CalendarResponse{}, errors.E(op, err)
	}

	keep := []chqcal.Event{}
	for _, e := range events {
		// Recurring series drown out the one-off programs subscribers
		// want, so they stay out unless asked for, either wholesale or
		// by naming a series in the filter.
		if !req.IncludeSeries && len(req.Filters.Series) == 0 && e.InSeries() {
			continue
		}
		if chqcal.MatchesFilter(e, req.Filters) {
			keep = append(keep, e)
		}
	}

	resp, err := calendar.Export(keep, req)
	if errors.Is(errors.Export, err) {
		logger.Error("calendar export failed", zap.Error(err))
		return chqcal.CalendarResponse{Success: false, Error: err.Error()}, nil
	}
	if err != nil {
		return chqcal.CalendarResponse{}, errors.E(op, err)
	}

	if req.Format == chqcal.FormatICS && s.ICSFeedURL != "" {
		resp.DownloadURL = s.ICSFeedURL
	}

	return resp, nil
}
