package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/log"
	"github.com/bbernstein/chq-calendar/prom"
	"github.com/bbernstein/chq-calendar/service"
)

var validate = validator.New()

// CalendarHandler provides a REST interface for calendar exports.
type CalendarHandler struct {
	http.Handler // router

	service *service.Service
}

func newCalendarHandler(service *service.Service) *CalendarHandler {
	h := &CalendarHandler{
		service: service,
	}

	m := mux.NewRouter()
	m.Handle(
		"/",
		prom.InstrumentHandler("CalendarExport", http.HandlerFunc(h.HandleExport)),
	).Methods("POST")
	m.Handle(
		"/feed.ics",
		prom.InstrumentHandler("CalendarFeed", http.HandlerFunc(h.HandleFeed)),
	).Methods("GET")

	h.Handler = m

	return h
}

// HandleExport wraps Service.Calendar in a REST interface.
//
// Format is left out of the struct validation on purpose: an unsupported
// format is reported inside the response envelope rather than as a 400, so
// exporter clients have a single place to look for failures.
func (h *CalendarHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		var req chqcal.CalendarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.E(errors.Invalid, err)
		}

		if err := validate.StructExcept(req, "Format"); err != nil {
			return nil, errors.E(errors.Invalid, err)
		}

		return h.service.Calendar(ctx, req)
	})
}

// HandleFeed serves a subscribable ICS feed. Filters arrive as query params,
// repeatable or comma-separated, so the picker UI can encode a selection into
// a stable URL.
func (h *CalendarHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	req, err := feedRequest(r)
	if err != nil {
		writeErrorResp(w, errors.ResponseForError(err))
		return
	}

	resp, err := h.service.Calendar(ctx, req)
	if err != nil {
		errResp := errors.ResponseForError(err)
		if errResp.Status >= 500 {
			logger.Error("calendar feed failed", zap.Error(err))
		}
		writeErrorResp(w, errResp)
		return
	}
	if !resp.Success {
		writeErrorResp(w, errors.Response{
			Error:  resp.Error,
			Status: http.StatusInternalServerError,
		})
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="chautauqua.ics"`)
	fmt.Fprint(w, resp.Data)
}

func feedRequest(r *http.Request) (chqcal.CalendarRequest, error) {
	q := r.URL.Query()

	req := chqcal.CalendarRequest{
		Format:        chqcal.FormatICS,
		Timezone:      q.Get("tz"),
		IncludeSeries: q.Get("includeSeries") == "true" || q.Get("includeSeries") == "1",
	}

	var err error
	if req.Start, err = feedDate(q.Get("start")); err != nil {
		return req, err
	}
	if req.End, err = feedDate(q.Get("end")); err != nil {
		return req, err
	}

	f := &req.Filters
	f.Venues = splitParam(q["venue"])
	f.Categories = splitParam(q["category"])
	f.Tags = splitParam(q["tag"])
	f.Series = splitParam(q["series"])
	f.Disciplines = splitParam(q["discipline"])
	f.Audiences = splitParam(q["audience"])
	f.Presenters = splitParam(q["presenter"])
	f.Locations = splitParam(q["location"])

	for _, s := range splitParam(q["week"]) {
		week, err := strconv.Atoi(s)
		if err != nil {
			return req, errors.E(errors.Invalid, errors.Errorf("bad week %q", s))
		}
		f.Weeks = append(f.Weeks, week)
	}
	for _, s := range splitParam(q["day"]) {
		day, err := strconv.Atoi(s)
		if err != nil {
			return req, errors.E(errors.Invalid, errors.Errorf("bad day %q", s))
		}
		f.DaysOfWeek = append(f.DaysOfWeek, time.Weekday(day))
	}
	for _, s := range splitParam(q["timeOfDay"]) {
		f.TimesOfDay = append(f.TimesOfDay, chqcal.TimeOfDay(s))
	}

	// Range checks on the collected values happen in the service.
	return req, nil
}

func feedDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.E(errors.Invalid, errors.Errorf("bad date %q", s))
	}
	return t, nil
}

// splitParam flattens repeatable query params that may each carry
// comma-separated values.
func splitParam(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
