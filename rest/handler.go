// Package rest contains a REST handler for the calendar service. It wraps
// Service in a web-accessible API.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/log"
	"github.com/bbernstein/chq-calendar/service"
)

// New creates a new REST handler wrapping a calendar Service.
func New(service *service.Service) *Handler {
	return &Handler{
		EventsHandler:   newEventsHandler(service),
		CalendarHandler: newCalendarHandler(service),
		SyncsHandler:    newSyncsHandler(service),
	}
}

// Handler is an http.Handler that provides a REST interface to the calendar
// service.
type Handler struct {
	EventsHandler   *EventsHandler
	CalendarHandler *CalendarHandler
	SyncsHandler    *SyncsHandler
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var head string
	head, r.URL.Path = ShiftPath(r.URL.Path)

	switch head {
	case "events":
		if h.EventsHandler != nil {
			h.EventsHandler.ServeHTTP(w, r)
		} else {
			http.NotFound(w, r)
		}

	case "calendar":
		if h.CalendarHandler != nil {
			h.CalendarHandler.ServeHTTP(w, r)
		} else {
			http.NotFound(w, r)
		}

	case "syncs":
		if h.SyncsHandler != nil {
			h.SyncsHandler.ServeHTTP(w, r)
		} else {
			http.NotFound(w, r)
		}

	case "healthz":
		if rand.Intn(2) == 0 {
			fmt.Fprintln(w, "heads")
		} else {
			fmt.Fprintln(w, "tails")
		}

	case "":
		http.Redirect(w, r, "https://www.chqcalendar.org", http.StatusTemporaryRedirect)

	default:
		http.NotFound(w, r)
	}
}

// ShiftPath splits off the first component of p, which will be cleaned of
// relative components before processing. head will never contain a slash and
// tail will always be a rooted path without trailing slash.
func ShiftPath(p string) (head, tail string) {
	p = path.Clean("/" + p)
	i := strings.Index(p[1:], "/") + 1
	if i <= 0 {
		return p[1:], "/"
	}
	return p[1:i], p[i:]
}

func handleJSON(w http.ResponseWriter, r *http.Request, f func(context.Context) (interface{}, error)) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	resp, err := f(ctx)
	if err != nil {
		errResp := errors.ResponseForError(err)
		if errResp.Status >= 500 {
			logger.Error("internal server error", zap.Error(err))
		} else {
			logger.Warn("handler failed", zap.Error(err))
		}

		writeErrorResp(w, errResp)
		return
	}

	js, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		logger.Error("write json failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(js)
}

func writeErrorResp(w http.ResponseWriter, resp errors.Response) {
	js, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.Status)
	w.Write(js)
}
