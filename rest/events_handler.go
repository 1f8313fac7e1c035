package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/prom"
	"github.com/bbernstein/chq-calendar/service"
)

// EventsHandler provides a REST interface for querying events.
type EventsHandler struct {
	http.Handler // router

	service *service.Service
}

func newEventsHandler(service *service.Service) *EventsHandler {
	h := &EventsHandler{
		service: service,
	}

	m := mux.NewRouter()
	m.Handle(
		"/search",
		prom.InstrumentHandler("EventSearch", http.HandlerFunc(h.HandleSearch)),
	).Methods("POST", "GET")
	m.Handle(
		"/filters",
		prom.InstrumentHandler("FilterOptions", http.HandlerFunc(h.HandleFilters)),
	).Methods("POST", "GET")
	m.Handle(
		"/{uid}",
		prom.InstrumentHandler("EventGet", http.HandlerFunc(h.HandleGet)),
	).Methods("GET")

	h.Handler = m

	return h
}

// HandleGet wraps Service.EventGet in a REST interface
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]

	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		return h.service.EventGet(ctx, chqcal.EventUID(uid))
	})
}

// HandleSearch wraps Service.EventSearch in a REST interface. The search
// request arrives either as a json form value or as the request body.
func (h *EventsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		js, err := requestJSON(r)
		if err != nil {
			return nil, err
		}

		var params chqcal.EventSearchRequest
		if err := json.Unmarshal(js, &params); err != nil {
			return nil, errors.E(errors.Invalid, err)
		}

		return h.service.EventSearch(ctx, params)
	})
}

// HandleFilters wraps Service.FilterOptions in a REST interface. An optional
// search request narrows the window the options are collected from.
func (h *EventsHandler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		js, err := requestJSON(r)
		if err != nil {
			return nil, err
		}

		var params chqcal.EventSearchRequest
		if err := json.Unmarshal(js, &params); err != nil {
			return nil, errors.E(errors.Invalid, err)
		}

		return h.service.FilterOptions(ctx, params)
	})
}

// requestJSON reads a JSON document from the json form value if present,
// falling back to the request body. An empty request decodes as {}.
func requestJSON(r *http.Request) ([]byte, error) {
	if js := r.FormValue("json"); js != "" {
		return []byte(js), nil
	}

	js, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.E(errors.Invalid, err)
	}
	if len(js) == 0 {
		js = []byte("{}")
	}
	return js, nil
}
