package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/prom"
	"github.com/bbernstein/chq-calendar/service"
)

// SyncsHandler provides a REST interface for running syncs and inspecting
// past runs.
type SyncsHandler struct {
	http.Handler // router

	service *service.Service
}

func newSyncsHandler(service *service.Service) *SyncsHandler {
	h := &SyncsHandler{
		service: service,
	}

	m := mux.NewRouter()
	m.Handle(
		"/",
		prom.InstrumentHandler("SyncRun", http.HandlerFunc(h.HandleRun)),
	).Methods("POST")
	m.Handle(
		"/",
		prom.InstrumentHandler("SyncRunList", http.HandlerFunc(h.HandleList)),
	).Methods("GET")
	m.Handle(
		"/latest",
		prom.InstrumentHandler("SyncRunLatest", http.HandlerFunc(h.HandleLatest)),
	).Methods("GET")

	h.Handler = m

	return h
}

// HandleRun wraps Service.Sync in a REST interface. The request body is
// optional; an empty body syncs the current season with defaults.
func (h *SyncsHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		var req chqcal.SyncRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, errors.E(errors.Invalid, err)
			}
		}

		return h.service.Sync(ctx, req)
	})
}

// HandleList wraps Service.SyncRuns in a REST interface.
func (h *SyncsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		var req chqcal.SyncRunListRequest
		if p := r.FormValue("page"); p != "" {
			page, err := strconv.Atoi(p)
			if err != nil {
				return nil, errors.E(errors.Invalid, errors.Errorf("bad page %q", p))
			}
			req.Page = page
		}

		return h.service.SyncRuns(ctx, req)
	})
}

// HandleLatest wraps Service.SyncRunLatest in a REST interface.
func (h *SyncsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		return h.service.SyncRunLatest(ctx)
	})
}
