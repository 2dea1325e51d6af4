// Package server serves the controller's API over HTTP.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/weaveworks/common/middleware"

	"github.com/vespa-cd/controller/pkg/api"
	"github.com/vespa-cd/controller/pkg/application"
	transport "github.com/vespa-cd/controller/pkg/http"
	"github.com/vespa-cd/controller/pkg/job"
	ctlmetrics "github.com/vespa-cd/controller/pkg/metrics"
)

var (
	requestDuration = stdprometheus.NewHistogramVec(stdprometheus.HistogramOpts{
		Namespace: ctlmetrics.Namespace,
		Name:      "request_duration_seconds",
		Help:      "Time (in seconds) spent serving HTTP requests.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{ctlmetrics.LabelMethod, ctlmetrics.LabelRoute, "status_code", "ws"})
)

func init() {
	stdprometheus.MustRegister(requestDuration)
}

func NewRouter() *mux.Router {
	r := transport.NewAPIRouter()

	// Anything not matching a route is a client calling an API this
	// controller does not have.
	r.NewRoute().Name("NotFound").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteError(w, r, http.StatusNotFound, transport.MakeAPINotFound(r.URL.Path))
	})

	return r
}

func NewHandler(s api.Server, r *mux.Router) http.Handler {
	handle := HTTPServer{s}

	r.Get(transport.ReportJob).HandlerFunc(handle.ReportJob)
	r.Get(transport.TriggerChange).HandlerFunc(handle.TriggerChange)
	r.Get(transport.CancelChange).HandlerFunc(handle.CancelChange)
	r.Get(transport.ForceTrigger).HandlerFunc(handle.ForceTrigger)
	r.Get(transport.GetApplication).HandlerFunc(handle.GetApplication)
	r.Get(transport.ClaimJob).HandlerFunc(handle.ClaimJob)
	r.Get(transport.Sweep).HandlerFunc(handle.Sweep)

	return middleware.Instrument{
		RouteMatcher: r,
		Duration:     requestDuration,
	}.Wrap(r)
}

type HTTPServer struct {
	server api.Server
}

func (s HTTPServer) ReportJob(w http.ResponseWriter, r *http.Request) {
	id, jobType, ok := jobFromRequest(w, r)
	if !ok {
		return
	}
	var report application.JobReport
	if !decodeBody(w, r, &report) {
		return
	}
	report.Application = id
	report.JobType = jobType

	if err := s.server.ReportJob(r.Context(), report); err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s HTTPServer) TriggerChange(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationFromRequest(w, r)
	if !ok {
		return
	}
	var change api.ChangeSpec
	if !decodeBody(w, r, &change) {
		return
	}
	if err := s.server.TriggerChange(r.Context(), id, change); err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s HTTPServer) CancelChange(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationFromRequest(w, r)
	if !ok {
		return
	}
	if err := s.server.CancelChange(r.Context(), id); err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s HTTPServer) ForceTrigger(w http.ResponseWriter, r *http.Request) {
	id, jobType, ok := jobFromRequest(w, r)
	if !ok {
		return
	}
	var req api.ForceTriggerRequest
	// the body is optional
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if err := s.server.ForceTrigger(r.Context(), id, jobType, req.Reason); err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s HTTPServer) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationFromRequest(w, r)
	if !ok {
		return
	}
	status, err := s.server.GetApplication(r.Context(), id)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, status)
}

func (s HTTPServer) ClaimJob(w http.ResponseWriter, r *http.Request) {
	claimed, err := s.server.ClaimJob(r.Context())
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	if claimed == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	transport.JSONResponse(w, r, claimed)
}

func (s HTTPServer) Sweep(w http.ResponseWriter, r *http.Request) {
	if err := s.server.Sweep(r.Context()); err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// --- helpers

func applicationFromRequest(w http.ResponseWriter, r *http.Request) (application.ID, bool) {
	id, err := transport.ApplicationFromVars(mux.Vars(r))
	if err != nil {
		transport.WriteError(w, r, http.StatusBadRequest, transport.MakeBadRequest(err))
		return id, false
	}
	return id, true
}

func jobFromRequest(w http.ResponseWriter, r *http.Request) (application.ID, job.Type, bool) {
	id, ok := applicationFromRequest(w, r)
	if !ok {
		return id, "", false
	}
	jobType, err := job.ParseType(mux.Vars(r)[transport.VarJob])
	if err != nil {
		transport.WriteError(w, r, http.StatusBadRequest, transport.MakeBadRequest(err))
		return id, "", false
	}
	return id, jobType, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		transport.WriteError(w, r, http.StatusBadRequest, transport.MakeBadRequest(errors.Wrap(err, "decoding request body")))
		return false
	}
	return true
}
