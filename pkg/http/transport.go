package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vespa-cd/controller/pkg/application"
	ctlerr "github.com/vespa-cd/controller/pkg/errors"
	"github.com/vespa-cd/controller/pkg/job"
)

const applicationPath = "/v1/applications/{" + VarTenant + "}/{" + VarApplication + "}/{" + VarInstance + "}"

func NewAPIRouter() *mux.Router {
	r := mux.NewRouter()

	r.NewRoute().Name(ReportJob).Methods("POST").Path(applicationPath + "/jobs/{" + VarJob + "}/report")
	r.NewRoute().Name(ForceTrigger).Methods("POST").Path(applicationPath + "/jobs/{" + VarJob + "}/trigger")
	r.NewRoute().Name(TriggerChange).Methods("POST").Path(applicationPath + "/change")
	r.NewRoute().Name(CancelChange).Methods("DELETE").Path(applicationPath + "/change")
	r.NewRoute().Name(GetApplication).Methods("GET").Path(applicationPath)
	r.NewRoute().Name(ClaimJob).Methods("POST").Path("/v1/queue/claim")
	r.NewRoute().Name(Sweep).Methods("POST").Path("/v1/sweep")

	return r
}

// ApplicationVars gives the path variables naming an application, to
// be passed to MakeURL.
func ApplicationVars(id application.ID) []string {
	return []string{VarTenant, id.Tenant, VarApplication, id.Application, VarInstance, id.Instance}
}

// JobVars is ApplicationVars plus the job type.
func JobVars(id application.ID, jobType job.Type) []string {
	return append(ApplicationVars(id), VarJob, string(jobType))
}

// ApplicationFromVars reads the application named in a request's path.
func ApplicationFromVars(vars map[string]string) (application.ID, error) {
	id := application.NewID(vars[VarTenant], vars[VarApplication], vars[VarInstance])
	if id.Tenant == "" || id.Application == "" || id.Instance == "" {
		return id, errors.Errorf("incomplete application ID %q", id)
	}
	return id, nil
}

// MakeURL builds the URL for the named route, filling in the path
// variables from the pairs in urlParams.
func MakeURL(endpoint string, router *mux.Router, routeName string, urlParams ...string) (*url.URL, error) {
	if len(urlParams)%2 != 0 {
		panic("urlParams must be even!")
	}

	endpointURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing endpoint %s", endpoint)
	}
	route := router.Get(routeName)
	if route == nil {
		return nil, errors.New("no route with name " + routeName)
	}
	routeURL, err := route.URLPath(urlParams...)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving route path %s", routeName)
	}

	endpointURL.Path = path.Join(endpointURL.Path, routeURL.Path)
	return endpointURL, nil
}

func WriteError(w http.ResponseWriter, r *http.Request, code int, err error) {
	// Clients that can decode JSON errors say so with the Accept
	// header; everyone else gets the error text.
	if len(r.Header.Get("Accept")) > 0 {
		switch negotiateContentType(r, []string{"application/json", "text/plain"}) {
		case "application/json":
			body, encodeErr := json.Marshal(err)
			if encodeErr != nil {
				w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, "Error encoding error response: %s\n\nOriginal error: %s", encodeErr.Error(), err.Error())
				return
			}
			w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "application/json; charset=utf-8")
			w.WriteHeader(code)
			w.Write(body)
			return
		case "text/plain":
			w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "text/plain; charset=utf-8")
			w.WriteHeader(code)
			switch err := err.(type) {
			case *ctlerr.Error:
				fmt.Fprint(w, err.Help)
			default:
				fmt.Fprint(w, err.Error())
			}
			return
		}
	}
	w.Header().Set(http.CanonicalHeaderKey("Content-Type"), "text/plain; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprint(w, err.Error())
}

func JSONResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	body, err := json.Marshal(result)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ErrorResponse writes an error with the status code its type calls
// for: 404 for missing things, 409 for requests that conflict with
// the state of the application, and 500 for everything else.
func ErrorResponse(w http.ResponseWriter, r *http.Request, apiError error) {
	var outErr *ctlerr.Error
	if !errors.As(apiError, &outErr) {
		outErr = ctlerr.CoverAllError(apiError)
	}

	var code int
	switch outErr.Type {
	case ctlerr.Missing:
		code = http.StatusNotFound
	case ctlerr.User:
		code = http.StatusConflict
	default:
		code = http.StatusInternalServerError
	}
	WriteError(w, r, code, outErr)
}
