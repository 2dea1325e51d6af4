package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-cd/controller/pkg/api"
	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/buildsystem"
	"github.com/vespa-cd/controller/pkg/controller"
	"github.com/vespa-cd/controller/pkg/deploymentspec"
	ctlerr "github.com/vespa-cd/controller/pkg/errors"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/store"
	"github.com/vespa-cd/controller/pkg/trigger"
)

var appID = application.NewID("tenant1", "app1", "default")

const appPath = "/v1/applications/tenant1/app1/default"

func newTestHandler(t *testing.T) (http.Handler, *buildsystem.Queue) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	spec, err := deploymentspec.Parse([]byte("prod:\n  - region: us-east\n"))
	require.NoError(t, err)
	require.NoError(t, st.Write(ctx, application.New(appID, spec, 1)))

	queue := buildsystem.NewQueue()
	now := time.Date(2017, 10, 2, 9, 0, 0, 0, time.UTC)
	s := &controller.Server{
		Trigger: trigger.New(trigger.Config{
			Store:       st,
			BuildSystem: queue,
			Now:         func() time.Time { return now },
		}),
		Store: st,
		Queue: queue,
		Loop:  &controller.Loop{},
		Now:   func() time.Time { return now },
	}
	return NewHandler(s, NewRouter()), queue
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHasHandlerForEveryRoute(t *testing.T) {
	router := NewRouter()
	NewHandler(nil, router)
	for _, name := range []string{"ReportJob", "TriggerChange", "CancelChange", "ForceTrigger", "GetApplication", "ClaimJob", "Sweep"} {
		route := router.Get(name)
		if assert.NotNil(t, route, name) {
			assert.NotNil(t, route.GetHandler(), name)
		}
	}
}

func TestReportStartsChange(t *testing.T) {
	h, queue := newTestHandler(t)

	rec := do(h, "POST", appPath+"/jobs/component/report", `{"success":true,"revision":"r1"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, queue.Len())

	rec = do(h, "GET", appPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status api.ApplicationStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, appID, status.ID)
	assert.Equal(t, &api.ChangeSpec{Revision: "r1"}, status.Deploying)
	assert.Equal(t, job.SystemTest, status.Phase)

	rec = do(h, "POST", "/v1/queue/claim", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var claimed buildsystem.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claimed))
	assert.Equal(t, job.SystemTest, claimed.Type)
	assert.Equal(t, appID, claimed.Application)

	rec = do(h, "POST", "/v1/queue/claim", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChangeConflict(t *testing.T) {
	h, _ := newTestHandler(t)

	assert.Equal(t, http.StatusAccepted, do(h, "POST", appPath+"/change", `{"version":"7.1.0"}`).Code)

	rec := do(h, "POST", appPath+"/change", `{"revision":"r2"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var apiErr ctlerr.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, ctlerr.User, apiErr.Type)

	assert.Equal(t, http.StatusNoContent, do(h, "DELETE", appPath+"/change", "").Code)
	assert.Equal(t, http.StatusAccepted, do(h, "POST", appPath+"/change", `{"revision":"r2"}`).Code)
}

func TestBadRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	assert.Equal(t, http.StatusBadRequest, do(h, "POST", appPath+"/jobs/no-such-job/report", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, "POST", appPath+"/change", `not json`).Code)
	assert.Equal(t, http.StatusConflict, do(h, "POST", appPath+"/change", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, do(h, "GET", "/v1/applications/no/such/app", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, "GET", "/v0/anything", "").Code)
}

func TestForceTrigger(t *testing.T) {
	h, queue := newTestHandler(t)

	assert.Equal(t, http.StatusAccepted, do(h, "POST", appPath+"/jobs/system-test/trigger", "").Code)
	assert.Equal(t, 1, queue.Len())
	assert.Equal(t, http.StatusConflict, do(h, "POST", appPath+"/jobs/production-eu-west/trigger", `{"reason":"why not"}`).Code)
}

func TestSweep(t *testing.T) {
	h, _ := newTestHandler(t)
	assert.Equal(t, http.StatusAccepted, do(h, "POST", "/v1/sweep", "").Code)
}
