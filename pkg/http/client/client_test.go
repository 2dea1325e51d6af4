package client

import (
	"context"
	"net/http"
	"net/http/httptest"
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
	transport "github.com/vespa-cd/controller/pkg/http"
	"github.com/vespa-cd/controller/pkg/http/server"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/store"
	"github.com/vespa-cd/controller/pkg/trigger"
)

var appID = application.NewID("tenant1", "app1", "default")

func newTestClient(t *testing.T) *Client {
	ctx := context.Background()
	st := store.NewMemoryStore()
	spec, err := deploymentspec.Parse([]byte("prod:\n  - region: us-east\n"))
	require.NoError(t, err)
	require.NoError(t, st.Write(ctx, application.New(appID, spec, 1)))

	now := time.Date(2017, 10, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	queue := buildsystem.NewQueue()
	s := &controller.Server{
		Trigger: trigger.New(trigger.Config{Store: st, BuildSystem: queue, Now: clock}),
		Store:   st,
		Queue:   queue,
		Loop:    &controller.Loop{},
		Now:     clock,
	}
	ts := httptest.NewServer(server.NewHandler(s, server.NewRouter()))
	t.Cleanup(ts.Close)
	return New(http.DefaultClient, transport.NewAPIRouter(), ts.URL, "")
}

func TestClientRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.ReportJob(ctx, application.JobReport{
		Application: appID,
		JobType:     job.Component,
		Success:     true,
		Revision:    "r1",
	}))

	status, err := c.GetApplication(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, &api.ChangeSpec{Revision: "r1"}, status.Deploying)
	require.NotEmpty(t, status.Jobs)
	assert.Equal(t, job.Component, status.Jobs[0].Type)

	claimed, err := c.ClaimJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.SystemTest, claimed.Type)

	claimed, err = c.ClaimJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	require.NoError(t, c.ReportJob(ctx, application.JobReport{
		Application: appID,
		JobType:     job.SystemTest,
		Success:     true,
	}))
	claimed, err = c.ClaimJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.StagingTest, claimed.Type)

	require.NoError(t, c.CancelChange(ctx, appID))
	status, err = c.GetApplication(ctx, appID)
	require.NoError(t, err)
	assert.Nil(t, status.Deploying)

	require.NoError(t, c.TriggerChange(ctx, appID, api.ChangeSpec{Version: "7.1.0"}))
	require.NoError(t, c.ForceTrigger(ctx, appID, job.StagingTest, "checking"))
	require.NoError(t, c.Sweep(ctx))
}

func TestClientErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.GetApplication(ctx, application.NewID("no", "such", "app"))
	assert.True(t, ctlerr.IsMissing(err), "%v", err)

	err = c.TriggerChange(ctx, appID, api.ChangeSpec{Version: "7.1.0", Revision: "r1"})
	assert.True(t, ctlerr.IsUser(err), "%v", err)

	err = c.ForceTrigger(ctx, appID, job.Production("eu-west"), "")
	assert.True(t, ctlerr.IsUser(err), "%v", err)
}
