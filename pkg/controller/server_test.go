package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-cd/controller/pkg/api"
	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/buildsystem"
	"github.com/vespa-cd/controller/pkg/deploymentspec"
	ctlerr "github.com/vespa-cd/controller/pkg/errors"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/store"
	"github.com/vespa-cd/controller/pkg/trigger"
	"github.com/vespa-cd/controller/pkg/version"
)

func TestParseChange(t *testing.T) {
	change, err := ParseChange(api.ChangeSpec{Version: "7.1.0"})
	require.NoError(t, err)
	assert.Equal(t, application.VersionChange{Version: version.MustParse("7.1.0")}, change)

	change, err = ParseChange(api.ChangeSpec{Revision: "r3"})
	require.NoError(t, err)
	assert.Equal(t, application.ApplicationChange{Revision: "r3"}, change)

	for _, bad := range []api.ChangeSpec{{}, {Version: "7.1.0", Revision: "r3"}, {Version: "seven"}} {
		_, err := ParseChange(bad)
		assert.True(t, ctlerr.IsUser(err), "%+v", bad)
	}
}

func TestStatusOf(t *testing.T) {
	spec, err := deploymentspec.Parse([]byte(`
prod:
  - region: us-east
  - region: eu-west
`))
	require.NoError(t, err)
	t0 := time.Date(2017, 10, 2, 9, 0, 0, 0, time.UTC)
	app := application.New(application.NewID("t", "a", "default"), spec, 1).
		WithDeploying(application.VersionChange{Version: version.MustParse("7.1.0")}).
		WithJobTriggering(job.Production("eu-west"), job.Run{At: t0}).
		WithJobTriggering(job.SystemTest, job.Run{Version: version.MustParse("7.1.0"), At: t0}).
		WithJobTriggering("production-ap-north", job.Run{At: t0})

	status := StatusOf(app, t0.Add(2*time.Hour), time.Hour)
	assert.Equal(t, &api.ChangeSpec{Version: "7.1.0"}, status.Deploying)
	assert.Equal(t, job.SystemTest, status.Phase)
	var types []job.Type
	for _, js := range status.Jobs {
		types = append(types, js.Type)
		assert.True(t, js.Hanging, "%s", js.Type)
		assert.False(t, js.Running, "%s", js.Type)
	}
	assert.Equal(t, []job.Type{job.SystemTest, job.Production("eu-west"), "production-ap-north"}, types)
}

func TestServerClaimJob(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	queue := buildsystem.NewQueue()
	s := &Server{
		Trigger: trigger.New(trigger.Config{Store: st, BuildSystem: queue}),
		Store:   st,
		Queue:   queue,
	}

	claimed, err := s.ClaimJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	id := application.NewID("t", "a", "default")
	require.NoError(t, queue.Enqueue(ctx, id, job.SystemTest, false))
	claimed, err = s.ClaimJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, id, claimed.Application)

	assert.Error(t, s.Sweep(ctx))
}
