package application

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-cd/controller/pkg/deploymentspec"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/version"
	"github.com/vespa-cd/controller/pkg/zone"
)

var (
	t0      = time.Date(2017, 10, 2, 9, 0, 0, 0, time.UTC)
	appID   = NewID("tenant1", "app1", "default")
	usEast3 = zone.From(zone.Prod, "us-east-3")
)

func testSpec(t *testing.T) deploymentspec.Spec {
	spec, err := deploymentspec.Parse([]byte(`
block-changes:
  - revision: false
    days: sat-sun
    time-zone: Europe/Oslo
prod:
  - region: us-east-3
  - delay: 30m
  - parallel:
      - region: us-west-1
      - region: eu-west-1
  - region: ap-northeast-1
    active: false
`))
	require.NoError(t, err)
	return spec
}

func TestParseID(t *testing.T) {
	id, err := ParseID("tenant1:app1:default")
	require.NoError(t, err)
	assert.Equal(t, appID, id)
	assert.Equal(t, "tenant1:app1:default", id.String())

	for _, bad := range []string{"", "tenant1:app1", "tenant1::default", "a:b:c:d"} {
		_, err := ParseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestWithMethodsDoNotMutate(t *testing.T) {
	app := New(appID, testSpec(t), 1)
	triggered := app.WithJobTriggering(job.SystemTest, job.Run{At: t0, Reason: "test"})
	deploying := triggered.WithDeploying(VersionChange{Version: version.MustParse("7.1")})

	_, ok := app.JobStatus(job.SystemTest)
	assert.False(t, ok)
	_, ok = triggered.JobStatus(job.SystemTest)
	assert.True(t, ok)
	assert.Nil(t, triggered.Deploying())
	assert.True(t, deploying.IsDeploying())

	statuses := deploying.JobStatuses()
	delete(statuses, job.SystemTest)
	_, ok = deploying.JobStatus(job.SystemTest)
	assert.True(t, ok, "JobStatuses returns a copy")
}

func TestJobCompletion(t *testing.T) {
	v := version.MustParse("7.1.0")
	app := New(appID, testSpec(t), 0).
		WithDeploying(ApplicationChange{}).
		WithJobTriggering(job.SystemTest, job.Run{Version: v, At: t0})

	app = app.WithJobCompletion(JobReport{
		Application: appID,
		JobType:     job.SystemTest,
		ProjectID:   42,
		Success:     true,
		Revision:    "r1",
	}, t0.Add(time.Minute))

	assert.Equal(t, int64(42), app.ProjectID())
	assert.Equal(t, ApplicationChange{Revision: "r1"}, app.Deploying())
	status, _ := app.JobStatus(job.SystemTest)
	assert.True(t, status.IsSuccess())
	assert.True(t, status.LastSuccess.Version.Equal(v))

	prodJob := job.Production("us-east-3")
	app = app.WithJobTriggering(prodJob, job.Run{Version: v, Revision: "r1", At: t0.Add(time.Hour)})
	failed := app.WithJobCompletion(JobReport{Application: appID, JobType: prodJob, Error: job.OutOfCapacity}, t0.Add(2*time.Hour))
	assert.True(t, failed.HasFailures())
	_, deployed := failed.Deployment(usEast3)
	assert.False(t, deployed)

	app = app.WithJobCompletion(JobReport{Application: appID, JobType: prodJob, Success: true}, t0.Add(2*time.Hour))
	d, deployed := app.Deployment(usEast3)
	require.True(t, deployed)
	assert.True(t, d.Version.Equal(v))
	assert.Equal(t, version.Revision("r1"), d.Revision)
	assert.False(t, app.HasFailures())
}

func TestChangeBlocking(t *testing.T) {
	spec := testSpec(t)
	saturday := time.Date(2017, 10, 7, 12, 0, 0, 0, time.UTC)
	monday := time.Date(2017, 10, 2, 12, 0, 0, 0, time.UTC)

	upgrade := VersionChange{Version: version.MustParse("7.1")}
	assert.True(t, upgrade.BlockedBy(spec, saturday))
	assert.False(t, upgrade.BlockedBy(spec, monday))
	assert.False(t, ApplicationChange{Revision: "r1"}.BlockedBy(spec, saturday))
}

func TestJSONRoundTrip(t *testing.T) {
	v := version.MustParse("7.1.0")
	app := New(appID, testSpec(t), 7).
		WithDeploying(VersionChange{Version: v}).
		WithOutstandingChange(true).
		WithJobTriggering(job.SystemTest, job.Run{Version: v, At: t0, Reason: "upgrade"}).
		WithDeployment(usEast3, Deployment{Version: version.MustParse("7.0.0"), Revision: "r0", At: t0})

	bytes, err := json.Marshal(app)
	require.NoError(t, err)

	var decoded Application
	require.NoError(t, json.Unmarshal(bytes, &decoded))
	assert.Equal(t, appID, decoded.ID())
	assert.Equal(t, int64(7), decoded.ProjectID())
	assert.True(t, decoded.OutstandingChange())
	change, ok := decoded.Deploying().(VersionChange)
	require.True(t, ok)
	assert.True(t, change.Version.Equal(v))

	status, ok := decoded.JobStatus(job.SystemTest)
	require.True(t, ok)
	assert.Equal(t, "upgrade", status.LastTriggered.Reason)
	assert.True(t, t0.Equal(status.LastTriggered.At))

	d, ok := decoded.Deployment(usEast3)
	require.True(t, ok)
	assert.Equal(t, version.Revision("r0"), d.Revision)

	saturday := time.Date(2017, 10, 7, 12, 0, 0, 0, time.UTC)
	assert.False(t, decoded.Spec().CanUpgradeAt(saturday))
	assert.Equal(t, app.Spec().ProductionZones(), decoded.Spec().ProductionZones())
	assert.Equal(t, 30*time.Minute, decoded.Spec().Steps[1].Delay)
	assert.Equal(t, app.Spec().InactiveZones, decoded.Spec().InactiveZones)
	assert.Len(t, decoded.Spec().InactiveZones, 1)
}
