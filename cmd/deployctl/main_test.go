// Shared main test code
package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/buildsystem"
	"github.com/vespa-cd/controller/pkg/controller"
	"github.com/vespa-cd/controller/pkg/deploymentspec"
	transport "github.com/vespa-cd/controller/pkg/http"
	"github.com/vespa-cd/controller/pkg/http/client"
	"github.com/vespa-cd/controller/pkg/http/server"
	"github.com/vespa-cd/controller/pkg/store"
	"github.com/vespa-cd/controller/pkg/trigger"
)

var testApp = application.NewID("tenant1", "app1", "default")

// newTestRoot gives options talking to a controller with one
// application, deployed to us-east.
func newTestRoot(t *testing.T) *rootOpts {
	ctx := context.Background()
	st := store.NewMemoryStore()
	spec, err := deploymentspec.Parse([]byte("prod:\n  - region: us-east\n"))
	require.NoError(t, err)
	require.NoError(t, st.Write(ctx, application.New(testApp, spec, 1)))

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
	return &rootOpts{
		API: client.New(http.DefaultClient, transport.NewAPIRouter(), ts.URL, ""),
	}
}

// run executes the command line with the given options, returning
// what it printed.
func run(t *testing.T, opts *rootOpts, args ...string) (string, error) {
	cmd := opts.Command()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
