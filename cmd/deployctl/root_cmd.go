package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vespa-cd/controller/pkg/api"
	"github.com/vespa-cd/controller/pkg/application"
	transport "github.com/vespa-cd/controller/pkg/http"
	"github.com/vespa-cd/controller/pkg/http/client"
	"github.com/vespa-cd/controller/pkg/job"
)

const (
	EnvVariableURL   = "DEPLOY_CONTROLLER_URL"
	EnvVariableToken = "DEPLOY_CONTROLLER_TOKEN"
)

type rootOpts struct {
	URL   string
	Token string
	API   api.Server
}

func newRoot() *rootOpts {
	return &rootOpts{}
}

var rootLongHelp = strings.TrimSpace(`
deployctl helps you follow and steer deployments.

Workflow:
  deployctl order -f deployment.yaml                 # In which order will jobs run?
  deployctl show tenant1:app1:default                # What is being deployed, and how far has it got?
  deployctl change tenant1:app1:default -v 7.1.0     # Upgrade the application to a new version.
  deployctl force tenant1:app1:default system-test   # Run a job now.
  deployctl cancel tenant1:app1:default              # Stop deploying the change.
`)

func (opts *rootOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "deployctl",
		Long:              rootLongHelp,
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: opts.PersistentPreRunE,
	}
	cmd.PersistentFlags().StringVarP(&opts.URL, "url", "u", "http://localhost:8080/",
		fmt.Sprintf("base URL of the deployment controller; you can also set the environment variable %s", EnvVariableURL))
	cmd.PersistentFlags().StringVarP(&opts.Token, "token", "t", "",
		fmt.Sprintf("token for the deployment controller, if it is behind an authenticating proxy; you can also set the environment variable %s", EnvVariableToken))

	cmd.AddCommand(
		newVersionCommand(),
		newOrder(opts).Command(),
		newBlocked(opts).Command(),
		newShow(opts).Command(),
		newChange(opts).Command(),
		newCancel(opts).Command(),
		newForce(opts).Command(),
		newReport(opts).Command(),
		newClaim(opts).Command(),
		newSweep(opts).Command(),
	)

	return cmd
}

func (opts *rootOpts) PersistentPreRunE(cmd *cobra.Command, _ []string) error {
	// A client set already, e.g., in tests, is left alone.
	if opts.API != nil {
		return nil
	}
	opts.URL = getFromEnvIfNotSet(cmd.Flags(), "url", EnvVariableURL, opts.URL)
	opts.Token = getFromEnvIfNotSet(cmd.Flags(), "token", EnvVariableToken, opts.Token)
	opts.API = client.New(http.DefaultClient, transport.NewAPIRouter(), opts.URL, client.Token(opts.Token))
	return nil
}

type changedFlags interface {
	Changed(string) bool
}

func getFromEnvIfNotSet(flags changedFlags, flagName, envName, value string) string {
	if flags.Changed(flagName) {
		return value
	}
	if env := os.Getenv(envName); env != "" {
		return env
	}
	return value
}

func parseApplication(args []string) (application.ID, error) {
	if err := checkArgs(args, argApplication); err != nil {
		return application.ID{}, err
	}
	id, err := application.ParseID(args[0])
	if err != nil {
		return id, badValue("application", err)
	}
	return id, nil
}

func parseApplicationAndJob(args []string) (application.ID, job.Type, error) {
	if err := checkArgs(args, argApplication, argJob); err != nil {
		return application.ID{}, "", err
	}
	id, err := application.ParseID(args[0])
	if err != nil {
		return id, "", badValue("application", err)
	}
	jobType, err := job.ParseType(args[1])
	if err != nil {
		return id, "", badValue("job type", err)
	}
	return id, jobType, nil
}
