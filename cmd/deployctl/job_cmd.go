package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/version"
)

type forceOpts struct {
	*rootOpts
	reason string
}

func newForce(parent *rootOpts) *forceOpts {
	return &forceOpts{rootOpts: parent}
}

func (opts *forceOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "force <tenant:application:instance> <job>",
		Short:   "Run a job now, whether or not it is due.",
		Example: makeExample("deployctl force tenant1:app1:default production-us-east-3 --reason 'redeploy after incident'"),
		RunE:    opts.RunE,
	}
	cmd.Flags().StringVar(&opts.reason, "reason", "", "why the job is run, recorded with it")
	return cmd
}

func (opts *forceOpts) RunE(cmd *cobra.Command, args []string) error {
	id, jobType, err := parseApplicationAndJob(args)
	if err != nil {
		return err
	}
	if err := opts.API.ForceTrigger(context.Background(), id, jobType, opts.reason); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Triggered %s for %s\n", jobType, id)
	return nil
}

type reportOpts struct {
	*rootOpts
	failed    string
	version   string
	revision  string
	projectID int64
}

func newReport(parent *rootOpts) *reportOpts {
	return &reportOpts{rootOpts: parent}
}

func (opts *reportOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <tenant:application:instance> <job>",
		Short: "Report the outcome of a job, as the build system does.",
		Example: makeExample(
			"deployctl report tenant1:app1:default component --revision 1.0.42-abcdef --project-id 1234",
			"deployctl report tenant1:app1:default staging-test --failed outOfCapacity",
		),
		RunE: opts.RunE,
	}
	cmd.Flags().StringVar(&opts.failed, "failed", "", "report a failure, of this kind (outOfCapacity or other)")
	cmd.Flags().StringVar(&opts.version, "version", "", "platform version the job ran with")
	cmd.Flags().StringVar(&opts.revision, "revision", "", "application revision the job ran with")
	cmd.Flags().Int64Var(&opts.projectID, "project-id", 0, "build project of the application")
	return cmd
}

func (opts *reportOpts) RunE(cmd *cobra.Command, args []string) error {
	id, jobType, err := parseApplicationAndJob(args)
	if err != nil {
		return err
	}
	report := application.JobReport{
		Application: id,
		JobType:     jobType,
		ProjectID:   opts.projectID,
		Success:     opts.failed == "",
		Revision:    version.Revision(opts.revision),
	}
	if opts.failed != "" {
		if report.Error, err = job.ParseError(opts.failed); err != nil {
			return badValue("--failed", err)
		}
	}
	if opts.version != "" {
		if report.Version, err = version.Parse(opts.version); err != nil {
			return badValue("--version", err)
		}
	}
	return opts.API.ReportJob(context.Background(), report)
}

type claimOpts struct {
	*rootOpts
}

func newClaim(parent *rootOpts) *claimOpts {
	return &claimOpts{rootOpts: parent}
}

func (opts *claimOpts) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "claim",
		Short: "Take the next job off the queue, and print it as JSON.",
		RunE:  opts.RunE,
	}
}

func (opts *claimOpts) RunE(cmd *cobra.Command, args []string) error {
	if err := checkArgs(args); err != nil {
		return err
	}
	claimed, err := opts.API.ClaimJob(context.Background())
	if err != nil {
		return err
	}
	if claimed == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "No jobs queued")
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(claimed)
}

type sweepOpts struct {
	*rootOpts
}

func newSweep(parent *rootOpts) *sweepOpts {
	return &sweepOpts{rootOpts: parent}
}

func (opts *sweepOpts) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Ask the controller to trigger ready jobs of all applications now.",
		RunE:  opts.RunE,
	}
}

func (opts *sweepOpts) RunE(cmd *cobra.Command, args []string) error {
	if err := checkArgs(args); err != nil {
		return err
	}
	return opts.API.Sweep(context.Background())
}
