package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/vespa-cd/controller/pkg/api"
	"github.com/vespa-cd/controller/pkg/zone"
)

type showOpts struct {
	*rootOpts
}

func newShow(parent *rootOpts) *showOpts {
	return &showOpts{rootOpts: parent}
}

func (opts *showOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show <tenant:application:instance>",
		Short:   "Show the change being deployed to an application, and its jobs.",
		Example: makeExample("deployctl show tenant1:app1:default"),
		RunE:    opts.RunE,
	}
	return cmd
}

func (opts *showOpts) RunE(cmd *cobra.Command, args []string) error {
	id, err := parseApplication(args)
	if err != nil {
		return err
	}

	status, err := opts.API.GetApplication(context.Background(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Application: %s\n", status.ID)
	fmt.Fprintf(out, "Deploying:   %s\n", describeChange(status.Deploying))
	if status.Phase != "" {
		fmt.Fprintf(out, "Waiting on:  %s\n", status.Phase)
	}
	if status.OutstandingChange {
		fmt.Fprintf(out, "A new revision is waiting to be deployed.\n")
	}
	fmt.Fprintln(out)

	w := newTabwriter(out)
	fmt.Fprintf(w, "JOB\tSTATE\tTRIGGERED\tLAST SUCCESS\tFAILING SINCE\n")
	for _, js := range status.Jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", js.Type, jobState(js), formatRun(js.LastTriggered), formatRun(js.LastSuccess), formatRun(js.FirstFailing))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(status.Deployments) > 0 {
		fmt.Fprintln(out)
		var zones []zone.Zone
		for z := range status.Deployments {
			zones = append(zones, z)
		}
		sort.Slice(zones, func(i, j int) bool { return zones[i].String() < zones[j].String() })
		w = newTabwriter(out)
		fmt.Fprintf(w, "ZONE\tVERSION\tREVISION\tSINCE\n")
		for _, z := range zones {
			d := status.Deployments[z]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", z, d.Version, d.Revision, d.At.UTC().Format(time.RFC3339))
		}
		return w.Flush()
	}
	return nil
}

func describeChange(change *api.ChangeSpec) string {
	switch {
	case change == nil:
		return "nothing"
	case change.Version != "":
		return "version " + change.Version
	case change.Revision != "":
		return "revision " + change.Revision
	}
	return "revision (not yet known)"
}

func jobState(js api.JobStatus) string {
	switch {
	case js.Running:
		return "running"
	case js.Hanging:
		return "hanging"
	case js.FirstFailing != nil:
		return "failing: " + string(js.Error)
	case js.LastSuccess != nil:
		return "succeeded"
	}
	return "-"
}
