package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vespa-cd/controller/pkg/deploymentspec"
	"github.com/vespa-cd/controller/pkg/order"
)

type orderOpts struct {
	*rootOpts
	specFile string
}

func newOrder(parent *rootOpts) *orderOpts {
	return &orderOpts{rootOpts: parent}
}

func (opts *orderOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "order",
		Short:   "Show the order in which a deployment spec runs jobs.",
		Example: makeExample("deployctl order -f deployment.yaml"),
		RunE:    opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.specFile, "file", "f", "deployment.yaml", "deployment spec to read")
	return cmd
}

func (opts *orderOpts) RunE(cmd *cobra.Command, args []string) error {
	if err := checkArgs(args); err != nil {
		return err
	}
	spec, err := deploymentspec.ParseFile(opts.specFile)
	if err != nil {
		return err
	}

	w := newTabwriter(cmd.OutOrStdout())
	fmt.Fprintf(w, "STEP\tJOBS\tTHEN WAIT\n")
	for i, step := range order.StepsFrom(spec) {
		var names []string
		for _, t := range step.Jobs {
			names = append(names, t.String())
		}
		wait := "-"
		if step.Delay > 0 {
			wait = step.Delay.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, strings.Join(names, ","), wait)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(spec.InactiveZones) > 0 {
		var zones []string
		for _, z := range spec.InactiveZones {
			zones = append(zones, z.String())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Inactive, never deployed to: %s\n", strings.Join(zones, ", "))
	}
	return nil
}

type blockedOpts struct {
	*rootOpts
	specFile string
	at       string
}

func newBlocked(parent *rootOpts) *blockedOpts {
	return &blockedOpts{rootOpts: parent}
}

func (opts *blockedOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocked",
		Short: "Show whether a deployment spec lets changes roll out at a given time.",
		Example: makeExample(
			"deployctl blocked -f deployment.yaml",
			"deployctl blocked -f deployment.yaml --at 2017-10-07T12:00:00Z",
		),
		RunE: opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.specFile, "file", "f", "deployment.yaml", "deployment spec to read")
	cmd.Flags().StringVar(&opts.at, "at", "", "time to check, in RFC3339 format; default is now")
	return cmd
}

func (opts *blockedOpts) RunE(cmd *cobra.Command, args []string) error {
	if err := checkArgs(args); err != nil {
		return err
	}
	at := time.Now()
	if opts.at != "" {
		var err error
		if at, err = time.Parse(time.RFC3339, opts.at); err != nil {
			return badValue("--at, want RFC 3339", err)
		}
	}
	spec, err := deploymentspec.ParseFile(opts.specFile)
	if err != nil {
		return err
	}

	w := newTabwriter(cmd.OutOrStdout())
	fmt.Fprintf(w, "CHANGE\tAT %s\n", at.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "version\t%s\n", allowed(spec.CanUpgradeAt(at)))
	fmt.Fprintf(w, "revision\t%s\n", allowed(spec.CanChangeRevisionAt(at)))
	return w.Flush()
}

func allowed(ok bool) string {
	if ok {
		return "allowed"
	}
	return "blocked"
}
