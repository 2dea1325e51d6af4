package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vespa-cd/controller/pkg/api"
)

type changeOpts struct {
	*rootOpts
	version  string
	revision string
}

func newChange(parent *rootOpts) *changeOpts {
	return &changeOpts{rootOpts: parent}
}

func (opts *changeOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change <tenant:application:instance>",
		Short: "Start deploying a platform version or application revision.",
		Example: makeExample(
			"deployctl change tenant1:app1:default --version 7.1.0",
			"deployctl change tenant1:app1:default --revision 1.0.42-abcdef",
		),
		RunE: opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.version, "version", "v", "", "platform version to upgrade to")
	cmd.Flags().StringVarP(&opts.revision, "revision", "r", "", "application revision to deploy")
	return cmd
}

func (opts *changeOpts) RunE(cmd *cobra.Command, args []string) error {
	id, err := parseApplication(args)
	if err != nil {
		return err
	}
	if err := checkExactlyOne(cmd, "version", "revision"); err != nil {
		return err
	}
	change := api.ChangeSpec{Version: opts.version, Revision: opts.revision}
	if err := opts.API.TriggerChange(context.Background(), id, change); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deploying %s to %s\n", describeChange(&change), id)
	return nil
}

type cancelOpts struct {
	*rootOpts
}

func newCancel(parent *rootOpts) *cancelOpts {
	return &cancelOpts{rootOpts: parent}
}

func (opts *cancelOpts) Command() *cobra.Command {
	return &cobra.Command{
		Use:     "cancel <tenant:application:instance>",
		Short:   "Stop deploying the current change. Jobs already running are left to finish.",
		Example: makeExample("deployctl cancel tenant1:app1:default"),
		RunE:    opts.RunE,
	}
}

func (opts *cancelOpts) RunE(cmd *cobra.Command, args []string) error {
	id, err := parseApplication(args)
	if err != nil {
		return err
	}
	if err := opts.API.CancelChange(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cancelled change for %s\n", id)
	return nil
}
