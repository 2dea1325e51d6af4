package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// buildVersion is set at build time with
// -ldflags "-X main.buildVersion=<version>".
var buildVersion = "unversioned"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of deployctl, and what it was built with.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkArgs(args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deployctl %s (%s, %s/%s)\n", buildVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
