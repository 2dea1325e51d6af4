package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Arguments, as they are named in usage errors.
const (
	argApplication = "<tenant:application:instance>"
	argJob         = "<job type>"
)

// usageError is a mistake in how a command was invoked, rather than a
// failure of the controller. main follows it with the command's usage.
type usageError struct {
	error
}

func usageErrorf(format string, args ...interface{}) usageError {
	return usageError{error: errors.Errorf(format, args...)}
}

// badValue reports an argument or flag value that did not parse.
func badValue(what string, err error) error {
	return usageError{error: errors.Wrapf(err, "invalid %s", what)}
}

// checkArgs returns a usage error unless there is exactly one
// argument per name in want.
func checkArgs(args []string, want ...string) error {
	if len(args) == len(want) {
		return nil
	}
	if len(want) == 0 {
		return usageErrorf("no arguments expected, got %q", args)
	}
	return usageErrorf("expected %s, got %d argument(s)", strings.Join(want, " "), len(args))
}

// checkExactlyOne returns a usage error unless exactly one of the
// named flags was given on the command line.
func checkExactlyOne(cmd *cobra.Command, names ...string) error {
	var given []string
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			given = append(given, flagName(name))
		}
	}
	switch len(given) {
	case 1:
		return nil
	case 0:
		all := make([]string, len(names))
		for i, name := range names {
			all[i] = flagName(name)
		}
		return usageErrorf("one of %s is required", strings.Join(all, " or "))
	}
	return usageErrorf("%s cannot be used together", strings.Join(given, " and "))
}

func flagName(name string) string {
	return fmt.Sprintf("--%s", name)
}
