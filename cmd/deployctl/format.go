package main

import (
	"io"
	"text/tabwriter"
	"time"

	"github.com/vespa-cd/controller/pkg/job"
)

func newTabwriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
}

func makeExample(examples ...string) string {
	var buf string
	for _, ex := range examples {
		buf = buf + "  " + ex + "\n"
	}
	return buf
}

// formatRun gives the time and target of a run, or "-" if there is
// none.
func formatRun(run *job.Run) string {
	if run == nil {
		return "-"
	}
	s := run.At.UTC().Format(time.RFC3339)
	if !run.Version.IsEmpty() {
		s += " " + run.Version.String()
	}
	if run.Revision.IsKnown() {
		s += " " + run.Revision.String()
	}
	return s
}
