package trigger

import (
	"fmt"

	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	ctlmetrics "github.com/vespa-cd/controller/pkg/metrics"
)

const (
	labelJobType = ctlmetrics.LabelJobType
	labelSuccess = ctlmetrics.LabelSuccess
	labelTrigger = ctlmetrics.LabelTrigger
	labelReason  = ctlmetrics.LabelReason

	sourceCompletion = "completion"
	sourceRetry      = "retry"
	sourceSweep      = "sweep"
	sourceChange     = "change"
	sourceForce      = "force"
)

var (
	triggers = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: ctlmetrics.Namespace,
		Subsystem: "trigger",
		Name:      "triggered_total",
		Help:      "Count of jobs triggered, by job type and what triggered them.",
	}, []string{labelJobType, labelTrigger})

	skipped = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: ctlmetrics.Namespace,
		Subsystem: "trigger",
		Name:      "skipped_total",
		Help:      "Count of jobs that were up for triggering, but not allowed to run.",
	}, []string{labelReason})

	completions = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: ctlmetrics.Namespace,
		Subsystem: "trigger",
		Name:      "completions_total",
		Help:      "Count of job completion reports received.",
	}, []string{labelJobType, labelSuccess})
)

func boolLabel(b bool) string {
	return fmt.Sprint(b)
}
