package controller

import (
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	ctlmetrics "github.com/vespa-cd/controller/pkg/metrics"
)

var (
	// A sweep reads every application, and locks and writes the ones
	// deploying a change; with rate limiting, it can take a while.
	sweepDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: ctlmetrics.Namespace,
		Subsystem: "controller",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of a sweep for ready jobs, in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{ctlmetrics.LabelSuccess})
)
