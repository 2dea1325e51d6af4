package buildsystem

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/job"
	ctlmetrics "github.com/vespa-cd/controller/pkg/metrics"
)

var (
	queueLength = prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
		Namespace: ctlmetrics.Namespace,
		Subsystem: "buildsystem",
		Name:      "queue_length_count",
		Help:      "Count of jobs waiting in the queue to be claimed.",
	}, []string{})

	// Jobs wait for the job runners to poll; anything much over a
	// minute means runners are missing or saturated.
	queueDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: ctlmetrics.Namespace,
		Subsystem: "buildsystem",
		Name:      "queue_duration_seconds",
		Help:      "Duration of time spent in the job queue before being claimed, in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 15, 20, 30, 45, 60, 120, 300, 600},
	}, []string{})

	requestDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: ctlmetrics.Namespace,
		Subsystem: "buildsystem",
		Name:      "request_duration_seconds",
		Help:      "Request duration in seconds.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{ctlmetrics.LabelMethod, ctlmetrics.LabelSuccess})

	enqueued = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: ctlmetrics.Namespace,
		Subsystem: "buildsystem",
		Name:      "enqueued_total",
		Help:      "Count of jobs enqueued, by job type.",
	}, []string{ctlmetrics.LabelJobType, ctlmetrics.LabelSuccess})
)

type instrumentedBuildSystem struct {
	b               BuildSystem
	RequestDuration metrics.Histogram
	Enqueued        metrics.Counter
}

func Instrument(b BuildSystem) BuildSystem {
	return &instrumentedBuildSystem{
		b:               b,
		RequestDuration: requestDuration,
		Enqueued:        enqueued,
	}
}

func (i *instrumentedBuildSystem) Enqueue(ctx context.Context, id application.ID, jobType job.Type, atFront bool) (err error) {
	defer func(begin time.Time) {
		i.RequestDuration.With(
			ctlmetrics.LabelMethod, "Enqueue",
			ctlmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
		i.Enqueued.With(
			ctlmetrics.LabelJobType, jobType.String(),
			ctlmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Add(1)
	}(time.Now())
	return i.b.Enqueue(ctx, id, jobType, atFront)
}

func (i *instrumentedBuildSystem) RemoveAllJobs(ctx context.Context, id application.ID) (err error) {
	defer func(begin time.Time) {
		i.RequestDuration.With(
			ctlmetrics.LabelMethod, "RemoveAllJobs",
			ctlmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.b.RemoveAllJobs(ctx, id)
}
