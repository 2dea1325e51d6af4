package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	"github.com/vespa-cd/controller/pkg/application"
	ctlmetrics "github.com/vespa-cd/controller/pkg/metrics"
)

var requestDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
	Namespace: ctlmetrics.Namespace,
	Subsystem: "store",
	Name:      "request_duration_seconds",
	Help:      "Request duration in seconds.",
	Buckets:   stdprometheus.DefBuckets,
}, []string{ctlmetrics.LabelMethod, ctlmetrics.LabelSuccess})

type instrumentedStore struct {
	s               ApplicationStore
	RequestDuration metrics.Histogram
}

// Instrument times every call to the store. Waiting for a lock is
// timed too, so contention shows up as slow Lock calls.
func Instrument(s ApplicationStore) ApplicationStore {
	return &instrumentedStore{
		s:               s,
		RequestDuration: requestDuration,
	}
}

func (i *instrumentedStore) observe(method string, err error, begin time.Time) {
	i.RequestDuration.With(
		ctlmetrics.LabelMethod, method,
		ctlmetrics.LabelSuccess, fmt.Sprint(err == nil),
	).Observe(time.Since(begin).Seconds())
}

func (i *instrumentedStore) Lock(ctx context.Context, id application.ID) (l Lock, err error) {
	defer func(begin time.Time) { i.observe("Lock", err, begin) }(time.Now())
	return i.s.Lock(ctx, id)
}

func (i *instrumentedStore) Read(ctx context.Context, id application.ID) (app application.Application, err error) {
	defer func(begin time.Time) { i.observe("Read", err, begin) }(time.Now())
	return i.s.Read(ctx, id)
}

func (i *instrumentedStore) Write(ctx context.Context, app application.Application) (err error) {
	defer func(begin time.Time) { i.observe("Write", err, begin) }(time.Now())
	return i.s.Write(ctx, app)
}

func (i *instrumentedStore) List(ctx context.Context) (ids []application.ID, err error) {
	defer func(begin time.Time) { i.observe("List", err, begin) }(time.Now())
	return i.s.List(ctx)
}
