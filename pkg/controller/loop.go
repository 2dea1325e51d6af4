// Package controller serves the operator API over the deployment
// trigger, and runs the periodic sweep that triggers jobs nobody else
// will trigger.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/kit/log"

	ctlmetrics "github.com/vespa-cd/controller/pkg/metrics"
)

// Sweeper triggers whatever is ready to run, returning how many jobs
// that was.
type Sweeper interface {
	TriggerReadyJobs(ctx context.Context) (int, error)
}

type Loop struct {
	Sweeper       Sweeper
	SweepInterval time.Duration
	// SweepTimeout bounds a single sweep; zero means no bound.
	SweepTimeout time.Duration
	Logger       log.Logger

	initOnce  sync.Once
	sweepSoon chan struct{}
}

func (loop *Loop) ensureInit() {
	loop.initOnce.Do(func() {
		loop.sweepSoon = make(chan struct{}, 1)
	})
}

// AskForSweep requests a sweep as soon as the loop is free. Requests
// made while one is pending are merged into it.
func (loop *Loop) AskForSweep() {
	loop.ensureInit()
	select {
	case loop.sweepSoon <- struct{}{}:
	default:
	}
}

// Run sweeps every SweepInterval, and whenever asked to, until stop is
// closed. Only one sweep runs at a time.
func (loop *Loop) Run(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	loop.ensureInit()
	logger := loop.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	// We want to sweep at least every `SweepInterval`. Being asked
	// to sweep may intervene (in which case, reschedule the next
	// one).
	sweepTimer := time.NewTimer(loop.SweepInterval)
	defer sweepTimer.Stop()

	loop.AskForSweep()
	for {
		select {
		case <-stop:
			logger.Log("stopping", "true")
			return
		case <-loop.sweepSoon:
			if !sweepTimer.Stop() {
				select {
				case <-sweepTimer.C:
				default:
				}
			}
			loop.sweep(stop, logger)
			sweepTimer.Reset(loop.SweepInterval)
		case <-sweepTimer.C:
			loop.AskForSweep()
		}
	}
}

func (loop *Loop) sweep(stop <-chan struct{}, logger log.Logger) {
	var ctx context.Context
	var cancel context.CancelFunc
	if loop.SweepTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), loop.SweepTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	started := time.Now()
	n, err := loop.Sweeper.TriggerReadyJobs(ctx)
	sweepDuration.With(
		ctlmetrics.LabelSuccess, fmt.Sprint(err == nil),
	).Observe(time.Since(started).Seconds())
	if err != nil {
		logger.Log("err", err)
		return
	}
	if n > 0 {
		logger.Log("event", "sweep", "triggered", n, "took", time.Since(started))
	}
}
