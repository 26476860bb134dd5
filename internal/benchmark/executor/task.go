package executor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
	"github.com/wesleyorama2/stormbench/internal/benchmark/performer"
)

// RetryPolicy controls retries of a failed attempt.
type RetryPolicy struct {
	Enabled bool

	// MaxAttempts counts the first attempt. Zero retries until the phase
	// is cancelled.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// runTask performs one task and builds its outcome. Latency covers every
// attempt including backoff waits.
func (e *Executor) runTask(ctx context.Context, workerID int) metrics.Outcome {
	req := performer.Request{
		Operation: e.config.Operation,
		Object:    e.resolver.Resolve(workerID),
		WorkerID:  workerID,
	}

	start := time.Now()
	res, err := e.perform(ctx, req)
	end := time.Now()

	o := metrics.Outcome{
		Timestamp: end,
		Latency:   end.Sub(start),
		Object:    req.Object,
		WorkerID:  workerID,
		ConnID:    res.ConnID,
		Peer:      res.Peer,
		Chunks:    res.Chunks,
	}
	if err != nil {
		o.Class, o.ErrorCode = performer.Classify(err)
		o.ErrorMessage = err.Error()
		return o
	}

	o.Success = true
	o.Bytes = res.Bytes
	return o
}

// perform runs the attempt loop for req.
func (e *Executor) perform(ctx context.Context, req performer.Request) (performer.Result, error) {
	if !e.config.Retry.Enabled {
		return e.attempt(ctx, req)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.config.Retry.InitialBackoff
	b.MaxInterval = e.config.Retry.MaxBackoff

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.log.WithFields(logrus.Fields{
				"worker": req.WorkerID,
				"object": req.Object,
				"retry":  next,
			}).WithError(err).Debug("Operation failed, retrying")
		}),
	}
	if e.config.Retry.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(e.config.Retry.MaxAttempts)))
	}

	// The last attempt's result carries ConnID and Peer even on failure.
	var last performer.Result
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		res, err := e.attempt(ctx, req)
		last = res
		return struct{}{}, err
	}, opts...)
	return last, err
}

// attempt makes one call, after waiting on the rate limiter and under the
// per-call deadline.
func (e *Executor) attempt(ctx context.Context, req performer.Request) (performer.Result, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return performer.Result{}, err
		}
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}
	return e.performer.Perform(ctx, req)
}
