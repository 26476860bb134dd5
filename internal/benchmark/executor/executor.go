// Package executor drives a benchmark: a warmup phase whose outcomes are
// discarded, then a measured phase whose outcomes go to a metrics
// collector. Tasks are spread over a fixed set of worker goroutines.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
	"github.com/wesleyorama2/stormbench/internal/benchmark/performer"
)

// DefaultGrace is added to timeout*runs when bounding a phase.
const DefaultGrace = 60 * time.Second

// ErrPhaseTimeout is returned when a phase exceeds its wait bound. Tasks
// still running at that point are cancelled and their outcomes dropped.
var ErrPhaseTimeout = errors.New("phase timed out")

// Config contains the executor settings.
type Config struct {
	Operation config.Operation

	Threads int
	Runs    int
	Warmups int

	// Timeout bounds each attempt. Zero means no per-call deadline and an
	// unbounded phase wait.
	Timeout time.Duration

	// Grace is added to Timeout*Runs to bound each phase. Zero means
	// DefaultGrace.
	Grace time.Duration

	Retry RetryPolicy

	// RateLimit caps attempts per second across all workers. Zero disables it.
	RateLimit float64
}

// ConfigFrom builds an executor Config from a benchmark configuration.
func ConfigFrom(cfg *config.BenchmarkConfig) Config {
	return Config{
		Operation: cfg.Operation,
		Threads:   cfg.Threads,
		Runs:      cfg.Runs,
		Warmups:   cfg.Warmups,
		Timeout:   time.Duration(cfg.Timeout),
		RateLimit: cfg.RateLimit,
		Retry: RetryPolicy{
			Enabled:        cfg.Trying,
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff.GetDuration(100 * time.Millisecond),
			MaxBackoff:     cfg.Retry.MaxBackoff.GetDuration(5 * time.Second),
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1")
	}
	if c.Runs < 0 || c.Warmups < 0 {
		return fmt.Errorf("runs and warmups must be non-negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}

// Resolver names the object a task on the given worker operates on.
type Resolver interface {
	Resolve(workerID int) string
}

// Stats describes how the phases went.
type Stats struct {
	WarmupElapsed  time.Duration
	MeasureStart   time.Time
	MeasureElapsed time.Duration

	// Abandoned counts tasks whose outcomes were dropped because their
	// phase timed out or was cancelled.
	Abandoned int64
}

// Executor runs the two phases of a benchmark.
type Executor struct {
	config    Config
	performer performer.Performer
	resolver  Resolver
	collector *metrics.Collector
	log       logrus.FieldLogger
	limiter   *rate.Limiter

	onOutcome func(metrics.Outcome)
}

// New returns an Executor. The collector receives measured-phase outcomes
// only.
func New(cfg Config, p performer.Performer, r Resolver, c *metrics.Collector, log logrus.FieldLogger) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}

	e := &Executor{
		config:    cfg,
		performer: p,
		resolver:  r,
		collector: c,
		log:       log,
	}
	if cfg.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return e, nil
}

// OnOutcome registers fn to be called after each measured outcome is
// recorded. It must be set before Run and be safe for concurrent use.
func (e *Executor) OnOutcome(fn func(metrics.Outcome)) {
	e.onOutcome = fn
}

// Run executes the warmup phase (if any) and then the measured phase. A
// timed-out phase yields ErrPhaseTimeout; the returned Stats are valid
// either way.
func (e *Executor) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if e.config.Warmups > 0 {
		e.collector.SetPhase(metrics.PhaseWarmup)
		e.log.WithField("warmups", e.config.Warmups).Info("Starting warmup")

		start := time.Now()
		abandoned, err := e.runPhase(ctx, metrics.PhaseWarmup, e.config.Warmups, nil)
		stats.WarmupElapsed = time.Since(start)
		stats.Abandoned += abandoned
		if err != nil {
			return stats, fmt.Errorf("warmup: %w", err)
		}
	}

	e.collector.SetPhase(metrics.PhaseMeasure)
	e.log.WithFields(logrus.Fields{
		"runs":    e.config.Runs,
		"threads": e.config.Threads,
	}).Info("Starting measured run")

	stats.MeasureStart = time.Now()
	abandoned, err := e.runPhase(ctx, metrics.PhaseMeasure, e.config.Runs, e.record)
	stats.MeasureElapsed = time.Since(stats.MeasureStart)
	stats.Abandoned += abandoned
	e.collector.SetPhase(metrics.PhaseDone)

	if err != nil {
		return stats, fmt.Errorf("measured run: %w", err)
	}
	return stats, nil
}

func (e *Executor) record(o metrics.Outcome) {
	e.collector.Record(o)
	if e.onOutcome != nil {
		e.onOutcome(o)
	}
}

// phaseBound is how long a phase of n tasks may take, or 0 for no bound.
func (e *Executor) phaseBound(n int) time.Duration {
	if e.config.Timeout <= 0 {
		return 0
	}
	if n > 0 && e.config.Timeout > (math.MaxInt64-e.config.Grace)/time.Duration(n) {
		return math.MaxInt64
	}
	return e.config.Timeout*time.Duration(n) + e.config.Grace
}

// runPhase runs n tasks, task i on worker i mod threads, and waits for them
// within the phase bound. sink may be nil to discard outcomes. It returns
// the number of tasks whose outcomes were dropped.
func (e *Executor) runPhase(ctx context.Context, phase metrics.Phase, n int, sink func(metrics.Outcome)) (int64, error) {
	if n == 0 {
		return 0, nil
	}

	phaseCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	threads := e.config.Threads
	queues := make([]chan int, threads)
	for w := range queues {
		queues[w] = make(chan int, n/threads+1)
	}
	for i := 0; i < n; i++ {
		queues[i%threads] <- i
	}
	for _, q := range queues {
		close(q)
	}

	// gate orders recording against abandonment: once abandoned is set
	// under the write lock, no further outcome reaches the sink.
	var (
		gate      sync.RWMutex
		abandoned bool
		completed atomic.Int64
	)

	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func(workerID int, tasks <-chan int) {
			defer wg.Done()
			for range tasks {
				if phaseCtx.Err() != nil {
					return
				}
				o := e.runTask(phaseCtx, workerID)

				gate.RLock()
				if !abandoned {
					completed.Add(1)
					if sink != nil {
						sink(o)
					}
				}
				gate.RUnlock()
			}
		}(w, queues[w])
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var timeout <-chan time.Time
	if bound := e.phaseBound(n); bound > 0 {
		timer := time.NewTimer(bound)
		defer timer.Stop()
		timeout = timer.C
	}

	abandon := func() int64 {
		gate.Lock()
		abandoned = true
		dropped := int64(n) - completed.Load()
		gate.Unlock()
		// In-flight calls end with Canceled, which makes the shared and
		// round-robin policies redial their handles.
		cancel()
		return dropped
	}

	select {
	case <-done:
		// Workers stop early once ctx is cancelled, so done can win the
		// race against ctx.Done with tasks left unrun.
		if err := ctx.Err(); err != nil {
			return int64(n) - completed.Load(), err
		}
		return 0, nil
	case <-timeout:
		dropped := abandon()
		e.log.WithFields(logrus.Fields{
			"phase":     phase,
			"abandoned": dropped,
		}).Warn("Phase exceeded its time bound, abandoning outstanding tasks")
		return dropped, ErrPhaseTimeout
	case <-ctx.Done():
		dropped := abandon()
		e.log.WithField("phase", phase).Warn("Run cancelled, abandoning outstanding tasks")
		return dropped, ctx.Err()
	}
}
