// Package engine provides the orchestrator of a benchmark run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
	"github.com/wesleyorama2/stormbench/internal/benchmark/executor"
	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
	"github.com/wesleyorama2/stormbench/internal/benchmark/performer"
	"github.com/wesleyorama2/stormbench/internal/benchmark/pool"
)

// Engine runs one benchmark configuration end to end.
//
// It coordinates:
//   - Building the transport (pool policy or S3 client)
//   - Warmup and measured phases through the executor
//   - Metrics collection for the measured phase
//
// Example usage:
//
//	cfg, _ := config.LoadConfig("bench.yaml")
//	e, _ := engine.New(cfg, engine.Options{Log: log})
//	result, _ := e.Run(context.Background())
//	fmt.Printf("%.1f MiB/s\n", result.Metrics.ThroughputMiBps)
type Engine struct {
	config *config.BenchmarkConfig
	opts   Options
	log    logrus.FieldLogger

	mu      sync.Mutex
	running bool
}

// Options are the collaborators of an Engine. Every field is optional.
type Options struct {
	Log logrus.FieldLogger

	// Dial replaces the gRPC dialer derived from the configuration.
	Dial pool.DialFunc

	// S3Client replaces the client built from the default AWS chain.
	S3Client performer.S3API

	// OnOutcome is called for every measured outcome, from worker
	// goroutines.
	OnOutcome func(metrics.Outcome)
}

// Result is the complete record of a run.
type Result struct {
	RunID     string                  `json:"runId"`
	Config    *config.BenchmarkConfig `json:"config"`
	Policy    pool.Kind               `json:"policy,omitempty"`
	StartTime time.Time               `json:"startTime"`
	EndTime   time.Time               `json:"endTime"`

	// Duration is the wall time of the measured phase.
	Duration       time.Duration `json:"duration"`
	WarmupDuration time.Duration `json:"warmupDuration,omitempty"`

	Metrics   *metrics.Snapshot `json:"metrics"`
	Outcomes  []metrics.Outcome `json:"outcomes,omitempty"`
	Abandoned int64             `json:"abandoned,omitempty"`

	// Error is set when the run ended early.
	Error error `json:"-"`
}

// New creates an engine for cfg.
func New(cfg *config.BenchmarkConfig, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Engine{config: cfg, opts: opts, log: log}, nil
}

// Run executes the benchmark. When the measured phase is cut short the
// partial result is returned together with the error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine is already running")
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	for _, msg := range e.config.Unimplemented() {
		e.log.Warn(msg)
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Config:    e.config,
		StartTime: time.Now(),
	}
	log := e.log.WithField("run", result.RunID)

	p, kind, err := e.newPerformer(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", e.config.Client, err)
	}
	result.Policy = kind
	defer func() {
		if err := p.Close(); err != nil {
			log.WithError(err).Warn("Error closing client")
		}
	}()

	collector := metrics.NewCollector()
	resolver := performer.ObjectResolver{
		Object: e.config.Object,
		Format: e.config.ObjectFormat,
		Start:  e.config.ObjectStart,
		Stop:   e.config.ObjectStop,
	}

	exec, err := executor.New(executor.ConfigFrom(e.config), p, resolver, collector, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}
	if e.opts.OnOutcome != nil {
		exec.OnOutcome(e.opts.OnOutcome)
	}

	stats, runErr := exec.Run(ctx)

	result.EndTime = time.Now()
	result.Duration = stats.MeasureElapsed
	result.WarmupDuration = stats.WarmupElapsed
	result.Abandoned = stats.Abandoned
	result.Metrics = collector.Snapshot(stats.MeasureElapsed)
	result.Outcomes = collector.Outcomes()
	result.Error = runErr

	entry := log.WithFields(logrus.Fields{
		"outcomes": len(result.Outcomes),
		"bytes":    result.Metrics.TotalBytes,
		"elapsed":  result.Duration,
	})
	if runErr != nil {
		if errors.Is(runErr, executor.ErrPhaseTimeout) {
			entry = entry.WithField("abandoned", result.Abandoned)
		}
		entry.WithError(runErr).Warn("Benchmark ended early")
		return result, runErr
	}
	entry.Info("Benchmark complete")
	return result, nil
}

// newPerformer builds the transport selected by the configuration. The
// returned Kind is empty for clients that do not use a pool policy.
func (e *Engine) newPerformer(ctx context.Context, log logrus.FieldLogger) (performer.Performer, pool.Kind, error) {
	opts := performer.OptionsFromConfig(e.config)

	switch e.config.Client {
	case config.ClientS3:
		client := e.opts.S3Client
		if client == nil {
			c, err := performer.NewS3Client(ctx, e.config.S3)
			if err != nil {
				return nil, "", err
			}
			client = c
		}
		if e.config.Policy != "" {
			log.WithField("cpolicy", e.config.Policy).Warn("cpolicy has no effect with the s3 client")
		}
		return performer.NewS3(client, opts), "", nil

	case config.ClientGRPC, "":
		dialCfg := e.config.DialConfig()
		dial := e.opts.Dial
		if dial == nil {
			d, err := pool.GRPCDialer(dialCfg, log)
			if err != nil {
				return nil, "", err
			}
			dial = d
		}

		kind := e.config.PolicyKind(log)
		factory := pool.NewFactory(dial, pool.Credentials(dialCfg))
		policy, err := pool.NewPolicy(ctx, kind, e.config.PoolSize, factory, log)
		if err != nil {
			return nil, "", err
		}
		log.WithFields(logrus.Fields{
			"policy": kind,
			"host":   dialCfg.Target,
		}).Info("Connection policy ready")
		return performer.NewGRPC(policy, opts), kind, nil

	default:
		return nil, "", fmt.Errorf("unknown client %q", e.config.Client)
	}
}
