package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range in microseconds: 1µs to 1 hour, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// Collector is the sink for a run's outcomes.
//
// Every outcome is appended to the detailed log. Successful outcomes also
// contribute their latency to the exact latency sequence (used for the
// final nearest-rank percentiles) and to an HDR histogram (used for cheap
// live percentiles while the run is in progress), and their bytes to the
// running total.
//
// # Thread Safety
//
// Record may be called from every worker at once. The outcome log and the
// latency sequence have separate locks; counters are atomic.
type Collector struct {
	outcomesMu sync.Mutex
	outcomes   []Outcome

	latMu     sync.Mutex
	latencies []time.Duration
	hist      *hdrhistogram.Histogram

	// sorted caches one sort of latencies, valid while its length matches.
	sortedMu sync.Mutex
	sorted   []time.Duration

	totalBytes atomic.Int64
	successes  atomic.Int64
	failures   atomic.Int64

	phaseMu sync.RWMutex
	phase   Phase

	startTime time.Time
}

// NewCollector returns an empty collector. Its clock starts now.
func NewCollector() *Collector {
	return &Collector{
		hist:      hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		phase:     PhaseInit,
		startTime: time.Now(),
	}
}

// Record stores o.
func (c *Collector) Record(o Outcome) {
	c.outcomesMu.Lock()
	c.outcomes = append(c.outcomes, o)
	c.outcomesMu.Unlock()

	if !o.Success {
		c.failures.Add(1)
		return
	}

	micros := o.Latency.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}

	c.latMu.Lock()
	c.latencies = append(c.latencies, o.Latency)
	c.hist.RecordValue(micros)
	c.latMu.Unlock()

	c.totalBytes.Add(o.Bytes)
	c.successes.Add(1)
}

// Percentile returns the nearest-rank p-th percentile of the successful
// latencies recorded so far, or 0 if there are none.
func (c *Collector) Percentile(p float64) time.Duration {
	return Percentile(c.sortedLatencies(), p)
}

// sortedLatencies returns an ascending copy of the latency sequence. The
// sort is reused until another success is recorded.
func (c *Collector) sortedLatencies() []time.Duration {
	c.latMu.Lock()
	n := len(c.latencies)
	c.latMu.Unlock()

	c.sortedMu.Lock()
	defer c.sortedMu.Unlock()

	if c.sorted != nil && len(c.sorted) == n {
		return c.sorted
	}

	c.latMu.Lock()
	sorted := slices.Clone(c.latencies)
	c.latMu.Unlock()

	slices.Sort(sorted)
	c.sorted = sorted
	return sorted
}

// Totals is the aggregate count surface.
type Totals struct {
	// Bytes counts successful operations only.
	Bytes int64

	// Count includes failures.
	Count     int64
	Successes int64
	Failures  int64
}

// SuccessRate returns successes / count, or 0 for an empty run.
func (t Totals) SuccessRate() float64 {
	if t.Count == 0 {
		return 0
	}
	return float64(t.Successes) / float64(t.Count)
}

// Totals returns the running totals.
func (c *Collector) Totals() Totals {
	s := c.successes.Load()
	f := c.failures.Load()
	return Totals{
		Bytes:     c.totalBytes.Load(),
		Count:     s + f,
		Successes: s,
		Failures:  f,
	}
}

// Outcomes returns a copy of the detailed outcome log.
func (c *Collector) Outcomes() []Outcome {
	c.outcomesMu.Lock()
	defer c.outcomesMu.Unlock()
	return slices.Clone(c.outcomes)
}

// Len returns the number of recorded outcomes.
func (c *Collector) Len() int {
	c.outcomesMu.Lock()
	defer c.outcomesMu.Unlock()
	return len(c.outcomes)
}

// SetPhase marks a phase transition.
func (c *Collector) SetPhase(p Phase) {
	c.phaseMu.Lock()
	c.phase = p
	c.phaseMu.Unlock()
}

// Phase returns the current phase.
func (c *Collector) Phase() Phase {
	c.phaseMu.RLock()
	defer c.phaseMu.RUnlock()
	return c.phase
}

// LatencyPercentiles is the live view served from the histogram.
type LatencyPercentiles struct {
	Min time.Duration
	Max time.Duration
	P50 time.Duration
	P90 time.Duration
	P99 time.Duration
}

// Live returns approximate percentiles without sorting the full sequence.
func (c *Collector) Live() LatencyPercentiles {
	c.latMu.Lock()
	defer c.latMu.Unlock()

	return LatencyPercentiles{
		Min: time.Duration(c.hist.Min()) * time.Microsecond,
		Max: time.Duration(c.hist.Max()) * time.Microsecond,
		P50: time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond,
		P90: time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond,
		P99: time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond,
	}
}

// Snapshot computes the final statistics. elapsed is the wall time of the
// measured phase; pass 0 to use the time since the collector started.
func (c *Collector) Snapshot(elapsed time.Duration) *Snapshot {
	if elapsed <= 0 {
		elapsed = time.Since(c.startTime)
	}

	sorted := c.sortedLatencies()
	totals := c.Totals()

	c.latMu.Lock()
	mean := time.Duration(c.hist.Mean()) * time.Microsecond
	stddev := time.Duration(c.hist.StdDev()) * time.Microsecond
	c.latMu.Unlock()

	stats := LatencyStats{
		Mean:   mean,
		StdDev: stddev,
		P50:    Percentile(sorted, 50),
		P90:    Percentile(sorted, 90),
		P95:    Percentile(sorted, 95),
		P99:    Percentile(sorted, 99),
		Count:  int64(len(sorted)),
	}
	if len(sorted) > 0 {
		stats.Min = sorted[0]
		stats.Max = sorted[len(sorted)-1]
	}

	snap := &Snapshot{
		TotalRequests:   totals.Count,
		SuccessRequests: totals.Successes,
		FailedRequests:  totals.Failures,
		TotalBytes:      totals.Bytes,
		Latency:         stats,
		SuccessRate:     totals.SuccessRate(),
		Elapsed:         elapsed,
		CurrentPhase:    c.Phase(),
		StartTime:       c.startTime,
		Timestamp:       time.Now(),
	}
	if secs := elapsed.Seconds(); secs > 0 {
		snap.ThroughputMiBps = float64(totals.Bytes) / (1024 * 1024) / secs
		snap.OpsPerSecond = float64(totals.Count) / secs
	}
	return snap
}

// Snapshot contains the aggregate view of a run.
type Snapshot struct {
	TotalRequests   int64         `json:"totalRequests"`
	SuccessRequests int64         `json:"successRequests"`
	FailedRequests  int64         `json:"failedRequests"`
	TotalBytes      int64         `json:"totalBytes"`
	Latency         LatencyStats  `json:"latency"`
	ThroughputMiBps float64       `json:"throughputMiBps"`
	OpsPerSecond    float64       `json:"opsPerSecond"`
	SuccessRate     float64       `json:"successRate"`
	CurrentPhase    Phase         `json:"currentPhase"`
	Elapsed         time.Duration `json:"elapsed"`
	StartTime       time.Time     `json:"startTime"`
	Timestamp       time.Time     `json:"timestamp"`
}

// LatencyStats contains latency statistics over successful outcomes.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}
