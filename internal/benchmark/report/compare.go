package report

import (
	"fmt"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// Metric is one compared value. Lower is better for latencies, higher for
// everything else.
type Metric struct {
	Name           string
	Path           string
	Duration       bool
	LowerIsBetter  bool
	Baseline       float64
	Current        float64
	Delta          float64
	PercentChange  float64
	PercentDefined bool
}

// Improved reports whether Current is better than Baseline.
func (m Metric) Improved() bool {
	if m.LowerIsBetter {
		return m.Current < m.Baseline
	}
	return m.Current > m.Baseline
}

// Comparison is the difference between two result documents.
type Comparison struct {
	BaselineTag   string
	CurrentTag    string
	BaselineRunID string
	CurrentRunID  string
	Metrics       []Metric
}

var comparedMetrics = []Metric{
	{Name: "Throughput (MiB/s)", Path: "metrics.throughputMiBps"},
	{Name: "Ops/s", Path: "metrics.opsPerSecond"},
	{Name: "P50 latency", Path: "metrics.latency.p50", Duration: true, LowerIsBetter: true},
	{Name: "P99 latency", Path: "metrics.latency.p99", Duration: true, LowerIsBetter: true},
	{Name: "Success rate", Path: "metrics.successRate"},
}

// CompareFiles loads two JSON result documents and compares them.
func CompareFiles(baselinePath, currentPath string) (*Comparison, error) {
	baseline, err := os.ReadFile(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	current, err := os.ReadFile(currentPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read current: %w", err)
	}
	return Compare(baseline, current)
}

// Compare compares two JSON result documents.
func Compare(baseline, current []byte) (*Comparison, error) {
	if !gjson.ValidBytes(baseline) {
		return nil, fmt.Errorf("baseline is not valid JSON")
	}
	if !gjson.ValidBytes(current) {
		return nil, fmt.Errorf("current is not valid JSON")
	}

	b := gjson.ParseBytes(baseline)
	c := gjson.ParseBytes(current)
	if !b.Get("metrics").Exists() || !c.Get("metrics").Exists() {
		return nil, fmt.Errorf("missing metrics section in result document")
	}

	cmp := &Comparison{
		BaselineTag:   b.Get("tag").String(),
		CurrentTag:    c.Get("tag").String(),
		BaselineRunID: b.Get("runId").String(),
		CurrentRunID:  c.Get("runId").String(),
	}

	for _, m := range comparedMetrics {
		m.Baseline = b.Get(m.Path).Float()
		m.Current = c.Get(m.Path).Float()
		m.Delta = m.Current - m.Baseline
		if m.Baseline != 0 {
			m.PercentChange = m.Delta / m.Baseline * 100
			m.PercentDefined = true
		}
		cmp.Metrics = append(cmp.Metrics, m)
	}
	return cmp, nil
}

// Format renders v for display.
func (m Metric) Format(v float64) string {
	if m.Duration {
		return fmt.Sprintf("%.3fms", float64(time.Duration(v))/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.4f", v)
}
