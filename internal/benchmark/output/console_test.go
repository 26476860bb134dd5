package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
	"github.com/wesleyorama2/stormbench/internal/benchmark/engine"
	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
	"github.com/wesleyorama2/stormbench/internal/benchmark/report"
)

func sampleResult() *engine.Result {
	cfg := config.Default()
	cfg.Bucket = "bench"
	cfg.Object = "obj"
	cfg.ReportTag = "nightly"

	return &engine.Result{
		RunID:    "run-1",
		Config:   cfg,
		Duration: 2 * time.Second,
		Metrics: &metrics.Snapshot{
			TotalRequests:   4,
			SuccessRequests: 3,
			FailedRequests:  1,
			TotalBytes:      3 * 1024 * 1024,
			ThroughputMiBps: 1.5,
			OpsPerSecond:    2,
			SuccessRate:     0.75,
			Latency: metrics.LatencyStats{
				Min: 1500 * time.Microsecond,
				P50: 10 * time.Millisecond,
				P90: 20 * time.Millisecond,
				P99: 30 * time.Millisecond,
				Max: 31 * time.Millisecond,
			},
		},
		Outcomes: []metrics.Outcome{
			{Success: true}, {Success: true}, {Success: true},
			{ErrorCode: "Unavailable"},
		},
	}
}

func TestConsole_PrintSummary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf})

	c.PrintSummary(sampleResult())
	out := buf.String()

	for _, want := range []string{
		"nightly - Completed ✓",
		"Total Time:    2.00s",
		"Total Bytes:   3,145,728 (3.00 MiB)",
		"Throughput:    1.50 MiB/s",
		"Success Rate:  75.0%",
		"Min:      1.500",
		"P50:      10.000",
		"P90:      20.000",
		"P99:      30.000",
		"Max:      31.000",
		"Unavailable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("summary written to a buffer should not contain color codes")
	}
}

func TestConsole_PrintSummaryIncomplete(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf})

	r := sampleResult()
	r.Error = errors.New("measured run: phase timed out")
	r.Abandoned = 7
	c.PrintSummary(r)

	out := buf.String()
	if !strings.Contains(out, "Incomplete ✗") || !strings.Contains(out, "Abandoned:     7") {
		t.Errorf("PrintSummary() = %s", out)
	}
}

func TestConsole_Quiet(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, Quiet: true})

	c.PrintHeader(sampleResult().Config)
	c.PrintSummary(sampleResult())

	got := strings.TrimSpace(buf.String())
	want := "1.50 MiB/s p50=10.000 p99=30.000 success=75.0%"
	if got != want {
		t.Errorf("quiet output = %q, want %q", got, want)
	}
}

func TestConsole_ForceColors(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, ForceColors: true})
	c.PrintSummary(sampleResult())
	if !strings.Contains(buf.String(), "\033[") {
		t.Error("expected color codes when colors are forced")
	}

	buf.Reset()
	c = NewConsole(ConsoleConfig{Writer: &buf, ForceColors: true, NoColor: true})
	c.PrintSummary(sampleResult())
	if strings.Contains(buf.String(), "\033[") {
		t.Error("NoColor must win over ForceColors")
	}
}

func TestConsole_PrintHeader(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf})

	cfg := sampleResult().Config
	cfg.Policy = "pool"
	cfg.Warmups = 3
	c.PrintHeader(cfg)

	out := buf.String()
	for _, want := range []string{"stormbench read bench/obj", "localhost:50051 (grpc)", "Policy:        pool", "(+3 warmup)"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q\n%s", want, out)
		}
	}
}

func TestConsole_PrintComparison(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf})

	c.PrintComparison(&report.Comparison{
		BaselineTag: "before",
		CurrentTag:  "after",
		Metrics: []report.Metric{
			{Name: "Throughput (MiB/s)", Baseline: 100, Current: 150, Delta: 50, PercentChange: 50, PercentDefined: true},
			{Name: "P99 latency", Duration: true, LowerIsBetter: true, Baseline: 0, Current: float64(2 * time.Millisecond), Delta: float64(2 * time.Millisecond)},
		},
	})

	out := buf.String()
	for _, want := range []string{"before → after", "+50.0%", "2.000ms", "n/a"} {
		if !strings.Contains(out, want) {
			t.Errorf("comparison missing %q\n%s", want, out)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{formatNumber(0), "0"},
		{formatNumber(999), "999"},
		{formatNumber(1000), "1,000"},
		{formatNumber(1234567), "1,234,567"},
		{formatNumber(-1234), "-1,234"},
		{formatBytes(512), "512 B"},
		{formatBytes(1536), "1.50 KiB"},
		{formatBytes(5 * 1024 * 1024 * 1024), "5.00 GiB"},
		{formatDuration(250 * time.Millisecond), "250ms"},
		{formatDuration(90 * time.Second), "1m 30s"},
		{formatDuration(3723 * time.Second), "1h 02m 03s"},
		{formatMillis(1234567 * time.Nanosecond), "1.235"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 3, "read")

	p.Observe(metrics.Outcome{Success: true})
	p.Observe(metrics.Outcome{Success: false})
	p.Observe(metrics.Outcome{Success: true})
	p.Finish()

	if p.Current() != 3 {
		t.Errorf("Current() = %d, want 3", p.Current())
	}
	if p.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", p.Failures())
	}
	if !strings.Contains(buf.String(), "1 failed") {
		t.Errorf("progress output missing failure count: %q", buf.String())
	}
}
