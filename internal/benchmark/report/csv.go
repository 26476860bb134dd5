// Package report writes the result of a run to files: a one-line CSV summary
// appended per run, a per-operation CSV dump and a JSON result document.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/wesleyorama2/stormbench/internal/benchmark/engine"
	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
)

// SummaryHeader is the header row of the summary report.
var SummaryHeader = []string{
	"tag", "operation", "client", "cpolicy", "threads", "runs",
	"total_bytes", "duration_ms", "throughput_mbps",
	"p50_ms", "p95_ms", "p99_ms", "success_rate",
}

// DataHeader is the header row of the data report.
var DataHeader = []string{
	"tag", "operation", "timestamp_ms", "latency_ms", "bytes", "success",
	"worker_id", "conn_id", "peer", "object", "error_code", "error_message",
}

// AppendSummary appends one line describing result to path. The header is
// written only when the file is new or empty, so successive runs build up
// a comparison table.
func AppendSummary(path string, result *engine.Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open report file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat report file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(SummaryHeader); err != nil {
			return err
		}
	}
	if err := w.Write(SummaryRow(result)); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return f.Close()
}

// SummaryRow renders the summary columns for result.
func SummaryRow(result *engine.Result) []string {
	cfg := result.Config
	m := result.Metrics

	return []string{
		cfg.Tag(),
		string(cfg.Operation),
		string(cfg.Client),
		cfg.PolicyLabel(),
		strconv.Itoa(cfg.Threads),
		strconv.Itoa(cfg.Runs),
		strconv.FormatInt(m.TotalBytes, 10),
		strconv.FormatInt(result.Duration.Milliseconds(), 10),
		formatFloat(m.ThroughputMiBps),
		formatMillis(m.Latency.P50),
		formatMillis(m.Latency.P95),
		formatMillis(m.Latency.P99),
		formatFloat(m.SuccessRate),
	}
}

// WriteData writes one line per measured outcome to path, replacing any
// existing file.
func WriteData(path string, result *engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create data file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(DataHeader); err != nil {
		return err
	}

	tag := result.Config.Tag()
	op := string(result.Config.Operation)
	for _, o := range result.Outcomes {
		if err := w.Write(dataRow(tag, op, o)); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return f.Close()
}

func dataRow(tag, op string, o metrics.Outcome) []string {
	return []string{
		tag,
		op,
		strconv.FormatInt(o.Timestamp.UnixMilli(), 10),
		formatMillis(o.Latency),
		strconv.FormatInt(o.Bytes, 10),
		strconv.FormatBool(o.Success),
		strconv.Itoa(o.WorkerID),
		strconv.FormatUint(o.ConnID, 10),
		o.Peer,
		o.Object,
		o.ErrorCode,
		o.ErrorMessage,
	}
}

func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
