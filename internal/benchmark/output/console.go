// Package output renders benchmark progress and results on the console.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
	"github.com/wesleyorama2/stormbench/internal/benchmark/engine"
	"github.com/wesleyorama2/stormbench/internal/benchmark/report"
)

const (
	ruleChar  = "━"
	ruleWidth = 56
)

// Console writes the run banner and the final summary.
type Console struct {
	writer io.Writer
	isTTY  bool
	colors *ColorScheme
	quiet  bool
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer      io.Writer
	NoColor     bool
	ForceColors bool
	Quiet       bool
}

// NewConsole creates a console writer. Colors are used only on a terminal
// that supports them, unless forced.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	isTTY := IsTerminal(cfg.Writer)
	useColors := !cfg.NoColor && (cfg.ForceColors || (isTTY && supportsColors()))

	return &Console{
		writer: cfg.Writer,
		isTTY:  isTTY,
		colors: DefaultColorScheme().setEnabled(useColors),
		quiet:  cfg.Quiet,
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func supportsColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "dumb"
}

// IsTTY returns whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// PrintHeader prints the run banner.
func (c *Console) PrintHeader(cfg *config.BenchmarkConfig) {
	if c.quiet {
		return
	}

	target := cfg.Host
	if cfg.Client == config.ClientS3 {
		target = "s3"
		if cfg.S3.Endpoint != "" {
			target = cfg.S3.Endpoint
		}
	}

	c.rule()
	c.writeln(c.colors.Title.Sprintf("stormbench %s %s/%s", cfg.Operation, cfg.Bucket, objectLabel(cfg)))
	c.rule()
	c.field("Target", c.colors.Value.Sprintf("%s (%s)", target, cfg.Client))
	if cfg.Client == config.ClientGRPC {
		c.field("Policy", c.colors.Highlight.Sprint(cfg.PolicyLabel()))
	}
	c.field("Threads", fmt.Sprintf("%d", cfg.Threads))
	c.field("Runs", fmt.Sprintf("%d (+%d warmup)", cfg.Runs, cfg.Warmups))
	c.writeln("")
}

// PrintSummary prints the final result.
func (c *Console) PrintSummary(result *engine.Result) {
	m := result.Metrics
	if c.quiet {
		c.writeln(fmt.Sprintf("%.2f MiB/s p50=%s p99=%s success=%.1f%%",
			m.ThroughputMiBps, formatMillis(m.Latency.P50), formatMillis(m.Latency.P99), m.SuccessRate*100))
		return
	}

	status := c.colors.Good.Sprint("Completed ✓")
	if result.Error != nil {
		status = c.colors.Bad.Sprint("Incomplete ✗")
	}

	c.writeln("")
	c.rule()
	c.writeln(fmt.Sprintf("%s - %s", c.colors.Title.Sprint(result.Config.Tag()), status))
	c.rule()
	c.writeln("")

	c.field("Total Time", c.colors.Value.Sprint(formatDuration(result.Duration)))
	c.field("Total Bytes", c.colors.Value.Sprintf("%s (%s)", formatNumber(m.TotalBytes), formatBytes(m.TotalBytes)))
	c.field("Throughput", c.colors.Value.Sprintf("%.2f MiB/s", m.ThroughputMiBps))
	c.field("Operations", c.colors.Value.Sprintf("%s (%.1f ops/s)", formatNumber(m.TotalRequests), m.OpsPerSecond))
	c.field("Success Rate", c.colors.rateColor(m.SuccessRate).Sprintf("%.1f%%", m.SuccessRate*100))
	if result.Abandoned > 0 {
		c.field("Abandoned", c.colors.Bad.Sprint(formatNumber(result.Abandoned)))
	}
	c.writeln("")

	c.writeln(c.colors.Label.Sprint("Latency (ms):"))
	c.latency("Min", m.Latency.Min)
	c.latency("P50", m.Latency.P50)
	c.latency("P90", m.Latency.P90)
	c.latency("P99", m.Latency.P99)
	c.latency("Max", m.Latency.Max)
	c.writeln("")

	if errs := errorCounts(result); len(errs) > 0 {
		c.writeln(c.colors.Label.Sprint("Errors:"))
		for _, e := range errs {
			c.writeln(fmt.Sprintf("  %s %s", c.colors.Bad.Sprintf("%-20s", e.code), formatNumber(e.count)))
		}
		c.writeln("")
	}
}

// PrintComparison prints the delta between two result documents.
func (c *Console) PrintComparison(cmp *report.Comparison) {
	c.rule()
	c.writeln(c.colors.Title.Sprintf("%s → %s", labelOr(cmp.BaselineTag, cmp.BaselineRunID), labelOr(cmp.CurrentTag, cmp.CurrentRunID)))
	c.rule()

	for _, m := range cmp.Metrics {
		change := "n/a"
		if m.PercentDefined {
			change = fmt.Sprintf("%+.1f%%", m.PercentChange)
		}
		switch {
		case m.Delta == 0:
			change = c.colors.Dim.Sprint(change)
		case m.Improved():
			change = c.colors.Good.Sprint(change)
		default:
			change = c.colors.Bad.Sprint(change)
		}
		c.writeln(fmt.Sprintf("  %-20s %14s %14s  %s", m.Name, m.Format(m.Baseline), m.Format(m.Current), change))
	}
}

type errorCount struct {
	code  string
	count int64
}

// errorCounts tallies failed outcomes by error code, most frequent first.
func errorCounts(result *engine.Result) []errorCount {
	counts := make(map[string]int64)
	for _, o := range result.Outcomes {
		if !o.Success {
			counts[o.ErrorCode]++
		}
	}

	out := make([]errorCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, errorCount{code: code, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].code < out[j].code
	})
	return out
}

func (c *Console) rule() {
	c.writeln(c.colors.Rule.Sprint(strings.Repeat(ruleChar, ruleWidth)))
}

func (c *Console) field(name, value string) {
	c.writeln(fmt.Sprintf("%-14s %s", name+":", value))
}

func (c *Console) latency(name string, d time.Duration) {
	c.writeln(fmt.Sprintf("  %-9s %s", name+":", c.colors.Latency.Sprint(formatMillis(d))))
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

func objectLabel(cfg *config.BenchmarkConfig) string {
	if cfg.ObjectFormat != "" {
		return cfg.ObjectFormat
	}
	return cfg.Object
}

func labelOr(tag, runID string) string {
	if tag != "" {
		return tag
	}
	return runID
}

// formatMillis formats a latency as milliseconds with microsecond precision.
func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.3f", float64(d)/float64(time.Millisecond))
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %02dm %02ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

// formatBytes formats a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}
