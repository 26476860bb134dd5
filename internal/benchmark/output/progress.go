package output

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
)

const progressTemplate = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{string . "failures"}}`

// Progress is a live bar over the measured phase.
type Progress struct {
	bar      *pb.ProgressBar
	failures atomic.Int64
}

// NewProgress starts a bar expecting total outcomes, drawn on w.
func NewProgress(w io.Writer, total int, caption string) *Progress {
	bar := pb.New(total)
	bar.SetWriter(w)
	bar.SetRefreshRate(125 * time.Millisecond)
	bar.SetTemplateString(progressTemplate)
	if caption != "" {
		bar.Set("prefix", caption+" ")
	}
	bar.Start()

	return &Progress{bar: bar}
}

// Observe counts one outcome. It is safe for concurrent use and matches the
// executor's outcome hook.
func (p *Progress) Observe(o metrics.Outcome) {
	if !o.Success {
		n := p.failures.Add(1)
		p.bar.Set("failures", formatNumber(n)+" failed")
	}
	p.bar.Increment()
}

// Current returns the number of outcomes observed so far.
func (p *Progress) Current() int64 {
	return p.bar.Current()
}

// Failures returns the number of failed outcomes observed so far.
func (p *Progress) Failures() int64 {
	return p.failures.Load()
}

// Finish draws the final state and stops refreshing.
func (p *Progress) Finish() {
	p.bar.Finish()
}
