package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements of the output.
type ColorScheme struct {
	Rule      *color.Color
	Title     *color.Color
	Label     *color.Color
	Value     *color.Color
	Latency   *color.Color
	Good      *color.Color
	Warn      *color.Color
	Bad       *color.Color
	Dim       *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Rule:      color.New(color.FgCyan),
		Title:     color.New(color.Bold),
		Label:     color.New(color.Bold),
		Value:     color.New(color.FgCyan),
		Latency:   color.New(color.FgBlue),
		Good:      color.New(color.FgGreen),
		Warn:      color.New(color.FgYellow),
		Bad:       color.New(color.FgRed),
		Dim:       color.New(color.Faint),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Rule, s.Title, s.Label, s.Value, s.Latency, s.Good, s.Warn, s.Bad, s.Dim, s.Highlight}
}

// setEnabled forces colors on or off regardless of color.NoColor, which
// only looks at stdout.
func (s *ColorScheme) setEnabled(on bool) *ColorScheme {
	for _, c := range s.all() {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// rateColor picks good, warn or bad for a success rate.
func (s *ColorScheme) rateColor(rate float64) *color.Color {
	switch {
	case rate < 0.95:
		return s.Bad
	case rate < 0.99:
		return s.Warn
	default:
		return s.Good
	}
}
