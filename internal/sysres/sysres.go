// Package sysres adjusts process resource limits before a high-concurrency
// run.
package sysres

// Limits describes the open file limit before and after RaiseLimits.
type Limits struct {
	Before    uint64
	After     uint64
	Supported bool
}

// Raised reports whether the soft limit went up.
func (l Limits) Raised() bool {
	return l.After > l.Before
}
