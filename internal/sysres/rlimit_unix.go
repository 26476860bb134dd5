//go:build linux || darwin || freebsd

package sysres

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// RaiseLimits sets the soft open file limit to the hard limit, capped by
// the kernel's per-process maximum where one applies.
func RaiseLimits() (Limits, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return Limits{}, fmt.Errorf("unable to get rlimit: %w", err)
	}

	limits := Limits{Before: uint64(rl.Cur), After: uint64(rl.Cur), Supported: true}
	target := uint64(rl.Max)
	if c, ok := perProcessFileCap(); ok && c < target {
		target = c
	}
	if target <= uint64(rl.Cur) {
		return limits, nil
	}

	rl.Cur = rlimValue(target)
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return limits, fmt.Errorf("unable to set open file limit: %w", err)
	}
	limits.After = target

	tuneThreads()
	return limits, nil
}
