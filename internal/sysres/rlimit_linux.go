package sysres

import (
	"os"
	"runtime/debug"
	"strconv"
	"strings"
)

const threadLimit = 10000

func perProcessFileCap() (uint64, bool) {
	return 0, false
}

func rlimValue(v uint64) uint64 { return v }

// tuneThreads lets the Go runtime use up to 90% of the kernel thread limit
// when that is above the runtime default.
func tuneThreads() {
	data, err := os.ReadFile("/proc/sys/kernel/threads-max")
	if err != nil {
		return
	}
	threads, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return
	}
	if maxThreads := int(threads) * 90 / 100; maxThreads > threadLimit {
		debug.SetMaxThreads(maxThreads)
	}
}
