package sysres

import "golang.org/x/sys/unix"

func perProcessFileCap() (uint64, bool) {
	v, err := unix.SysctlUint32("kern.maxfilesperproc")
	if err != nil {
		return 0, false
	}
	return uint64(v), true
}

// Rlimit fields are signed on freebsd.
func rlimValue(v uint64) int64 { return int64(v) }

func tuneThreads() {}
