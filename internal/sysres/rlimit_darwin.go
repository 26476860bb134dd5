package sysres

import "golang.org/x/sys/unix"

// perProcessFileCap reads kern.maxfilesperproc; setrlimit rejects values
// above it even when the hard limit is unlimited.
func perProcessFileCap() (uint64, bool) {
	v, err := unix.SysctlUint32("kern.maxfilesperproc")
	if err != nil {
		return 0, false
	}
	return uint64(v), true
}

func rlimValue(v uint64) uint64 { return v }

func tuneThreads() {}
