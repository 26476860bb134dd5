//go:build !linux && !darwin && !freebsd

package sysres

// RaiseLimits is a no-op on platforms without setrlimit.
func RaiseLimits() (Limits, error) {
	return Limits{}, nil
}
