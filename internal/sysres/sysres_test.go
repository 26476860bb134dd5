package sysres

import (
	"runtime"
	"testing"
)

func TestRaiseLimits(t *testing.T) {
	limits, err := RaiseLimits()
	if err != nil {
		t.Skipf("cannot adjust limits here: %v", err)
	}

	switch runtime.GOOS {
	case "linux", "darwin", "freebsd":
		if !limits.Supported {
			t.Fatal("Supported = false on a unix platform")
		}
		if limits.After < limits.Before {
			t.Errorf("After = %d, want >= Before %d", limits.After, limits.Before)
		}
	default:
		if limits.Supported || limits.Raised() {
			t.Errorf("RaiseLimits() = %+v, want a no-op", limits)
		}
	}

	// A second call finds the limit already at its maximum.
	again, err := RaiseLimits()
	if err != nil {
		t.Fatalf("second RaiseLimits() error = %v", err)
	}
	if again.Raised() {
		t.Errorf("second RaiseLimits() raised again: %+v", again)
	}
}

func TestLimitsRaised(t *testing.T) {
	if (Limits{Before: 1024, After: 1024}).Raised() {
		t.Error("equal limits reported as raised")
	}
	if !(Limits{Before: 1024, After: 4096}).Raised() {
		t.Error("higher limit not reported as raised")
	}
}
