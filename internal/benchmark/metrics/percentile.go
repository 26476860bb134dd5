package metrics

import (
	"math"
	"time"
)

// Percentile returns the nearest-rank p-th percentile of sorted, which must
// be in ascending order. The rank is ceil(p/100*n), clamped to [1, n].
// An empty input yields 0.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	idx := int(math.Ceil(p*float64(n)/100)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}
