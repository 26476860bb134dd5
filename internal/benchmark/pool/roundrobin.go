package pool

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
)

// RoundRobin rotates over a fixed array of handles. A Canceled or
// DeadlineExceeded status replaces the reporting handle's slot in place;
// the compare-and-swap on the slot decides which of several concurrent
// reporters installs its replacement.
type RoundRobin struct {
	factory HandleFactory
	log     logrus.FieldLogger

	slots  []atomic.Pointer[Handle]
	cursor atomic.Uint64
	closed atomic.Bool
}

// NewRoundRobin dials size handles. size below 1 is treated as 1. If any
// dial fails the handles created so far are closed.
func NewRoundRobin(ctx context.Context, size int, factory HandleFactory, log logrus.FieldLogger) (*RoundRobin, error) {
	if size < 1 {
		size = 1
	}

	r := &RoundRobin{
		factory: factory,
		log:     log,
		slots:   make([]atomic.Pointer[Handle], size),
	}
	for i := range r.slots {
		h, err := factory.New(ctx)
		if err != nil {
			r.Shutdown()
			return nil, err
		}
		r.slots[i].Store(h)
	}

	log.WithField("size", size).Debug("Round-robin pool ready")
	return r, nil
}

func (r *RoundRobin) Kind() Kind { return KindRoundRobin }

// Size returns the number of slots.
func (r *RoundRobin) Size() int { return len(r.slots) }

// Handles returns a snapshot of the slot contents in index order.
func (r *RoundRobin) Handles() []*Handle {
	out := make([]*Handle, len(r.slots))
	for i := range r.slots {
		out[i] = r.slots[i].Load()
	}
	return out
}

func (r *RoundRobin) Acquire(ctx context.Context, workerID int) (*Handle, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	// Unsigned cursor: wraparound stays non-negative.
	i := (r.cursor.Add(1) - 1) % uint64(len(r.slots))
	for {
		h := r.slots[i].Load()
		if h == nil || r.closed.Load() {
			return nil, ErrClosed
		}
		if h.pin() {
			return h, nil
		}
		// h was evicted and closed between Load and pin; the slot already
		// holds its replacement.
	}
}

func (r *RoundRobin) Release(h *Handle, code codes.Code, bytes int64) {
	defer unpin(h, r.log)

	if code != codes.Canceled && code != codes.DeadlineExceeded {
		return
	}
	if r.closed.Load() {
		return
	}

	for i := range r.slots {
		if r.slots[i].Load() != h {
			continue
		}

		next, err := r.factory.New(context.Background())
		if err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"slot": i, "handle": h.ID}).Warn("Failed to create replacement connection")
			return
		}

		if r.slots[i].CompareAndSwap(h, next) {
			r.log.WithFields(logrus.Fields{
				"slot":        i,
				"handle":      h.ID,
				"replacement": next.ID,
				"code":        code.String(),
			}).Warn("Evicted pooled connection")
			retire(h, r.log)
			// Shutdown may have swept the slots before the swap landed.
			if r.closed.Load() {
				forceClose(next, r.log)
			}
		} else {
			forceClose(next, r.log)
		}
		return
	}
}

func (r *RoundRobin) Shutdown() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	for i := range r.slots {
		if h := r.slots[i].Load(); h != nil {
			forceClose(h, r.log)
		}
	}
}
