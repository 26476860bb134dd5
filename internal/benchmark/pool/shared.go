package pool

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
)

// Shared hands every caller the same handle. A Canceled status replaces it;
// only the first caller still holding the stale handle performs the swap.
type Shared struct {
	factory HandleFactory
	log     logrus.FieldLogger

	mu      sync.Mutex
	current *Handle
	closed  bool
}

// NewShared dials the shared handle.
func NewShared(ctx context.Context, factory HandleFactory, log logrus.FieldLogger) (*Shared, error) {
	h, err := factory.New(ctx)
	if err != nil {
		return nil, err
	}
	return &Shared{factory: factory, log: log, current: h}, nil
}

func (s *Shared) Kind() Kind { return KindShared }

func (s *Shared) Acquire(ctx context.Context, workerID int) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	s.current.pin()
	return s.current, nil
}

func (s *Shared) Release(h *Handle, code codes.Code, bytes int64) {
	defer unpin(h, s.log)

	if code != codes.Canceled {
		return
	}

	s.mu.Lock()
	if s.closed || s.current != h {
		s.mu.Unlock()
		return
	}
	next, err := s.factory.New(context.Background())
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("handle", h.ID).Warn("Failed to replace shared connection")
		return
	}
	s.current = next
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"handle": h.ID, "replacement": next.ID}).Warn("Evicted shared connection after cancellation")
	retire(h, s.log)
}

// Current returns the handle the next Acquire would return.
func (s *Shared) Current() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Shared) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	forceClose(s.current, s.log)
}
