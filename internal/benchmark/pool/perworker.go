package pool

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
)

// PerWorker keeps one handle per worker id, created on that worker's first
// Acquire and kept until Shutdown.
type PerWorker struct {
	factory HandleFactory
	log     logrus.FieldLogger

	mu      sync.RWMutex
	handles map[int]*Handle
	closed  bool
}

func NewPerWorker(factory HandleFactory, log logrus.FieldLogger) *PerWorker {
	return &PerWorker{
		factory: factory,
		log:     log,
		handles: make(map[int]*Handle),
	}
}

func (p *PerWorker) Kind() Kind { return KindPerWorker }

func (p *PerWorker) Acquire(ctx context.Context, workerID int) (*Handle, error) {
	p.mu.RLock()
	h, ok := p.handles[workerID]
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if ok && h.pin() {
		return h, nil
	}

	// Dial outside the lock so one worker's setup does not stall the others.
	created, err := p.factory.New(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		forceClose(created, p.log)
		return nil, ErrClosed
	}
	if existing, ok := p.handles[workerID]; ok && existing.pin() {
		p.mu.Unlock()
		forceClose(created, p.log)
		return existing, nil
	}
	p.handles[workerID] = created
	created.pin()
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{"worker": workerID, "handle": created.ID}).Debug("Created worker connection")
	return created, nil
}

func (p *PerWorker) Release(h *Handle, code codes.Code, bytes int64) {
	unpin(h, p.log)
}

// Len returns the number of live worker handles.
func (p *PerWorker) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handles)
}

func (p *PerWorker) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for id, h := range p.handles {
		forceClose(h, p.log)
		delete(p.handles, id)
	}
}
