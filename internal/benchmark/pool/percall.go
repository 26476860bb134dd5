package pool

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
)

// PerCall dials a new handle for every Acquire and closes it on Release.
type PerCall struct {
	factory HandleFactory
	log     logrus.FieldLogger
}

func NewPerCall(factory HandleFactory, log logrus.FieldLogger) *PerCall {
	return &PerCall{factory: factory, log: log}
}

func (p *PerCall) Kind() Kind { return KindPerCall }

func (p *PerCall) Acquire(ctx context.Context, workerID int) (*Handle, error) {
	h, err := p.factory.New(ctx)
	if err != nil {
		return nil, err
	}
	h.pin()
	return h, nil
}

func (p *PerCall) Release(h *Handle, code codes.Code, bytes int64) {
	h.retired.Store(true)
	unpin(h, p.log)
}

// Shutdown is a no-op; PerCall never owns a handle between calls.
func (p *PerCall) Shutdown() {}
