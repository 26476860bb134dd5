package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"

	"github.com/wesleyorama2/stormbench/internal/logging"
)

type fakeConn struct {
	closes atomic.Int32
}

func (c *fakeConn) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	return nil
}

func (c *fakeConn) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams not supported")
}

func (c *fakeConn) Close() error {
	c.closes.Add(1)
	return nil
}

// fakeDialer records every connection it opens.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	fail  atomic.Bool
}

func (d *fakeDialer) dial(ctx context.Context) (Conn, error) {
	if d.fail.Load() {
		return nil, errors.New("connection refused")
	}
	c := &fakeConn{}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) factory() *Factory {
	return NewFactory(d.dial, nil)
}

// gatedFactory holds New until release is closed once armed.
type gatedFactory struct {
	inner   HandleFactory
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedFactory(inner HandleFactory) *gatedFactory {
	return &gatedFactory{inner: inner, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedFactory) New(ctx context.Context) (*Handle, error) {
	if g.armed.Load() {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.inner.New(ctx)
}

func closesOf(h *Handle) int32 {
	return h.Conn.(*fakeConn).closes.Load()
}

var testLog = logging.Discard()
