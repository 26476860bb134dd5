package pool

import (
	"fmt"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Conn is the transport behind a Handle. *grpc.ClientConn satisfies it.
type Conn interface {
	grpc.ClientConnInterface
	Close() error
}

// Handle is one usable connection plus the per-connection authorization
// material attached to every call made through it.
//
// A Handle is reference counted. Policies pin it on Acquire and unpin it on
// Release; a retired Handle is closed by whichever party drops the last
// reference, so a call in flight never sees its connection torn down.
type Handle struct {
	ID    uint64
	Conn  Conn
	Creds credentials.PerRPCCredentials

	// refs is the number of in-flight calls, or -1 once the handle is closed.
	refs    atomic.Int64
	retired atomic.Bool
	closed  atomic.Bool
}

// NewHandle wraps conn. Exposed for policies built outside this package and
// for tests.
func NewHandle(id uint64, conn Conn, creds credentials.PerRPCCredentials) *Handle {
	return &Handle{ID: id, Conn: conn, Creds: creds}
}

// CallOptions returns the options every call through h must carry.
func (h *Handle) CallOptions() []grpc.CallOption {
	if h.Creds == nil {
		return nil
	}
	return []grpc.CallOption{grpc.PerRPCCredentials(h.Creds)}
}

// Closed reports whether the underlying connection has been closed.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}

// InFlight returns the number of calls currently holding h.
func (h *Handle) InFlight() int64 {
	n := h.refs.Load()
	if n < 0 {
		return 0
	}
	return n
}

func (h *Handle) String() string {
	return fmt.Sprintf("conn#%d", h.ID)
}

// pin takes a reference. It fails once the handle has been closed.
func (h *Handle) pin() bool {
	for {
		n := h.refs.Load()
		if n < 0 {
			return false
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// unpin drops a reference and closes h if it was the last one on a retired
// handle. It reports whether this call closed the connection.
func (h *Handle) unpin() (bool, error) {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return false, nil
		}
		if h.refs.CompareAndSwap(n, n-1) {
			if n == 1 && h.retired.Load() {
				return h.closeIdle()
			}
			return false, nil
		}
	}
}

// retire marks h as no longer owned by its policy and closes it right away
// when nothing holds it.
func (h *Handle) retire() (bool, error) {
	h.retired.Store(true)
	return h.closeIdle()
}

func (h *Handle) closeIdle() (bool, error) {
	if !h.refs.CompareAndSwap(0, -1) {
		return false, nil
	}
	return h.doClose()
}

// forceClose closes h regardless of in-flight calls. Only used on shutdown
// and for replacement handles that never became visible.
func (h *Handle) forceClose() (bool, error) {
	h.retired.Store(true)
	h.refs.Store(-1)
	return h.doClose()
}

func (h *Handle) doClose() (bool, error) {
	if !h.closed.CompareAndSwap(false, true) {
		return false, nil
	}
	return true, h.Conn.Close()
}
