// Package pool implements the connection-reuse policies a benchmark run can
// select: one shared connection, one per worker, one per call, or a fixed
// round-robin set with failure-triggered eviction.
package pool

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
)

// Kind identifies a pool policy.
type Kind string

const (
	// KindShared hands every caller the same connection.
	KindShared Kind = "shared"

	// KindPerWorker gives each worker its own lazily created connection.
	KindPerWorker Kind = "per-worker"

	// KindPerCall opens a fresh connection for every call.
	KindPerCall Kind = "per-call"

	// KindRoundRobin rotates over a fixed set of connections.
	KindRoundRobin Kind = "round-robin"
)

// Policy decides which handle a caller uses for its next operation.
//
// Acquire may block while a connection is set up (PerCall, first use under
// PerWorker). Release reports the transport status of the call that used
// the handle and never fails; eviction problems are logged. Shutdown closes
// every handle the policy still owns and is idempotent.
type Policy interface {
	Kind() Kind
	Acquire(ctx context.Context, workerID int) (*Handle, error)
	Release(h *Handle, code codes.Code, bytes int64)
	Shutdown()
}

// ParseKind maps a cpolicy value to a Kind. Aliases used by older tooling
// are accepted: const for shared, perthread for per-worker. The second
// result is false for unknown names.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shared", "const":
		return KindShared, true
	case "per-worker", "perworker", "perthread":
		return KindPerWorker, true
	case "per-call", "percall":
		return KindPerCall, true
	case "round-robin", "roundrobin", "pool":
		return KindRoundRobin, true
	default:
		return "", false
	}
}

// Resolve turns a cpolicy value into the Kind a run will use. Empty selects
// per-worker. Unknown names, including the bpool and spool policies that
// were never implemented, fall back to per-worker with a warning.
func Resolve(s string, log logrus.FieldLogger) Kind {
	if strings.TrimSpace(s) == "" {
		return KindPerWorker
	}
	if k, ok := ParseKind(s); ok {
		return k
	}
	log.WithField("cpolicy", s).Warn("Unsupported connection policy, falling back to per-worker")
	return KindPerWorker
}

// NewPolicy builds the policy for kind. size only matters for KindRoundRobin
// and is clamped to at least 1. Shared and RoundRobin dial eagerly, so a
// construction error means the endpoint or credentials are unusable.
func NewPolicy(ctx context.Context, kind Kind, size int, factory HandleFactory, log logrus.FieldLogger) (Policy, error) {
	log = log.WithField("policy", string(kind))

	switch kind {
	case KindShared:
		return NewShared(ctx, factory, log)
	case KindPerWorker:
		return NewPerWorker(factory, log), nil
	case KindPerCall:
		return NewPerCall(factory, log), nil
	case KindRoundRobin:
		return NewRoundRobin(ctx, size, factory, log)
	default:
		return nil, fmt.Errorf("unknown pool policy: %s", kind)
	}
}

// unpin drops a reference on h and logs a close triggered by it.
func unpin(h *Handle, log logrus.FieldLogger) {
	closed, err := h.unpin()
	logClose(h, closed, err, log)
}

func retire(h *Handle, log logrus.FieldLogger) {
	closed, err := h.retire()
	logClose(h, closed, err, log)
}

func forceClose(h *Handle, log logrus.FieldLogger) {
	closed, err := h.forceClose()
	logClose(h, closed, err, log)
}

func logClose(h *Handle, closed bool, err error, log logrus.FieldLogger) {
	if !closed {
		return
	}
	entry := log.WithField("handle", h.ID)
	if err != nil {
		entry.WithError(err).Warn("Error closing connection")
		return
	}
	entry.Debug("Connection closed")
}
