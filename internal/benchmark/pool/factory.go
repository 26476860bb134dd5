package pool

import (
	"context"
	"sync/atomic"

	"google.golang.org/grpc/credentials"
)

// DialFunc opens one new connection.
type DialFunc func(ctx context.Context) (Conn, error)

// CredentialSource produces the per-call credentials attached to a new
// handle. A nil source means calls carry no authorization.
type CredentialSource func(ctx context.Context) (credentials.PerRPCCredentials, error)

// HandleFactory builds handles for a policy.
type HandleFactory interface {
	New(ctx context.Context) (*Handle, error)
}

// Factory is the standard HandleFactory: credentials first, then the dial.
// Handle IDs start at 1 and are unique per Factory.
type Factory struct {
	dial   DialFunc
	creds  CredentialSource
	nextID atomic.Uint64
}

// NewFactory returns a Factory. creds may be nil.
func NewFactory(dial DialFunc, creds CredentialSource) *Factory {
	return &Factory{dial: dial, creds: creds}
}

// New builds one handle. Failures are returned as *SetupError.
func (f *Factory) New(ctx context.Context) (*Handle, error) {
	var perRPC credentials.PerRPCCredentials
	if f.creds != nil {
		c, err := f.creds(ctx)
		if err != nil {
			return nil, &SetupError{Op: "load credentials", Err: err}
		}
		perRPC = c
	}

	conn, err := f.dial(ctx)
	if err != nil {
		return nil, &SetupError{Op: "dial", Err: err}
	}

	return NewHandle(f.nextID.Add(1), conn, perRPC), nil
}
