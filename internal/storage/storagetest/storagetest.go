// Package storagetest runs a storage server over an in-process listener for
// tests.
package storagetest

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/wesleyorama2/stormbench/internal/storage"
)

const bufSize = 4 * 1024 * 1024

// Server is a running in-process storage service.
type Server struct {
	Memory *storage.MemoryServer
	lis    *bufconn.Listener
}

// Start serves a fresh MemoryServer until the test ends.
func Start(t testing.TB) *Server {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	mem := storage.NewMemoryServer()
	gs := grpc.NewServer()
	storage.Register(gs, mem)

	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	return &Server{Memory: mem, lis: lis}
}

// Dial opens a new client connection to the server. Each call yields a
// distinct connection.
func (s *Server) Dial(ctx context.Context) (*grpc.ClientConn, error) {
	return grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return s.lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
}

// MustDial is Dial that fails the test on error and closes the connection
// at cleanup.
func (s *Server) MustDial(t testing.TB) *grpc.ClientConn {
	t.Helper()
	conn, err := s.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
