package storage

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

// Serve hosts srv on lis until ctx is cancelled, then stops gracefully.
func Serve(ctx context.Context, lis net.Listener, srv Server, log logrus.FieldLogger, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	Register(gs, srv)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gs.Serve(lis)
	}()

	log.WithField("addr", lis.Addr().String()).Info("Storage service listening")

	select {
	case <-ctx.Done():
		log.Info("Shutting down storage service")
		gs.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
