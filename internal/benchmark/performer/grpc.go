package performer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
	"github.com/wesleyorama2/stormbench/internal/benchmark/pool"
	"github.com/wesleyorama2/stormbench/internal/storage"
)

// GRPC performs operations with direct storage calls over handles borrowed
// from a pool policy. Every call's status is reported back to the policy.
type GRPC struct {
	policy  pool.Policy
	opts    Options
	payload func() *Payload
}

// NewGRPC returns a GRPC performer that owns policy; Close shuts it down.
func NewGRPC(policy pool.Policy, opts Options) *GRPC {
	g := &GRPC{policy: policy, opts: opts}
	g.payload = sync.OnceValue(func() *Payload {
		size := opts.WriteSize
		if size <= 0 {
			size = config.DefaultWriteSize
		}
		return NewPayload(size)
	})
	return g
}

func (g *GRPC) Perform(ctx context.Context, req Request) (Result, error) {
	h, err := g.policy.Acquire(ctx, req.WorkerID)
	if err != nil {
		return Result{}, err
	}

	res := Result{ConnID: h.ID}
	var p peer.Peer
	client := storage.NewClient(h.Conn, append(h.CallOptions(), grpc.Peer(&p))...)

	switch req.Operation {
	case config.OpRead:
		err = g.read(ctx, client, req.Object, g.opts.ReadOffset, g.opts.ReadLimit, &res)
	case config.OpRandomRead:
		err = g.randomRead(ctx, client, req.Object, &res)
	case config.OpWrite:
		err = g.write(ctx, client, req.Object, &res)
	default:
		err = fmt.Errorf("unsupported operation: %s", req.Operation)
	}

	if p.Addr != nil {
		res.Peer = p.Addr.String()
	}
	g.policy.Release(h, StatusCode(err), res.Bytes)
	return res, err
}

func (g *GRPC) read(ctx context.Context, client *storage.Client, object string, offset, limit int64, res *Result) error {
	n, err := client.ReadObject(ctx, storage.ReadRequest{
		Bucket: g.opts.Bucket,
		Object: object,
		Offset: offset,
		Limit:  limit,
	}, func(chunk []byte) {
		res.Chunks = append(res.Chunks, metrics.ChunkTiming{Timestamp: time.Now(), Size: int64(len(chunk))})
	})
	res.Bytes = n
	return err
}

func (g *GRPC) randomRead(ctx context.Context, client *storage.Client, object string, res *Result) error {
	info, err := client.GetObject(ctx, g.opts.Bucket, object)
	if err != nil {
		return err
	}
	chunk := g.opts.ChunkSize
	if chunk <= 0 {
		chunk = config.DefaultChunkSize
	}
	return g.read(ctx, client, object, randomOffset(info.Size, chunk), chunk, res)
}

func (g *GRPC) write(ctx context.Context, client *storage.Client, object string, res *Result) error {
	data := g.payload().Bytes()
	if _, err := client.WriteObject(ctx, g.opts.Bucket, object, data, g.opts.WireChunkSize); err != nil {
		return err
	}
	res.Bytes = int64(len(data))
	return nil
}

// Close shuts down the pool policy.
func (g *GRPC) Close() error {
	g.policy.Shutdown()
	return nil
}
