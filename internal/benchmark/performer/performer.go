// Package performer executes single storage operations for the executor.
// Each transport lives behind the Performer interface: GRPC issues direct
// streaming calls over handles borrowed from a pool policy, S3 goes through
// the AWS SDK client.
package performer

import (
	"context"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
)

// Request is one operation to perform.
type Request struct {
	Operation config.Operation
	Object    string
	WorkerID  int
}

// Result describes what an attempt did. It is populated as far as the
// attempt got, so ConnID and Peer are set even on failure.
type Result struct {
	Bytes  int64
	ConnID uint64
	Peer   string
	Chunks []metrics.ChunkTiming
}

// Performer runs operations against one transport.
type Performer interface {
	Perform(ctx context.Context, req Request) (Result, error)

	// Close releases the transport's connections.
	Close() error
}

// Options are the operation parameters shared by every transport.
type Options struct {
	Bucket     string
	ReadOffset int64
	ReadLimit  int64
	ChunkSize  int64
	WriteSize  int64

	// WireChunkSize is the size of each message of a streamed upload.
	WireChunkSize int
}

// OptionsFromConfig extracts Options from cfg.
func OptionsFromConfig(cfg *config.BenchmarkConfig) Options {
	return Options{
		Bucket:     cfg.Bucket,
		ReadOffset: cfg.ReadOffset,
		ReadLimit:  cfg.ReadLimit,
		ChunkSize:  cfg.EffectiveChunkSize(),
		WriteSize:  cfg.EffectiveWriteSize(),
	}
}
