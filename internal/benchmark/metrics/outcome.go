// Package metrics records per-operation outcomes of a benchmark run and
// derives the aggregate statistics reported at the end of it.
package metrics

import "time"

// Class is the error classification of a failed outcome.
type Class string

const (
	// ClassSetup marks failures to build a connection or its credentials.
	ClassSetup Class = "setup"

	// ClassTransient marks cancelled or deadline-exceeded calls.
	ClassTransient Class = "transient"

	// ClassPermanent marks every other failure.
	ClassPermanent Class = "permanent"
)

// ChunkTiming is the arrival time and size of one streamed chunk.
type ChunkTiming struct {
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// Outcome is the result of one benchmark task. It is not modified after it
// has been recorded.
type Outcome struct {
	Timestamp    time.Time     `json:"timestamp"`
	Latency      time.Duration `json:"latency"`
	Bytes        int64         `json:"bytes"`
	Success      bool          `json:"success"`
	Class        Class         `json:"class,omitempty"`
	ErrorCode    string        `json:"errorCode,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Object       string        `json:"object"`
	WorkerID     int           `json:"workerId"`
	ConnID       uint64        `json:"connId,omitempty"`
	Peer         string        `json:"peer,omitempty"`
	Chunks       []ChunkTiming `json:"chunks,omitempty"`
}

// Phase is a stage of a benchmark run.
type Phase string

const (
	PhaseInit    Phase = "init"
	PhaseWarmup  Phase = "warmup"
	PhaseMeasure Phase = "measure"
	PhaseDone    Phase = "done"
)
