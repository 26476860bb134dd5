package performer

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"strconv"
	"strings"
)

// ObjectResolver names the object a task works on.
type ObjectResolver struct {
	// Object is used verbatim when Format is empty.
	Object string

	// Format may contain {t} (worker id) and {o} (object id).
	Format string

	// Object ids are drawn uniformly from [Start, Stop) when Stop > Start,
	// otherwise Start is used.
	Start int
	Stop  int
}

// Resolve returns the object name for a task on workerID.
func (r ObjectResolver) Resolve(workerID int) string {
	if r.Format == "" {
		return r.Object
	}

	id := r.Start
	if r.Stop > r.Start {
		id = r.Start + mrand.IntN(r.Stop-r.Start)
	}

	name := strings.ReplaceAll(r.Format, "{t}", strconv.Itoa(workerID))
	return strings.ReplaceAll(name, "{o}", strconv.Itoa(id))
}

// randomOffset picks a read offset for a chunk-sized ranged read of an
// object of the given size, uniform in [0, max(1, size-chunk)).
func randomOffset(size, chunk int64) int64 {
	return mrand.Int64N(max(1, size-chunk))
}

// maxSharedPayload is the largest upload buffer generated once and reused.
const maxSharedPayload = 256 * 1024 * 1024

// Payload supplies upload bodies. Sizes up to maxSharedPayload share one
// buffer generated at construction; larger sizes get a fresh buffer per
// call.
type Payload struct {
	size   int64
	shared []byte
}

// NewPayload returns a Payload of size bytes.
func NewPayload(size int64) *Payload {
	p := &Payload{size: size}
	if size > 0 && size <= maxSharedPayload {
		p.shared = randomBytes(size)
	}
	return p
}

// Size returns the upload size.
func (p *Payload) Size() int64 { return p.size }

// Bytes returns an upload body. Callers must not modify it.
func (p *Payload) Bytes() []byte {
	if p.shared != nil {
		return p.shared
	}
	return randomBytes(p.size)
}

func randomBytes(n int64) []byte {
	if n <= 0 {
		return nil
	}
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}
