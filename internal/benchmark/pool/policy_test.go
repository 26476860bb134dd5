package pool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"shared", KindShared, true},
		{"const", KindShared, true},
		{"perthread", KindPerWorker, true},
		{"per-worker", KindPerWorker, true},
		{"PerCall", KindPerCall, true},
		{"pool", KindRoundRobin, true},
		{"round-robin", KindRoundRobin, true},
		{"bpool", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseKind(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolve_FallsBackToPerWorker(t *testing.T) {
	for _, in := range []string{"", "bpool", "spool", "mystery"} {
		if got := Resolve(in, testLog); got != KindPerWorker {
			t.Errorf("Resolve(%q) = %v, want %v", in, got, KindPerWorker)
		}
	}
	if got := Resolve("pool", testLog); got != KindRoundRobin {
		t.Errorf("Resolve(pool) = %v, want %v", got, KindRoundRobin)
	}
}

func TestNewPolicy(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []Kind{KindShared, KindPerWorker, KindPerCall, KindRoundRobin} {
		p, err := NewPolicy(ctx, kind, 3, (&fakeDialer{}).factory(), testLog)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, p.Kind())
		p.Shutdown()
	}

	_, err := NewPolicy(ctx, Kind("bogus"), 1, (&fakeDialer{}).factory(), testLog)
	assert.Error(t, err)

	d := &fakeDialer{}
	d.fail.Store(true)
	_, err = NewPolicy(ctx, KindShared, 1, d.factory(), testLog)
	var setup *SetupError
	assert.True(t, errors.As(err, &setup))
}

func TestRoundRobin_OrderAndWrap(t *testing.T) {
	ctx := context.Background()
	const n = 4

	r, err := NewRoundRobin(ctx, n, (&fakeDialer{}).factory(), testLog)
	require.NoError(t, err)
	defer r.Shutdown()

	slots := r.Handles()
	seen := make(map[*Handle]bool)
	for i := 0; i < n; i++ {
		h, err := r.Acquire(ctx, 0)
		require.NoError(t, err)
		assert.Same(t, slots[i], h, "acquire %d", i)
		seen[h] = true
		r.Release(h, codes.OK, 0)
	}
	assert.Len(t, seen, n)

	h, err := r.Acquire(ctx, 0)
	require.NoError(t, err)
	assert.Same(t, slots[0], h, "acquire n+1 should wrap to slot 0")
	r.Release(h, codes.OK, 0)
}

func TestRoundRobin_RotationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("acquire k returns slot k mod n", prop.ForAll(
		func(n, calls int) bool {
			r, err := NewRoundRobin(context.Background(), n, (&fakeDialer{}).factory(), testLog)
			if err != nil {
				return false
			}
			defer r.Shutdown()

			slots := r.Handles()
			for k := 0; k < calls; k++ {
				h, err := r.Acquire(context.Background(), k)
				if err != nil || h != slots[k%n] {
					return false
				}
				r.Release(h, codes.Unavailable, 0)
			}
			return true
		},
		gen.IntRange(1, 16),
		gen.IntRange(0, 64),
	))

	properties.TestingRun(t)
}

func TestRoundRobin_CursorWrapsUnsigned(t *testing.T) {
	r, err := NewRoundRobin(context.Background(), 3, (&fakeDialer{}).factory(), testLog)
	require.NoError(t, err)
	defer r.Shutdown()

	r.cursor.Store(^uint64(0))
	slots := r.Handles()

	h, err := r.Acquire(context.Background(), 0)
	require.NoError(t, err)
	assert.Same(t, slots[(^uint64(0))%3], h)
	r.Release(h, codes.OK, 0)

	h, err = r.Acquire(context.Background(), 0)
	require.NoError(t, err)
	assert.Same(t, slots[0], h)
	r.Release(h, codes.OK, 0)
}

func TestRoundRobin_EvictionClosesStaleHandleOnce(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialer{}
	r, err := NewRoundRobin(ctx, 1, d.factory(), testLog)
	require.NoError(t, err)
	defer r.Shutdown()

	const callers = 16
	held := make([]*Handle, callers)
	for i := range held {
		held[i], err = r.Acquire(ctx, i)
		require.NoError(t, err)
	}
	stale := held[0]

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(h *Handle) {
			defer wg.Done()
			<-start
			r.Release(h, codes.Canceled, 0)
		}(held[i])
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), closesOf(stale), "stale handle must be closed exactly once")

	current := r.Handles()[0]
	assert.NotSame(t, stale, current)
	assert.Equal(t, int32(0), closesOf(current), "installed replacement must stay open")

	// Every other replacement lost its CAS and was closed by its creator.
	for _, c := range d.conns {
		if c == stale.Conn || c == current.Conn {
			continue
		}
		assert.Equal(t, int32(1), c.closes.Load())
	}
}

func TestRoundRobin_EvictionWaitsForInFlight(t *testing.T) {
	ctx := context.Background()
	r, err := NewRoundRobin(ctx, 1, (&fakeDialer{}).factory(), testLog)
	require.NoError(t, err)
	defer r.Shutdown()

	a, _ := r.Acquire(ctx, 0)
	b, _ := r.Acquire(ctx, 1)
	require.Same(t, a, b)

	r.Release(a, codes.DeadlineExceeded, 0)
	assert.False(t, b.Closed(), "handle closed while another call still uses it")

	r.Release(b, codes.OK, 0)
	assert.True(t, b.Closed())
}

func TestRoundRobin_PermanentErrorsKeepHandle(t *testing.T) {
	ctx := context.Background()
	r, err := NewRoundRobin(ctx, 2, (&fakeDialer{}).factory(), testLog)
	require.NoError(t, err)
	defer r.Shutdown()

	before := r.Handles()
	for _, code := range []codes.Code{codes.OK, codes.NotFound, codes.Unavailable, codes.Internal} {
		h, _ := r.Acquire(ctx, 0)
		r.Release(h, code, 0)
	}
	assert.Equal(t, before, r.Handles())
}

func TestRoundRobin_ReplacementFailureKeepsSlot(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialer{}
	r, err := NewRoundRobin(ctx, 1, d.factory(), testLog)
	require.NoError(t, err)
	defer r.Shutdown()

	h, _ := r.Acquire(ctx, 0)
	d.fail.Store(true)
	r.Release(h, codes.Canceled, 0)

	assert.Same(t, h, r.Handles()[0])
	assert.False(t, h.Closed())
}

func TestRoundRobin_ReplacementAfterShutdownIsClosed(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialer{}
	g := newGatedFactory(d.factory())
	r, err := NewRoundRobin(ctx, 1, g, testLog)
	require.NoError(t, err)

	h, err := r.Acquire(ctx, 0)
	require.NoError(t, err)

	g.armed.Store(true)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Release(h, codes.Canceled, 0)
	}()

	<-g.entered
	r.Shutdown()
	close(g.release)
	<-done

	require.Equal(t, 2, d.opened())
	for i, c := range d.conns {
		assert.Equal(t, int32(1), c.closes.Load(), "conn %d", i+1)
	}
}

func TestShared_NonCancelKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s, err := NewShared(ctx, (&fakeDialer{}).factory(), testLog)
	require.NoError(t, err)
	defer s.Shutdown()

	first, _ := s.Acquire(ctx, 0)
	s.Release(first, codes.DeadlineExceeded, 0)
	for _, code := range []codes.Code{codes.Unavailable, codes.NotFound, codes.OK} {
		h, _ := s.Acquire(ctx, 1)
		assert.Same(t, first, h)
		s.Release(h, code, 0)
	}
	assert.False(t, first.Closed())
}

func TestShared_CancelReplacesOnce(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialer{}
	s, err := NewShared(ctx, d.factory(), testLog)
	require.NoError(t, err)
	defer s.Shutdown()

	a, _ := s.Acquire(ctx, 0)
	b, _ := s.Acquire(ctx, 1)

	s.Release(a, codes.Canceled, 0)
	s.Release(b, codes.Canceled, 0)

	assert.Equal(t, 2, d.opened(), "only the first reporter replaces the stale handle")
	assert.NotSame(t, a, s.Current())
	assert.Equal(t, int32(1), closesOf(a))
}

func TestPerWorker_OneHandlePerWorker(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialer{}
	p := NewPerWorker(d.factory(), testLog)

	var wg sync.WaitGroup
	got := make([][]*Handle, 4)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				h, err := p.Acquire(ctx, w)
				if err != nil {
					t.Error(err)
					return
				}
				got[w] = append(got[w], h)
				p.Release(h, codes.Canceled, 0)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 4, p.Len())
	assert.Equal(t, 4, d.opened())
	for w := range got {
		for _, h := range got[w] {
			assert.Same(t, got[w][0], h)
		}
	}

	p.Shutdown()
	p.Shutdown()
	for _, c := range d.conns {
		assert.Equal(t, int32(1), c.closes.Load())
	}
	_, err := p.Acquire(ctx, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPerCall_ClosesEveryHandle(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialer{}
	p := NewPerCall(d.factory(), testLog)

	var handles []*Handle
	for i, code := range []codes.Code{codes.OK, codes.Canceled, codes.NotFound} {
		h, err := p.Acquire(ctx, i)
		require.NoError(t, err)
		handles = append(handles, h)
		p.Release(h, code, 0)
	}

	for _, h := range handles {
		assert.True(t, h.Closed())
		assert.Equal(t, int32(1), closesOf(h))
	}
	assert.NotSame(t, handles[0], handles[1])
	p.Shutdown()
}

func TestShutdown_Idempotent(t *testing.T) {
	ctx := context.Background()
	d := &fakeDialer{}
	r, err := NewRoundRobin(ctx, 3, d.factory(), testLog)
	require.NoError(t, err)

	r.Shutdown()
	r.Shutdown()
	for _, c := range d.conns {
		assert.Equal(t, int32(1), c.closes.Load())
	}

	_, err = r.Acquire(ctx, 0)
	assert.ErrorIs(t, err, ErrClosed)
}
