package performer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
	"github.com/wesleyorama2/stormbench/internal/benchmark/pool"
)

func TestObjectResolver(t *testing.T) {
	plain := ObjectResolver{Object: "fixed", Format: ""}
	if got := plain.Resolve(3); got != "fixed" {
		t.Errorf("Resolve() = %q, want %q", got, "fixed")
	}

	single := ObjectResolver{Format: "t{t}-o{o}", Start: 7}
	if got := single.Resolve(2); got != "t2-o7" {
		t.Errorf("Resolve() = %q, want %q", got, "t2-o7")
	}

	ranged := ObjectResolver{Format: "obj-{o}", Start: 10, Stop: 13}
	seen := make(map[string]bool)
	for i := 0; i < 300; i++ {
		seen[ranged.Resolve(0)] = true
	}
	for name := range seen {
		if name != "obj-10" && name != "obj-11" && name != "obj-12" {
			t.Errorf("Resolve() = %q, outside [10, 13)", name)
		}
	}
	if len(seen) != 3 {
		t.Errorf("distinct names = %d, want 3", len(seen))
	}
}

func TestRandomOffset(t *testing.T) {
	for i := 0; i < 500; i++ {
		if off := randomOffset(1000, 100); off < 0 || off >= 900 {
			t.Fatalf("randomOffset(1000, 100) = %d, want [0, 900)", off)
		}
	}
	if off := randomOffset(50, 100); off != 0 {
		t.Errorf("randomOffset(50, 100) = %d, want 0", off)
	}
}

func TestPayload(t *testing.T) {
	p := NewPayload(4096)
	a, b := p.Bytes(), p.Bytes()
	if len(a) != 4096 || &a[0] != &b[0] {
		t.Error("small payloads should share one buffer")
	}
	if p.Size() != 4096 {
		t.Errorf("Size() = %d, want 4096", p.Size())
	}

	if got := NewPayload(0).Bytes(); got != nil {
		t.Errorf("empty payload = %d bytes, want nil", len(got))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantClass metrics.Class
		wantCode  string
	}{
		{"setup", &pool.SetupError{Op: "dial", Err: errors.New("refused")}, metrics.ClassSetup, "SETUP"},
		{"wrapped setup", fmt.Errorf("acquire: %w", &pool.SetupError{Op: "dial", Err: errors.New("x")}), metrics.ClassSetup, "SETUP"},
		{"cancelled status", status.Error(codes.Canceled, "c"), metrics.ClassTransient, "Canceled"},
		{"deadline status", status.Error(codes.DeadlineExceeded, "d"), metrics.ClassTransient, "DeadlineExceeded"},
		{"context deadline", context.DeadlineExceeded, metrics.ClassTransient, "DeadlineExceeded"},
		{"unavailable", status.Error(codes.Unavailable, "u"), metrics.ClassPermanent, "Unavailable"},
		{"plain", errors.New("x"), metrics.ClassPermanent, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, code := Classify(tt.err)
			if class != tt.wantClass || code != tt.wantCode {
				t.Errorf("Classify() = (%v, %v), want (%v, %v)", class, code, tt.wantClass, tt.wantCode)
			}
		})
	}

	if got := StatusCode(nil); got != codes.OK {
		t.Errorf("StatusCode(nil) = %v, want OK", got)
	}
	if got := StatusCode(fmt.Errorf("wrap: %w", context.Canceled)); got != codes.Canceled {
		t.Errorf("StatusCode(canceled) = %v, want Canceled", got)
	}
}
