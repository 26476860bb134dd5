package pool

import (
	"testing"
	"time"
)

func TestParseChannelArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		wantFound bool
		wantTime  time.Duration
		wantTO    time.Duration
		wantPerm  bool
	}{
		{"keepalive time", "grpc.keepalive_time_ms=30000", true, 30 * time.Second, 0, false},
		{"all keys", "grpc.keepalive_time_ms=1000, grpc.keepalive_timeout_ms=500,grpc.keepalive_permit_without_calls=1", true, time.Second, 500 * time.Millisecond, true},
		{"unknown key ignored", "grpc.max_pings=3", false, 0, 0, false},
		{"bad number ignored", "grpc.keepalive_time_ms=soon", false, 0, 0, false},
		{"missing value ignored", "grpc.keepalive_time_ms", false, 0, 0, false},
		{"permit true", "grpc.keepalive_permit_without_calls=true", true, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kp, found := ParseChannelArgs(tt.args, testLog)
			if found != tt.wantFound {
				t.Errorf("found = %v, want %v", found, tt.wantFound)
			}
			if kp.Time != tt.wantTime {
				t.Errorf("Time = %v, want %v", kp.Time, tt.wantTime)
			}
			if kp.Timeout != tt.wantTO {
				t.Errorf("Timeout = %v, want %v", kp.Timeout, tt.wantTO)
			}
			if kp.PermitWithoutStream != tt.wantPerm {
				t.Errorf("PermitWithoutStream = %v, want %v", kp.PermitWithoutStream, tt.wantPerm)
			}
		})
	}
}

func TestDialOptions(t *testing.T) {
	if _, err := DialOptions(DialConfig{Cred: "kerberos"}, testLog); err == nil {
		t.Error("expected error for unknown credential mode")
	}
	if _, err := DialOptions(DialConfig{Cred: CredSSL, SSLCert: "/nonexistent/ca.pem"}, testLog); err == nil {
		t.Error("expected error for missing cert file")
	}

	opts, err := DialOptions(DialConfig{Cred: CredInsecure, ChannelArgs: "grpc.keepalive_time_ms=10000"}, testLog)
	if err != nil {
		t.Fatalf("DialOptions() error = %v", err)
	}
	if len(opts) != 2 {
		t.Errorf("len(opts) = %d, want 2", len(opts))
	}

	if _, err := GRPCDialer(DialConfig{}, testLog); err == nil {
		t.Error("expected error for empty target")
	}
}
