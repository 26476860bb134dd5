package pool

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Credential modes accepted by DialConfig.Cred.
const (
	CredInsecure = "insecure"
	CredSSL      = "ssl"
	CredToken    = "token"
)

// DialConfig describes how to reach the storage endpoint.
type DialConfig struct {
	// Target is a gRPC target such as "localhost:50051" or "dns:///host:443".
	Target string

	// Cred selects transport security: insecure, ssl, or token (ssl plus a
	// bearer token on every call).
	Cred string

	// SSLCert is an optional PEM root bundle. Empty means system roots.
	SSLCert string

	// AccessToken is the bearer token for Cred=token. A value starting with
	// '@' names a file the token is read from each time a handle is built.
	AccessToken string

	// ChannelArgs is a comma separated key=value list of channel tuning
	// options, e.g. "grpc.keepalive_time_ms=30000".
	ChannelArgs string

	// MaxRecvMsgSize bounds a single inbound message. Zero keeps the gRPC
	// default.
	MaxRecvMsgSize int
}

// GRPCDialer returns a DialFunc opening real gRPC client connections built
// from cfg. Options are resolved once; each call to the returned function
// opens a distinct connection.
func GRPCDialer(cfg DialConfig, log logrus.FieldLogger) (DialFunc, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("dial target is required")
	}

	opts, err := DialOptions(cfg, log)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (Conn, error) {
		conn, err := grpc.NewClient(cfg.Target, opts...)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}, nil
}

// DialOptions builds the grpc.DialOptions for cfg.
func DialOptions(cfg DialConfig, log logrus.FieldLogger) ([]grpc.DialOption, error) {
	var opts []grpc.DialOption

	switch cfg.Cred {
	case "", CredInsecure:
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	case CredSSL, CredToken:
		tc, err := transportCredentials(cfg.SSLCert)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.WithTransportCredentials(tc))
	default:
		return nil, fmt.Errorf("unknown credential mode %q", cfg.Cred)
	}

	if cfg.MaxRecvMsgSize > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(cfg.MaxRecvMsgSize)))
	}

	if cfg.ChannelArgs != "" {
		log.WithField("channel_args", cfg.ChannelArgs).Info("Applying channel args")
		if kp, ok := ParseChannelArgs(cfg.ChannelArgs, log); ok {
			opts = append(opts, grpc.WithKeepaliveParams(kp))
		}
	}

	return opts, nil
}

func transportCredentials(certFile string) (credentials.TransportCredentials, error) {
	if certFile == "" {
		return credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12}), nil
	}
	tc, err := credentials.NewClientTLSFromFile(certFile, "")
	if err != nil {
		return nil, fmt.Errorf("load ssl cert: %w", err)
	}
	return tc, nil
}

// ParseChannelArgs reads the keepalive settings out of a key=value list.
// Unknown keys and malformed values are logged and skipped. The boolean
// result is false when no keepalive option was present.
func ParseChannelArgs(args string, log logrus.FieldLogger) (keepalive.ClientParameters, bool) {
	var kp keepalive.ClientParameters
	found := false

	for _, arg := range strings.Split(args, ",") {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "grpc.keepalive_time_ms", "grpc.keepalive_timeout_ms":
			ms, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				log.WithError(err).Warnf("Failed to apply channel arg %s", key)
				continue
			}
			if key == "grpc.keepalive_time_ms" {
				kp.Time = time.Duration(ms) * time.Millisecond
			} else {
				kp.Timeout = time.Duration(ms) * time.Millisecond
			}
			found = true
		case "grpc.keepalive_permit_without_calls":
			kp.PermitWithoutStream = value == "1" || strings.EqualFold(value, "true")
			found = true
		default:
			log.Warnf("Unsupported channel arg: %s", key)
		}
	}

	return kp, found
}

// Credentials returns the CredentialSource for cfg, or nil when calls carry
// no bearer token.
func Credentials(cfg DialConfig) CredentialSource {
	if cfg.Cred != CredToken {
		return nil
	}
	return func(ctx context.Context) (credentials.PerRPCCredentials, error) {
		token, err := loadToken(cfg.AccessToken)
		if err != nil {
			return nil, err
		}
		return TokenCredentials{Token: token, RequireTLS: true}, nil
	}
}

func loadToken(src string) (string, error) {
	if path, ok := strings.CutPrefix(src, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read access token: %w", err)
		}
		src = string(data)
	}
	token := strings.TrimSpace(src)
	if token == "" {
		return "", fmt.Errorf("access token is empty")
	}
	return token, nil
}

// TokenCredentials attaches a static bearer token to each call.
type TokenCredentials struct {
	Token      string
	RequireTLS bool
}

// GetRequestMetadata implements credentials.PerRPCCredentials.
func (c TokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + c.Token}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials.
func (c TokenCredentials) RequireTransportSecurity() bool {
	return c.RequireTLS
}
