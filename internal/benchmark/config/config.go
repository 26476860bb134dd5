// Package config defines the run parameters of a benchmark and loads them
// from files.
package config

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/stormbench/internal/benchmark/pool"
)

// Client selects the transport used to reach the storage service.
type Client string

const (
	// ClientGRPC issues direct streaming calls through a pool policy.
	ClientGRPC Client = "grpc"

	// ClientS3 uses the AWS SDK's S3 client, which manages its own
	// connections.
	ClientS3 Client = "s3"
)

// Operation is the kind of call each task performs.
type Operation string

const (
	OpRead       Operation = "read"
	OpRandomRead Operation = "random-read"
	OpWrite      Operation = "write"
)

// Size defaults.
const (
	DefaultChunkSize = 1024 * 1024
	DefaultWriteSize = 1024 * 1024
)

// BenchmarkConfig is the full parameter set of one run. It is treated as
// read-only once validated.
type BenchmarkConfig struct {
	// Target
	Client       Client    `json:"client" yaml:"client"`
	Operation    Operation `json:"operation" yaml:"operation"`
	Bucket       string    `json:"bucket" yaml:"bucket"`
	Object       string    `json:"object" yaml:"object"`
	ObjectFormat string    `json:"object_format,omitempty" yaml:"object_format,omitempty"`
	ObjectStart  int       `json:"object_start,omitempty" yaml:"object_start,omitempty"`
	ObjectStop   int       `json:"object_stop,omitempty" yaml:"object_stop,omitempty"`

	// Load shape
	Runs      int      `json:"runs" yaml:"runs"`
	Warmups   int      `json:"warmups,omitempty" yaml:"warmups,omitempty"`
	Threads   int      `json:"threads" yaml:"threads"`
	Timeout   Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RateLimit float64  `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// Retry
	Trying bool        `json:"trying,omitempty" yaml:"trying,omitempty"`
	Retry  RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`

	// Operation sizes; zero means the default or "whole object".
	ChunkSize  int64 `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	ReadOffset int64 `json:"read_offset,omitempty" yaml:"read_offset,omitempty"`
	ReadLimit  int64 `json:"read_limit,omitempty" yaml:"read_limit,omitempty"`
	WriteSize  int64 `json:"write_size,omitempty" yaml:"write_size,omitempty"`

	// Connection policy (grpc client only)
	Policy   string `json:"cpolicy,omitempty" yaml:"cpolicy,omitempty"`
	PoolSize int    `json:"carg,omitempty" yaml:"carg,omitempty"`

	// Endpoint
	Host           string `json:"host" yaml:"host"`
	Cred           string `json:"cred,omitempty" yaml:"cred,omitempty"`
	SSLCert        string `json:"ssl_cert,omitempty" yaml:"ssl_cert,omitempty"`
	AccessToken    string `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	ChannelArgs    string `json:"channel_args,omitempty" yaml:"channel_args,omitempty"`
	MaxRecvMsgSize int    `json:"max_recv_msg_size,omitempty" yaml:"max_recv_msg_size,omitempty"`

	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`

	// Reports
	ReportTag  string `json:"report_tag,omitempty" yaml:"report_tag,omitempty"`
	ReportFile string `json:"report_file,omitempty" yaml:"report_file,omitempty"`
	DataFile   string `json:"data_file,omitempty" yaml:"data_file,omitempty"`
	JSONFile   string `json:"json_file,omitempty" yaml:"json_file,omitempty"`

	// Logging
	Verbose   bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`

	// Accepted for command-line compatibility, never acted on.
	Crc32c             bool   `json:"crc32c,omitempty" yaml:"crc32c,omitempty"`
	Resumable          bool   `json:"resumable,omitempty" yaml:"resumable,omitempty"`
	StealWork          bool   `json:"steal_work,omitempty" yaml:"steal_work,omitempty"`
	WaitThreads        bool   `json:"wait_threads,omitempty" yaml:"wait_threads,omitempty"`
	TD                 bool   `json:"td,omitempty" yaml:"td,omitempty"`
	RR                 bool   `json:"rr,omitempty" yaml:"rr,omitempty"`
	TxZerocopy         bool   `json:"tx_zerocopy,omitempty" yaml:"tx_zerocopy,omitempty"`
	PrometheusEndpoint string `json:"prometheus_endpoint,omitempty" yaml:"prometheus_endpoint,omitempty"`
	GRPCAdmin          int    `json:"grpc_admin,omitempty" yaml:"grpc_admin,omitempty"`
	CTest              int    `json:"ctest,omitempty" yaml:"ctest,omitempty"`
	MTest              int    `json:"mtest,omitempty" yaml:"mtest,omitempty"`
	Network            string `json:"network,omitempty" yaml:"network,omitempty"`
	TargetAPIVersion   string `json:"target_api_version,omitempty" yaml:"target_api_version,omitempty"`
}

// RetryConfig bounds the retry loop used when Trying is set.
type RetryConfig struct {
	// MaxAttempts of 0 retries until the phase is cancelled.
	MaxAttempts    int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialBackoff Duration `json:"initial_backoff,omitempty" yaml:"initial_backoff,omitempty"`
	MaxBackoff     Duration `json:"max_backoff,omitempty" yaml:"max_backoff,omitempty"`
}

// S3Config configures the s3 client.
type S3Config struct {
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`
}

// Default returns the configuration used when nothing is specified.
func Default() *BenchmarkConfig {
	return &BenchmarkConfig{
		Client:    ClientGRPC,
		Operation: OpRead,
		Runs:      1,
		Threads:   1,
		Host:      "localhost:50051",
		Cred:      pool.CredInsecure,
		Network:   "default",
		Retry: RetryConfig{
			InitialBackoff: Duration(defaultInitialBackoff),
			MaxBackoff:     Duration(defaultMaxBackoff),
		},
		S3: S3Config{Region: "us-east-1"},
	}
}

// EffectiveChunkSize returns ChunkSize or its default.
func (c *BenchmarkConfig) EffectiveChunkSize() int64 {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return DefaultChunkSize
}

// EffectiveWriteSize returns WriteSize or its default.
func (c *BenchmarkConfig) EffectiveWriteSize() int64 {
	if c.WriteSize > 0 {
		return c.WriteSize
	}
	return DefaultWriteSize
}

// PolicyKind resolves the connection policy. An empty cpolicy means shared
// under td and per-worker otherwise.
func (c *BenchmarkConfig) PolicyKind(log logrus.FieldLogger) pool.Kind {
	if strings.TrimSpace(c.Policy) == "" && c.TD {
		return pool.KindShared
	}
	return pool.Resolve(c.Policy, log)
}

// Tag returns the report tag, or "default".
func (c *BenchmarkConfig) Tag() string {
	if c.ReportTag == "" {
		return "default"
	}
	return c.ReportTag
}

// PolicyLabel is the cpolicy column written to reports.
func (c *BenchmarkConfig) PolicyLabel() string {
	if c.Policy == "" {
		return "auto"
	}
	return c.Policy
}

// DialConfig extracts the pool dial settings.
func (c *BenchmarkConfig) DialConfig() pool.DialConfig {
	return pool.DialConfig{
		Target:         c.Host,
		Cred:           c.Cred,
		SSLCert:        c.SSLCert,
		AccessToken:    c.AccessToken,
		ChannelArgs:    c.ChannelArgs,
		MaxRecvMsgSize: c.MaxRecvMsgSize,
	}
}

// Unimplemented returns one message per compatibility flag that is set but
// has no effect.
func (c *BenchmarkConfig) Unimplemented() []string {
	var msgs []string
	flag := func(set bool, name string) {
		if set {
			msgs = append(msgs, name+" is not supported and will be ignored")
		}
	}

	flag(c.Crc32c, "crc32c")
	flag(c.Resumable, "resumable")
	flag(c.StealWork, "steal_work")
	flag(c.WaitThreads, "wait_threads")
	flag(c.TD, "td")
	flag(c.RR, "rr")
	flag(c.TxZerocopy, "tx_zerocopy")
	flag(c.PrometheusEndpoint != "", "prometheus_endpoint")
	flag(c.GRPCAdmin > 0, "grpc_admin")
	flag(c.CTest > 0, "ctest")
	flag(c.MTest > 0, "mtest")
	flag(c.Network != "" && c.Network != "default", "network")
	flag(c.TargetAPIVersion != "", "target_api_version")
	return msgs
}
