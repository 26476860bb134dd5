package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
)

// bindBenchmarkFlags registers one flag per configuration field, writing
// into cfg. Flag names match the configuration file keys.
func bindBenchmarkFlags(fs *pflag.FlagSet, cfg *config.BenchmarkConfig) {
	// Target
	fs.StringVar((*string)(&cfg.Client), "client", string(cfg.Client), "Client: grpc or s3")
	fs.StringVar((*string)(&cfg.Operation), "operation", string(cfg.Operation), "Operation: read, random-read or write")
	fs.StringVar(&cfg.Bucket, "bucket", cfg.Bucket, "Bucket name")
	fs.StringVar(&cfg.Object, "object", cfg.Object, "Object name")
	fs.StringVar(&cfg.ObjectFormat, "object_format", cfg.ObjectFormat, "Object name format; {t} is the worker id, {o} the object id")
	fs.IntVar(&cfg.ObjectStart, "object_start", cfg.ObjectStart, "First object id for object_format")
	fs.IntVar(&cfg.ObjectStop, "object_stop", cfg.ObjectStop, "Object ids are drawn from [object_start, object_stop)")

	// Load shape
	fs.IntVar(&cfg.Runs, "runs", cfg.Runs, "Number of measured operations")
	fs.IntVar(&cfg.Warmups, "warmups", cfg.Warmups, "Number of warmup operations, excluded from results")
	fs.IntVar(&cfg.Threads, "threads", cfg.Threads, "Number of worker threads")
	fs.Var(&cfg.Timeout, "timeout", "Per-call deadline, e.g. 30s; 0 disables it")
	fs.Float64Var(&cfg.RateLimit, "rate_limit", cfg.RateLimit, "Maximum operations per second across all workers; 0 is unlimited")

	// Retry
	fs.BoolVar(&cfg.Trying, "trying", cfg.Trying, "Retry failed operations until they succeed")
	fs.IntVar(&cfg.Retry.MaxAttempts, "retry_max_attempts", cfg.Retry.MaxAttempts, "Attempts per operation when trying; 0 is unbounded")
	fs.Var(&cfg.Retry.InitialBackoff, "retry_initial_backoff", "First retry delay")
	fs.Var(&cfg.Retry.MaxBackoff, "retry_max_backoff", "Cap on the retry delay")

	// Sizes
	fs.Int64Var(&cfg.ChunkSize, "chunk_size", cfg.ChunkSize, "Read size for random-read")
	fs.Int64Var(&cfg.ReadOffset, "read_offset", cfg.ReadOffset, "Read start offset")
	fs.Int64Var(&cfg.ReadLimit, "read_limit", cfg.ReadLimit, "Read length; 0 reads to the end")
	fs.Int64Var(&cfg.WriteSize, "write_size", cfg.WriteSize, "Object size for write")

	// Connection policy
	fs.StringVar(&cfg.Policy, "cpolicy", cfg.Policy, "Connection policy: shared (const), perworker (perthread), percall or pool")
	fs.IntVar(&cfg.PoolSize, "carg", cfg.PoolSize, "Pool size for cpolicy=pool")

	// Endpoint
	fs.StringVar(&cfg.Host, "host", cfg.Host, "gRPC target")
	fs.StringVar(&cfg.Cred, "cred", cfg.Cred, "Credentials: insecure, ssl or token")
	fs.StringVar(&cfg.SSLCert, "ssl_cert", cfg.SSLCert, "PEM root certificate for ssl; system roots when empty")
	fs.StringVar(&cfg.AccessToken, "access_token", cfg.AccessToken, "Bearer token for cred=token; @path reads it from a file")
	fs.StringVar(&cfg.ChannelArgs, "channel_args", cfg.ChannelArgs, "Channel options as key=value,...")
	fs.IntVar(&cfg.MaxRecvMsgSize, "max_recv_msg_size", cfg.MaxRecvMsgSize, "Maximum inbound message size in bytes")

	// S3
	fs.StringVar(&cfg.S3.Region, "s3_region", cfg.S3.Region, "S3 region")
	fs.StringVar(&cfg.S3.Endpoint, "s3_endpoint", cfg.S3.Endpoint, "S3 endpoint URL")
	fs.BoolVar(&cfg.S3.PathStyle, "s3_path_style", cfg.S3.PathStyle, "Use path-style S3 addressing")

	// Reports
	fs.StringVar(&cfg.ReportTag, "report_tag", cfg.ReportTag, "Tag written to reports")
	fs.StringVar(&cfg.ReportFile, "report_file", cfg.ReportFile, "CSV file the run summary is appended to")
	fs.StringVar(&cfg.DataFile, "data_file", cfg.DataFile, "CSV file for per-operation data")
	fs.StringVar(&cfg.JSONFile, "json_file", cfg.JSONFile, "JSON result document")

	// Logging
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogLevel, "log_level", cfg.LogLevel, "Log level: trace, debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log_format", cfg.LogFormat, "Log format: text or json")

	// Accepted but not acted on
	fs.BoolVar(&cfg.Crc32c, "crc32c", cfg.Crc32c, "Not supported")
	fs.BoolVar(&cfg.Resumable, "resumable", cfg.Resumable, "Not supported")
	fs.BoolVar(&cfg.StealWork, "steal_work", cfg.StealWork, "Not supported")
	fs.BoolVar(&cfg.WaitThreads, "wait_threads", cfg.WaitThreads, "Not supported")
	fs.BoolVar(&cfg.TD, "td", cfg.TD, "Not supported; an empty cpolicy becomes shared")
	fs.BoolVar(&cfg.RR, "rr", cfg.RR, "Not supported")
	fs.BoolVar(&cfg.TxZerocopy, "tx_zerocopy", cfg.TxZerocopy, "Not supported")
	fs.StringVar(&cfg.PrometheusEndpoint, "prometheus_endpoint", cfg.PrometheusEndpoint, "Not supported")
	fs.IntVar(&cfg.GRPCAdmin, "grpc_admin", cfg.GRPCAdmin, "Not supported")
	fs.IntVar(&cfg.CTest, "ctest", cfg.CTest, "Not supported")
	fs.IntVar(&cfg.MTest, "mtest", cfg.MTest, "Not supported")
	fs.StringVar(&cfg.Network, "network", cfg.Network, "Not supported")
	fs.StringVar(&cfg.TargetAPIVersion, "target_api_version", cfg.TargetAPIVersion, "Not supported")
}

// applyChangedFlags copies the flags set on the command line onto cfg,
// leaving every other field as loaded.
func applyChangedFlags(changed *pflag.FlagSet, cfg *config.BenchmarkConfig) error {
	target := pflag.NewFlagSet("apply", pflag.ContinueOnError)
	bindBenchmarkFlags(target, cfg)

	var err error
	changed.Visit(func(f *pflag.Flag) {
		if err != nil || target.Lookup(f.Name) == nil {
			return
		}
		if setErr := target.Set(f.Name, f.Value.String()); setErr != nil {
			err = fmt.Errorf("--%s: %w", f.Name, setErr)
		}
	})
	return err
}
