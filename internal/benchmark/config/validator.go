package config

import (
	"fmt"
	"strings"

	"github.com/wesleyorama2/stormbench/internal/benchmark/pool"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the configuration.
//
// Returns nil if valid, or a ValidationErrors containing every problem.
func (c *BenchmarkConfig) Validate() error {
	errs := &ValidationErrors{}

	switch c.Client {
	case ClientGRPC, ClientS3:
	case "":
		errs.Add("client", "client is required")
	default:
		errs.Add("client", fmt.Sprintf("unknown client: %s (expected grpc or s3)", c.Client))
	}

	switch c.Operation {
	case OpRead, OpRandomRead, OpWrite:
	case "":
		errs.Add("operation", "operation is required")
	default:
		errs.Add("operation", fmt.Sprintf("unknown operation: %s (expected read, random-read or write)", c.Operation))
	}

	if c.Bucket == "" {
		errs.Add("bucket", "bucket is required")
	}
	if c.Object == "" && c.ObjectFormat == "" {
		errs.Add("object", "object or object_format is required")
	}
	if c.ObjectStart < 0 {
		errs.Add("object_start", "must be non-negative")
	}
	if c.ObjectStop < 0 {
		errs.Add("object_stop", "must be non-negative")
	}

	if c.Runs < 0 {
		errs.Add("runs", "must be non-negative")
	}
	if c.Warmups < 0 {
		errs.Add("warmups", "must be non-negative")
	}
	if c.Threads < 1 {
		errs.Add("threads", "at least one thread is required")
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "must be non-negative")
	}
	if c.RateLimit < 0 {
		errs.Add("rate_limit", "must be non-negative")
	}

	validateSizes(c, errs)
	validateRetry(&c.Retry, errs)

	if c.Client == ClientGRPC {
		validateGRPC(c, errs)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateSizes(c *BenchmarkConfig, errs *ValidationErrors) {
	if c.ChunkSize < 0 {
		errs.Add("chunk_size", "must be non-negative")
	}
	if c.ReadOffset < 0 {
		errs.Add("read_offset", "must be non-negative")
	}
	if c.ReadLimit < 0 {
		errs.Add("read_limit", "must be non-negative")
	}
	if c.WriteSize < 0 {
		errs.Add("write_size", "must be non-negative")
	}
}

func validateRetry(r *RetryConfig, errs *ValidationErrors) {
	if r.MaxAttempts < 0 {
		errs.Add("retry.max_attempts", "must be non-negative")
	}
	if r.InitialBackoff < 0 {
		errs.Add("retry.initial_backoff", "must be non-negative")
	}
	if r.MaxBackoff < 0 {
		errs.Add("retry.max_backoff", "must be non-negative")
	}
	if r.MaxBackoff > 0 && r.InitialBackoff > r.MaxBackoff {
		errs.Add("retry.initial_backoff", "must not exceed retry.max_backoff")
	}
}

func validateGRPC(c *BenchmarkConfig, errs *ValidationErrors) {
	if c.Host == "" {
		errs.Add("host", "host is required for the grpc client")
	}

	switch c.Cred {
	case "", pool.CredInsecure, pool.CredSSL:
	case pool.CredToken:
		if c.AccessToken == "" {
			errs.Add("access_token", "access_token is required when cred is token")
		}
	default:
		errs.Add("cred", fmt.Sprintf("unknown credential mode: %s (expected insecure, ssl or token)", c.Cred))
	}

	if c.PoolSize < 0 {
		errs.Add("carg", "must be non-negative")
	}
	if c.MaxRecvMsgSize < 0 {
		errs.Add("max_recv_msg_size", "must be non-negative")
	}
}
