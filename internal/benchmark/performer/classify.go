package performer

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
	"github.com/wesleyorama2/stormbench/internal/benchmark/pool"
)

// StatusCode maps an attempt error to the transport status reported to the
// pool policy. Context errors map to their gRPC equivalents.
func StatusCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Unknown
}

// Classify returns the outcome class and error code of a failed attempt.
func Classify(err error) (metrics.Class, string) {
	var setup *pool.SetupError
	if errors.As(err, &setup) {
		return metrics.ClassSetup, "SETUP"
	}

	code := StatusCode(err)
	if code == codes.Canceled || code == codes.DeadlineExceeded {
		return metrics.ClassTransient, code.String()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return metrics.ClassPermanent, apiErr.ErrorCode()
	}
	return metrics.ClassPermanent, code.String()
}
