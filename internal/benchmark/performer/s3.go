package performer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
)

// S3API is the subset of *s3.Client the S3 performer calls.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// NewS3Client builds an S3 client from the default AWS credential chain.
// A custom endpoint (MinIO, LocalStack) usually also needs path style.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// S3 performs operations through the AWS SDK. Connection reuse is left to
// the SDK's HTTP client, so pool policies do not apply.
type S3 struct {
	client  S3API
	opts    Options
	payload func() *Payload
}

func NewS3(client S3API, opts Options) *S3 {
	s := &S3{client: client, opts: opts}
	s.payload = sync.OnceValue(func() *Payload {
		size := opts.WriteSize
		if size <= 0 {
			size = config.DefaultWriteSize
		}
		return NewPayload(size)
	})
	return s
}

func (s *S3) Perform(ctx context.Context, req Request) (Result, error) {
	var res Result
	var err error

	switch req.Operation {
	case config.OpRead:
		res.Bytes, err = s.read(ctx, req.Object, s.opts.ReadOffset, s.opts.ReadLimit)
	case config.OpRandomRead:
		res.Bytes, err = s.randomRead(ctx, req.Object)
	case config.OpWrite:
		res.Bytes, err = s.write(ctx, req.Object)
	default:
		err = fmt.Errorf("unsupported operation: %s", req.Operation)
	}
	return res, err
}

func (s *S3) read(ctx context.Context, object string, offset, limit int64) (int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(object),
		Range:  byteRange(offset, limit),
	})
	if err != nil {
		return 0, err
	}
	defer out.Body.Close()

	return io.Copy(io.Discard, out.Body)
}

func (s *S3) randomRead(ctx context.Context, object string) (int64, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(object),
	})
	if err != nil {
		return 0, err
	}

	chunk := s.opts.ChunkSize
	if chunk <= 0 {
		chunk = config.DefaultChunkSize
	}
	offset := randomOffset(aws.ToInt64(head.ContentLength), chunk)
	return s.read(ctx, object, offset, chunk)
}

func (s *S3) write(ctx context.Context, object string) (int64, error) {
	data := s.payload().Bytes()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.opts.Bucket),
		Key:           aws.String(object),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *S3) Close() error { return nil }

// byteRange renders an HTTP Range header, or nil for the whole object.
func byteRange(offset, limit int64) *string {
	switch {
	case limit > 0:
		return aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+limit-1))
	case offset > 0:
		return aws.String(fmt.Sprintf("bytes=%d-", offset))
	default:
		return nil
	}
}
