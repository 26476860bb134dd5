package performer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/stormbench/internal/benchmark/config"
	"github.com/wesleyorama2/stormbench/internal/benchmark/metrics"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	ranges  []string
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	}
	f.ranges = append(f.ranges, aws.ToString(in.Range))

	var start, end int64 = 0, int64(len(data)) - 1
	if in.Range != nil {
		var parsedEnd int64 = -1
		n, _ := fmt.Sscanf(aws.ToString(in.Range), "bytes=%d-%d", &start, &parsedEnd)
		if n == 2 && parsedEnd < end {
			end = parsedEnd
		}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data[start : end+1]))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func TestS3_Read(t *testing.T) {
	fake := newFakeS3()
	fake.objects["obj"] = make([]byte, 2048)
	p := NewS3(fake, Options{Bucket: "bench"})

	res, err := p.Perform(context.Background(), Request{Operation: config.OpRead, Object: "obj"})
	require.NoError(t, err)
	assert.Equal(t, int64(2048), res.Bytes)
	assert.Equal(t, "", fake.ranges[0])

	p = NewS3(fake, Options{Bucket: "bench", ReadOffset: 48, ReadLimit: 1000})
	res, err = p.Perform(context.Background(), Request{Operation: config.OpRead, Object: "obj"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.Bytes)
	assert.Equal(t, "bytes=48-1047", fake.ranges[1])
}

func TestS3_RandomRead(t *testing.T) {
	fake := newFakeS3()
	fake.objects["obj"] = make([]byte, 4096)
	p := NewS3(fake, Options{Bucket: "bench", ChunkSize: 512})

	for i := 0; i < 10; i++ {
		res, err := p.Perform(context.Background(), Request{Operation: config.OpRandomRead, Object: "obj"})
		require.NoError(t, err)
		assert.Equal(t, int64(512), res.Bytes)
	}
}

func TestS3_Write(t *testing.T) {
	fake := newFakeS3()
	p := NewS3(fake, Options{Bucket: "bench", WriteSize: 777})

	res, err := p.Perform(context.Background(), Request{Operation: config.OpWrite, Object: "new"})
	require.NoError(t, err)
	assert.Equal(t, int64(777), res.Bytes)
	assert.Len(t, fake.objects["new"], 777)
}

func TestS3_ErrorClassification(t *testing.T) {
	fake := newFakeS3()
	p := NewS3(fake, Options{Bucket: "bench"})

	_, err := p.Perform(context.Background(), Request{Operation: config.OpRead, Object: "missing"})
	class, code := Classify(err)
	assert.Equal(t, metrics.ClassPermanent, class)
	assert.Equal(t, "NoSuchKey", code)

	fake.err = context.DeadlineExceeded
	_, err = p.Perform(context.Background(), Request{Operation: config.OpRead, Object: "missing"})
	class, _ = Classify(err)
	assert.Equal(t, metrics.ClassTransient, class)

	fake.err = errors.New("boom")
	_, err = p.Perform(context.Background(), Request{Operation: config.OpRead, Object: "x"})
	class, code = Classify(err)
	assert.Equal(t, metrics.ClassPermanent, class)
	assert.Equal(t, "Unknown", code)
}

func TestByteRange(t *testing.T) {
	tests := []struct {
		offset, limit int64
		want          string
	}{
		{0, 0, ""},
		{10, 0, "bytes=10-"},
		{0, 100, "bytes=0-99"},
		{5, 5, "bytes=5-9"},
	}
	for _, tt := range tests {
		if got := aws.ToString(byteRange(tt.offset, tt.limit)); got != tt.want {
			t.Errorf("byteRange(%d, %d) = %q, want %q", tt.offset, tt.limit, got, tt.want)
		}
	}
}
