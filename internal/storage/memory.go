package storage

import (
	"context"
	"errors"
	"io"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Method names passed to a FaultFunc.
const (
	MethodGetObject   = "GetObject"
	MethodReadObject  = "ReadObject"
	MethodWriteObject = "WriteObject"
)

// FaultFunc lets callers inject failures. A non-nil return is sent to the
// client as the call's status instead of serving it.
type FaultFunc func(method, bucket, object string) error

// MemoryServer keeps objects in a map. It backs `stormbench serve` and the
// end-to-end tests.
type MemoryServer struct {
	// ChunkSize is the size of each ReadObject data message.
	ChunkSize int

	mu      sync.RWMutex
	objects map[string][]byte
	fault   FaultFunc
}

// NewMemoryServer returns an empty server.
func NewMemoryServer() *MemoryServer {
	return &MemoryServer{
		ChunkSize: DefaultChunkSize,
		objects:   make(map[string][]byte),
	}
}

func objectKeyOf(bucket, name string) string {
	return bucket + "/" + name
}

// Put stores data under bucket/name, replacing any existing object.
func (s *MemoryServer) Put(bucket, name string, data []byte) {
	s.mu.Lock()
	s.objects[objectKeyOf(bucket, name)] = data
	s.mu.Unlock()
}

// Object returns the stored bytes of bucket/name.
func (s *MemoryServer) Object(bucket, name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectKeyOf(bucket, name)]
	return data, ok
}

// Len returns the number of stored objects.
func (s *MemoryServer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// SetFault installs f, or clears fault injection when f is nil.
func (s *MemoryServer) SetFault(f FaultFunc) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

func (s *MemoryServer) checkFault(method, bucket, object string) error {
	s.mu.RLock()
	f := s.fault
	s.mu.RUnlock()
	if f == nil {
		return nil
	}
	return f(method, bucket, object)
}

func (s *MemoryServer) GetObject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	bucket, name := target(req)
	if err := s.checkFault(MethodGetObject, bucket, name); err != nil {
		return nil, err
	}

	data, ok := s.Object(bucket, name)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "object %s/%s not found", bucket, name)
	}
	return infoToStruct(ObjectInfo{Bucket: bucket, Name: name, Size: int64(len(data))}), nil
}

func (s *MemoryServer) ReadObject(req *structpb.Struct, stream grpc.ServerStream) error {
	bucket, name := target(req)
	if err := s.checkFault(MethodReadObject, bucket, name); err != nil {
		return err
	}

	data, ok := s.Object(bucket, name)
	if !ok {
		return status.Errorf(codes.NotFound, "object %s/%s not found", bucket, name)
	}

	fields := req.GetFields()
	offset := int64(fields[fieldReadOffset].GetNumberValue())
	limit := int64(fields[fieldReadLimit].GetNumberValue())
	size := int64(len(data))

	if offset < 0 || offset > size {
		return status.Errorf(codes.OutOfRange, "read offset %d outside object of %d bytes", offset, size)
	}
	end := size
	if limit > 0 && offset+limit < size {
		end = offset + limit
	}

	chunk := int64(s.ChunkSize)
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	for off := offset; off < end; off += chunk {
		if err := stream.Context().Err(); err != nil {
			return status.FromContextError(err).Err()
		}
		stop := min(off+chunk, end)
		if err := stream.SendMsg(wrapperspb.Bytes(data[off:stop])); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryServer) WriteObject(stream grpc.ServerStream) error {
	md, _ := metadata.FromIncomingContext(stream.Context())
	bucket := first(md.Get(bucketKey))
	name := first(md.Get(objectKey))
	if name == "" {
		return status.Error(codes.InvalidArgument, "object name is required")
	}
	if err := s.checkFault(MethodWriteObject, bucket, name); err != nil {
		return err
	}

	var data []byte
	for {
		chunk := new(wrapperspb.BytesValue)
		err := stream.RecvMsg(chunk)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		data = append(data, chunk.GetValue()...)
	}

	s.Put(bucket, name, data)
	return stream.SendMsg(infoToStruct(ObjectInfo{Bucket: bucket, Name: name, Size: int64(len(data))}))
}

func target(req *structpb.Struct) (bucket, name string) {
	f := req.GetFields()
	return f[fieldBucket].GetStringValue(), f[fieldObject].GetStringValue()
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
