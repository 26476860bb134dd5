package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ObjectInfo is the metadata returned by GetObject and WriteObject.
type ObjectInfo struct {
	Bucket string
	Name   string
	Size   int64
}

// ReadRequest selects a byte range of an object. A zero Limit reads to the
// end of the object.
type ReadRequest struct {
	Bucket string
	Object string
	Offset int64
	Limit  int64
}

// Client issues storage calls over any gRPC connection.
type Client struct {
	cc   grpc.ClientConnInterface
	opts []grpc.CallOption
}

// NewClient returns a client whose calls all carry opts.
func NewClient(cc grpc.ClientConnInterface, opts ...grpc.CallOption) *Client {
	return &Client{cc: cc, opts: opts}
}

func (c *Client) callOpts(extra []grpc.CallOption) []grpc.CallOption {
	if len(extra) == 0 {
		return c.opts
	}
	out := make([]grpc.CallOption, 0, len(c.opts)+len(extra))
	out = append(out, c.opts...)
	return append(out, extra...)
}

// GetObject fetches object metadata.
func (c *Client) GetObject(ctx context.Context, bucket, name string, opts ...grpc.CallOption) (ObjectInfo, error) {
	req, err := structpb.NewStruct(map[string]any{
		fieldBucket: bucket,
		fieldObject: name,
	})
	if err != nil {
		return ObjectInfo{}, err
	}

	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getObjectMethod, req, resp, c.callOpts(opts)...); err != nil {
		return ObjectInfo{}, err
	}
	return infoFromStruct(resp), nil
}

// ReadObject streams the requested range, calling onChunk with each data
// message as it arrives. It returns the number of bytes received, which is
// meaningful even when err is non-nil.
func (c *Client) ReadObject(ctx context.Context, r ReadRequest, onChunk func([]byte), opts ...grpc.CallOption) (int64, error) {
	req, err := structpb.NewStruct(map[string]any{
		fieldBucket:     r.Bucket,
		fieldObject:     r.Object,
		fieldReadOffset: float64(r.Offset),
		fieldReadLimit:  float64(r.Limit),
	})
	if err != nil {
		return 0, err
	}

	stream, err := c.cc.NewStream(ctx, readStreamDesc, readObjectMethod, c.callOpts(opts)...)
	if err != nil {
		return 0, err
	}
	if err := stream.SendMsg(req); err != nil {
		return 0, err
	}
	if err := stream.CloseSend(); err != nil {
		return 0, err
	}

	var total int64
	for {
		chunk := new(wrapperspb.BytesValue)
		if err := stream.RecvMsg(chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, err
		}
		total += int64(len(chunk.GetValue()))
		if onChunk != nil {
			onChunk(chunk.GetValue())
		}
	}
}

// WriteObject uploads data as a stream of chunkSize messages and returns
// the stored object's metadata.
func (c *Client) WriteObject(ctx context.Context, bucket, name string, data []byte, chunkSize int, opts ...grpc.CallOption) (ObjectInfo, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	ctx = metadata.AppendToOutgoingContext(ctx, bucketKey, bucket, objectKey, name)
	stream, err := c.cc.NewStream(ctx, writeStreamDesc, writeObjectMethod, c.callOpts(opts)...)
	if err != nil {
		return ObjectInfo{}, err
	}

	for off := 0; off < len(data); off += chunkSize {
		end := min(off+chunkSize, len(data))
		if err := stream.SendMsg(wrapperspb.Bytes(data[off:end])); err != nil {
			// io.EOF means the server ended the stream; its status comes
			// from RecvMsg below.
			if errors.Is(err, io.EOF) {
				break
			}
			return ObjectInfo{}, err
		}
	}
	if err := stream.CloseSend(); err != nil {
		return ObjectInfo{}, err
	}

	resp := new(structpb.Struct)
	if err := stream.RecvMsg(resp); err != nil {
		return ObjectInfo{}, err
	}
	return infoFromStruct(resp), nil
}

func infoFromStruct(s *structpb.Struct) ObjectInfo {
	f := s.GetFields()
	return ObjectInfo{
		Bucket: f[fieldBucket].GetStringValue(),
		Name:   f[fieldObject].GetStringValue(),
		Size:   int64(f[fieldSize].GetNumberValue()),
	}
}

func infoToStruct(info ObjectInfo) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldBucket: structpb.NewStringValue(info.Bucket),
		fieldObject: structpb.NewStringValue(info.Name),
		fieldSize:   structpb.NewNumberValue(float64(info.Size)),
	}}
}

func (i ObjectInfo) String() string {
	return fmt.Sprintf("%s/%s (%d bytes)", i.Bucket, i.Name, i.Size)
}
