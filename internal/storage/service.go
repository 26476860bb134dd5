// Package storage defines the gRPC surface of the object-storage service
// exercised by stormbench, a client for it, and an in-memory server.
//
// Messages use protobuf well-known types so no generated code is needed:
// requests and object metadata travel as structpb.Struct, object data as a
// stream of wrapperspb.BytesValue chunks.
package storage

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "stormbench.storage.v1.Storage"

const (
	getObjectMethod   = "/" + ServiceName + "/GetObject"
	readObjectMethod  = "/" + ServiceName + "/ReadObject"
	writeObjectMethod = "/" + ServiceName + "/WriteObject"
)

// Metadata keys carrying the target of a WriteObject stream.
const (
	bucketKey = "x-storage-bucket"
	objectKey = "x-storage-object"
)

// Request struct field names.
const (
	fieldBucket     = "bucket"
	fieldObject     = "object"
	fieldSize       = "size"
	fieldReadOffset = "read_offset"
	fieldReadLimit  = "read_limit"
)

// DefaultChunkSize is the size of each data message on the wire.
const DefaultChunkSize = 2 * 1024 * 1024

// Server is the handler set behind ServiceDesc.
type Server interface {
	GetObject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReadObject(*structpb.Struct, grpc.ServerStream) error
	WriteObject(grpc.ServerStream) error
}

// ServiceDesc describes the storage service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetObject", Handler: getObjectHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ReadObject", Handler: readObjectHandler, ServerStreams: true},
		{StreamName: "WriteObject", Handler: writeObjectHandler, ClientStreams: true},
	},
	Metadata: "stormbench/storage/v1/storage.proto",
}

var (
	readStreamDesc  = &ServiceDesc.Streams[0]
	writeStreamDesc = &ServiceDesc.Streams[1]
)

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}

func getObjectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).GetObject(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getObjectMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).GetObject(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func readObjectHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(Server).ReadObject(in, stream)
}

func writeObjectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(Server).WriteObject(stream)
}
