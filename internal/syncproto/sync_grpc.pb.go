package syncproto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	FlagSyncServiceSyncFlagsFullMethodName     = "/flagd.sync.v1.FlagSyncService/SyncFlags"
	FlagSyncServiceFetchAllFlagsFullMethodName = "/flagd.sync.v1.FlagSyncService/FetchAllFlags"
)

// FlagSyncServiceClient is the client API for FlagSyncService, hand-authored
// in the shape protoc-gen-go-grpc would emit for a one server-streaming plus
// one unary RPC service (see sync.pb.go's package doc for why it's
// hand-authored rather than generated).
type FlagSyncServiceClient interface {
	SyncFlags(ctx context.Context, in *SyncFlagsRequest, opts ...grpc.CallOption) (FlagSyncService_SyncFlagsClient, error)
	FetchAllFlags(ctx context.Context, in *FetchAllFlagsRequest, opts ...grpc.CallOption) (*FetchAllFlagsResponse, error)
}

type flagSyncServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewFlagSyncServiceClient(cc grpc.ClientConnInterface) FlagSyncServiceClient {
	return &flagSyncServiceClient{cc}
}

func (c *flagSyncServiceClient) SyncFlags(ctx context.Context, in *SyncFlagsRequest, opts ...grpc.CallOption) (FlagSyncService_SyncFlagsClient, error) {
	stream, err := c.cc.NewStream(ctx, &flagSyncServiceServiceDesc.Streams[0], FlagSyncServiceSyncFlagsFullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &flagSyncServiceSyncFlagsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// FlagSyncService_SyncFlagsClient is the stream handle returned by the
// client-side SyncFlags call.
type FlagSyncService_SyncFlagsClient interface {
	Recv() (*SyncFlagsResponse, error)
	grpc.ClientStream
}

type flagSyncServiceSyncFlagsClient struct {
	grpc.ClientStream
}

func (x *flagSyncServiceSyncFlagsClient) Recv() (*SyncFlagsResponse, error) {
	m := new(SyncFlagsResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *flagSyncServiceClient) FetchAllFlags(ctx context.Context, in *FetchAllFlagsRequest, opts ...grpc.CallOption) (*FetchAllFlagsResponse, error) {
	out := new(FetchAllFlagsResponse)
	if err := c.cc.Invoke(ctx, FlagSyncServiceFetchAllFlagsFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// FlagSyncServiceServer is the server API for FlagSyncService.
type FlagSyncServiceServer interface {
	SyncFlags(*SyncFlagsRequest, FlagSyncService_SyncFlagsServer) error
	FetchAllFlags(context.Context, *FetchAllFlagsRequest) (*FetchAllFlagsResponse, error)
	mustEmbedUnimplementedFlagSyncServiceServer()
}

// UnimplementedFlagSyncServiceServer must be embedded by server
// implementations for forward compatibility.
type UnimplementedFlagSyncServiceServer struct{}

func (UnimplementedFlagSyncServiceServer) SyncFlags(*SyncFlagsRequest, FlagSyncService_SyncFlagsServer) error {
	return status.Error(codes.Unimplemented, "method SyncFlags not implemented")
}

func (UnimplementedFlagSyncServiceServer) FetchAllFlags(context.Context, *FetchAllFlagsRequest) (*FetchAllFlagsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method FetchAllFlags not implemented")
}

func (UnimplementedFlagSyncServiceServer) mustEmbedUnimplementedFlagSyncServiceServer() {}

// RegisterFlagSyncServiceServer registers srv with s.
func RegisterFlagSyncServiceServer(s grpc.ServiceRegistrar, srv FlagSyncServiceServer) {
	s.RegisterService(&flagSyncServiceServiceDesc, srv)
}

func _FlagSyncService_SyncFlags_Handler(srv any, stream grpc.ServerStream) error {
	m := new(SyncFlagsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(FlagSyncServiceServer).SyncFlags(m, &flagSyncServiceSyncFlagsServer{stream})
}

// FlagSyncService_SyncFlagsServer is the stream handle passed to the
// server-side SyncFlags implementation.
type FlagSyncService_SyncFlagsServer interface {
	Send(*SyncFlagsResponse) error
	grpc.ServerStream
}

type flagSyncServiceSyncFlagsServer struct {
	grpc.ServerStream
}

func (x *flagSyncServiceSyncFlagsServer) Send(m *SyncFlagsResponse) error {
	return x.ServerStream.SendMsg(m)
}

func _FlagSyncService_FetchAllFlags_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FetchAllFlagsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlagSyncServiceServer).FetchAllFlags(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FlagSyncServiceFetchAllFlagsFullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FlagSyncServiceServer).FetchAllFlags(ctx, req.(*FetchAllFlagsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var flagSyncServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: "flagd.sync.v1.FlagSyncService",
	HandlerType: (*FlagSyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "FetchAllFlags",
			Handler:    _FlagSyncService_FetchAllFlags_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SyncFlags",
			Handler:       _FlagSyncService_SyncFlags_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "sync/v1/sync.proto",
}
