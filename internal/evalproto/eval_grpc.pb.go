// Client-only: this module consumes the remote evaluation service (see
// eval.pb.go's doc comment), so only the client stub and the stream
// descriptor NewStream needs are maintained here. No server implementation
// of this service ships in this module.

package evalproto

import (
	"context"

	"google.golang.org/grpc"
)

const (
	evaluationServicePrefix = "/flagd.evaluation.v1.Service/"

	EvaluationServiceResolveBooleanFullMethodName = evaluationServicePrefix + "ResolveBoolean"
	EvaluationServiceResolveStringFullMethodName  = evaluationServicePrefix + "ResolveString"
	EvaluationServiceResolveFloatFullMethodName   = evaluationServicePrefix + "ResolveFloat"
	EvaluationServiceResolveIntFullMethodName     = evaluationServicePrefix + "ResolveInt"
	EvaluationServiceResolveObjectFullMethodName  = evaluationServicePrefix + "ResolveObject"
	EvaluationServiceEventStreamFullMethodName    = evaluationServicePrefix + "EventStream"
)

var evaluationServiceEventStreamDesc = grpc.StreamDesc{
	StreamName:    "EventStream",
	ServerStreams: true,
}

// EvaluationServiceClient is the client API for the remote evaluation
// service: one unary RPC per typed resolver, plus a server-streaming
// change-notification feed.
type EvaluationServiceClient interface {
	ResolveBoolean(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error)
	ResolveString(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error)
	ResolveFloat(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error)
	ResolveInt(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error)
	ResolveObject(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error)
	EventStream(ctx context.Context, in *EventStreamRequest, opts ...grpc.CallOption) (EvaluationService_EventStreamClient, error)
}

type evaluationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewEvaluationServiceClient(cc grpc.ClientConnInterface) EvaluationServiceClient {
	return &evaluationServiceClient{cc}
}

func (c *evaluationServiceClient) resolve(ctx context.Context, method string, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	out := new(ResolveResponse)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *evaluationServiceClient) ResolveBoolean(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	return c.resolve(ctx, EvaluationServiceResolveBooleanFullMethodName, in, opts...)
}

func (c *evaluationServiceClient) ResolveString(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	return c.resolve(ctx, EvaluationServiceResolveStringFullMethodName, in, opts...)
}

func (c *evaluationServiceClient) ResolveFloat(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	return c.resolve(ctx, EvaluationServiceResolveFloatFullMethodName, in, opts...)
}

func (c *evaluationServiceClient) ResolveInt(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	return c.resolve(ctx, EvaluationServiceResolveIntFullMethodName, in, opts...)
}

func (c *evaluationServiceClient) ResolveObject(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	return c.resolve(ctx, EvaluationServiceResolveObjectFullMethodName, in, opts...)
}

func (c *evaluationServiceClient) EventStream(ctx context.Context, in *EventStreamRequest, opts ...grpc.CallOption) (EvaluationService_EventStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &evaluationServiceEventStreamDesc, EvaluationServiceEventStreamFullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &evaluationServiceEventStreamClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// EvaluationService_EventStreamClient is the stream handle returned by
// EventStream.
type EvaluationService_EventStreamClient interface {
	Recv() (*Event, error)
	grpc.ClientStream
}

type evaluationServiceEventStreamClient struct {
	grpc.ClientStream
}

func (x *evaluationServiceEventStreamClient) Recv() (*Event, error) {
	m := new(Event)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
