// Package evalproto holds the wire types for the remote evaluation gRPC
// service consumed by the Remote-RPC resolver mode: one Resolve request per
// typed resolver, sharing a single request/response pair since the wire
// payload differs only by which field of the JSON-encoded value is
// meaningful, plus a server-streaming EventStream for change notification.
//
// Hand-maintained for the same reason as internal/syncproto (see that
// package's doc comment): these messages implement protoadapt.MessageV1
// directly rather than carrying a generated ProtoReflect() descriptor.
package evalproto

import (
	"fmt"

	"google.golang.org/protobuf/protoadapt"
)

var (
	_ protoadapt.MessageV1 = (*ResolveRequest)(nil)
	_ protoadapt.MessageV1 = (*ResolveResponse)(nil)
	_ protoadapt.MessageV1 = (*EventStreamRequest)(nil)
	_ protoadapt.MessageV1 = (*Event)(nil)
)

// ResolveRequest carries a flag key and a JSON-encoded evaluation context,
// common to every typed Resolve* RPC.
type ResolveRequest struct {
	FlagKey     string `protobuf:"bytes,1,opt,name=flag_key,json=flagKey,proto3" json:"flag_key,omitempty"`
	ContextJson []byte `protobuf:"bytes,2,opt,name=context_json,json=contextJson,proto3" json:"context_json,omitempty"`
}

func (m *ResolveRequest) Reset()         { *m = ResolveRequest{} }
func (m *ResolveRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*ResolveRequest) ProtoMessage()    {}

// ResolveResponse carries the JSON-encoded resolved value plus the
// resolution metadata common to every typed Resolve* RPC.
type ResolveResponse struct {
	ValueJson []byte            `protobuf:"bytes,1,opt,name=value_json,json=valueJson,proto3" json:"value_json,omitempty"`
	Variant   string            `protobuf:"bytes,2,opt,name=variant,proto3" json:"variant,omitempty"`
	Reason    string            `protobuf:"bytes,3,opt,name=reason,proto3" json:"reason,omitempty"`
	ErrorCode string            `protobuf:"bytes,4,opt,name=error_code,json=errorCode,proto3" json:"error_code,omitempty"`
	Metadata  map[string]string `protobuf:"bytes,5,rep,name=metadata,proto3" json:"metadata,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
}

func (m *ResolveResponse) Reset()         { *m = ResolveResponse{} }
func (m *ResolveResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*ResolveResponse) ProtoMessage()    {}

// EventStreamRequest opens the configuration-change notification stream.
type EventStreamRequest struct {
	ProviderId string `protobuf:"bytes,1,opt,name=provider_id,json=providerId,proto3" json:"provider_id,omitempty"`
}

func (m *EventStreamRequest) Reset()         { *m = EventStreamRequest{} }
func (m *EventStreamRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*EventStreamRequest) ProtoMessage()    {}

// Event notifies the client that one or more flag keys changed upstream.
type Event struct {
	FlagsChanged []string `protobuf:"bytes,1,rep,name=flags_changed,json=flagsChanged,proto3" json:"flags_changed,omitempty"`
}

func (m *Event) Reset()         { *m = Event{} }
func (m *Event) String() string { return fmt.Sprintf("%+v", *m) }
func (*Event) ProtoMessage()    {}
