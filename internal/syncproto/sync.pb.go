// Package syncproto holds the wire types for the flag-sync gRPC service:
// SyncFlags (server-streaming) and FetchAllFlags (unary).
//
// These messages are hand-maintained rather than protoc-generated, to keep
// the build free of a protoc toolchain dependency for two small messages.
// Each message implements the legacy protoadapt.MessageV1 interface
// (Reset/String/ProtoMessage) plus `protobuf:"..."` struct tags, the same
// shape protoc-gen-go emitted for the golang/protobuf v1 API;
// google.golang.org/protobuf's legacy-message support derives a wire
// descriptor from those tags via reflection at runtime, so no generated
// descriptor bytes are required. The field numbers and types match the
// flagd sync.v1 service contract.
package syncproto

import (
	"fmt"

	"google.golang.org/protobuf/protoadapt"
)

var (
	_ protoadapt.MessageV1 = (*SyncFlagsRequest)(nil)
	_ protoadapt.MessageV1 = (*SyncFlagsResponse)(nil)
	_ protoadapt.MessageV1 = (*FetchAllFlagsRequest)(nil)
	_ protoadapt.MessageV1 = (*FetchAllFlagsResponse)(nil)
)

// SyncState describes how a FlagConfiguration payload should be applied by
// the receiver.
type SyncState int32

const (
	SyncStateUnspecified SyncState = 0
	// SyncStateSync carries a complete, authoritative flag configuration
	// that replaces everything the receiver currently holds.
	SyncStateSync   SyncState = 1
	SyncStateAdd    SyncState = 2
	SyncStateUpdate SyncState = 3
	SyncStateDelete SyncState = 4
	// SyncStatePing is a keep-alive payload carrying no configuration.
	SyncStatePing SyncState = 5
)

func (s SyncState) String() string {
	switch s {
	case SyncStateUnspecified:
		return "SYNC_STATE_UNSPECIFIED"
	case SyncStateSync:
		return "SYNC_STATE_SYNC"
	case SyncStateAdd:
		return "SYNC_STATE_ADD"
	case SyncStateUpdate:
		return "SYNC_STATE_UPDATE"
	case SyncStateDelete:
		return "SYNC_STATE_DELETE"
	case SyncStatePing:
		return "SYNC_STATE_PING"
	default:
		return fmt.Sprintf("SYNC_STATE_UNKNOWN(%d)", int32(s))
	}
}

// SyncFlagsRequest opens the server-streaming SyncFlags RPC.
type SyncFlagsRequest struct {
	ProviderId string `protobuf:"bytes,1,opt,name=provider_id,json=providerId,proto3" json:"provider_id,omitempty"`
	Selector   string `protobuf:"bytes,2,opt,name=selector,proto3" json:"selector,omitempty"`
}

func (m *SyncFlagsRequest) Reset()         { *m = SyncFlagsRequest{} }
func (m *SyncFlagsRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*SyncFlagsRequest) ProtoMessage()    {}

func (m *SyncFlagsRequest) GetProviderId() string {
	if m == nil {
		return ""
	}
	return m.ProviderId
}

func (m *SyncFlagsRequest) GetSelector() string {
	if m == nil {
		return ""
	}
	return m.Selector
}

// SyncFlagsResponse is one element of the SyncFlags response stream.
type SyncFlagsResponse struct {
	FlagConfiguration string            `protobuf:"bytes,1,opt,name=flag_configuration,json=flagConfiguration,proto3" json:"flag_configuration,omitempty"`
	State             SyncState         `protobuf:"varint,2,opt,name=state,proto3" json:"state,omitempty"`
	SyncContext       map[string]string `protobuf:"bytes,3,rep,name=sync_context,json=syncContext,proto3" json:"sync_context,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
}

func (m *SyncFlagsResponse) Reset()         { *m = SyncFlagsResponse{} }
func (m *SyncFlagsResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*SyncFlagsResponse) ProtoMessage()    {}

func (m *SyncFlagsResponse) GetFlagConfiguration() string {
	if m == nil {
		return ""
	}
	return m.FlagConfiguration
}

func (m *SyncFlagsResponse) GetState() SyncState {
	if m == nil {
		return SyncStateUnspecified
	}
	return m.State
}

func (m *SyncFlagsResponse) GetSyncContext() map[string]string {
	if m == nil {
		return nil
	}
	return m.SyncContext
}

// FetchAllFlagsRequest is the unary FetchAllFlags request.
type FetchAllFlagsRequest struct {
	ProviderId string `protobuf:"bytes,1,opt,name=provider_id,json=providerId,proto3" json:"provider_id,omitempty"`
	Selector   string `protobuf:"bytes,2,opt,name=selector,proto3" json:"selector,omitempty"`
}

func (m *FetchAllFlagsRequest) Reset()         { *m = FetchAllFlagsRequest{} }
func (m *FetchAllFlagsRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*FetchAllFlagsRequest) ProtoMessage()    {}

func (m *FetchAllFlagsRequest) GetProviderId() string {
	if m == nil {
		return ""
	}
	return m.ProviderId
}

func (m *FetchAllFlagsRequest) GetSelector() string {
	if m == nil {
		return ""
	}
	return m.Selector
}

// FetchAllFlagsResponse is the unary FetchAllFlags response, carrying one
// complete flag configuration document.
type FetchAllFlagsResponse struct {
	FlagConfiguration string `protobuf:"bytes,1,opt,name=flag_configuration,json=flagConfiguration,proto3" json:"flag_configuration,omitempty"`
}

func (m *FetchAllFlagsResponse) Reset()         { *m = FetchAllFlagsResponse{} }
func (m *FetchAllFlagsResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*FetchAllFlagsResponse) ProtoMessage()    {}

func (m *FetchAllFlagsResponse) GetFlagConfiguration() string {
	if m == nil {
		return ""
	}
	return m.FlagConfiguration
}
