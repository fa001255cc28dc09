// Package sync defines the connector contract shared by every sync
// transport (gRPC streaming, file watch): Init/Payloads/Shutdown, plus the
// Payload shape the applier actor consumes.
package sync

import "context"

// PayloadKind distinguishes a configuration payload from an error
// notification on the same channel.
type PayloadKind int

const (
	PayloadData PayloadKind = iota
	PayloadError
)

// Payload is one unit of sync output: either a complete flag-configuration
// document (Data) or a connector-level failure (Error).
type Payload struct {
	Kind     PayloadKind
	Body     string
	Metadata map[string]any
}

// Connector is implemented by every sync transport. Init must not return
// until the first payload has been observed (successfully or not); after
// that, payloads are delivered in order over the channel Payloads returns.
type Connector interface {
	Init(ctx context.Context) error
	Payloads() <-chan Payload
	Shutdown() error
}
