// Package syncgrpc implements a gRPC streaming sync.Connector against the
// flagd sync.v1 FlagSyncService's server-streaming SyncFlags RPC. The client
// stub in internal/syncproto also covers the service's unary FetchAllFlags
// RPC for callers that want a one-shot fetch without a connector.
//
// Reconnection uses a fixed initial delay, doubling on each consecutive
// failure up to a cap. The delay and the failure count go back to their
// initial values only after the server closes a stream cleanly; a stream
// that delivers payloads and then ends in an error does not reset them.
// Init fails fast once the consecutive-failure count reaches the configured
// grace period, rather than retrying forever in the foreground.
package syncgrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/google/uuid"

	syncpkg "github.com/matt-riley/flagdgo/internal/sync"
	"github.com/matt-riley/flagdgo/internal/syncproto"
)

// Config configures a Connector.
type Config struct {
	// Target is the dial target (host:port), already resolved from the
	// upstream URI translation in internal/upstream.
	Target string
	// Authority overrides the ":authority" pseudo-header, for envoy-style
	// targets where the dial address and the logical service name differ.
	Authority string
	Selector  string

	TLS            bool
	TransportCreds credentials.TransportCredentials // overrides TLS/insecure when set
	// StreamDeadline is the HTTP/2 keep-alive ping interval; <= 0 disables
	// keep-alive pings entirely.
	StreamDeadline   time.Duration
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	RetryGracePeriod int // consecutive failures after which Init gives up

	// ExtraDialOptions is appended after the standard options; tests use it
	// to inject a bufconn dialer in place of a real network dial.
	ExtraDialOptions []grpc.DialOption

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.RetryBackoffMax <= 0 {
		c.RetryBackoffMax = 120 * time.Second
	}
	if c.RetryGracePeriod <= 0 {
		c.RetryGracePeriod = 5
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Connector is a sync.Connector backed by a gRPC stream.
type Connector struct {
	cfg        Config
	providerID string

	conn *grpc.ClientConn

	payloads chan syncpkg.Payload

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

var _ syncpkg.Connector = (*Connector)(nil)

// New builds a Connector. Dial happens in Init.
func New(cfg Config) *Connector {
	cfg = cfg.withDefaults()
	return &Connector{
		cfg:        cfg,
		providerID: uuid.NewString(),
		payloads:   make(chan syncpkg.Payload, 1000),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Init dials the target and blocks until either the first payload has been
// received or the retry grace period has been exhausted.
func (c *Connector) Init(ctx context.Context) error {
	creds := c.cfg.TransportCreds
	if creds == nil {
		if c.cfg.TLS {
			creds = credentials.NewTLS(nil)
		} else {
			creds = insecure.NewCredentials()
		}
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	if c.cfg.StreamDeadline > 0 {
		dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                c.cfg.StreamDeadline,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}))
	}
	if c.cfg.Authority != "" {
		dialOpts = append(dialOpts, grpc.WithAuthority(c.cfg.Authority))
	}
	dialOpts = append(dialOpts, c.cfg.ExtraDialOptions...)

	conn, err := grpc.NewClient(c.cfg.Target, dialOpts...)
	if err != nil {
		return fmt.Errorf("syncgrpc: dial %s: %w", c.cfg.Target, err)
	}
	c.conn = conn

	first := make(chan error, 1)
	go c.run(first)

	select {
	case err := <-first:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Payloads returns the channel of sync payloads.
func (c *Connector) Payloads() <-chan syncpkg.Payload {
	return c.payloads
}

// Shutdown stops the reconnect loop and closes the underlying connection.
func (c *Connector) Shutdown() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// run owns the reconnect loop; it reports the outcome of the first connect
// attempt on first, then keeps reconnecting with backoff until Shutdown.
func (c *Connector) run(first chan<- error) {
	defer close(c.done)

	client := syncproto.NewFlagSyncServiceClient(c.conn)
	backoff := c.cfg.RetryBackoff
	consecutiveFailures := 0
	reportedFirst := false

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		streamCtx, cancel := context.WithCancel(context.Background())
		// Shutdown cancels the stream so that a Recv blocked in drain returns.
		go func() {
			select {
			case <-c.stop:
				cancel()
			case <-streamCtx.Done():
			}
		}()
		stream, err := client.SyncFlags(streamCtx, &syncproto.SyncFlagsRequest{
			ProviderId: c.providerID,
			Selector:   c.cfg.Selector,
		})
		if err != nil {
			cancel()
			consecutiveFailures++
			c.cfg.Logger.Warn("syncgrpc: stream open failed", "error", err, "attempt", consecutiveFailures)
			if !reportedFirst && consecutiveFailures >= c.cfg.RetryGracePeriod {
				first <- fmt.Errorf("syncgrpc: exceeded retry grace period: %w", err)
				reportedFirst = true
			}
			if c.sleepOrStop(backoff) {
				cancel()
				return
			}
			backoff = nextBackoff(backoff, c.cfg.RetryBackoffMax)
			continue
		}

		streamErr := c.drain(stream, &reportedFirst, first)
		cancel()
		select {
		case <-c.stop:
			return
		default:
		}

		if streamErr == nil {
			// Clean EOF: server closed the stream deliberately; treat as
			// transient and reconnect with the backoff reset, since the
			// connection itself succeeded.
			backoff = c.cfg.RetryBackoff
			consecutiveFailures = 0
			if c.sleepOrStop(backoff) {
				return
			}
			continue
		}

		consecutiveFailures++
		c.cfg.Logger.Warn("syncgrpc: stream terminated", "error", streamErr, "attempt", consecutiveFailures)
		c.emit(syncpkg.Payload{Kind: syncpkg.PayloadError, Metadata: map[string]any{"error": streamErr.Error()}})
		if !reportedFirst && consecutiveFailures >= c.cfg.RetryGracePeriod {
			first <- fmt.Errorf("syncgrpc: exceeded retry grace period: %w", streamErr)
			reportedFirst = true
		}
		if c.sleepOrStop(backoff) {
			return
		}
		backoff = nextBackoff(backoff, c.cfg.RetryBackoffMax)
	}
}

// drain reads SyncFlagsResponse messages off stream until it ends or errors,
// emitting a Payload per non-PING message and reporting the first successful
// receive on first. It leaves the reconnect backoff untouched.
func (c *Connector) drain(stream syncproto.FlagSyncService_SyncFlagsClient, reportedFirst *bool, first chan<- error) error {
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if resp.State == syncproto.SyncStatePing {
			continue
		}

		// Every non-PING state is treated as an authoritative, full
		// replacement: flagd never sends incremental ADD/UPDATE/DELETE
		// deltas to in-process providers in practice, and this provider
		// does not attempt to reconstruct one from the state tag.
		meta := make(map[string]any, len(resp.SyncContext))
		for k, v := range resp.SyncContext {
			meta[k] = v
		}
		c.emit(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: resp.FlagConfiguration, Metadata: meta})

		if !*reportedFirst {
			first <- nil
			*reportedFirst = true
		}
	}
}

func (c *Connector) emit(p syncpkg.Payload) {
	select {
	case c.payloads <- p:
	case <-c.stop:
	}
}

// sleepOrStop waits for d, returning true if Shutdown fired in the meantime.
func (c *Connector) sleepOrStop(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-c.stop:
		return true
	}
}

func nextBackoff(current, cap time.Duration) time.Duration {
	next := current * 2
	if next > cap {
		return cap
	}
	return next
}
