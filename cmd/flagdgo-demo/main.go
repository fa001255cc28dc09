// Package main is the entry point for the flagdgo demo binary.
//
// The bootstrap sequence is:
//  1. Load configuration from FLAGD_* environment variables.
//  2. Build the resolver selected by FLAGD_RESOLVER (in-process sync over
//     gRPC or file, or a thin remote-RPC/REST adapter).
//  3. Start the HTTP server exposing /healthz, /metrics, and a small
//     /evaluate/{type}/{key} endpoint over the chosen resolver.
//  4. Wait for SIGINT/SIGTERM, then gracefully shut down.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"google.golang.org/grpc/credentials"

	"github.com/matt-riley/flagdgo/internal/cache"
	"github.com/matt-riley/flagdgo/internal/config"
	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/logging"
	"github.com/matt-riley/flagdgo/internal/metrics"
	"github.com/matt-riley/flagdgo/internal/resolver"
	"github.com/matt-riley/flagdgo/internal/resolver/remoterest"
	"github.com/matt-riley/flagdgo/internal/resolver/remoterpc"
	syncpkg "github.com/matt-riley/flagdgo/internal/sync"
	"github.com/matt-riley/flagdgo/internal/sync/syncfile"
	"github.com/matt-riley/flagdgo/internal/sync/syncgrpc"
	"github.com/matt-riley/flagdgo/internal/upstream"
	"github.com/matt-riley/flagdgo/provider"
)

const (
	shutdownTimeout       = 10 * time.Second
	httpReadHeaderTimeout = 5 * time.Second
	httpReadTimeout       = 30 * time.Second
	httpIdleTimeout       = 2 * time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Printf("flagdgo-demo failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogLevel)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, closeResolver, err := buildResolver(ctx, cfg, logger, m)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}
	defer closeResolver()

	var ready atomic.Bool
	ready.Store(true)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /evaluate/{type}/{key}", evaluateHandler(res))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ReadTimeout:       httpReadTimeout,
		IdleTimeout:       httpIdleTimeout,
	}

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", httpServer.Addr, err)
	}
	defer listener.Close()

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("serve HTTP: %w", err)
		}
	}()

	logger.Info("flagdgo-demo listening", "addr", httpServer.Addr, "resolver", cfg.Resolver)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serveErrCh:
	}
	stop()
	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		if serveErr != nil {
			return serveErr
		}
		return fmt.Errorf("shutdown HTTP: %w", err)
	}

	return serveErr
}

// evaluateHandler resolves one flag over HTTP: the path names the resolver
// shape and flag key, the body optionally carries a targeting key and
// context fields.
func evaluateHandler(res resolver.Resolver) http.HandlerFunc {
	type request struct {
		TargetingKey string         `json:"targetingKey"`
		Context      map[string]any `json:"context"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		ctx := flagmodel.EvaluationContext{TargetingKey: req.TargetingKey, Fields: req.Context}
		key := r.PathValue("key")

		switch r.PathValue("type") {
		case "boolean":
			writeDetails(w, res.ResolveBool(key, ctx))
		case "int":
			writeDetails(w, res.ResolveInt64(key, ctx))
		case "float":
			writeDetails(w, res.ResolveFloat64(key, ctx))
		case "string":
			writeDetails(w, res.ResolveString(key, ctx))
		case "object":
			writeDetails(w, res.ResolveObject(key, ctx))
		default:
			http.Error(w, "unknown flag type", http.StatusNotFound)
		}
	}
}

func writeDetails[T any](w http.ResponseWriter, d flagmodel.ResolutionDetails[T]) {
	resp := struct {
		Value        T              `json:"value"`
		Variant      string         `json:"variant,omitempty"`
		Reason       string         `json:"reason"`
		ErrorCode    string         `json:"errorCode,omitempty"`
		ErrorDetails string         `json:"errorDetails,omitempty"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{d.Value, d.Variant, string(d.Reason), string(d.ErrorCode), d.ErrorMessage, d.FlagMetadata}
	w.Header().Set("Content-Type", "application/json")
	if d.ErrorCode == flagmodel.ErrorFlagNotFound {
		w.WriteHeader(http.StatusNotFound)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// buildResolver wires the resolver.Resolver selected by cfg.Resolver,
// returning a shutdown func that releases any background goroutines or
// connections it opened.
func buildResolver(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (resolver.Resolver, func(), error) {
	creds, err := transportCreds(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load server certificate: %w", err)
	}

	switch cfg.Resolver {
	case config.ResolverInProcess:
		endpoint, err := upstream.Build(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve upstream target: %w", err)
		}
		connector := syncgrpc.New(syncgrpc.Config{
			Target:           endpoint.DialTarget(),
			Authority:        endpoint.Authority,
			Selector:         cfg.Selector,
			TLS:              endpoint.TLS,
			TransportCreds:   creds,
			StreamDeadline:   cfg.StreamDeadline,
			RetryBackoff:     cfg.RetryBackoff,
			RetryBackoffMax:  cfg.RetryBackoffMax,
			RetryGracePeriod: cfg.RetryGracePeriod,
			Logger:           logger,
		})
		p, err := newInProcessProvider(ctx, connector, cfg, logger, m)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Shutdown(context.Background()) }, nil

	case config.ResolverFile:
		connector := syncfile.New(syncfile.Config{
			Path:                cfg.SourceConfigurationPath,
			OfflinePollInterval: cfg.OfflinePollInterval,
			Logger:              logger,
		})
		p, err := newInProcessProvider(ctx, connector, cfg, logger, m)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Shutdown(context.Background()) }, nil

	case config.ResolverRPC:
		endpoint, err := upstream.Build(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve upstream target: %w", err)
		}
		r, err := remoterpc.Dial(remoterpc.Config{
			Target:         endpoint.DialTarget(),
			TLS:            endpoint.TLS,
			TransportCreds: creds,
			Deadline:       cfg.Deadline,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("dial remote RPC resolver: %w", err)
		}
		return r, func() { _ = r.Close() }, nil

	case config.ResolverREST:
		r := remoterest.New(remoterest.Config{BaseURL: cfg.TargetURI, Deadline: cfg.Deadline})
		return r, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported resolver type %q", cfg.Resolver)
	}
}

// transportCreds honours FLAGD_SERVER_CERT_PATH when TLS is enabled. A nil
// return (with nil error) means the dialing layer chooses between plain TLS
// and insecure credentials itself.
func transportCreds(cfg config.Config) (credentials.TransportCredentials, error) {
	if !cfg.TLS || cfg.CertPath == "" {
		return nil, nil
	}
	return credentials.NewClientTLSFromFile(cfg.CertPath, "")
}

func newInProcessProvider(ctx context.Context, connector syncpkg.Connector, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*provider.Provider, error) {
	policy, err := cachePolicy(cfg.Cache)
	if err != nil {
		return nil, err
	}
	return provider.New(ctx, connector,
		provider.WithLogger(logger),
		provider.WithMetrics(m),
		provider.WithCache(policy, cfg.MaxCacheSize, cfg.CacheTTL),
	)
}

// cachePolicy maps the config-layer cache type to the cache package's own
// Policy, so the demo binary doesn't need to duplicate the enum.
func cachePolicy(t config.CacheType) (cache.Policy, error) {
	switch t {
	case config.CacheLRU:
		return cache.PolicyLRU, nil
	case config.CacheMem:
		return cache.PolicyMem, nil
	case config.CacheDisabled:
		return cache.PolicyDisabled, nil
	default:
		return "", fmt.Errorf("unsupported cache type %q", t)
	}
}
