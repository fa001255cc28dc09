// Package provider assembles the sync connector, flag store, targeting
// engine, evaluator, and resolution cache into the in-process resolver
// façade: a single type exposing typed Resolve methods over a flag
// configuration kept current by a background sync actor.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matt-riley/flagdgo/internal/cache"
	"github.com/matt-riley/flagdgo/internal/evaluator"
	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/metrics"
	"github.com/matt-riley/flagdgo/internal/parser"
	"github.com/matt-riley/flagdgo/internal/resolver"
	"github.com/matt-riley/flagdgo/internal/store"
	syncpkg "github.com/matt-riley/flagdgo/internal/sync"
	"github.com/matt-riley/flagdgo/internal/targeting"
)

var _ resolver.Resolver = (*Provider)(nil)

// initTimeout bounds how long New waits for the first sync payload before
// failing with ErrProviderNotReady.
const initTimeout = 5 * time.Second

// ErrProviderNotReady is returned by New when the connector produces no
// payload (or an error payload) within initTimeout.
var ErrProviderNotReady = errors.New("provider: not ready: no sync payload within the init timeout")

// Provider is the in-process flagd resolver. The zero value is not usable;
// construct with New.
type Provider struct {
	connector syncpkg.Connector
	store     *store.Store
	cache     *cache.Cache
	engine    *targeting.Engine
	log       *slog.Logger
	metrics   *metrics.Metrics // nil when not instrumented
	now       func() int64

	group  *errgroup.Group
	cancel context.CancelFunc
}

// Option configures optional Provider parameters.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	metrics      *metrics.Metrics
	cachePolicy  cache.Policy
	maxCacheSize int
	cacheTTL     time.Duration
}

// WithLogger sets the structured logger used by Provider. Defaults to
// slog.Default(). Passing nil is a no-op.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log == nil {
			return
		}
		o.logger = log
	}
}

// WithMetrics instruments the provider's evaluation and sync-apply paths
// with the given collectors. Passing nil leaves the provider uninstrumented.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCache configures the resolution cache's eviction policy, bound, and
// TTL. Defaults to an LRU cache of 1000 entries with a 60s TTL.
func WithCache(policy cache.Policy, maxSize int, ttl time.Duration) Option {
	return func(o *options) {
		o.cachePolicy = policy
		o.maxCacheSize = maxSize
		o.cacheTTL = ttl
	}
}

// New starts connector, blocks until the first sync payload has been
// observed (or initTimeout elapses), and returns a ready Provider. On
// failure the connector is shut down before returning.
func New(ctx context.Context, connector syncpkg.Connector, opts ...Option) (*Provider, error) {
	o := &options{logger: slog.Default(), cachePolicy: cache.PolicyLRU}
	for _, opt := range opts {
		opt(o)
	}

	c, err := cache.New(o.cachePolicy, o.maxCacheSize, o.cacheTTL)
	if err != nil {
		return nil, fmt.Errorf("provider: construct cache: %w", err)
	}

	st := store.New(c)
	engine := targeting.NewEngine()

	runCtx, cancel := context.WithCancel(context.Background())
	g, gCtx := errgroup.WithContext(runCtx)

	p := &Provider{
		connector: connector,
		store:     st,
		cache:     c,
		engine:    engine,
		log:       o.logger,
		metrics:   o.metrics,
		now:       func() int64 { return time.Now().Unix() },
		group:     g,
		cancel:    cancel,
	}

	initCtx, initCancel := context.WithTimeout(ctx, initTimeout)
	defer initCancel()
	if err := connector.Init(initCtx); err != nil {
		cancel()
		_ = connector.Shutdown()
		return nil, fmt.Errorf("%w: %v", ErrProviderNotReady, err)
	}

	// Init's contract guarantees at least one payload is already waiting;
	// apply it synchronously so New doesn't return a Provider whose store
	// is still the empty placeholder FlagSet.
	select {
	case payload := <-connector.Payloads():
		if payload.Kind == syncpkg.PayloadError {
			cancel()
			_ = connector.Shutdown()
			return nil, fmt.Errorf("%w: connector reported an error during init", ErrProviderNotReady)
		}
		p.applyPayload(payload)
	case <-initCtx.Done():
		cancel()
		_ = connector.Shutdown()
		return nil, ErrProviderNotReady
	}

	g.Go(func() error {
		return p.applyLoop(gCtx)
	})

	return p, nil
}

// applyLoop is the applier actor: it consumes subsequent sync payloads
// strictly in order, applying each via applyPayload, until the run context
// is cancelled or the connector closes its payload channel.
func (p *Provider) applyLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-p.connector.Payloads():
			if !ok {
				return nil
			}
			p.applyPayload(payload)
		}
	}
}

// applyPayload parses a Data payload into the store, or records a
// connector-side Error payload without disturbing the last-known-good
// configuration.
func (p *Provider) applyPayload(payload syncpkg.Payload) {
	switch payload.Kind {
	case syncpkg.PayloadError:
		p.log.Warn("provider: sync connector reported an error", "metadata", payload.Metadata)
		p.store.InstallError(payload.Metadata)
		if p.metrics != nil {
			p.metrics.StoreInstallErrorsTotal.Inc()
		}
	case syncpkg.PayloadData:
		set, err := parser.Parse([]byte(payload.Body))
		if err != nil {
			p.log.Warn("provider: failed to parse sync payload", "error", err)
			p.store.InstallError(payload.Metadata)
			if p.metrics != nil {
				p.metrics.StoreInstallErrorsTotal.Inc()
			}
			return
		}
		p.store.Install(set, payload.Metadata)
		if p.metrics != nil {
			p.metrics.StoreInstallsTotal.Inc()
		}
	}
}

// Shutdown signals the sync connector to stop, waits for the applier actor
// to unwind, and drops the resolution cache.
func (p *Provider) Shutdown(ctx context.Context) error {
	shutdownErr := p.connector.Shutdown()
	p.cancel()

	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()

	select {
	case err := <-done:
		if shutdownErr == nil {
			shutdownErr = err
		}
	case <-ctx.Done():
		if shutdownErr == nil {
			shutdownErr = ctx.Err()
		}
	}

	p.cache.Purge()
	p.cache.Disable()
	return shutdownErr
}

// resolve consults the cache, falling through to a fresh evaluator run on
// a miss, and writes the result back to the cache on success. On a cache
// hit the returned Reason is overwritten to CACHED (the stored Reason
// reflects how the value was originally produced, not that this call
// served it from cache).
type resolverFunc[T any] func(*flagmodel.FlagSet, *targeting.Engine, string, flagmodel.EvaluationContext, int64) flagmodel.ResolutionDetails[T]

func resolve[T any](p *Provider, flagKey string, ctx flagmodel.EvaluationContext, resolver resolverFunc[T]) flagmodel.ResolutionDetails[T] {
	if v, ok := p.cache.Get(flagKey, ctx); ok {
		if details, ok := v.(flagmodel.ResolutionDetails[T]); ok {
			details.Reason = flagmodel.ReasonCached
			if p.metrics != nil {
				p.metrics.CacheHitsTotal.Inc()
				p.metrics.RecordEvaluation(string(details.Reason))
			}
			return details
		}
	}

	set := p.store.Snapshot()
	details := resolver(set, p.engine, flagKey, ctx, p.now())
	if !details.IsError() {
		p.cache.Put(flagKey, ctx, details)
	}
	if p.metrics != nil {
		p.metrics.CacheMissesTotal.Inc()
		p.metrics.RecordEvaluation(string(details.Reason))
	}
	return details
}

// ResolveBool resolves flagKey as a boolean-typed flag.
func (p *Provider) ResolveBool(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[bool] {
	return resolve(p, flagKey, ctx, evaluator.ResolveBool)
}

// ResolveInt64 resolves flagKey as an integer-typed flag.
func (p *Provider) ResolveInt64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[int64] {
	return resolve(p, flagKey, ctx, evaluator.ResolveInt64)
}

// ResolveFloat64 resolves flagKey as a float-typed flag.
func (p *Provider) ResolveFloat64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[float64] {
	return resolve(p, flagKey, ctx, evaluator.ResolveFloat64)
}

// ResolveString resolves flagKey as a string-typed flag.
func (p *Provider) ResolveString(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[string] {
	return resolve(p, flagKey, ctx, evaluator.ResolveString)
}

// ResolveObject resolves flagKey as a struct/object-typed flag.
func (p *Provider) ResolveObject(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[map[string]any] {
	return resolve(p, flagKey, ctx, evaluator.ResolveObject)
}
