// Package ofrep is the generic OFREP stub adapter: the OpenFeature Remote
// Evaluation Protocol is exactly the single-flag POST shape that remoterest
// already implements, so this package is a thin rename around it rather than
// a second implementation. It exists as its own adapter because operators
// select resolvers by name (envvar, flagsmith, flipt, ofrep, ...), and "ofrep"
// names the protocol itself rather than a flagd-specific deployment of it.
package ofrep

import (
	"time"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/resolver"
	"github.com/matt-riley/flagdgo/internal/resolver/remoterest"
)

// Config configures a Resolver.
type Config struct {
	BaseURL  string
	Deadline time.Duration
}

// Resolver is a resolver.Resolver backed by a generic OFREP-compliant
// evaluation endpoint.
type Resolver struct {
	inner *remoterest.Resolver
}

var _ resolver.Resolver = (*Resolver)(nil)

// New builds a Resolver against cfg.BaseURL.
func New(cfg Config) *Resolver {
	return &Resolver{inner: remoterest.New(remoterest.Config{BaseURL: cfg.BaseURL, Deadline: cfg.Deadline})}
}

func (r *Resolver) ResolveBool(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[bool] {
	return r.inner.ResolveBool(flagKey, ctx)
}

func (r *Resolver) ResolveInt64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[int64] {
	return r.inner.ResolveInt64(flagKey, ctx)
}

func (r *Resolver) ResolveFloat64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[float64] {
	return r.inner.ResolveFloat64(flagKey, ctx)
}

func (r *Resolver) ResolveString(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[string] {
	return r.inner.ResolveString(flagKey, ctx)
}

func (r *Resolver) ResolveObject(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[map[string]any] {
	return r.inner.ResolveObject(flagKey, ctx)
}
