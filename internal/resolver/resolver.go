// Package resolver defines the uniform resolution contract shared by every
// backend this module plugs into a feature-flag evaluation façade with: the
// in-process provider, the thin Remote RPC/REST adapters, and the small
// third-party stub adapters (env-var, Flagsmith, Flipt, generic OFREP).
package resolver

import "github.com/matt-riley/flagdgo/internal/flagmodel"

// Resolver is implemented by every backend capable of producing a typed
// ResolutionDetails for a flag key and evaluation context.
type Resolver interface {
	ResolveBool(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[bool]
	ResolveInt64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[int64]
	ResolveFloat64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[float64]
	ResolveString(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[string]
	ResolveObject(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[map[string]any]
}
