// Package envvar is the thin environment-variable resolver adapter: every
// flag key maps to an env var named FLAGD_FLAG_<KEY> (upper-cased, non
// alphanumerics replaced with "_"), parsed per the requested type. It has
// no targeting, no caching, no metadata; a stub adapter for the simplest
// possible deployment, not a fully-featured provider.
package envvar

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/resolver"
)

// Resolver is a resolver.Resolver backed by process environment variables.
type Resolver struct {
	// Prefix is prepended to the derived variable name; defaults to
	// "FLAGD_FLAG_" when empty.
	Prefix string
}

var _ resolver.Resolver = (*Resolver)(nil)

func (r *Resolver) envName(flagKey string) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "FLAGD_FLAG_"
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, c := range strings.ToUpper(flagKey) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func lookup[T any](r *Resolver, flagKey string, parse func(string) (T, error)) flagmodel.ResolutionDetails[T] {
	var zero T
	name := r.envName(flagKey)
	raw, ok := os.LookupEnv(name)
	if !ok {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorFlagNotFound,
			ErrorMessage: fmt.Sprintf("envvar: %s not set", name),
		}
	}
	value, err := parse(raw)
	if err != nil {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorTypeMismatch,
			ErrorMessage: fmt.Sprintf("envvar: %s: %v", name, err),
		}
	}
	return flagmodel.ResolutionDetails[T]{Value: value, Reason: flagmodel.ReasonStatic}
}

func (r *Resolver) ResolveBool(flagKey string, _ flagmodel.EvaluationContext) flagmodel.ResolutionDetails[bool] {
	return lookup(r, flagKey, strconv.ParseBool)
}

func (r *Resolver) ResolveInt64(flagKey string, _ flagmodel.EvaluationContext) flagmodel.ResolutionDetails[int64] {
	return lookup(r, flagKey, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func (r *Resolver) ResolveFloat64(flagKey string, _ flagmodel.EvaluationContext) flagmodel.ResolutionDetails[float64] {
	return lookup(r, flagKey, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func (r *Resolver) ResolveString(flagKey string, _ flagmodel.EvaluationContext) flagmodel.ResolutionDetails[string] {
	return lookup(r, flagKey, func(s string) (string, error) { return s, nil })
}

func (r *Resolver) ResolveObject(flagKey string, _ flagmodel.EvaluationContext) flagmodel.ResolutionDetails[map[string]any] {
	return lookup(r, flagKey, func(s string) (map[string]any, error) {
		var v map[string]any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, err
		}
		return v, nil
	})
}
