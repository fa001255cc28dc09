// Package flagsmith is a thin stub adapter over the Flagsmith REST API
// (https://api.flagsmith.com/api/v1/flags/): it fetches the caller's
// identity-scoped flag list and maps Flagsmith's {enabled, feature_state_value}
// shape onto ResolutionDetails. It is not a full Flagsmith SDK; no local
// flag caching, no analytics event reporting, no trait management: only the
// targeting key is sent, as the identity; other evaluation-context fields
// are not forwarded.
package flagsmith

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/resolver"
)

// Config configures a Resolver.
type Config struct {
	BaseURL        string // defaults to https://edge.api.flagsmith.com/api/v1
	EnvironmentKey string
	Deadline       time.Duration
	Client         *http.Client
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://edge.api.flagsmith.com/api/v1"
	}
	if c.Deadline <= 0 {
		c.Deadline = 500 * time.Millisecond
	}
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	return c
}

// Resolver is a resolver.Resolver backed by the Flagsmith flags endpoint.
type Resolver struct {
	cfg Config
}

var _ resolver.Resolver = (*Resolver)(nil)

// New builds a Resolver against cfg.
func New(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.withDefaults()}
}

type flagsmithFeature struct {
	FeatureStateValue json.RawMessage `json:"feature_state_value"`
	Enabled           bool            `json:"enabled"`
	Feature           struct {
		Name string `json:"name"`
	} `json:"feature"`
}

func (r *Resolver) fetch(ctx context.Context, flagKey string, evalCtx flagmodel.EvaluationContext) (*flagsmithFeature, error) {
	u := r.cfg.BaseURL + "/flags/"
	if evalCtx.TargetingKey != "" {
		u += "?" + url.Values{"identity": {evalCtx.TargetingKey}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Environment-Key", r.cfg.EnvironmentKey)

	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flagsmith: unexpected status %d", resp.StatusCode)
	}

	var features []flagsmithFeature
	if err := json.NewDecoder(resp.Body).Decode(&features); err != nil {
		return nil, err
	}
	for i := range features {
		if features[i].Feature.Name == flagKey {
			return &features[i], nil
		}
	}
	return nil, fmt.Errorf("flagsmith: feature %q not found", flagKey)
}

func resolve[T any](r *Resolver, flagKey string, ctx flagmodel.EvaluationContext, decode func(json.RawMessage, bool) (T, bool)) flagmodel.ResolutionDetails[T] {
	var zero T

	callCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Deadline)
	defer cancel()

	feature, err := r.fetch(callCtx, flagKey, ctx)
	if err != nil {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorFlagNotFound,
			ErrorMessage: err.Error(),
		}
	}

	value, ok := decode(feature.FeatureStateValue, feature.Enabled)
	if !ok {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorTypeMismatch,
			ErrorMessage: fmt.Sprintf("flagsmith: feature %q value does not match the requested type", flagKey),
		}
	}
	return flagmodel.ResolutionDetails[T]{Value: value, Reason: flagmodel.ReasonStatic}
}

func (r *Resolver) ResolveBool(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[bool] {
	return resolve(r, flagKey, ctx, func(_ json.RawMessage, enabled bool) (bool, bool) { return enabled, true })
}

func (r *Resolver) ResolveInt64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[int64] {
	return resolve(r, flagKey, ctx, func(raw json.RawMessage, _ bool) (int64, bool) {
		var v int64
		return v, len(raw) > 0 && json.Unmarshal(raw, &v) == nil
	})
}

func (r *Resolver) ResolveFloat64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[float64] {
	return resolve(r, flagKey, ctx, func(raw json.RawMessage, _ bool) (float64, bool) {
		var v float64
		return v, len(raw) > 0 && json.Unmarshal(raw, &v) == nil
	})
}

func (r *Resolver) ResolveString(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[string] {
	return resolve(r, flagKey, ctx, func(raw json.RawMessage, _ bool) (string, bool) {
		var v string
		return v, len(raw) > 0 && json.Unmarshal(raw, &v) == nil
	})
}

func (r *Resolver) ResolveObject(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[map[string]any] {
	return resolve(r, flagKey, ctx, func(raw json.RawMessage, _ bool) (map[string]any, bool) {
		var v map[string]any
		return v, len(raw) > 0 && json.Unmarshal(raw, &v) == nil
	})
}
