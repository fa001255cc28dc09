// Package flipt is a thin stub adapter over Flipt's evaluation REST API
// (https://www.flipt.io): boolean flags are resolved via
// POST /evaluate/v1/boolean, every other type via POST /evaluate/v1/variant.
// String flags resolve to the variant key; int, float and object flags
// decode the variant's attachment as JSON. It is not a Flipt SDK; no
// namespace management, no local caching, no batch evaluation.
package flipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/resolver"
)

// Config configures a Resolver.
type Config struct {
	BaseURL      string // e.g. http://localhost:8080
	NamespaceKey string // defaults to "default"
	Deadline     time.Duration
	Client       *http.Client
}

func (c Config) withDefaults() Config {
	if c.NamespaceKey == "" {
		c.NamespaceKey = "default"
	}
	if c.Deadline <= 0 {
		c.Deadline = 500 * time.Millisecond
	}
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	return c
}

// Resolver is a resolver.Resolver backed by a Flipt evaluation endpoint.
type Resolver struct {
	cfg Config
}

var _ resolver.Resolver = (*Resolver)(nil)

// New builds a Resolver against cfg.
func New(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.withDefaults()}
}

type evalRequest struct {
	NamespaceKey string         `json:"namespaceKey"`
	FlagKey      string         `json:"flagKey"`
	EntityID     string         `json:"entityId"`
	Context      map[string]any `json:"context"`
}

type booleanResponse struct {
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason"`
}

type variantResponse struct {
	Match             bool   `json:"match"`
	VariantKey        string `json:"variantKey"`
	VariantAttachment string `json:"variantAttachment"`
	Reason            string `json:"reason"`
}

func (r *Resolver) post(ctx context.Context, path string, body evalRequest, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errFlagNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("flipt: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var errFlagNotFound = fmt.Errorf("flipt: flag not found")

func reasonFrom(s string) flagmodel.Reason {
	switch s {
	case "MATCH_EVALUATION_REASON":
		return flagmodel.ReasonTargetingMatch
	case "DEFAULT_EVALUATION_REASON":
		return flagmodel.ReasonDefault
	default:
		return flagmodel.ReasonStatic
	}
}

func (r *Resolver) ResolveBool(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[bool] {
	callCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Deadline)
	defer cancel()

	var resp booleanResponse
	err := r.post(callCtx, "/evaluate/v1/boolean", evalRequest{
		NamespaceKey: r.cfg.NamespaceKey, FlagKey: flagKey, EntityID: ctx.TargetingKey, Context: ctx.AsMap(),
	}, &resp)
	if err != nil {
		return flagmodel.ResolutionDetails[bool]{Reason: flagmodel.ReasonError, ErrorCode: errCode(err), ErrorMessage: err.Error()}
	}
	return flagmodel.ResolutionDetails[bool]{Value: resp.Enabled, Reason: reasonFrom(resp.Reason)}
}

func variant[T any](r *Resolver, flagKey string, ctx flagmodel.EvaluationContext, decode func(variantResponse) (T, bool)) flagmodel.ResolutionDetails[T] {
	var zero T
	callCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Deadline)
	defer cancel()

	var resp variantResponse
	err := r.post(callCtx, "/evaluate/v1/variant", evalRequest{
		NamespaceKey: r.cfg.NamespaceKey, FlagKey: flagKey, EntityID: ctx.TargetingKey, Context: ctx.AsMap(),
	}, &resp)
	if err != nil {
		return flagmodel.ResolutionDetails[T]{Value: zero, Reason: flagmodel.ReasonError, ErrorCode: errCode(err), ErrorMessage: err.Error()}
	}
	if !resp.Match {
		return flagmodel.ResolutionDetails[T]{Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorFlagNotFound,
			ErrorMessage: fmt.Sprintf("flipt: flag %q did not match", flagKey)}
	}
	value, ok := decode(resp)
	if !ok {
		return flagmodel.ResolutionDetails[T]{Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorTypeMismatch,
			ErrorMessage: fmt.Sprintf("flipt: flag %q variant does not match the requested type", flagKey)}
	}
	return flagmodel.ResolutionDetails[T]{Value: value, Variant: resp.VariantKey, Reason: reasonFrom(resp.Reason)}
}

func errCode(err error) flagmodel.ErrorCode {
	if err == errFlagNotFound {
		return flagmodel.ErrorFlagNotFound
	}
	return flagmodel.ErrorGeneral
}

func (r *Resolver) ResolveInt64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[int64] {
	return variant(r, flagKey, ctx, func(v variantResponse) (int64, bool) {
		var out int64
		return out, v.VariantAttachment != "" && json.Unmarshal([]byte(v.VariantAttachment), &out) == nil
	})
}

func (r *Resolver) ResolveFloat64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[float64] {
	return variant(r, flagKey, ctx, func(v variantResponse) (float64, bool) {
		var out float64
		return out, v.VariantAttachment != "" && json.Unmarshal([]byte(v.VariantAttachment), &out) == nil
	})
}

func (r *Resolver) ResolveString(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[string] {
	return variant(r, flagKey, ctx, func(v variantResponse) (string, bool) { return v.VariantKey, true })
}

func (r *Resolver) ResolveObject(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[map[string]any] {
	return variant(r, flagKey, ctx, func(v variantResponse) (map[string]any, bool) {
		var out map[string]any
		return out, v.VariantAttachment != "" && json.Unmarshal([]byte(v.VariantAttachment), &out) == nil
	})
}
