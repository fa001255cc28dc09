// Package remoterest is the thin Remote-REST resolver mode: each Resolve
// call is a single JSON POST against the generic OFREP-shaped single-flag
// evaluation endpoint (`POST /ofrep/v1/evaluate/flags/{key}`), with the
// response decoded into a ResolutionDetails. Like remoterpc, this is a
// minimal request/response adapter; the evaluation logic lives on the
// remote server.
package remoterest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/resolver"
)

// Config configures a Resolver.
type Config struct {
	BaseURL  string // e.g. "https://flagd.internal:8016"
	Deadline time.Duration
	Client   *http.Client // overrides the default otelhttp-instrumented client
}

func (c Config) withDefaults() Config {
	if c.Deadline <= 0 {
		c.Deadline = 500 * time.Millisecond
	}
	if c.Client == nil {
		c.Client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return c
}

// Resolver is a resolver.Resolver backed by a remote REST evaluation
// endpoint.
type Resolver struct {
	cfg Config
}

var _ resolver.Resolver = (*Resolver)(nil)

// New builds a Resolver against cfg.BaseURL.
func New(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.withDefaults()}
}

type evaluateResponse struct {
	Value     json.RawMessage `json:"value"`
	Variant   string          `json:"variant"`
	Reason    string          `json:"reason"`
	ErrorCode string          `json:"errorCode"`
	Metadata  map[string]any  `json:"metadata"`
}

func resolve[T any](r *Resolver, flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[T] {
	var zero T

	body, err := json.Marshal(map[string]any{"context": ctx.AsMap()})
	if err != nil {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorGeneral,
			ErrorMessage: fmt.Sprintf("remoterest: marshal context: %v", err),
		}
	}

	callCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Deadline)
	defer cancel()

	url := fmt.Sprintf("%s/ofrep/v1/evaluate/flags/%s", r.cfg.BaseURL, flagKey)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorGeneral,
			ErrorMessage: fmt.Sprintf("remoterest: build request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorGeneral,
			ErrorMessage: fmt.Sprintf("remoterest: %v", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorInvalidContext,
			ErrorMessage: "remoterest: server returned 400",
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorFlagNotFound,
			ErrorMessage: fmt.Sprintf("remoterest: flag %q not found", flagKey),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorGeneral,
			ErrorMessage: fmt.Sprintf("remoterest: unexpected status %d", resp.StatusCode),
		}
	}

	var parsed evaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorGeneral,
			ErrorMessage: fmt.Sprintf("remoterest: decode response: %v", err),
		}
	}
	if parsed.ErrorCode != "" {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorCode(parsed.ErrorCode),
			ErrorMessage: parsed.Reason,
		}
	}

	var value T
	if err := json.Unmarshal(parsed.Value, &value); err != nil {
		return flagmodel.ResolutionDetails[T]{
			Value: zero, Reason: flagmodel.ReasonError, ErrorCode: flagmodel.ErrorTypeMismatch,
			ErrorMessage: fmt.Sprintf("remoterest: decode value: %v", err),
		}
	}

	return flagmodel.ResolutionDetails[T]{
		Value: value, Variant: parsed.Variant, Reason: flagmodel.Reason(parsed.Reason), FlagMetadata: parsed.Metadata,
	}
}

func (r *Resolver) ResolveBool(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[bool] {
	return resolve[bool](r, flagKey, ctx)
}

func (r *Resolver) ResolveInt64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[int64] {
	return resolve[int64](r, flagKey, ctx)
}

func (r *Resolver) ResolveFloat64(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[float64] {
	return resolve[float64](r, flagKey, ctx)
}

func (r *Resolver) ResolveString(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[string] {
	return resolve[string](r, flagKey, ctx)
}

func (r *Resolver) ResolveObject(flagKey string, ctx flagmodel.EvaluationContext) flagmodel.ResolutionDetails[map[string]any] {
	return resolve[map[string]any](r, flagKey, ctx)
}
