package evaluator

import (
	"encoding/json"
	"math"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/targeting"
)

// ResolveBool resolves flagKey as a boolean-typed flag.
func ResolveBool(set *flagmodel.FlagSet, engine *targeting.Engine, flagKey string, ctx flagmodel.EvaluationContext, now int64) flagmodel.ResolutionDetails[bool] {
	return Resolve(set, engine, flagKey, ctx, now, coerceBool)
}

// ResolveInt64 resolves flagKey as an integer-typed flag. Values outside
// [-2^63, 2^63) are a type mismatch, not a silent truncation.
func ResolveInt64(set *flagmodel.FlagSet, engine *targeting.Engine, flagKey string, ctx flagmodel.EvaluationContext, now int64) flagmodel.ResolutionDetails[int64] {
	return Resolve(set, engine, flagKey, ctx, now, coerceInt64)
}

// ResolveFloat64 resolves flagKey as a float-typed flag.
func ResolveFloat64(set *flagmodel.FlagSet, engine *targeting.Engine, flagKey string, ctx flagmodel.EvaluationContext, now int64) flagmodel.ResolutionDetails[float64] {
	return Resolve(set, engine, flagKey, ctx, now, coerceFloat64)
}

// ResolveString resolves flagKey as a string-typed flag.
func ResolveString(set *flagmodel.FlagSet, engine *targeting.Engine, flagKey string, ctx flagmodel.EvaluationContext, now int64) flagmodel.ResolutionDetails[string] {
	return Resolve(set, engine, flagKey, ctx, now, coerceString)
}

// ResolveObject resolves flagKey as a struct/object-typed flag. The variant
// value is returned as a plain map[string]any, recursively normalised: JSON
// null fields are dropped (an absent field) rather than kept as a nil
// entry.
func ResolveObject(set *flagmodel.FlagSet, engine *targeting.Engine, flagKey string, ctx flagmodel.EvaluationContext, now int64) flagmodel.ResolutionDetails[map[string]any] {
	return Resolve(set, engine, flagKey, ctx, now, coerceObject)
}

func coerceBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func coerceInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return 0, false
	}
	if f < -9223372036854775808 || f >= 9223372036854775808 {
		return 0, false
	}
	return int64(f), true
}

func coerceFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func coerceString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func coerceObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return normalizeObject(m).(map[string]any), true
}

// normalizeObject recursively drops nil map entries (JSON null becomes an
// absent field) from maps and slices produced by the parser.
func normalizeObject(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if child == nil {
				continue
			}
			out[k] = normalizeObject(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeObject(child)
		}
		return out
	default:
		return v
	}
}
