// Package evaluator implements the typed flag-resolution algorithm: given a
// flag set, a flag key, and an evaluation context, it produces a
// ResolutionDetails for one of the five resolver shapes (bool, int, float,
// string, struct).
package evaluator

import (
	"fmt"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/targeting"
)

// Resolve runs the algorithm common to every typed resolver and coerces the
// resolved variant value to T via coerce. now is a Unix timestamp exposed to
// targeting rules as $flagd.timestamp.
func Resolve[T any](set *flagmodel.FlagSet, engine *targeting.Engine, flagKey string, ctx flagmodel.EvaluationContext, now int64, coerce func(any) (T, bool)) flagmodel.ResolutionDetails[T] {
	var zero T

	flag, ok := set.Flags[flagKey]
	if !ok {
		return flagmodel.ResolutionDetails[T]{
			Value:        zero,
			Reason:       flagmodel.ReasonError,
			ErrorCode:    flagmodel.ErrorFlagNotFound,
			ErrorMessage: fmt.Sprintf("flag %q not found", flagKey),
		}
	}

	metadata := mergeMetadata(set.Metadata, flag.Metadata)

	if flag.State == flagmodel.StateDisabled {
		return resolveVariant(flag, flag.DefaultVariant, flagmodel.ReasonDisabled, metadata, coerce)
	}

	if flag.Targeting == nil {
		return resolveVariant(flag, flag.DefaultVariant, flagmodel.ReasonStatic, metadata, coerce)
	}

	node, err := engine.Compile(flag.Targeting)
	if err != nil {
		return flagmodel.ResolutionDetails[T]{
			Value:        zero,
			Reason:       flagmodel.ReasonError,
			ErrorCode:    flagmodel.ErrorParse,
			ErrorMessage: err.Error(),
			FlagMetadata: metadata,
		}
	}

	frame := targeting.NewFrame(ctx.AsMap(), flagKey, now)
	result, err := engine.Eval(node, frame)
	if err != nil {
		return flagmodel.ResolutionDetails[T]{
			Value:        zero,
			Reason:       flagmodel.ReasonError,
			ErrorCode:    flagmodel.ErrorParse,
			ErrorMessage: err.Error(),
			FlagMetadata: metadata,
		}
	}

	variant, ok := variantName(result)
	if !ok {
		return resolveVariant(flag, flag.DefaultVariant, flagmodel.ReasonDefault, metadata, coerce)
	}
	if _, ok := flag.Variants[variant]; !ok {
		return resolveVariant(flag, flag.DefaultVariant, flagmodel.ReasonDefault, metadata, coerce)
	}
	return resolveVariant(flag, variant, flagmodel.ReasonTargetingMatch, metadata, coerce)
}

// variantName interprets a targeting-rule result as a variant name: either
// a bare string, or an object whose "variant" field is a string.
func variantName(result any) (string, bool) {
	switch v := result.(type) {
	case string:
		return v, true
	case map[string]any:
		name, ok := v["variant"].(string)
		return name, ok
	default:
		return "", false
	}
}

func resolveVariant[T any](flag flagmodel.Flag, variant string, reason flagmodel.Reason, metadata map[string]any, coerce func(any) (T, bool)) flagmodel.ResolutionDetails[T] {
	var zero T

	if variant == "" && !flag.HasDefault {
		return flagmodel.ResolutionDetails[T]{
			Value:        zero,
			Reason:       flagmodel.ReasonError,
			ErrorCode:    flagmodel.ErrorGeneral,
			ErrorMessage: fmt.Sprintf("flag %q has no default_variant", flag.Key),
			FlagMetadata: metadata,
		}
	}

	raw, ok := flag.Variants[variant]
	if !ok {
		return flagmodel.ResolutionDetails[T]{
			Value:        zero,
			Reason:       flagmodel.ReasonError,
			ErrorCode:    flagmodel.ErrorGeneral,
			ErrorMessage: fmt.Sprintf("flag %q: variant %q not defined", flag.Key, variant),
			FlagMetadata: metadata,
		}
	}

	value, ok := coerce(raw)
	if !ok {
		return flagmodel.ResolutionDetails[T]{
			Value:        zero,
			Variant:      variant,
			Reason:       flagmodel.ReasonError,
			ErrorCode:    flagmodel.ErrorTypeMismatch,
			ErrorMessage: fmt.Sprintf("flag %q: variant %q is not the requested type", flag.Key, variant),
			FlagMetadata: metadata,
		}
	}

	return flagmodel.ResolutionDetails[T]{
		Value:        value,
		Variant:      variant,
		Reason:       reason,
		FlagMetadata: metadata,
	}
}

// mergeMetadata merges flag-set metadata with flag metadata, flag winning
// on key conflict.
func mergeMetadata(setMetadata, flagMetadata map[string]any) map[string]any {
	if len(setMetadata) == 0 && len(flagMetadata) == 0 {
		return nil
	}
	merged := make(map[string]any, len(setMetadata)+len(flagMetadata))
	for k, v := range setMetadata {
		merged[k] = v
	}
	for k, v := range flagMetadata {
		merged[k] = v
	}
	return merged
}
