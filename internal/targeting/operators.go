package targeting

import (
	"strings"

	"github.com/blang/semver/v4"
	"github.com/spaolacci/murmur3"
)

// fractionalOperator implements flagd's "fractional" operator: deterministic
// percentage-weighted bucketing keyed by MurmurHash3 x86-32 (seed 0) of a
// bucketing expression, defaulting to the concatenation of the current flag
// key and targetingKey when no explicit bucketing expression is supplied as
// the first argument.
type fractionalOperator struct{}

type weightedVariant struct {
	variant string
	weight  float64
}

func (fractionalOperator) Evaluate(args []Node, frame Frame, e *Engine) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	values := make([]any, len(args))
	for i, a := range args {
		v, err := e.Eval(a, frame)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	pairs := values
	seed := frame.FlagKey() + frame.TargetingKey()
	if !looksLikePair(values[0]) {
		// A string first argument is an explicit bucketing key; anything
		// else stays in the list and is skipped below like any other
		// malformed entry.
		if s, ok := asString(values[0]); ok {
			seed = s
			pairs = values[1:]
		}
	}

	// Malformed entries are skipped rather than failing the whole
	// distribution; the remaining well-formed pairs still participate.
	variants := make([]weightedVariant, 0, len(pairs))
	var total float64
	for _, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		name, ok := asString(pair[0])
		if !ok {
			continue
		}
		weight, ok := asFloat64(pair[1])
		if !ok {
			i, iok := asInt64(pair[1])
			if !iok {
				continue
			}
			weight = float64(i)
		}
		if weight < 0 {
			continue
		}
		variants = append(variants, weightedVariant{variant: name, weight: weight})
		total += weight
	}
	if total <= 0 {
		return nil, nil
	}

	hash := murmur3.Sum32WithSeed([]byte(seed), 0)
	bucket := (float64(hash) / 4294967296.0) * 100.0

	var cumulative float64
	for _, v := range variants {
		cumulative += v.weight / total * 100.0
		if cumulative > bucket {
			return v.variant, nil
		}
	}
	return nil, nil
}

func looksLikePair(v any) bool {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return false
	}
	if _, ok := asString(pair[0]); !ok {
		return false
	}
	if _, ok := asInt64(pair[1]); ok {
		return true
	}
	_, ok = asFloat64(pair[1])
	return ok
}

// semVerOperator implements flagd's "sem_ver" operator: a three-element
// [left, operator, right] comparison against parsed semantic versions,
// including the "^" (same major) and "~" (same major, same minor) relaxed
// comparators flagd defines beyond strict semver ordering.
type semVerOperator struct{}

func (semVerOperator) Evaluate(args []Node, frame Frame, e *Engine) (any, error) {
	if len(args) != 3 {
		return nil, nil
	}
	leftVal, err := e.Eval(args[0], frame)
	if err != nil {
		return nil, err
	}
	opVal, err := e.Eval(args[1], frame)
	if err != nil {
		return nil, err
	}
	rightVal, err := e.Eval(args[2], frame)
	if err != nil {
		return nil, err
	}
	leftStr, ok := asString(leftVal)
	if !ok {
		return nil, nil
	}
	op, ok := asString(opVal)
	if !ok {
		return nil, nil
	}
	rightStr, ok := asString(rightVal)
	if !ok {
		return nil, nil
	}
	left, err := semver.Parse(leftStr)
	if err != nil {
		return nil, nil
	}
	right, err := semver.Parse(rightStr)
	if err != nil {
		return nil, nil
	}

	switch op {
	case "=":
		return left.EQ(right), nil
	case "!=":
		return left.NE(right), nil
	case "<":
		return left.LT(right), nil
	case "<=":
		return left.LTE(right), nil
	case ">":
		return left.GT(right), nil
	case ">=":
		return left.GTE(right), nil
	case "^":
		return left.Major == right.Major, nil
	case "~":
		return left.Major == right.Major && left.Minor == right.Minor, nil
	default:
		return nil, nil
	}
}

// affixOperator implements "starts_with" and "ends_with": two string
// arguments, non-string operands are a soft (null) failure rather than a
// structural one.
type affixOperator struct {
	suffix bool
}

func (a affixOperator) Evaluate(args []Node, frame Frame, e *Engine) (any, error) {
	if len(args) != 2 {
		return nil, nil
	}
	left, err := e.Eval(args[0], frame)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(args[1], frame)
	if err != nil {
		return nil, err
	}
	leftStr, ok := asString(left)
	if !ok {
		return nil, nil
	}
	rightStr, ok := asString(right)
	if !ok {
		return nil, nil
	}
	if a.suffix {
		return strings.HasSuffix(leftStr, rightStr), nil
	}
	return strings.HasPrefix(leftStr, rightStr), nil
}
