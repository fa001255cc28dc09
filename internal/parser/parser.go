// Package parser decodes the flagd-compatible flag-definition JSON document
// into the in-memory flagmodel.FlagSet, resolving $evaluators/$ref
// substitutions, and computes structural diffs between two flag sets for
// change notification and cache invalidation.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
)

// ParseError wraps a malformed-document failure. Every error this package
// returns is a *ParseError so callers can map it to ErrorCode.Parse without
// string sniffing.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse flag document: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("parse flag document: %s", e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseError(msg string, err error) *ParseError {
	return &ParseError{Msg: msg, Err: err}
}

type document struct {
	Schema     string                     `json:"$schema"`
	Flags      map[string]json.RawMessage `json:"flags"`
	Evaluators map[string]json.RawMessage `json:"$evaluators"`
	Metadata   map[string]any             `json:"metadata"`
}

type rawFlag struct {
	State          string                     `json:"state"`
	DefaultVariant *string                    `json:"defaultVariant"`
	Variants       map[string]json.RawMessage `json:"variants"`
	Targeting      json.RawMessage            `json:"targeting"`
	Metadata       map[string]any             `json:"metadata"`
}

// Parse decodes a flagd-compatible flag-definition JSON document into a
// FlagSet. $ref occurrences inside targeting expressions are resolved
// against $evaluators before being attached to the returned Flag.
func Parse(data []byte) (*flagmodel.FlagSet, error) {
	var doc document
	if err := decodeNumberPreserving(data, &doc); err != nil {
		return nil, parseError("malformed JSON", err)
	}
	if doc.Flags == nil {
		return nil, parseError("\"flags\" missing or not an object", nil)
	}

	evaluators := make(map[string]any, len(doc.Evaluators))
	for name, raw := range doc.Evaluators {
		var v any
		if err := decodeNumberPreserving(raw, &v); err != nil {
			return nil, parseError(fmt.Sprintf("$evaluators[%q]", name), err)
		}
		evaluators[name] = v
	}

	flags := make(map[string]flagmodel.Flag, len(doc.Flags))
	for key, raw := range doc.Flags {
		flag, err := parseFlag(key, raw, evaluators)
		if err != nil {
			return nil, err
		}
		flags[key] = flag
	}

	return &flagmodel.FlagSet{Flags: flags, Metadata: doc.Metadata}, nil
}

func parseFlag(key string, raw json.RawMessage, evaluators map[string]any) (flagmodel.Flag, error) {
	var rf rawFlag
	if err := decodeNumberPreserving(raw, &rf); err != nil {
		return flagmodel.Flag{}, parseError(fmt.Sprintf("flags[%q]", key), err)
	}

	var state flagmodel.State
	switch rf.State {
	case string(flagmodel.StateEnabled):
		state = flagmodel.StateEnabled
	case string(flagmodel.StateDisabled):
		state = flagmodel.StateDisabled
	default:
		return flagmodel.Flag{}, parseError(fmt.Sprintf("flags[%q].state: must be ENABLED or DISABLED, got %q", key, rf.State), nil)
	}

	variants := make(map[string]any, len(rf.Variants))
	for name, raw := range rf.Variants {
		var v any
		if err := decodeNumberPreserving(raw, &v); err != nil {
			return flagmodel.Flag{}, parseError(fmt.Sprintf("flags[%q].variants[%q]", key, name), err)
		}
		variants[name] = v
	}

	if rf.DefaultVariant != nil {
		if _, ok := variants[*rf.DefaultVariant]; !ok {
			return flagmodel.Flag{}, parseError(fmt.Sprintf("flags[%q].defaultVariant: %q is not a key in variants", key, *rf.DefaultVariant), nil)
		}
	}

	var targeting any
	if len(rf.Targeting) > 0 && !bytes.Equal(bytes.TrimSpace(rf.Targeting), []byte("null")) {
		var raw any
		if err := decodeNumberPreserving(rf.Targeting, &raw); err != nil {
			return flagmodel.Flag{}, parseError(fmt.Sprintf("flags[%q].targeting", key), err)
		}
		resolved, err := resolveRefs(raw, evaluators, map[string]bool{})
		if err != nil {
			return flagmodel.Flag{}, parseError(fmt.Sprintf("flags[%q].targeting", key), err)
		}
		targeting = resolved
	}

	flag := flagmodel.Flag{
		Key:       key,
		State:     state,
		Variants:  variants,
		Targeting: targeting,
		Metadata:  rf.Metadata,
	}
	if rf.DefaultVariant != nil {
		flag.HasDefault = true
		flag.DefaultVariant = *rf.DefaultVariant
	}
	return flag, nil
}

// decodeNumberPreserving unmarshals data into v using json.Number for
// numeric literals instead of float64, so large integer variants (up to
// 2^63-1) survive the round trip without precision loss.
func decodeNumberPreserving(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// resolveRefs substitutes every {"$ref": "name"} node in the tree with the
// referenced $evaluators entry, recursively, detecting cycles via the
// in-progress name stack.
func resolveRefs(node any, evaluators map[string]any, inProgress map[string]bool) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		if len(v) == 1 {
			if name, ok := v["$ref"].(string); ok {
				if inProgress[name] {
					return nil, fmt.Errorf("cyclic $ref: %q", name)
				}
				target, ok := evaluators[name]
				if !ok {
					return nil, fmt.Errorf("unresolved $ref: %q", name)
				}
				inProgress[name] = true
				resolved, err := resolveRefs(target, evaluators, inProgress)
				delete(inProgress, name)
				return resolved, err
			}
		}
		out := make(map[string]any, len(v))
		for k, val := range v {
			r, err := resolveRefs(val, evaluators, inProgress)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			r, err := resolveRefs(val, evaluators, inProgress)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// ChangedKeys computes the set of flag keys that were added, removed, or
// structurally changed between two flag sets (nil-safe: a nil FlagSet is
// treated as empty).
func ChangedKeys(oldSet, newSet *flagmodel.FlagSet) []string {
	oldFlags := map[string]flagmodel.Flag{}
	if oldSet != nil {
		oldFlags = oldSet.Flags
	}
	newFlags := map[string]flagmodel.Flag{}
	if newSet != nil {
		newFlags = newSet.Flags
	}

	changed := make(map[string]struct{})
	for key, nf := range newFlags {
		of, ok := oldFlags[key]
		if !ok || !reflect.DeepEqual(of, nf) {
			changed[key] = struct{}{}
		}
	}
	for key := range oldFlags {
		if _, ok := newFlags[key]; !ok {
			changed[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(changed))
	for key := range changed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
