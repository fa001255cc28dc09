package evaluator

import (
	"encoding/json"
	"testing"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
	"github.com/matt-riley/flagdgo/internal/targeting"
)

func num(s string) json.Number { return json.Number(s) }

func TestResolveBool_FlagNotFound(t *testing.T) {
	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{}}
	engine := targeting.NewEngine()

	got := ResolveBool(set, engine, "missing-flag", flagmodel.EvaluationContext{}, 0)
	if got.Reason != flagmodel.ReasonError || got.ErrorCode != flagmodel.ErrorFlagNotFound {
		t.Fatalf("got %+v, want ERROR/FLAG_NOT_FOUND", got)
	}
}

func TestResolveBool_Disabled(t *testing.T) {
	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"disabled-flag": {
			Key:            "disabled-flag",
			State:          flagmodel.StateDisabled,
			DefaultVariant: "off",
			HasDefault:     true,
			Variants:       map[string]any{"off": false, "on": true},
		},
	}}
	engine := targeting.NewEngine()

	got := ResolveBool(set, engine, "disabled-flag", flagmodel.EvaluationContext{}, 0)
	if got.Reason != flagmodel.ReasonDisabled || got.Value != false || got.Variant != "off" {
		t.Fatalf("got %+v, want DISABLED/off/false", got)
	}
}

func TestResolveBool_StaticNoTargeting(t *testing.T) {
	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"static-flag": {
			Key:            "static-flag",
			State:          flagmodel.StateEnabled,
			DefaultVariant: "on",
			HasDefault:     true,
			Variants:       map[string]any{"on": true, "off": false},
		},
	}}
	engine := targeting.NewEngine()

	got := ResolveBool(set, engine, "static-flag", flagmodel.EvaluationContext{}, 0)
	if got.Reason != flagmodel.ReasonStatic || got.Value != true {
		t.Fatalf("got %+v, want STATIC/true", got)
	}
}

func TestResolveString_TargetingMatch(t *testing.T) {
	var targetingTree any
	if err := json.Unmarshal([]byte(`{"if": [{"==": [{"var": "plan"}, "enterprise"]}, "enterprise-variant", null]}`), &targetingTree); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"tier-flag": {
			Key:            "tier-flag",
			State:          flagmodel.StateEnabled,
			DefaultVariant: "default-variant",
			HasDefault:     true,
			Variants: map[string]any{
				"default-variant":    "basic",
				"enterprise-variant": "premium",
			},
			Targeting: targetingTree,
		},
	}}
	engine := targeting.NewEngine()
	ctx := flagmodel.EvaluationContext{TargetingKey: "user-1", Fields: map[string]any{"plan": "enterprise"}}

	got := ResolveString(set, engine, "tier-flag", ctx, 0)
	if got.Reason != flagmodel.ReasonTargetingMatch || got.Value != "premium" {
		t.Fatalf("got %+v, want TARGETING_MATCH/premium", got)
	}
}

func TestResolveString_TargetingFallsBackToDefault(t *testing.T) {
	var targetingTree any
	if err := json.Unmarshal([]byte(`{"if": [{"==": [{"var": "plan"}, "enterprise"]}, "enterprise-variant", null]}`), &targetingTree); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"tier-flag": {
			Key:            "tier-flag",
			State:          flagmodel.StateEnabled,
			DefaultVariant: "default-variant",
			HasDefault:     true,
			Variants: map[string]any{
				"default-variant":    "basic",
				"enterprise-variant": "premium",
			},
			Targeting: targetingTree,
		},
	}}
	engine := targeting.NewEngine()
	ctx := flagmodel.EvaluationContext{TargetingKey: "user-1", Fields: map[string]any{"plan": "free"}}

	got := ResolveString(set, engine, "tier-flag", ctx, 0)
	if got.Reason != flagmodel.ReasonDefault || got.Value != "basic" {
		t.Fatalf("got %+v, want DEFAULT/basic", got)
	}
}

// A rule can evaluate to an object (for example a context field fetched via
// "var"); its "variant" field then names the variant.
func TestResolveString_ObjectResultNamesVariant(t *testing.T) {
	var targetingTree any
	if err := json.Unmarshal([]byte(`{"var": "rollout"}`), &targetingTree); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"tier-flag": {
			Key:            "tier-flag",
			State:          flagmodel.StateEnabled,
			DefaultVariant: "default-variant",
			HasDefault:     true,
			Variants: map[string]any{
				"default-variant":    "basic",
				"enterprise-variant": "premium",
			},
			Targeting: targetingTree,
		},
	}}
	engine := targeting.NewEngine()
	ctx := flagmodel.EvaluationContext{Fields: map[string]any{
		"rollout": map[string]any{"variant": "enterprise-variant"},
	}}

	got := ResolveString(set, engine, "tier-flag", ctx, 0)
	if got.Reason != flagmodel.ReasonTargetingMatch || got.Value != "premium" {
		t.Fatalf("got %+v, want TARGETING_MATCH/premium from object-shaped rule result", got)
	}
}

func TestResolveInt64_TypeMismatch(t *testing.T) {
	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"string-flag": {
			Key:            "string-flag",
			State:          flagmodel.StateEnabled,
			DefaultVariant: "v",
			HasDefault:     true,
			Variants:       map[string]any{"v": "not-a-number"},
		},
	}}
	engine := targeting.NewEngine()

	got := ResolveInt64(set, engine, "string-flag", flagmodel.EvaluationContext{}, 0)
	if got.Reason != flagmodel.ReasonError || got.ErrorCode != flagmodel.ErrorTypeMismatch {
		t.Fatalf("got %+v, want ERROR/TYPE_MISMATCH", got)
	}
}

func TestResolveInt64_MaxInt63BoundaryOK(t *testing.T) {
	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"int-flag": {
			Key:            "int-flag",
			State:          flagmodel.StateEnabled,
			DefaultVariant: "v",
			HasDefault:     true,
			Variants:       map[string]any{"v": num("9223372036854775807")},
		},
	}}
	engine := targeting.NewEngine()

	got := ResolveInt64(set, engine, "int-flag", flagmodel.EvaluationContext{}, 0)
	if got.IsError() || got.Value != 9223372036854775807 {
		t.Fatalf("got %+v, want 2^63-1 resolved cleanly", got)
	}
}

func TestResolveInt64_AboveMaxInt63IsTypeMismatch(t *testing.T) {
	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"int-flag": {
			Key:            "int-flag",
			State:          flagmodel.StateEnabled,
			DefaultVariant: "v",
			HasDefault:     true,
			Variants:       map[string]any{"v": num("9223372036854775808")},
		},
	}}
	engine := targeting.NewEngine()

	got := ResolveInt64(set, engine, "int-flag", flagmodel.EvaluationContext{}, 0)
	if got.Reason != flagmodel.ReasonError || got.ErrorCode != flagmodel.ErrorTypeMismatch {
		t.Fatalf("got %+v, want ERROR/TYPE_MISMATCH for 2^63", got)
	}
}

func TestResolveObject_DropsNullFields(t *testing.T) {
	set := &flagmodel.FlagSet{Flags: map[string]flagmodel.Flag{
		"object-flag": {
			Key:            "object-flag",
			State:          flagmodel.StateEnabled,
			DefaultVariant: "v",
			HasDefault:     true,
			Variants: map[string]any{
				"v": map[string]any{"a": num("1"), "b": nil},
			},
		},
	}}
	engine := targeting.NewEngine()

	got := ResolveObject(set, engine, "object-flag", flagmodel.EvaluationContext{}, 0)
	if got.IsError() {
		t.Fatalf("got error %+v", got)
	}
	if _, present := got.Value["b"]; present {
		t.Fatalf("got %+v, want null field b dropped", got.Value)
	}
	if got.Value["a"] != num("1") {
		t.Fatalf("got %+v, want a=1", got.Value)
	}
}

func TestResolveBool_MetadataMerge(t *testing.T) {
	set := &flagmodel.FlagSet{
		Metadata: map[string]any{"source": "file", "owner": "set-level"},
		Flags: map[string]flagmodel.Flag{
			"flag-a": {
				Key:            "flag-a",
				State:          flagmodel.StateEnabled,
				DefaultVariant: "on",
				HasDefault:     true,
				Variants:       map[string]any{"on": true},
				Metadata:       map[string]any{"owner": "flag-level"},
			},
		},
	}
	engine := targeting.NewEngine()

	got := ResolveBool(set, engine, "flag-a", flagmodel.EvaluationContext{}, 0)
	if got.FlagMetadata["source"] != "file" {
		t.Fatalf("expected set-level metadata to carry through, got %+v", got.FlagMetadata)
	}
	if got.FlagMetadata["owner"] != "flag-level" {
		t.Fatalf("expected flag-level metadata to win conflict, got %+v", got.FlagMetadata)
	}
}
