package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
)

const basicDocument = `{
	"$schema": "https://flagd.dev/schema/v0/flags.json",
	"flags": {
		"bool-flag": {
			"state": "ENABLED",
			"defaultVariant": "on",
			"variants": {"on": true, "off": false}
		},
		"string-flag": {
			"state": "DISABLED",
			"defaultVariant": "greeting",
			"variants": {"greeting": "hello", "farewell": "goodbye"},
			"metadata": {"team": "growth"}
		}
	},
	"metadata": {"source": "unit-test"}
}`

func TestParse_BasicDocument(t *testing.T) {
	set, err := Parse([]byte(basicDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(set.Flags) != 2 {
		t.Fatalf("got %d flags, want 2", len(set.Flags))
	}

	boolFlag := set.Flags["bool-flag"]
	if boolFlag.Key != "bool-flag" || boolFlag.State != flagmodel.StateEnabled {
		t.Fatalf("bool-flag = %+v", boolFlag)
	}
	if !boolFlag.HasDefault || boolFlag.DefaultVariant != "on" {
		t.Fatalf("bool-flag default = %q (has=%v), want on", boolFlag.DefaultVariant, boolFlag.HasDefault)
	}
	if boolFlag.Variants["on"] != true || boolFlag.Variants["off"] != false {
		t.Fatalf("bool-flag variants = %+v", boolFlag.Variants)
	}

	stringFlag := set.Flags["string-flag"]
	if stringFlag.State != flagmodel.StateDisabled {
		t.Fatalf("string-flag state = %q, want DISABLED", stringFlag.State)
	}
	if stringFlag.Metadata["team"] != "growth" {
		t.Fatalf("string-flag metadata = %+v", stringFlag.Metadata)
	}
	if set.Metadata["source"] != "unit-test" {
		t.Fatalf("set metadata = %+v", set.Metadata)
	}
}

func TestParse_NoDefaultVariant(t *testing.T) {
	set, err := Parse([]byte(`{"flags": {"f": {"state": "ENABLED", "variants": {"a": 1}}}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	f := set.Flags["f"]
	if f.HasDefault || f.DefaultVariant != "" {
		t.Fatalf("got default %q (has=%v), want absent", f.DefaultVariant, f.HasDefault)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed JSON", `{"flags": `},
		{"flags missing", `{"metadata": {}}`},
		{"flags not an object", `{"flags": []}`},
		{"unknown state", `{"flags": {"f": {"state": "PAUSED", "variants": {}}}}`},
		{"defaultVariant not in variants", `{"flags": {"f": {"state": "ENABLED", "defaultVariant": "on", "variants": {"off": false}}}}`},
		{"unresolved ref", `{"flags": {"f": {"state": "ENABLED", "variants": {"a": 1}, "targeting": {"$ref": "nope"}}}}`},
		{"cyclic ref", `{
			"$evaluators": {"a": {"if": [{"$ref": "b"}, "x", "y"]}, "b": {"$ref": "a"}},
			"flags": {"f": {"state": "ENABLED", "variants": {"x": 1, "y": 2}, "targeting": {"$ref": "a"}}}
		}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
		})
	}
}

func TestParse_RefSubstitution(t *testing.T) {
	doc := `{
		"$evaluators": {
			"internal-user": {"ends_with": [{"var": "email"}, "@company.com"]}
		},
		"flags": {
			"f": {
				"state": "ENABLED",
				"defaultVariant": "external",
				"variants": {"internal": 1, "external": 2},
				"targeting": {"if": [{"$ref": "internal-user"}, "internal", "external"]}
			}
		}
	}`
	set, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	targeting, ok := set.Flags["f"].Targeting.(map[string]any)
	if !ok {
		t.Fatalf("targeting = %T, want object", set.Flags["f"].Targeting)
	}
	args, ok := targeting["if"].([]any)
	if !ok || len(args) != 3 {
		t.Fatalf("if args = %+v", targeting["if"])
	}
	cond, ok := args[0].(map[string]any)
	if !ok {
		t.Fatalf("condition = %T, want substituted object", args[0])
	}
	if _, refLeft := cond["$ref"]; refLeft {
		t.Fatalf("condition still holds a $ref: %+v", cond)
	}
	if _, substituted := cond["ends_with"]; !substituted {
		t.Fatalf("condition = %+v, want the ends_with fragment substituted in", cond)
	}
}

func TestParse_NullTargetingIsAbsent(t *testing.T) {
	set, err := Parse([]byte(`{"flags": {"f": {"state": "ENABLED", "variants": {"a": 1}, "targeting": null}}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if set.Flags["f"].Targeting != nil {
		t.Fatalf("targeting = %+v, want nil", set.Flags["f"].Targeting)
	}
}

func TestParse_RoundTripStable(t *testing.T) {
	first, err := Parse([]byte(basicDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := Parse([]byte(basicDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("parsing the same document twice produced different flag sets")
	}
}

func TestChangedKeys(t *testing.T) {
	parse := func(t *testing.T, doc string) *flagmodel.FlagSet {
		t.Helper()
		set, err := Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		return set
	}

	oldSet := parse(t, `{"flags": {
		"kept":    {"state": "ENABLED", "variants": {"a": 1}},
		"changed": {"state": "ENABLED", "variants": {"a": 1}},
		"removed": {"state": "ENABLED", "variants": {"a": 1}}
	}}`)
	newSet := parse(t, `{"flags": {
		"kept":    {"state": "ENABLED", "variants": {"a": 1}},
		"changed": {"state": "DISABLED", "variants": {"a": 1}},
		"added":   {"state": "ENABLED", "variants": {"a": 1}}
	}}`)

	got := ChangedKeys(oldSet, newSet)
	want := []string{"added", "changed", "removed"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ChangedKeys() = %v, want %v", got, want)
	}
}

func TestChangedKeys_IdenticalSetsAreEmpty(t *testing.T) {
	set, err := Parse([]byte(basicDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	again, err := Parse([]byte(basicDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := ChangedKeys(set, again); len(got) != 0 {
		t.Fatalf("ChangedKeys() = %v, want none", got)
	}
}

func TestChangedKeys_NilOldSet(t *testing.T) {
	newSet, err := Parse([]byte(`{"flags": {"only": {"state": "ENABLED", "variants": {"a": 1}}}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := ChangedKeys(nil, newSet); !reflect.DeepEqual(got, []string{"only"}) {
		t.Fatalf("ChangedKeys(nil, set) = %v, want [only]", got)
	}
}
