package model

import (
	"errors"
	"reflect"
	"testing"
)

func TestReplaceNilWithEmpty(t *testing.T) {
	in := map[string]any{
		"a": nil,
		"b": []any{1, nil, map[string]any{"c": nil}},
	}

	out := ReplaceNilWithEmpty(in).(map[string]any)

	if out["a"] != "" {
		t.Errorf("expected nil map value replaced with empty string, got %v", out["a"])
	}

	list := out["b"].([]any)
	if list[1] != nil {
		t.Errorf("nil inside list should be preserved, got %v", list[1])
	}
	if list[2].(map[string]any)["c"] != "" {
		t.Errorf("nested nil map value should become empty string")
	}
}

func TestStripURIFields(t *testing.T) {
	in := map[string]any{
		"@uri": "x",
		"a":    map[string]any{"@uri": "y", "b": 1},
		"c":    []any{map[string]any{"@uri": "z"}, map[string]any{"d": 2}},
	}

	want := map[string]any{
		"a": map[string]any{"b": 1},
		"c": []any{map[string]any{}, map[string]any{"d": 2}},
	}

	if got := StripURIFields(in); !reflect.DeepEqual(got, want) {
		t.Errorf("StripURIFields mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestWrapPayload(t *testing.T) {
	elements := []Element{
		{"@id": "ID1", "@uri": "ignore", "name": nil},
		{"name": "X", "props": []any{nil, 1}},
	}

	entries := WrapPayload(elements)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0].Identity["@id"] != "ID1" {
		t.Errorf("identity should carry @id, got %v", entries[0].Identity)
	}
	if entries[0].Payload["name"] != "" {
		t.Errorf("nil name should become empty string, got %v", entries[0].Payload["name"])
	}
	if _, hasURI := entries[0].Payload["@uri"]; hasURI {
		t.Error("@uri should be stripped from payload")
	}

	if len(entries[1].Identity) != 0 {
		t.Errorf("element without @id should get empty identity, got %v", entries[1].Identity)
	}
	if entries[1].Payload["props"].([]any)[0] != nil {
		t.Error("nil inside a list should survive wrapping")
	}
}

func TestRootNamespaceFirst(t *testing.T) {
	elements := []Element{
		{"@type": "Namespace", "@id": "owned", "owningRelationship": map[string]any{"@id": "rel"}},
		{"@type": "PartDefinition", "@id": "p"},
		{"@type": "Namespace", "@id": "root"},
	}

	out, err := RootNamespaceFirst(elements)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ID(out[0]) != "root" {
		t.Errorf("expected root namespace first, got %v", out[0])
	}
	if len(out) != 3 {
		t.Errorf("expected length preserved, got %d", len(out))
	}
}

func TestRootNamespaceFirstMissing(t *testing.T) {
	elements := []Element{
		{"@type": "PartDefinition", "@id": "p"},
	}

	if _, err := RootNamespaceFirst(elements); !errors.Is(err, ErrNoRootNamespace) {
		t.Errorf("expected ErrNoRootNamespace, got %v", err)
	}
}

func TestRootNamespaceFirstAmbiguous(t *testing.T) {
	elements := []Element{
		{"@type": "Namespace", "@id": "a"},
		{"@type": "Namespace", "@id": "b"},
	}

	if _, err := RootNamespaceFirst(elements); err == nil {
		t.Error("expected error for multiple root namespaces")
	}
}

func TestIsRefAndIsDefinition(t *testing.T) {
	ref := map[string]any{"@id": "x"}
	def := map[string]any{"@id": "x", "@type": "PartDefinition"}
	refWithURI := map[string]any{"@id": "x", "@uri": "http://example/x"}

	if !IsRef(ref) || !IsRef(refWithURI) {
		t.Error("objects with @id and no @type are thin refs")
	}
	if IsRef(def) {
		t.Error("full definitions are not thin refs")
	}
	if !IsDefinition(def) || IsDefinition(ref) {
		t.Error("IsDefinition should require both @id and @type")
	}
}

func TestDefinedIDsNested(t *testing.T) {
	elements := []Element{
		{"@id": "a", "@type": "PartDefinition", "owned": []any{
			map[string]any{"@id": "b", "@type": "AttributeUsage"},
			map[string]any{"@id": "thin"},
		}},
	}

	ids := DefinedIDs(elements)
	if !ids["a"] || !ids["b"] {
		t.Errorf("expected nested definitions collected, got %v", ids)
	}
	if ids["thin"] {
		t.Error("thin refs must not count as definitions")
	}
}

func TestFirstID(t *testing.T) {
	if got := FirstID(map[string]any{"@id": "x"}); got != "x" {
		t.Errorf("expected x, got %q", got)
	}
	if got := FirstID([]any{map[string]any{"name": "n"}, map[string]any{"@id": "y"}}); got != "y" {
		t.Errorf("expected y, got %q", got)
	}
	if got := FirstID("scalar"); got != "" {
		t.Errorf("expected empty for scalar, got %q", got)
	}
}
