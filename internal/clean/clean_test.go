package clean

import (
	"encoding/json"
	"testing"

	"github.com/mbsekit/flexo-bridge/internal/model"
)

func ids(elements []model.Element) map[string]bool {
	out := make(map[string]bool)
	for _, el := range elements {
		out[model.ID(el)] = true
	}
	return out
}

func TestDropsEmptyElements(t *testing.T) {
	elements := []model.Element{
		{"@type": "Namespace", "@id": "root"},
		{"@type": "Empty", "@id": "e1"},
	}

	out := Elements(elements, DefaultOptions())
	got := ids(out)
	if got["e1"] {
		t.Error("Empty element should be dropped")
	}
	if !got["root"] {
		t.Error("root namespace must survive")
	}
}

func TestDropsDanglingThinRefs(t *testing.T) {
	elements := []model.Element{
		{"@type": "Namespace", "@id": "root"},
		{"@type": "PartDefinition", "@id": "p", "ownedFeature": []any{
			map[string]any{"@id": "missing"},
			map[string]any{"@id": "p"},
		}},
	}

	out := Elements(elements, DefaultOptions())

	var part model.Element
	for _, el := range out {
		if model.ID(el) == "p" {
			part = el
		}
	}
	if part == nil {
		t.Fatal("part definition should survive")
	}

	features := part["ownedFeature"].([]any)
	if len(features) != 1 {
		t.Fatalf("expected dangling ref removed, got %v", features)
	}
	if model.FirstID(features[0]) != "p" {
		t.Errorf("resolvable ref should survive, got %v", features[0])
	}
}

func TestPreservesDanglingRefWithURI(t *testing.T) {
	elements := []model.Element{
		{"@type": "Namespace", "@id": "root"},
		{"@type": "PartDefinition", "@id": "p", "ownedFeature": []any{
			map[string]any{"@id": "remote", "@uri": "http://other-repo/remote"},
		}},
	}

	out := Elements(elements, DefaultOptions())
	for _, el := range out {
		if model.ID(el) == "p" {
			if len(el["ownedFeature"].([]any)) != 1 {
				t.Error("unresolved ref with @uri should be preserved")
			}
			return
		}
	}
	t.Fatal("part definition missing from output")
}

func TestDropsIncompleteStrictRelationship(t *testing.T) {
	elements := []model.Element{
		{"@type": "Namespace", "@id": "root"},
		{"@type": "PartDefinition", "@id": "a"},
		{"@type": "PartDefinition", "@id": "b"},
		{"@type": "Subclassification", "@id": "ok",
			"specific": map[string]any{"@id": "a"},
			"general":  map[string]any{"@id": "b"}},
		{"@type": "Subclassification", "@id": "broken",
			"specific": map[string]any{"@id": "a"}},
		{"@type": "Specialization", "@id": "dangling",
			"specific": map[string]any{"@id": "a"},
			"general":  map[string]any{"@id": "ghost"}},
	}

	got := ids(Elements(elements, DefaultOptions()))
	if !got["ok"] {
		t.Error("complete subclassification should survive")
	}
	if got["broken"] {
		t.Error("subclassification without general should be dropped")
	}
	if got["dangling"] {
		t.Error("specialization against undefined element should be dropped")
	}
}

func TestKeepsMembershipsWithUnresolvedRefs(t *testing.T) {
	elements := []model.Element{
		{"@type": "Namespace", "@id": "root"},
		{"@type": "PartDefinition", "@id": "a"},
		{"@type": "OwningMembership", "@id": "m",
			"memberElement":   map[string]any{"@id": "a"},
			"owningNamespace": map[string]any{"@id": "root"},
			"ownedRelatedElement": []any{
				map[string]any{"@id": "gone", "@uri": "http://x/gone"},
			}},
	}

	got := ids(Elements(elements, DefaultOptions()))
	if !got["m"] {
		t.Error("memberships must never be dropped")
	}
}

func TestProtectsRootNamespace(t *testing.T) {
	// A root namespace full of dangling refs still survives every pass.
	elements := []model.Element{
		{"@type": "Namespace", "@id": "root", "member": []any{
			map[string]any{"@id": "ghost1"},
			map[string]any{"@id": "ghost2"},
		}},
	}

	out := Elements(elements, DefaultOptions())
	if len(out) != 1 || model.ID(out[0]) != "root" {
		t.Fatalf("root namespace must survive, got %v", out)
	}
}

func TestReachesFixpointOnCascadingDrops(t *testing.T) {
	// c depends on b, b depends on a missing element: both fall away over
	// successive iterations.
	elements := []model.Element{
		{"@type": "Namespace", "@id": "root"},
		{"@type": "PartDefinition", "@id": "x"},
		{"@type": "Specialization", "@id": "b",
			"specific": map[string]any{"@id": "x"},
			"general":  map[string]any{"@id": "missing"}},
		{"@type": "Specialization", "@id": "c",
			"specific": map[string]any{"@id": "x"},
			"general":  map[string]any{"@id": "b"}},
	}

	got := ids(Elements(elements, DefaultOptions()))
	if got["b"] || got["c"] {
		t.Errorf("cascading invalid relationships should all be dropped, got %v", got)
	}
	if !got["x"] || !got["root"] {
		t.Error("definitions should survive")
	}
}

func TestJSONWrapperRestored(t *testing.T) {
	in := []byte(`{"version": 3, "elements": [
		{"@type": "Namespace", "@id": "root"},
		{"@type": "Empty", "@id": "e"}
	]}`)

	out, err := JSON(in, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if doc["version"] != float64(3) {
		t.Error("wrapper fields should be restored")
	}
	if len(doc["elements"].([]any)) != 1 {
		t.Errorf("expected Empty element removed, got %v", doc["elements"])
	}
}

func TestJSONRejectsScalars(t *testing.T) {
	if _, err := JSON([]byte(`42`), DefaultOptions()); err == nil {
		t.Error("scalar top level should be rejected")
	}
}

func TestInjectTypesFromFeatureTyping(t *testing.T) {
	elements := []model.Element{
		{"@type": "AttributeUsage", "@id": "feat", "name": "mass"},
		{"@type": "AttributeDefinition", "@id": "Real"},
		{"@type": "FeatureTyping", "@id": "ft",
			"typedFeature": map[string]any{"@id": "feat"},
			"type":         map[string]any{"@id": "Real"}},
	}

	out := InjectInferredTypes(elements)
	for _, el := range out {
		if model.ID(el) == "feat" {
			if model.FirstID(el["type"]) != "Real" {
				t.Errorf("expected injected type Real, got %v", el["type"])
			}
			return
		}
	}
	t.Fatal("feature missing from output")
}

func TestInjectDoesNotOverrideExistingType(t *testing.T) {
	elements := []model.Element{
		{"@type": "AttributeUsage", "@id": "feat", "type": map[string]any{"@id": "Keep"}},
		{"@type": "FeatureTyping", "@id": "ft",
			"typedFeature": map[string]any{"@id": "feat"},
			"type":         map[string]any{"@id": "Other"}},
	}

	out := InjectInferredTypes(elements)
	if model.FirstID(out[0]["type"]) != "Keep" {
		t.Errorf("existing type must not be overridden, got %v", out[0]["type"])
	}
}

func TestChildrenSelfTypedThroughMembership(t *testing.T) {
	elements := []model.Element{
		{"@type": "PartDefinition", "@id": "Component"},
		{"@type": "PartUsage", "@id": "kids", "name": "children"},
		{"@type": "FeatureMembership", "@id": "fm",
			"memberElement": map[string]any{"@id": "kids"},
			"featuringType": map[string]any{"@id": "Component"}},
	}

	out := InjectInferredTypes(elements)
	for _, el := range out {
		if model.ID(el) == "kids" {
			if model.FirstID(el["type"]) != "Component" {
				t.Errorf("children feature should self-type to owning part definition, got %v", el["type"])
			}
			return
		}
	}
	t.Fatal("children feature missing from output")
}

func TestChildrenNotTypedWhenOwnerIsNotPartDefinition(t *testing.T) {
	elements := []model.Element{
		{"@type": "AttributeDefinition", "@id": "NotAPart"},
		{"@type": "PartUsage", "@id": "kids", "name": "children"},
		{"@type": "FeatureMembership", "@id": "fm",
			"memberElement": map[string]any{"@id": "kids"},
			"featuringType": map[string]any{"@id": "NotAPart"}},
	}

	out := InjectInferredTypes(elements)
	for _, el := range out {
		if model.ID(el) == "kids" {
			if _, typed := el["type"]; typed {
				t.Errorf("children should only self-type to part definitions, got %v", el["type"])
			}
			return
		}
	}
}
