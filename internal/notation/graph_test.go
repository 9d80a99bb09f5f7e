package notation

import (
	"strings"
	"testing"

	"github.com/mbsekit/flexo-bridge/internal/model"
)

func mustParse(t *testing.T, src string) *Model {
	t.Helper()
	m, diags, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v (%v)", err, diags.Items)
	}
	return m
}

func TestEncodeProducesSingleRootNamespace(t *testing.T) {
	m := mustParse(t, sampleSource)
	elements := Encode(m, EncodeOptions{})

	roots := model.RootNamespaceIDs(elements)
	if len(roots) != 1 {
		t.Fatalf("expected exactly one root namespace, got %d", len(roots))
	}

	// Every other declaration must be owned through a membership.
	for _, el := range elements {
		if model.IsRootNamespace(el) {
			continue
		}
		kind := model.Type(el)
		if kind == model.TypePackage || kind == model.TypePartDefinition ||
			kind == model.TypePartUsage || kind == model.TypeAttributeDefinition ||
			kind == model.TypeAttributeUsage {
			if _, owned := el["owningRelationship"]; !owned {
				name, _ := el["name"].(string)
				t.Errorf("declaration %s %q is not owned", kind, name)
			}
		}
	}
}

func TestEncodeAssignsUniqueIDs(t *testing.T) {
	m := mustParse(t, sampleSource)
	elements := Encode(m, EncodeOptions{})

	seen := make(map[string]bool)
	for _, el := range elements {
		id := model.ID(el)
		if id == "" {
			t.Fatalf("element without id: %v", el)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestEncodeResolvesLocalHeritage(t *testing.T) {
	src := `package P {
  part def Base;
  part def Derived :> Base, LibraryThing;
}
`
	elements := Encode(mustParse(t, src), EncodeOptions{})

	var derived model.Element
	subclassifications := 0
	for _, el := range elements {
		if name, _ := el["name"].(string); name == "Derived" {
			derived = el
		}
		if model.Type(el) == model.TypeSubclassification {
			subclassifications++
		}
	}

	if subclassifications != 1 {
		t.Errorf("expected 1 subclassification for the local target, got %d", subclassifications)
	}
	declared, _ := derived["declaredHeritage"].([]any)
	if len(declared) != 1 || declared[0] != "LibraryThing" {
		t.Errorf("unresolved heritage should stay textual, got %v", declared)
	}
}

func TestEncodeMinimalOmitsQualifiedName(t *testing.T) {
	m := mustParse(t, `package P { part def C; }`)

	full := Encode(m, EncodeOptions{})
	for _, el := range full {
		if model.Type(el) == model.TypePartDefinition {
			if _, ok := el["qualifiedName"]; !ok {
				t.Error("full encoding should carry qualifiedName")
			}
		}
	}

	minimal := Encode(m, EncodeOptions{Minimal: true})
	for _, el := range minimal {
		if _, ok := el["qualifiedName"]; ok {
			t.Error("minimal encoding should omit qualifiedName")
		}
	}
}

func TestGraphRoundTrip(t *testing.T) {
	m := mustParse(t, sampleSource)
	printed := Print(m, DefaultPrinterConfig())

	elements := Encode(m, EncodeOptions{})
	decoded, err := Decode(elements)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	reprinted := Print(decoded, DefaultPrinterConfig())
	if printed != reprinted {
		t.Errorf("graph round trip changed the model:\nbefore:\n%s\nafter:\n%s", printed, reprinted)
	}
}

func TestGraphRoundTripKeepsDocs(t *testing.T) {
	src := `package Vehicles {
  doc /* Vehicle catalog. */
  part def Car {
    doc /* A road vehicle. */
  }
}
`
	m := mustParse(t, src)
	printed := Print(m, DefaultPrinterConfig())

	elements := Encode(m, EncodeOptions{})
	var docs int
	for _, el := range elements {
		if model.Type(el) == model.TypeDocumentation {
			docs++
			if _, owned := el["owningRelationship"]; !owned {
				t.Error("documentation element is not owned")
			}
		}
	}
	if docs != 2 {
		t.Fatalf("expected 2 documentation elements, got %d", docs)
	}

	decoded, err := Decode(elements)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got := Print(decoded, DefaultPrinterConfig()); got != printed {
		t.Errorf("doc round trip mismatch:\n%s\nvs\n%s", printed, got)
	}
}

func TestGraphRoundTripNestedPackages(t *testing.T) {
	src := `package Outer {
  package Inner {
    part def Thing;
    part item : Thing;
  }
}
`
	m := mustParse(t, src)
	printed := Print(m, DefaultPrinterConfig())

	decoded, err := Decode(Encode(m, EncodeOptions{}))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got := Print(decoded, DefaultPrinterConfig()); got != printed {
		t.Errorf("nested package round trip mismatch:\n%s\nvs\n%s", printed, got)
	}
}

func TestDecodeRequiresRootNamespace(t *testing.T) {
	elements := []model.Element{
		{"@id": "a", "@type": "PartDefinition", "name": "A"},
	}
	if _, err := Decode(elements); err == nil {
		t.Error("decode without root namespace should fail")
	}
}

func TestDecodeUsesInjectedTypeRef(t *testing.T) {
	// Cleanup inference writes a "type" ref directly onto the feature
	// instead of materializing a FeatureTyping element.
	elements := []model.Element{
		{"@id": "root", "@type": "Namespace"},
		{"@id": "pkg", "@type": "Package", "name": "P",
			"owningRelationship": map[string]any{"@id": "m1"}},
		{"@id": "m1", "@type": "OwningMembership",
			"memberElement":   map[string]any{"@id": "pkg"},
			"owningNamespace": map[string]any{"@id": "root"}},
		{"@id": "comp", "@type": "PartDefinition", "name": "Component",
			"owningRelationship": map[string]any{"@id": "m2"}},
		{"@id": "m2", "@type": "OwningMembership",
			"memberElement":   map[string]any{"@id": "comp"},
			"owningNamespace": map[string]any{"@id": "pkg"}},
		{"@id": "kids", "@type": "PartUsage", "name": "children",
			"type":               map[string]any{"@id": "comp"},
			"lowerBound":         "0",
			"upperBound":         "*",
			"owningRelationship": map[string]any{"@id": "m3"}},
		{"@id": "m3", "@type": "FeatureMembership",
			"memberElement": map[string]any{"@id": "kids"},
			"featuringType": map[string]any{"@id": "comp"}},
	}

	decoded, err := Decode(elements)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	comp := decoded.Packages[0].Members[0].(*PartDef)
	children := comp.Members[0].(*PartUsage)
	if children.TypeName != "Component" {
		t.Errorf("expected children typed Component via injected ref, got %q", children.TypeName)
	}

	out := Print(decoded, DefaultPrinterConfig())
	want := "part children : Component [0..*];"
	if !containsLine(out, want) {
		t.Errorf("expected rendered line %q in:\n%s", want, out)
	}
}

func containsLine(text, want string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == want {
			return true
		}
	}
	return false
}
