package diff

import (
	"strings"
	"testing"
)

func TestEqualIgnoresUUIDs(t *testing.T) {
	a := `[{"@id": "6f1c8a2e-0b7d-4f7c-9a34-55f4ba8a3f01", "@type": "Namespace"}]`
	b := `[{"@id": "0e2d9c4a-71b6-45e8-8d02-9cc01a7e55ff", "@type": "Namespace"}]`

	if !Equal(a, b, DefaultOptions()) {
		t.Error("snapshots differing only by UUID should compare equal")
	}
}

func TestEqualCanonicalizesKeyOrder(t *testing.T) {
	a := `{"name": "x", "@type": "Package"}`
	b := `{"@type": "Package", "name": "x"}`

	if !Equal(a, b, DefaultOptions()) {
		t.Error("key order should not matter for JSON inputs")
	}
}

func TestEqualNormalizesWhitespace(t *testing.T) {
	a := "part def  Car {\n  attribute mass;\n}"
	b := "part def Car { attribute mass; }"

	if !Equal(a, b, DefaultOptions()) {
		t.Error("whitespace runs should not matter")
	}
}

func TestEqualDetectsRealDifference(t *testing.T) {
	a := `{"@type": "PartDefinition", "name": "Car"}`
	b := `{"@type": "PartDefinition", "name": "Truck"}`

	if Equal(a, b, DefaultOptions()) {
		t.Error("different names must not compare equal")
	}
}

func TestDiffEmptyWhenEqual(t *testing.T) {
	a := `{"@id": "6f1c8a2e-0b7d-4f7c-9a34-55f4ba8a3f01"}`
	b := `{"@id": "0e2d9c4a-71b6-45e8-8d02-9cc01a7e55ff"}`

	out, err := Diff(a, b, DefaultOptions())
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty diff, got:\n%s", out)
	}
}

func TestDiffShowsChange(t *testing.T) {
	out, err := Diff("part def Car;", "part def Truck;", Options{})
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !strings.Contains(out, "-part def Car;") || !strings.Contains(out, "+part def Truck;") {
		t.Errorf("unexpected diff output:\n%s", out)
	}
}

func TestNonJSONInputPassesThrough(t *testing.T) {
	if Equal("not json {", "not json [", DefaultOptions()) {
		t.Error("distinct non-JSON inputs must not compare equal")
	}
	if !Equal("not  json {", "not json {", DefaultOptions()) {
		t.Error("whitespace normalization should still apply to non-JSON input")
	}
}
