// Package model defines the JSON element graph exchanged with a Flexo
// model repository. An element is a JSON object carrying "@id" and "@type";
// a thin reference is an object carrying "@id" without "@type".
package model

// Element is a single model element or relationship as it appears in
// repository JSON. Property values are scalars, thin references, nested
// elements, or lists of those.
type Element = map[string]any

const (
	KeyID   = "@id"
	KeyType = "@type"
	KeyURI  = "@uri"
)

// Metaclass names the cleaner and codec care about.
const (
	TypeNamespace           = "Namespace"
	TypeEmpty               = "Empty"
	TypePackage             = "Package"
	TypePartDefinition      = "PartDefinition"
	TypePartUsage           = "PartUsage"
	TypeAttributeDefinition = "AttributeDefinition"
	TypeAttributeUsage      = "AttributeUsage"
	TypeDocumentation       = "Documentation"
	TypeOwningMembership    = "OwningMembership"
	TypeFeatureMembership   = "FeatureMembership"
	TypeSubclassification   = "Subclassification"
	TypeSpecialization      = "Specialization"
	TypeSubsetting          = "Subsetting"
	TypeFeatureTyping       = "FeatureTyping"
	TypeTypeFeaturing       = "TypeFeaturing"
	TypeFeatureValue        = "FeatureValue"
	TypeLiteralString       = "LiteralString"
	TypeLiteralInteger      = "LiteralInteger"
	TypeLiteralRational     = "LiteralRational"
	TypeLiteralBoolean      = "LiteralBoolean"
	TypeImport              = "NamespaceImport"
)

// MembershipTypes are the relationship kinds that glue the containment tree
// together. The cleaner never drops them.
var MembershipTypes = map[string]bool{
	"OwningMembership":    true,
	"FeatureMembership":   true,
	"NamespaceMembership": true,
	"Membership":          true,
	"ParameterMembership": true,
}

// Ref builds a thin reference to id.
func Ref(id string) Element {
	return Element{KeyID: id}
}

// ID returns the element's "@id" when it is a string.
func ID(el Element) string {
	id, _ := el[KeyID].(string)
	return id
}

// Type returns the element's "@type" when it is a string.
func Type(el Element) string {
	t, _ := el[KeyType].(string)
	return t
}

// IsRef reports whether obj is a thin reference: an object with "@id" but
// no "@type", regardless of extra fields.
func IsRef(obj any) bool {
	m, ok := obj.(map[string]any)
	if !ok {
		return false
	}
	_, hasID := m[KeyID]
	_, hasType := m[KeyType]
	return hasID && !hasType
}

// IsDefinition reports whether obj is a full element definition: an object
// carrying both "@id" and "@type".
func IsDefinition(obj any) bool {
	m, ok := obj.(map[string]any)
	if !ok {
		return false
	}
	if _, ok := m[KeyID].(string); !ok {
		return false
	}
	_, hasType := m[KeyType]
	return hasType
}

// FirstID extracts the first "@id" from a reference value that may be a
// single object or a list of objects.
func FirstID(v any) string {
	switch val := v.(type) {
	case map[string]any:
		if id, ok := val[KeyID].(string); ok {
			return id
		}
	case []any:
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				if id, ok := m[KeyID].(string); ok {
					return id
				}
			}
		}
	}
	return ""
}

// DefinedIDs recursively collects the ids of every full definition in the
// element list. Thin references do not contribute.
func DefinedIDs(elements []Element) map[string]bool {
	ids := make(map[string]bool)
	var collect func(obj any)
	collect = func(obj any) {
		switch val := obj.(type) {
		case map[string]any:
			if IsDefinition(val) {
				ids[val[KeyID].(string)] = true
			}
			for _, v := range val {
				collect(v)
			}
		case []any:
			for _, v := range val {
				collect(v)
			}
		}
	}
	for _, el := range elements {
		collect(el)
	}
	return ids
}

// RefIDs recursively collects the target ids of every thin reference.
func RefIDs(elements []Element) map[string]bool {
	ids := make(map[string]bool)
	var collect func(obj any)
	collect = func(obj any) {
		switch val := obj.(type) {
		case map[string]any:
			if IsRef(val) {
				if id, ok := val[KeyID].(string); ok {
					ids[id] = true
				}
			}
			for _, v := range val {
				collect(v)
			}
		case []any:
			for _, v := range val {
				collect(v)
			}
		}
	}
	for _, el := range elements {
		collect(el)
	}
	return ids
}

// AllRefsDefined reports whether every thin reference inside obj points at
// a defined element.
func AllRefsDefined(obj any, defined map[string]bool) bool {
	switch val := obj.(type) {
	case map[string]any:
		if IsRef(val) {
			if id, ok := val[KeyID].(string); ok && !defined[id] {
				return false
			}
		}
		for _, v := range val {
			if !AllRefsDefined(v, defined) {
				return false
			}
		}
		return true
	case []any:
		for _, v := range val {
			if !AllRefsDefined(v, defined) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// IsRootNamespace reports whether el is an importable entry point: a
// Namespace that is owned by nothing.
func IsRootNamespace(el Element) bool {
	if Type(el) != TypeNamespace {
		return false
	}
	_, owned := el["owningRelationship"]
	return !owned
}

// RootNamespaceIDs returns the ids of every root namespace candidate.
func RootNamespaceIDs(elements []Element) map[string]bool {
	roots := make(map[string]bool)
	for _, el := range elements {
		if IsRootNamespace(el) && ID(el) != "" {
			roots[ID(el)] = true
		}
	}
	return roots
}
