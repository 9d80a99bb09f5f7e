package clean

import (
	"github.com/mbsekit/flexo-bridge/internal/model"
)

// InjectInferredTypes adds missing "type" references to feature definitions
// after cleanup. Two sources, in order:
//
//  1. surviving FeatureTyping/TypeFeaturing relationships;
//  2. for features named "children" that still lack a type, the owning
//     PartDefinition found through membership relationships. Exports often
//     omit the explicit typing for the children collection, which otherwise
//     renders as an untyped feature.
//
// Inference only adds fields to full definitions; references are never
// touched.
func InjectInferredTypes(elements []model.Element) []model.Element {
	featureOwner := make(map[string]string)
	for _, el := range elements {
		if !model.MembershipTypes[model.Type(el)] {
			continue
		}
		featureID := firstOf(el, "memberElement", "feature")
		ownerID := firstOf(el, "featuringType", "owningType", "owningNamespace")
		if featureID != "" && ownerID != "" {
			featureOwner[featureID] = ownerID
		}
	}

	featureType := make(map[string]string)
	for _, el := range elements {
		t := model.Type(el)
		if t != model.TypeFeatureTyping && t != model.TypeTypeFeaturing {
			continue
		}
		featureID := firstOf(el, "typedFeature", "feature")
		typeID := firstOf(el, "type", "featuringType", "general")
		if featureID != "" && typeID != "" {
			featureType[featureID] = typeID
		}
	}

	if len(featureType) > 0 {
		log.Debug("inferred feature types from typing relationships", "count", len(featureType))
	}

	byID := make(map[string]model.Element)
	for _, el := range elements {
		if model.IsDefinition(el) {
			byID[model.ID(el)] = el
		}
	}

	partDefs := make(map[string]bool)
	for id, el := range byID {
		if model.Type(el) == model.TypePartDefinition {
			partDefs[id] = true
		}
	}

	for featureID, typeID := range featureType {
		def, ok := byID[featureID]
		if !ok {
			continue
		}
		if _, typed := def["type"]; !typed {
			def["type"] = model.Ref(typeID)
			log.Debug("injected feature type", "feature", featureID, "type", typeID)
		}
	}

	for _, def := range byID {
		if _, typed := def["type"]; typed {
			continue
		}
		if name, _ := def["name"].(string); name != "children" {
			continue
		}

		ownerID := featureOwner[model.ID(def)]
		if ownerID == "" {
			ownerID = firstOf(def, "owningType", "owningNamespace", "featuringType")
		}

		if partDefs[ownerID] {
			def["type"] = model.Ref(ownerID)
			log.Debug("self-typed children feature", "feature", model.ID(def), "type", ownerID)
		}
	}

	return elements
}

func firstOf(el model.Element, keys ...string) string {
	for _, key := range keys {
		if id := model.FirstID(el[key]); id != "" {
			return id
		}
	}
	return ""
}
