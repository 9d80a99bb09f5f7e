// Package clean repairs element graphs fetched from a model repository so
// the notation decoder can load them. Repository snapshots routinely contain
// dangling references, placeholder elements, and half-specified heritage
// relationships; the cleaner removes those while keeping the containment
// backbone intact.
package clean

import (
	"encoding/json"
	"fmt"

	"github.com/mbsekit/flexo-bridge/internal/logger"
	"github.com/mbsekit/flexo-bridge/internal/model"
)

var log = logger.ForComponent("clean")

// StrictRelationshipTypes are heritage relationships dropped when they are
// incomplete or reference undefined elements. Kept deliberately small:
// widening the set causes over-deletion on partially synced models.
var StrictRelationshipTypes = map[string]bool{
	model.TypeSubsetting:        true,
	model.TypeSpecialization:    true,
	model.TypeSubclassification: true,
}

type Options struct {
	// PreserveRefsWithURI keeps unresolved thin refs that carry an @uri,
	// since the target may live in another repository.
	PreserveRefsWithURI bool
	MaxIterations       int
}

func DefaultOptions() Options {
	return Options{
		PreserveRefsWithURI: true,
		MaxIterations:       12,
	}
}

// Elements runs the fixpoint cleanup followed by type inference and returns
// the surviving element list.
func Elements(elements []model.Element, opts Options) []model.Element {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}

	c := &cleaner{opts: opts}
	elements = c.run(elements)
	return InjectInferredTypes(elements)
}

// JSON cleans a raw JSON document. The top level may be an element list, a
// {"elements": [...]} wrapper (restored on output), or a single element.
func JSON(data []byte, opts Options) ([]byte, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse model json: %w", err)
	}

	elements, wrapper, single, err := normalize(raw)
	if err != nil {
		return nil, err
	}

	cleaned := Elements(elements, opts)

	var out any
	switch {
	case wrapper != nil:
		wrapper["elements"] = toAny(cleaned)
		out = wrapper
	case single && len(cleaned) == 1:
		out = cleaned[0]
	default:
		out = toAny(cleaned)
	}

	return json.Marshal(out)
}

func normalize(raw any) (elements []model.Element, wrapper map[string]any, single bool, err error) {
	switch val := raw.(type) {
	case []any:
		for _, item := range val {
			el, ok := item.(map[string]any)
			if !ok {
				return nil, nil, false, fmt.Errorf("element list contains non-object entry %T", item)
			}
			elements = append(elements, el)
		}
		return elements, nil, false, nil
	case map[string]any:
		if inner, ok := val["elements"].([]any); ok {
			for _, item := range inner {
				el, ok := item.(map[string]any)
				if !ok {
					return nil, nil, false, fmt.Errorf("element list contains non-object entry %T", item)
				}
				elements = append(elements, el)
			}
			return elements, val, false, nil
		}
		return []model.Element{val}, nil, true, nil
	default:
		return nil, nil, false, fmt.Errorf("unsupported top-level json %T", raw)
	}
}

func toAny(elements []model.Element) []any {
	out := make([]any, len(elements))
	for i, el := range elements {
		out[i] = el
	}
	return out
}

type cleaner struct {
	opts    Options
	changed bool
}

// dropped is the sentinel returned when a subtree must be removed.
type droppedMarker struct{}

var dropped any = droppedMarker{}

func (c *cleaner) run(elements []model.Element) []model.Element {
	iters := 0

	for iters < c.opts.MaxIterations {
		iters++
		c.changed = false

		defined := model.DefinedIDs(elements)
		protected := model.RootNamespaceIDs(elements)
		if len(protected) == 0 {
			log.Warn("no root namespace candidates in snapshot")
		}

		if unresolved := countUnresolved(elements, defined); unresolved > 0 {
			log.Debug("unresolved thin refs", "count", unresolved, "iteration", iters)
		}

		// Nested prune: empties, dangling thin refs, broken nested
		// heritage relationships.
		pruned := make([]model.Element, 0, len(elements))
		for _, el := range elements {
			res := c.prune(el, defined)
			if res == dropped {
				c.changed = true
				continue
			}
			pruned = append(pruned, res.(map[string]any))
		}
		elements = pruned

		// Top-level gate with a refreshed id set.
		defined = model.DefinedIDs(elements)

		kept := make([]model.Element, 0, len(elements))
		for _, el := range elements {
			if protected[model.ID(el)] {
				kept = append(kept, el)
				continue
			}

			if isRelationshipIncomplete(el, defined) {
				log.Debug("dropping incomplete relationship", "type", model.Type(el), "id", model.ID(el))
				c.changed = true
				continue
			}

			t := model.Type(el)
			if StrictRelationshipTypes[t] && !model.AllRefsDefined(el, defined) {
				log.Debug("dropping relationship with unresolved refs", "type", t, "id", model.ID(el))
				c.changed = true
				continue
			}

			// Memberships glue the tree together; keep them even when
			// imperfect so the decoder still has a connected graph.
			if model.MembershipTypes[t] && !model.AllRefsDefined(el, defined) {
				log.Debug("keeping imperfect membership", "type", t, "id", model.ID(el))
			}

			kept = append(kept, el)
		}
		elements = kept

		if !c.changed {
			break
		}
	}

	if c.changed {
		log.Warn("cleanup hit iteration limit before fixpoint",
			"iterations", iters, "elements", len(elements))
	} else {
		log.Debug("cleanup converged", "iterations", iters, "elements", len(elements))
	}

	return elements
}

func (c *cleaner) prune(obj any, defined map[string]bool) any {
	if m, ok := obj.(map[string]any); ok {
		if model.Type(m) == model.TypeEmpty {
			return dropped
		}

		if StrictRelationshipTypes[model.Type(m)] {
			if isRelationshipIncomplete(m, defined) || !model.AllRefsDefined(m, defined) {
				return dropped
			}
		}

		if model.IsRef(m) {
			id, _ := m[model.KeyID].(string)
			if !defined[id] {
				if c.opts.PreserveRefsWithURI {
					if _, hasURI := m[model.KeyURI]; hasURI {
						return m
					}
				}
				return dropped
			}
			return m
		}

		out := make(map[string]any, len(m))
		for k, v := range m {
			cv := c.prune(v, defined)
			if cv == dropped {
				c.changed = true
				continue
			}
			out[k] = cv
		}
		return out
	}

	if list, ok := obj.([]any); ok {
		out := make([]any, 0, len(list))
		for _, item := range list {
			ci := c.prune(item, defined)
			if ci == dropped {
				c.changed = true
				continue
			}
			out = append(out, ci)
		}
		return out
	}

	return obj
}

// isRelationshipIncomplete applies the per-kind minimal viability rules.
// Memberships are never reported incomplete here; the top-level gate keeps
// them regardless.
func isRelationshipIncomplete(el model.Element, defined map[string]bool) bool {
	refDefined := func(v any) bool {
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		id, ok := m[model.KeyID].(string)
		return ok && defined[id]
	}

	has := func(name string) bool {
		v, ok := el[name]
		if !ok {
			return false
		}
		if list, ok := v.([]any); ok {
			for _, item := range list {
				if refDefined(item) {
					return true
				}
			}
			return false
		}
		return refDefined(v)
	}

	switch model.Type(el) {
	case model.TypeSubsetting:
		heritage := has("specific") && has("general")
		features := has("subsettingFeature") && has("subsettedFeature")
		return !(heritage || features)
	case model.TypeSpecialization, model.TypeSubclassification:
		return !(has("specific") && has("general"))
	case model.TypeFeatureTyping, model.TypeTypeFeaturing:
		return !(has("typedFeature") && (has("type") || has("general")))
	case model.TypeFeatureValue:
		return !(has("featureWithValue") && has("value"))
	default:
		return false
	}
}

func countUnresolved(elements []model.Element, defined map[string]bool) int {
	n := 0
	for id := range model.RefIDs(elements) {
		if !defined[id] {
			n++
		}
	}
	return n
}
