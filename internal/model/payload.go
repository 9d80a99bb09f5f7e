package model

// ChangeEntry is the shape the repository's commit endpoint expects: one
// element wrapped with its identity.
type ChangeEntry struct {
	Payload  Element `json:"payload"`
	Identity Element `json:"identity"`
}

// ReplaceNilWithEmpty walks obj and replaces nil map values with the empty
// string. The repository currently rejects JSON nulls in element payloads
// (qualifiedName is the usual offender). Nils inside lists are kept.
func ReplaceNilWithEmpty(obj any) any {
	switch val := obj.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			if v == nil {
				out[k] = ""
				continue
			}
			out[k] = ReplaceNilWithEmpty(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = ReplaceNilWithEmpty(v)
		}
		return out
	default:
		return obj
	}
}

// StripURIFields removes every "@uri" key from a nested structure.
func StripURIFields(obj any) any {
	switch val := obj.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			if k == KeyURI {
				continue
			}
			out[k] = StripURIFields(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = StripURIFields(v)
		}
		return out
	default:
		return obj
	}
}

// WrapPayload turns serialized elements into commit change entries: nils
// replaced, "@uri" fields removed, each element wrapped with an identity
// carrying its "@id" (empty when the element has none).
func WrapPayload(elements []Element) []ChangeEntry {
	entries := make([]ChangeEntry, 0, len(elements))
	for _, el := range elements {
		cleaned := StripURIFields(ReplaceNilWithEmpty(el)).(map[string]any)

		identity := Element{}
		if id, ok := cleaned[KeyID]; ok {
			identity[KeyID] = id
		}

		entries = append(entries, ChangeEntry{
			Payload:  cleaned,
			Identity: identity,
		})
	}
	return entries
}
