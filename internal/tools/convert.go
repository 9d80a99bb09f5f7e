package tools

import (
	"context"
	"encoding/json"

	"github.com/mbsekit/flexo-bridge/internal/bridge"
	"github.com/mbsekit/flexo-bridge/internal/notation"
)

// ConvertTextToJSONTool turns textual notation into the element graph
// payload a repository commit expects.
type ConvertTextToJSONTool struct {
	converter *bridge.Converter
}

func NewConvertTextToJSONTool(converter *bridge.Converter) *ConvertTextToJSONTool {
	return &ConvertTextToJSONTool{converter: converter}
}

func (t *ConvertTextToJSONTool) Name() string {
	return "convert_text_to_json"
}

func (t *ConvertTextToJSONTool) Title() string {
	return "Convert SysML text to element graph"
}

func (t *ConvertTextToJSONTool) Description() string {
	return "Parse SysML v2 textual notation and return the element graph as commit-ready JSON"
}

func (t *ConvertTextToJSONTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"source": {
				"type": "string",
				"description": "SysML v2 textual notation"
			},
			"wrap": {
				"type": "boolean",
				"description": "Wrap elements as commit change entries",
				"default": true
			},
			"minimal": {
				"type": "boolean",
				"description": "Omit derived properties the repository recomputes",
				"default": false
			}
		},
		"required": ["source"]
	}`)
}

func (t *ConvertTextToJSONTool) Annotations() map[string]bool {
	return LocalReadOnlyAnnotations()
}

func (t *ConvertTextToJSONTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var params struct {
		Source  string `json:"source"`
		Wrap    *bool  `json:"wrap"`
		Minimal bool   `json:"minimal"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, NewInvalidInputError(t.Name(), err)
	}

	wrap := params.Wrap == nil || *params.Wrap

	// Copy so a per-call minimal flag never leaks into the shared converter.
	conv := *t.converter
	conv.Encoding.Minimal = params.Minimal

	if wrap {
		payload, diags, err := conv.TextToPayload(params.Source)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"change":      payload,
			"diagnostics": diagnosticsList(diags),
		}, nil
	}

	elements, diags, err := conv.TextToElements(params.Source)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"elements":    elements,
		"diagnostics": diagnosticsList(diags),
	}, nil
}

// ConvertJSONToTextTool renders an element graph document as textual
// notation, cleaning it first.
type ConvertJSONToTextTool struct {
	converter *bridge.Converter
}

func NewConvertJSONToTextTool(converter *bridge.Converter) *ConvertJSONToTextTool {
	return &ConvertJSONToTextTool{converter: converter}
}

func (t *ConvertJSONToTextTool) Name() string {
	return "convert_json_to_text"
}

func (t *ConvertJSONToTextTool) Title() string {
	return "Convert element graph to SysML text"
}

func (t *ConvertJSONToTextTool) Description() string {
	return "Clean a repository element graph and render it as SysML v2 textual notation"
}

func (t *ConvertJSONToTextTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"elements": {
				"description": "Element graph as a JSON array or single object"
			}
		},
		"required": ["elements"]
	}`)
}

func (t *ConvertJSONToTextTool) Annotations() map[string]bool {
	return LocalReadOnlyAnnotations()
}

func (t *ConvertJSONToTextTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var params struct {
		Elements json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, NewInvalidInputError(t.Name(), err)
	}

	text, err := t.converter.JSONToText(params.Elements)
	if err != nil {
		return nil, err
	}

	return map[string]any{"text": text}, nil
}

func diagnosticsList(diags *notation.Diagnostics) []string {
	if diags == nil {
		return nil
	}
	out := make([]string, 0, len(diags.Items))
	for _, d := range diags.Items {
		out = append(out, d.String())
	}
	return out
}
