package tools

import (
	"context"
	"encoding/json"

	"github.com/mbsekit/flexo-bridge/internal/diff"
)

// DiffModelsTool compares two model snapshots while ignoring the UUID
// churn reserialization causes.
type DiffModelsTool struct{}

func NewDiffModelsTool() *DiffModelsTool {
	return &DiffModelsTool{}
}

func (t *DiffModelsTool) Name() string {
	return "diff_models"
}

func (t *DiffModelsTool) Title() string {
	return "Diff model snapshots"
}

func (t *DiffModelsTool) Description() string {
	return "Compare two model snapshots (text or JSON) ignoring element UUIDs and formatting"
}

func (t *DiffModelsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"a": {
				"type": "string",
				"description": "First snapshot"
			},
			"b": {
				"type": "string",
				"description": "Second snapshot"
			},
			"strict_whitespace": {
				"type": "boolean",
				"description": "Count whitespace differences",
				"default": false
			}
		},
		"required": ["a", "b"]
	}`)
}

func (t *DiffModelsTool) Annotations() map[string]bool {
	return LocalReadOnlyAnnotations()
}

func (t *DiffModelsTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var params struct {
		A                string `json:"a"`
		B                string `json:"b"`
		StrictWhitespace bool   `json:"strict_whitespace"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, NewInvalidInputError(t.Name(), err)
	}

	opts := diff.DefaultOptions()
	if params.StrictWhitespace {
		opts.NormalizeWhitespace = false
	}

	text, err := diff.Diff(params.A, params.B, opts)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"equal": text == "",
		"diff":  text,
	}, nil
}
