package tools

import (
	"context"
	"encoding/json"

	"github.com/mbsekit/flexo-bridge/internal/bridge"
	"github.com/mbsekit/flexo-bridge/internal/flexo"
)

// PullModelTool fetches the latest commit of a project as textual notation.
type PullModelTool struct {
	bridge *bridge.Bridge
}

func NewPullModelTool(b *bridge.Bridge) *PullModelTool {
	return &PullModelTool{bridge: b}
}

func (t *PullModelTool) Name() string {
	return "pull_model"
}

func (t *PullModelTool) Title() string {
	return "Pull model from repository"
}

func (t *PullModelTool) Description() string {
	return "Fetch the latest commit of a repository project and render it as SysML v2 text"
}

func (t *PullModelTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"project": {
				"type": "string",
				"description": "Project name in the repository"
			}
		},
		"required": ["project"]
	}`)
}

func (t *PullModelTool) Annotations() map[string]bool {
	return ReadOnlyAnnotations()
}

func (t *PullModelTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var params struct {
		Project string `json:"project"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, NewInvalidInputError(t.Name(), err)
	}

	result, err := t.bridge.Pull(ctx, params.Project)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"project":    result.Project.Name,
		"project_id": result.Project.ID,
		"commit_id":  result.Commit.ID,
		"text":       result.Textual,
		"from_cache": result.FromCache,
	}, nil
}

// PushModelTool commits textual notation to a project.
type PushModelTool struct {
	bridge *bridge.Bridge
}

func NewPushModelTool(b *bridge.Bridge) *PushModelTool {
	return &PushModelTool{bridge: b}
}

func (t *PushModelTool) Name() string {
	return "push_model"
}

func (t *PushModelTool) Title() string {
	return "Push model to repository"
}

func (t *PushModelTool) Description() string {
	return "Parse SysML v2 text and commit it to a repository project, creating the project if needed"
}

func (t *PushModelTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"project": {
				"type": "string",
				"description": "Project name in the repository"
			},
			"source": {
				"type": "string",
				"description": "SysML v2 textual notation to commit"
			},
			"description": {
				"type": "string",
				"description": "Commit description"
			}
		},
		"required": ["project", "source"]
	}`)
}

func (t *PushModelTool) Annotations() map[string]bool {
	return WriteAnnotations()
}

func (t *PushModelTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var params struct {
		Project     string `json:"project"`
		Source      string `json:"source"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, NewInvalidInputError(t.Name(), err)
	}

	result, err := t.bridge.Push(ctx, params.Project, params.Source, params.Description)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"project":         result.Project.Name,
		"project_id":      result.Project.ID,
		"commit_id":       result.Commit.ID,
		"created_project": result.CreatedProject,
	}
	if result.Diagnostics != nil && len(result.Diagnostics.Items) > 0 {
		out["diagnostics"] = diagnosticsList(result.Diagnostics)
	}
	return out, nil
}

// ListProjectsTool enumerates repository projects.
type ListProjectsTool struct {
	client *flexo.Client
}

func NewListProjectsTool(client *flexo.Client) *ListProjectsTool {
	return &ListProjectsTool{client: client}
}

func (t *ListProjectsTool) Name() string {
	return "list_projects"
}

func (t *ListProjectsTool) Title() string {
	return "List repository projects"
}

func (t *ListProjectsTool) Description() string {
	return "List all projects in the model repository"
}

func (t *ListProjectsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *ListProjectsTool) Annotations() map[string]bool {
	return ReadOnlyAnnotations()
}

func (t *ListProjectsTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	projects, err := t.client.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]any{"projects": projects}, nil
}
