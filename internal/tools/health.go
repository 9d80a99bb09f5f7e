package tools

import (
	"context"
	"encoding/json"

	"github.com/mbsekit/flexo-bridge/internal/syside"
	"github.com/mbsekit/flexo-bridge/pkg/version"
)

type HealthTool struct {
	repositoryURL string
	checker       *syside.Checker
}

func NewHealthTool(repositoryURL string, checker *syside.Checker) *HealthTool {
	return &HealthTool{repositoryURL: repositoryURL, checker: checker}
}

func (t *HealthTool) Name() string {
	return "health"
}

func (t *HealthTool) Description() string {
	return "Report bridge status, repository endpoint, and checker state"
}

func (t *HealthTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *HealthTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	out := map[string]any{
		"status":     "healthy",
		"version":    version.Version,
		"repository": t.repositoryURL,
	}

	if t.checker != nil && t.checker.Enabled() {
		out["checker"] = map[string]any{
			"command":   t.checker.Command(),
			"installed": t.checker.IsInstalled(),
			"state":     t.checker.State(),
			"circuit":   t.checker.CircuitState(),
		}
	}

	return out, nil
}
