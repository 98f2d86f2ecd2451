package agent

import (
	"fmt"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/samber/lo"
)

// Registry is the closed catalog of tools the agent may invoke. It is built
// once at startup and read-only afterwards, so lookups need no locking. A
// tool name proposed by the model that is not in the registry is rejected at
// dispatch time, never executed.
type Registry struct {
	tools map[string]AgentTool
	order []string
}

func NewRegistry(tools ...AgentTool) (*Registry, error) {
	r := &Registry{
		tools: make(map[string]AgentTool, len(tools)),
	}

	for _, tool := range tools {
		if tool == nil {
			return nil, fmt.Errorf("nil tool passed to registry")
		}
		name := tool.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name passed to registry")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("tool %s registered twice", name)
		}
		r.tools[name] = tool
		r.order = append(r.order, name)
	}

	return r, nil
}

func (r *Registry) Get(name string) (AgentTool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns the tools in registration order.
func (r *Registry) List() []AgentTool {
	return lo.Map(r.order, func(name string, _ int) AgentTool {
		return r.tools[name]
	})
}

// ToolSpecs builds the schema catalog handed to the reasoning model on
// every decision step.
func (r *Registry) ToolSpecs() []anthropic.ToolUnionParam {
	return lo.Map(r.List(), func(tool AgentTool, _ int) anthropic.ToolUnionParam {
		return anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name(),
				Description: anthropic.String(tool.Description()),
				InputSchema: tool.GetAnthropicToolSpec(),
			},
		}
	})
}

// Capabilities describes the registered tools for the host boundary's
// capability listing. Everything in the registry is available; tools whose
// provider credentials are missing never get registered.
func (r *Registry) Capabilities() []models.Capability {
	return lo.Map(r.List(), func(tool AgentTool, _ int) models.Capability {
		return models.Capability{
			Name:        tool.Name(),
			Description: tool.Description(),
			Available:   true,
		}
	})
}
