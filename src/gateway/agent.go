package gateway

import (
	"context"

	agent "github.com/Protocol-Lattice/go-agent"
	adk "github.com/Protocol-Lattice/go-agent/src/adk"
	adkmodules "github.com/Protocol-Lattice/go-agent/src/adk/modules"
	"github.com/Protocol-Lattice/go-agent/src/memory"
	"github.com/Protocol-Lattice/go-agent/src/models"
)

// AgentClient answers generation calls through a go-agent ADK agent with a
// Gemini model module. It can serve any role; the role tag doubles as the
// agent session id so each role keeps its own memory thread.
type AgentClient struct {
	ag *agent.Agent
}

// NewAgentClient builds the ADK agent. The default system prompt is the
// studio contract; role-specific instructions arrive per call and are folded
// into the prompt.
func NewAgentClient(ctx context.Context, model string) (*AgentClient, error) {
	if model == "" {
		model = "gemini-2.5-pro"
	}
	memOpts := memory.DefaultOptions()
	builder, err := adk.New(
		ctx,
		adk.WithDefaultSystemPrompt("You are a careful code analysis assistant inside a code modification studio."),
		adk.WithModules(
			adkmodules.InMemoryMemoryModule(10000, memory.AutoEmbedder(), &memOpts),
			adkmodules.NewModelModule("gemini", func(_ context.Context) (models.Agent, error) {
				return models.NewGeminiLLM(ctx, model, "Plan and review generator")
			}),
		),
	)
	if err != nil {
		return nil, err
	}
	ag, err := builder.BuildAgent(ctx)
	if err != nil {
		return nil, err
	}
	return &AgentClient{ag: ag}, nil
}

func (c *AgentClient) Generate(ctx context.Context, role Role, system, user string) (string, error) {
	prompt := user
	if system != "" {
		prompt = system + "\n\n" + user
	}
	out, err := c.ag.Generate(ctx, string(role), prompt)
	if err != nil {
		return "", &GatewayError{Provider: "agent", Err: err}
	}
	return out, nil
}
