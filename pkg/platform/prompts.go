package platform

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerServerPrompts registers server-level prompts from config.
func (p *Platform) registerServerPrompts() {
	for _, promptCfg := range p.config.Server.Prompts {
		p.registerPrompt(promptCfg)
	}
}

// registerPrompt registers a single static prompt with the MCP server.
func (p *Platform) registerPrompt(cfg PromptConfig) {
	content := cfg.Content

	p.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        cfg.Name,
		Description: cfg.Description,
	}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: cfg.Description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: content},
				},
			},
		}, nil
	})
}
