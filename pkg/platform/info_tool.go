package platform

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

const infoToolName = "server_info"

// Info describes this gateway deployment.
type Info struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Network  string          `json:"network"`
	Services map[string]bool `json:"services,omitempty"`
	Toolkits []string        `json:"toolkits"`
	Tools    int             `json:"tools"`
	Sessions *int            `json:"sessions,omitempty"`
	Features Features        `json:"features"`
}

// Features describes enabled gateway features.
type Features struct {
	WalletStore string `json:"wallet_store"`
	Metrics     bool   `json:"metrics"`
	APIKeyAuth  bool   `json:"api_key_auth"`
	IdleExpiry  bool   `json:"idle_expiry"`
	Audit       bool   `json:"audit"`
}

// endpointReporter is implemented by clients that expose their endpoints.
type endpointReporter interface {
	Endpoints() algoclient.Endpoints
}

// serverInfoInput is empty since this tool has no parameters.
type serverInfoInput struct{}

// registerInfoTool registers the server_info tool with the MCP server.
func (p *Platform) registerInfoTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        infoToolName,
		Description: p.buildInfoToolDescription(),
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ serverInfoInput) (*mcp.CallToolResult, any, error) {
		return p.handleInfo(ctx, req)
	})
}

// buildInfoToolDescription builds the tool description from configuration.
func (p *Platform) buildInfoToolDescription() string {
	base := "Get information about this Algorand MCP server"
	if p.config.Server.Name != "" && p.config.Server.Name != defaultServerName {
		base = fmt.Sprintf("Get information about %s", p.config.Server.Name)
	}
	return base + ", including the Algorand network it targets, which upstream services are " +
		"reachable and the available toolkits."
}

// handleInfo handles the server_info tool call.
func (p *Platform) handleInfo(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, any, error) {
	return toolkit.JSONResult(p.info()), nil, nil
}

func (p *Platform) info() Info {
	all := p.toolkitRegistry.All()
	toolkits := make([]string, 0, len(all))
	for _, tk := range all {
		toolkits = append(toolkits, tk.Kind()+":"+tk.Name())
	}

	info := Info{
		Name:     p.config.Server.Name,
		Version:  p.config.Server.Version,
		Network:  string(p.algorandClient.Network()),
		Toolkits: toolkits,
		Tools:    len(p.toolkitRegistry.AllTools()) + p.platformToolCount(),
		Features: Features{
			WalletStore: p.config.Wallet.Store,
			Metrics:     p.metricsRegistry != nil,
			APIKeyAuth:  len(p.config.Auth.APIKeys) > 0,
			IdleExpiry:  p.config.Sessions.IdleTimeout > 0,
			Audit:       p.auditLogger != nil,
		},
	}

	if r, ok := p.algorandClient.(endpointReporter); ok {
		ep := r.Endpoints()
		info.Services = map[string]bool{
			"algod":   ep.AlgodURL != "",
			"indexer": ep.IndexerURL != "",
			"nfd":     ep.NFDURL != "",
			"faucet":  ep.FaucetURL != "" && p.algorandClient.Network() == algoclient.Testnet,
		}
	}

	if p.router != nil {
		n := p.router.Registry().Len()
		info.Sessions = &n
	}
	return info
}

// platformToolCount is the number of tools registered by the platform
// itself rather than by a toolkit.
func (p *Platform) platformToolCount() int {
	if p.auditLogger != nil {
		return 2
	}
	return 1
}
