package algorand

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

const (
	toolNFDGet        = "nfd_get_nfd"
	toolNFDForAddress = "nfd_get_nfds_for_address"
	toolNFDSearch     = "nfd_search_nfds"
)

type nfdNameInput struct {
	Name string `json:"name" jsonschema:"NFD domain name to look up, e.g. example.algo"`
}

type nfdSearchInput struct {
	Search string `json:"search" jsonschema:"Search term for NFD domains"`
	Limit  uint64 `json:"limit,omitempty" jsonschema:"Maximum number of results to return"`
}

func (t *Toolkit) registerNFDTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolNFDGet,
		Description: "Get NFD domain information by name",
	}, t.handleNFDGet)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolNFDForAddress,
		Description: "Get all NFD domains owned by an address",
	}, t.handleNFDForAddress)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolNFDSearch,
		Description: "Search for NFD domains",
	}, t.handleNFDSearch)
}

func (t *Toolkit) handleNFDGet(ctx context.Context, _ *mcp.CallToolRequest, input nfdNameInput) (*mcp.CallToolResult, any, error) {
	if input.Name == "" {
		return toolkit.ErrorResult("name is required"), nil, nil
	}
	return upstreamResult(t.client.NFD(ctx, input.Name)), nil, nil
}

func (t *Toolkit) handleNFDForAddress(ctx context.Context, _ *mcp.CallToolRequest, input addressInput) (*mcp.CallToolResult, any, error) {
	if !algoclient.IsValidAddress(input.Address) {
		return invalidAddress(input.Address), nil, nil
	}
	return upstreamResult(t.client.NFDsForAddress(ctx, input.Address)), nil, nil
}

func (t *Toolkit) handleNFDSearch(ctx context.Context, _ *mcp.CallToolRequest, input nfdSearchInput) (*mcp.CallToolResult, any, error) {
	if input.Search == "" {
		return toolkit.ErrorResult("search is required"), nil, nil
	}
	return upstreamResult(t.client.SearchNFDs(ctx, input.Search, input.Limit)), nil, nil
}
