package algorand

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

const (
	toolIndexerLookupAccount      = "indexer_lookup_account_by_id"
	toolIndexerLookupAsset        = "indexer_lookup_asset_by_id"
	toolIndexerLookupTransaction  = "indexer_lookup_transaction_by_id"
	toolIndexerSearchAccounts     = "indexer_search_for_accounts"
	toolIndexerSearchTransactions = "indexer_search_for_transactions"
)

type searchAccountsInput struct {
	Limit         uint64 `json:"limit,omitempty" jsonschema:"Maximum number of results to return"`
	AssetID       uint64 `json:"assetId,omitempty" jsonschema:"Filter by asset ID"`
	ApplicationID uint64 `json:"applicationId,omitempty" jsonschema:"Filter by application ID"`
}

type searchTransactionsInput struct {
	Limit         uint64 `json:"limit,omitempty" jsonschema:"Maximum number of results to return"`
	Address       string `json:"address,omitempty" jsonschema:"Filter by address"`
	AssetID       uint64 `json:"assetId,omitempty" jsonschema:"Filter by asset ID"`
	ApplicationID uint64 `json:"applicationId,omitempty" jsonschema:"Filter by application ID"`
}

func (t *Toolkit) registerIndexerTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolIndexerLookupAccount,
		Description: "Get account information from indexer",
	}, t.handleLookupAccount)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolIndexerLookupAsset,
		Description: "Get asset information from indexer",
	}, t.handleLookupAsset)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolIndexerLookupTransaction,
		Description: "Get transaction details from indexer",
	}, t.handleLookupTransaction)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolIndexerSearchAccounts,
		Description: "Search for accounts by asset or application",
	}, t.handleSearchAccounts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolIndexerSearchTransactions,
		Description: "Search for transactions by address, asset or application",
	}, t.handleSearchTransactions)
}

func (t *Toolkit) handleLookupAccount(ctx context.Context, _ *mcp.CallToolRequest, input addressInput) (*mcp.CallToolResult, any, error) {
	if !algoclient.IsValidAddress(input.Address) {
		return invalidAddress(input.Address), nil, nil
	}
	return upstreamResult(t.client.LookupAccount(ctx, input.Address)), nil, nil
}

func (t *Toolkit) handleLookupAsset(ctx context.Context, _ *mcp.CallToolRequest, input assetIDInput) (*mcp.CallToolResult, any, error) {
	return upstreamResult(t.client.LookupAsset(ctx, input.AssetID)), nil, nil
}

func (t *Toolkit) handleLookupTransaction(ctx context.Context, _ *mcp.CallToolRequest, input txIDInput) (*mcp.CallToolResult, any, error) {
	if input.TxID == "" {
		return toolkit.ErrorResult("txId is required"), nil, nil
	}
	return upstreamResult(t.client.LookupTransaction(ctx, input.TxID)), nil, nil
}

func (t *Toolkit) handleSearchAccounts(ctx context.Context, _ *mcp.CallToolRequest, input searchAccountsInput) (*mcp.CallToolResult, any, error) {
	return upstreamResult(t.client.SearchAccounts(ctx, algoclient.AccountQuery{
		AssetID:       input.AssetID,
		ApplicationID: input.ApplicationID,
		Limit:         input.Limit,
	})), nil, nil
}

func (t *Toolkit) handleSearchTransactions(ctx context.Context, _ *mcp.CallToolRequest, input searchTransactionsInput) (*mcp.CallToolResult, any, error) {
	if input.Address != "" && !algoclient.IsValidAddress(input.Address) {
		return invalidAddress(input.Address), nil, nil
	}
	return upstreamResult(t.client.SearchTransactions(ctx, algoclient.TransactionQuery{
		Address:       input.Address,
		AssetID:       input.AssetID,
		ApplicationID: input.ApplicationID,
		Limit:         input.Limit,
	})), nil, nil
}
