package algorand

import (
	"context"
	"encoding/base64"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

const (
	toolAlgodAccountInfo         = "algod_get_account_info"
	toolAlgodTransactionInfo     = "algod_get_transaction_info"
	toolAlgodAssetInfo           = "algod_get_asset_info"
	toolAlgodApplicationInfo     = "algod_get_application_info"
	toolAlgodPendingTransactions = "algod_get_pending_transactions"
	toolCompileTEAL              = "compile_teal"
	toolDisassembleTEAL          = "disassemble_teal"
	toolFundTestnet              = "fund_testnet"
)

type addressInput struct {
	Address string `json:"address" jsonschema:"Algorand account address (58 characters)"`
}

type txIDInput struct {
	TxID string `json:"txId" jsonschema:"Transaction ID to look up"`
}

type assetIDInput struct {
	AssetID uint64 `json:"assetId" jsonschema:"Asset ID to look up"`
}

type appIDInput struct {
	AppID uint64 `json:"appId" jsonschema:"Application ID to look up"`
}

type pendingInput struct {
	Max uint64 `json:"max,omitempty" jsonschema:"Maximum number of transactions to return"`
}

type compileInput struct {
	TealCode string `json:"tealCode" jsonschema:"TEAL source code to compile"`
}

type disassembleInput struct {
	Bytecode string `json:"bytecode" jsonschema:"Base64-encoded TEAL bytecode to disassemble"`
}

func (t *Toolkit) registerAlgodTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolAlgodAccountInfo,
		Description: "Get current account balance, assets, and auth address from algod",
	}, t.handleAccountInfo)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolAlgodTransactionInfo,
		Description: "Get pending transaction details by transaction ID from algod",
	}, t.handleTransactionInfo)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolAlgodAssetInfo,
		Description: "Get asset details from algod",
	}, t.handleAssetInfo)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolAlgodApplicationInfo,
		Description: "Get application details from algod",
	}, t.handleApplicationInfo)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolAlgodPendingTransactions,
		Description: "Get pending transactions from the algod mempool",
	}, t.handlePendingTransactions)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolCompileTEAL,
		Description: "Compile TEAL source code to bytecode",
	}, t.handleCompileTEAL)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolDisassembleTEAL,
		Description: "Disassemble TEAL bytecode into source code",
	}, t.handleDisassembleTEAL)
}

func (t *Toolkit) registerFaucetTool(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolFundTestnet,
		Description: "Fund an Algorand testnet account using the official faucet",
	}, t.handleFundTestnet)
}

func (t *Toolkit) handleAccountInfo(ctx context.Context, _ *mcp.CallToolRequest, input addressInput) (*mcp.CallToolResult, any, error) {
	if !algoclient.IsValidAddress(input.Address) {
		return invalidAddress(input.Address), nil, nil
	}
	return upstreamResult(t.client.AccountInfo(ctx, input.Address)), nil, nil
}

func (t *Toolkit) handleTransactionInfo(ctx context.Context, _ *mcp.CallToolRequest, input txIDInput) (*mcp.CallToolResult, any, error) {
	if input.TxID == "" {
		return toolkit.ErrorResult("txId is required"), nil, nil
	}
	return upstreamResult(t.client.PendingTransaction(ctx, input.TxID)), nil, nil
}

func (t *Toolkit) handleAssetInfo(ctx context.Context, _ *mcp.CallToolRequest, input assetIDInput) (*mcp.CallToolResult, any, error) {
	return upstreamResult(t.client.AssetInfo(ctx, input.AssetID)), nil, nil
}

func (t *Toolkit) handleApplicationInfo(ctx context.Context, _ *mcp.CallToolRequest, input appIDInput) (*mcp.CallToolResult, any, error) {
	return upstreamResult(t.client.ApplicationInfo(ctx, input.AppID)), nil, nil
}

func (t *Toolkit) handlePendingTransactions(ctx context.Context, _ *mcp.CallToolRequest, input pendingInput) (*mcp.CallToolResult, any, error) {
	return upstreamResult(t.client.PendingTransactions(ctx, input.Max)), nil, nil
}

func (t *Toolkit) handleCompileTEAL(ctx context.Context, _ *mcp.CallToolRequest, input compileInput) (*mcp.CallToolResult, any, error) {
	if input.TealCode == "" {
		return toolkit.ErrorResult("tealCode is required"), nil, nil
	}
	return upstreamResult(t.client.CompileTEAL(ctx, input.TealCode)), nil, nil
}

func (t *Toolkit) handleDisassembleTEAL(ctx context.Context, _ *mcp.CallToolRequest, input disassembleInput) (*mcp.CallToolResult, any, error) {
	if input.Bytecode == "" {
		return toolkit.ErrorResult("bytecode is required"), nil, nil
	}
	program, err := base64.StdEncoding.DecodeString(input.Bytecode)
	if err != nil {
		return toolkit.ErrorResult("bytecode must be base64"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return upstreamResult(t.client.DisassembleTEAL(ctx, program)), nil, nil
}

func (t *Toolkit) handleFundTestnet(ctx context.Context, _ *mcp.CallToolRequest, input addressInput) (*mcp.CallToolResult, any, error) {
	if !algoclient.IsValidAddress(input.Address) {
		return invalidAddress(input.Address), nil, nil
	}
	return upstreamResult(t.client.Fund(ctx, input.Address)), nil, nil
}
