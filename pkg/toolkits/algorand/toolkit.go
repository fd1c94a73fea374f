// Package algorand provides the Algorand toolkit: read-only algod, indexer
// and NFD lookups, the testnet faucet and local address helpers.
package algorand

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
	"github.com/hatif03/algorand-mcp/pkg/registry"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

// Kind is the toolkit kind.
const Kind = "algorand"

// Client is the subset of the Algorand HTTP client used by the toolkit.
type Client interface {
	Network() algoclient.Network

	AccountInfo(ctx context.Context, address string) (json.RawMessage, error)
	AssetInfo(ctx context.Context, assetID uint64) (json.RawMessage, error)
	ApplicationInfo(ctx context.Context, appID uint64) (json.RawMessage, error)
	PendingTransaction(ctx context.Context, txID string) (json.RawMessage, error)
	PendingTransactions(ctx context.Context, limit uint64) (json.RawMessage, error)
	CompileTEAL(ctx context.Context, source string) (json.RawMessage, error)
	DisassembleTEAL(ctx context.Context, program []byte) (json.RawMessage, error)

	LookupAccount(ctx context.Context, address string) (json.RawMessage, error)
	LookupAsset(ctx context.Context, assetID uint64) (json.RawMessage, error)
	LookupTransaction(ctx context.Context, txID string) (json.RawMessage, error)
	SearchAccounts(ctx context.Context, q algoclient.AccountQuery) (json.RawMessage, error)
	SearchTransactions(ctx context.Context, q algoclient.TransactionQuery) (json.RawMessage, error)

	NFD(ctx context.Context, name string) (json.RawMessage, error)
	NFDsForAddress(ctx context.Context, address string) (json.RawMessage, error)
	SearchNFDs(ctx context.Context, search string, limit uint64) (json.RawMessage, error)

	Fund(ctx context.Context, address string) (json.RawMessage, error)
}

// Verify interface compliance.
var (
	_ Client           = (*algoclient.Client)(nil)
	_ registry.Toolkit = (*Toolkit)(nil)
)

// Toolkit implements the Algorand toolkit.
type Toolkit struct {
	name   string
	client Client
}

// New creates an Algorand toolkit backed by client.
func New(name string, client Client) (*Toolkit, error) {
	if client == nil {
		return nil, errors.New("algorand toolkit requires a client")
	}
	return &Toolkit{name: name, client: client}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return Kind
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// RegisterTools registers every Algorand tool and resource template.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	t.registerAlgodTools(s)
	t.registerIndexerTools(s)
	t.registerNFDTools(s)
	t.registerLocalTools(s)
	if t.faucetEnabled() {
		t.registerFaucetTool(s)
	}
	t.registerResourceTemplates(s)
}

// Tools returns the list of tool names provided by this toolkit.
func (t *Toolkit) Tools() []string {
	tools := []string{
		toolAlgodAccountInfo,
		toolAlgodTransactionInfo,
		toolAlgodAssetInfo,
		toolAlgodApplicationInfo,
		toolAlgodPendingTransactions,
		toolCompileTEAL,
		toolDisassembleTEAL,
		toolIndexerLookupAccount,
		toolIndexerLookupAsset,
		toolIndexerLookupTransaction,
		toolIndexerSearchAccounts,
		toolIndexerSearchTransactions,
		toolNFDGet,
		toolNFDForAddress,
		toolNFDSearch,
		toolValidateAddress,
		toolEncodeAddress,
		toolDecodeAddress,
		toolApplicationAddress,
		toolVerifyBytes,
		toolGenerateURI,
		toolEncodeObject,
		toolDecodeObject,
	}
	if t.faucetEnabled() {
		tools = append(tools, toolFundTestnet)
	}
	return tools
}

// Close releases resources.
func (*Toolkit) Close() error {
	return nil
}

func (t *Toolkit) faucetEnabled() bool {
	return t.client.Network() == algoclient.Testnet
}

// upstreamResult converts an upstream response into a tool result. Upstream
// failures become tool errors carrying the upstream status.
func upstreamResult(raw json.RawMessage, err error) *mcp.CallToolResult {
	if err != nil {
		return toolkit.ErrorResult(upstreamErrorMessage(err))
	}
	return toolkit.RawJSONResult(raw)
}

func upstreamErrorMessage(err error) string {
	var apiErr *algoclient.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.Is(err, algoclient.ErrUnavailable), errors.Is(err, algoclient.ErrFaucetUnavailable):
		return err.Error()
	default:
		return fmt.Sprintf("request failed: %v", err)
	}
}

func invalidAddress(address string) *mcp.CallToolResult {
	return toolkit.ErrorResultf("invalid Algorand address %q", address)
}
