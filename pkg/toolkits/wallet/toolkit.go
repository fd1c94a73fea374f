// Package wallet provides tools that store and recover password-encrypted
// Algorand mnemonics.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
	"github.com/hatif03/algorand-mcp/pkg/registry"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
	"github.com/hatif03/algorand-mcp/pkg/wallet"
)

const (
	// Kind is the toolkit kind.
	Kind = "wallet"

	toolStoreWallet  = "store_wallet"
	toolLoadWallet   = "load_wallet"
	toolListWallets  = "list_wallets"
	toolDeleteWallet = "delete_wallet"

	// MnemonicWords is the length of an Algorand account mnemonic.
	MnemonicWords = 25

	// MinPasswordLength is the shortest accepted wallet password.
	MinPasswordLength = 8

	maxNameLength = 64
)

type storeWalletInput struct {
	Name     string `json:"name" jsonschema:"Wallet name/identifier"`
	Mnemonic string `json:"mnemonic" jsonschema:"25-word mnemonic phrase to store securely"`
	Password string `json:"password" jsonschema:"Password to encrypt the mnemonic (at least 8 characters)"`
	Address  string `json:"address" jsonschema:"Algorand address controlled by the mnemonic"`
}

type loadWalletInput struct {
	Name     string `json:"name" jsonschema:"Wallet name/identifier"`
	Password string `json:"password" jsonschema:"Password to decrypt the mnemonic"`
}

type nameInput struct {
	Name string `json:"name" jsonschema:"Wallet name/identifier"`
}

type listWalletsInput struct{}

type walletSummary struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type storeWalletOutput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Message string `json:"message"`
}

type loadWalletOutput struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic"`
}

type listWalletsOutput struct {
	Wallets []walletSummary `json:"wallets"`
}

type deleteWalletOutput struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// Toolkit implements the wallet toolkit.
type Toolkit struct {
	name  string
	store wallet.Store
	vault *wallet.Vault
}

// Verify interface compliance.
var _ registry.Toolkit = (*Toolkit)(nil)

// New creates a wallet toolkit. The toolkit owns store and closes it.
func New(name string, store wallet.Store, vault *wallet.Vault) (*Toolkit, error) {
	if store == nil {
		return nil, errors.New("wallet toolkit requires a store")
	}
	if vault == nil {
		vault = wallet.NewVault(wallet.DefaultKDFParams)
	}
	return &Toolkit{name: name, store: store, vault: vault}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return Kind
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// RegisterTools registers the wallet tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolStoreWallet,
		Description: "Securely store a wallet with its mnemonic encrypted under a password",
	}, t.handleStoreWallet)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolLoadWallet,
		Description: "Load a stored wallet and return its address and decrypted mnemonic",
	}, t.handleLoadWallet)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListWallets,
		Description: "List stored wallet names and addresses",
	}, t.handleListWallets)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolDeleteWallet,
		Description: "Delete a stored wallet",
	}, t.handleDeleteWallet)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{toolStoreWallet, toolLoadWallet, toolListWallets, toolDeleteWallet}
}

// Close closes the wallet store.
func (t *Toolkit) Close() error {
	if err := t.store.Close(); err != nil {
		return fmt.Errorf("closing wallet store: %w", err)
	}
	return nil
}

func (t *Toolkit) handleStoreWallet(ctx context.Context, _ *mcp.CallToolRequest, input storeWalletInput) (*mcp.CallToolResult, any, error) {
	mnemonic, err := validateStoreInput(input)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	sealed, err := t.vault.Seal(mnemonic, input.Password)
	if err != nil {
		return toolkit.ErrorResult("failed to encrypt mnemonic: " + err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	w := &wallet.Wallet{Name: input.Name, Address: input.Address, Sealed: sealed}
	if err := t.store.Put(ctx, w); err != nil {
		return toolkit.ErrorResult("failed to store wallet: " + err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return toolkit.JSONResult(storeWalletOutput{
		Name:    input.Name,
		Address: input.Address,
		Message: "Wallet stored. The password is required to load it again.",
	}), nil, nil
}

func (t *Toolkit) handleLoadWallet(ctx context.Context, _ *mcp.CallToolRequest, input loadWalletInput) (*mcp.CallToolResult, any, error) {
	w, err := t.store.Get(ctx, input.Name)
	if err != nil {
		return toolkit.ErrorResult("failed to load wallet: " + err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if w == nil {
		return toolkit.ErrorResultf("wallet %q not found", input.Name), nil, nil
	}

	mnemonic, err := t.vault.Open(w.Sealed, input.Password)
	if errors.Is(err, wallet.ErrDecrypt) {
		return toolkit.ErrorResult("incorrect password"), nil, nil
	}
	if err != nil {
		return toolkit.ErrorResult("failed to decrypt wallet: " + err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return toolkit.JSONResult(loadWalletOutput{
		Name:     w.Name,
		Address:  w.Address,
		Mnemonic: mnemonic,
	}), nil, nil
}

func (t *Toolkit) handleListWallets(ctx context.Context, _ *mcp.CallToolRequest, _ listWalletsInput) (*mcp.CallToolResult, any, error) {
	wallets, err := t.store.List(ctx)
	if err != nil {
		return toolkit.ErrorResult("failed to list wallets: " + err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	out := listWalletsOutput{Wallets: make([]walletSummary, 0, len(wallets))}
	for _, w := range wallets {
		out.Wallets = append(out.Wallets, walletSummary{
			Name:      w.Name,
			Address:   w.Address,
			CreatedAt: w.CreatedAt,
			UpdatedAt: w.UpdatedAt,
		})
	}
	return toolkit.JSONResult(out), nil, nil
}

func (t *Toolkit) handleDeleteWallet(ctx context.Context, _ *mcp.CallToolRequest, input nameInput) (*mcp.CallToolResult, any, error) {
	err := t.store.Delete(ctx, input.Name)
	if errors.Is(err, wallet.ErrNotFound) {
		return toolkit.ErrorResultf("wallet %q not found", input.Name), nil, nil
	}
	if err != nil {
		return toolkit.ErrorResult("failed to delete wallet: " + err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return toolkit.JSONResult(deleteWalletOutput{Name: input.Name, Deleted: true}), nil, nil
}

// validateStoreInput checks a store request and returns the normalized
// mnemonic.
func validateStoreInput(input storeWalletInput) (string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", errors.New("name is required")
	}
	if name != input.Name || len(name) > maxNameLength {
		return "", fmt.Errorf("name must be at most %d characters without surrounding whitespace", maxNameLength)
	}
	if len(input.Password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if !algoclient.IsValidAddress(input.Address) {
		return "", fmt.Errorf("invalid Algorand address %q", input.Address)
	}

	words := strings.Fields(strings.ToLower(input.Mnemonic))
	if len(words) != MnemonicWords {
		return "", fmt.Errorf("mnemonic must have %d words, got %d", MnemonicWords, len(words))
	}
	return strings.Join(words, " "), nil
}
