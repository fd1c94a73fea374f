package algorand

import (
	"context"
	"encoding/base64"
	"encoding/hex"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

const (
	toolValidateAddress    = "validate_address"
	toolEncodeAddress      = "encode_address"
	toolDecodeAddress      = "decode_address"
	toolApplicationAddress = "get_application_address"
	toolVerifyBytes        = "verify_bytes"
	toolGenerateURI        = "generate_algorand_uri"
	toolEncodeObject       = "encode_obj"
	toolDecodeObject       = "decode_obj"
)

type encodeAddressInput struct {
	PublicKey string `json:"publicKey" jsonschema:"Public key in hexadecimal format to encode into an address"`
}

type verifyBytesInput struct {
	Bytes     string `json:"bytes" jsonschema:"Bytes in hexadecimal format to verify"`
	Signature string `json:"signature" jsonschema:"Base64-encoded signature to verify"`
	Address   string `json:"address" jsonschema:"Algorand account address"`
}

type generateURIInput struct {
	Address string  `json:"address" jsonschema:"Algorand address (58 characters)"`
	Label   string  `json:"label,omitempty" jsonschema:"Optional label for the address"`
	Amount  *uint64 `json:"amount,omitempty" jsonschema:"Amount in microAlgos (for payment) or asset units (for asset transfer)"`
	AssetID *uint64 `json:"assetId,omitempty" jsonschema:"Asset ID (for asset transfer)"`
	Note    string  `json:"note,omitempty" jsonschema:"Optional note"`
}

type encodeObjectInput struct {
	Obj map[string]any `json:"obj" jsonschema:"Object to encode as msgpack"`
}

type decodeObjectInput struct {
	Bytes string `json:"bytes" jsonschema:"Base64-encoded msgpack bytes to decode"`
}

type encodedObjectOutput struct {
	Encoded string `json:"encoded"`
}

type validateAddressOutput struct {
	Address string `json:"address"`
	Valid   bool   `json:"valid"`
}

type addressOutput struct {
	Address string `json:"address"`
}

type publicKeyOutput struct {
	PublicKey string `json:"publicKey"`
}

type applicationAddressOutput struct {
	AppID   uint64 `json:"appId"`
	Address string `json:"address"`
}

type verifyBytesOutput struct {
	Valid bool `json:"valid"`
}

func (t *Toolkit) registerLocalTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolValidateAddress,
		Description: "Check if an Algorand address is valid",
	}, t.handleValidateAddress)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolEncodeAddress,
		Description: "Encode a public key to an Algorand address",
	}, t.handleEncodeAddress)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolDecodeAddress,
		Description: "Decode an Algorand address to a public key",
	}, t.handleDecodeAddress)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolApplicationAddress,
		Description: "Get the escrow address for a given application ID",
	}, t.handleApplicationAddress)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolVerifyBytes,
		Description: "Verify an ed25519 signature over bytes with an Algorand address",
	}, t.handleVerifyBytes)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolGenerateURI,
		Description: "Generate a URI following the Algorand ARC-26 specification to share an account address " +
			"or request a payment or asset transfer",
	}, t.handleGenerateURI)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolEncodeObject,
		Description: "Encode an object to msgpack, returned as base64",
	}, t.handleEncodeObject)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolDecodeObject,
		Description: "Decode base64 msgpack bytes to an object",
	}, t.handleDecodeObject)
}

func (*Toolkit) handleValidateAddress(_ context.Context, _ *mcp.CallToolRequest, input addressInput) (*mcp.CallToolResult, any, error) {
	return toolkit.JSONResult(validateAddressOutput{
		Address: input.Address,
		Valid:   algoclient.IsValidAddress(input.Address),
	}), nil, nil
}

func (*Toolkit) handleEncodeAddress(_ context.Context, _ *mcp.CallToolRequest, input encodeAddressInput) (*mcp.CallToolResult, any, error) {
	key, err := hex.DecodeString(input.PublicKey)
	if err != nil {
		return toolkit.ErrorResult("publicKey must be hexadecimal"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	address, err := algoclient.EncodeAddress(key)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return toolkit.JSONResult(addressOutput{Address: address}), nil, nil
}

func (*Toolkit) handleDecodeAddress(_ context.Context, _ *mcp.CallToolRequest, input addressInput) (*mcp.CallToolResult, any, error) {
	key, err := algoclient.DecodeAddress(input.Address)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return toolkit.JSONResult(publicKeyOutput{PublicKey: hex.EncodeToString(key)}), nil, nil
}

func (*Toolkit) handleApplicationAddress(_ context.Context, _ *mcp.CallToolRequest, input appIDInput) (*mcp.CallToolResult, any, error) {
	return toolkit.JSONResult(applicationAddressOutput{
		AppID:   input.AppID,
		Address: algoclient.ApplicationAddress(input.AppID),
	}), nil, nil
}

func (*Toolkit) handleVerifyBytes(_ context.Context, _ *mcp.CallToolRequest, input verifyBytesInput) (*mcp.CallToolResult, any, error) {
	message, err := hex.DecodeString(input.Bytes)
	if err != nil {
		return toolkit.ErrorResult("bytes must be hexadecimal"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	signature, err := base64.StdEncoding.DecodeString(input.Signature)
	if err != nil {
		return toolkit.ErrorResult("signature must be base64"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	valid, err := algoclient.VerifyBytes(input.Address, message, signature)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return toolkit.JSONResult(verifyBytesOutput{Valid: valid}), nil, nil
}

func (*Toolkit) handleGenerateURI(_ context.Context, _ *mcp.CallToolRequest, input generateURIInput) (*mcp.CallToolResult, any, error) {
	uri, err := algoclient.BuildURI(algoclient.PaymentRequest{
		Address: input.Address,
		Label:   input.Label,
		Amount:  input.Amount,
		AssetID: input.AssetID,
		Note:    input.Note,
	})
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return toolkit.JSONResult(uri), nil, nil
}

func (*Toolkit) handleEncodeObject(_ context.Context, _ *mcp.CallToolRequest, input encodeObjectInput) (*mcp.CallToolResult, any, error) {
	encoded, err := algoclient.EncodeObject(input.Obj)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return toolkit.JSONResult(encodedObjectOutput{Encoded: base64.StdEncoding.EncodeToString(encoded)}), nil, nil
}

func (*Toolkit) handleDecodeObject(_ context.Context, _ *mcp.CallToolRequest, input decodeObjectInput) (*mcp.CallToolResult, any, error) {
	raw, err := base64.StdEncoding.DecodeString(input.Bytes)
	if err != nil {
		return toolkit.ErrorResult("bytes must be base64"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	obj, err := algoclient.DecodeObject(raw)
	if err != nil {
		return toolkit.ErrorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return toolkit.JSONResult(obj), nil, nil
}
