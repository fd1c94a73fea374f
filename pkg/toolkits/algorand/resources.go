package algorand

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
)

// Resource template URI patterns.
const (
	accountTemplateURI     = "algorand://account/{address}"
	assetTemplateURI       = "algorand://asset/{id}"
	applicationTemplateURI = "algorand://application/{id}"
)

func (t *Toolkit) registerResourceTemplates(s *mcp.Server) {
	s.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: accountTemplateURI,
		Name:        "Account",
		Description: "Current account state from algod",
		MIMEType:    "application/json",
	}, t.handleAccountResource)

	s.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: assetTemplateURI,
		Name:        "Asset",
		Description: "Asset parameters from algod",
		MIMEType:    "application/json",
	}, t.handleAssetResource)

	s.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: applicationTemplateURI,
		Name:        "Application",
		Description: "Application parameters and global state from algod",
		MIMEType:    "application/json",
	}, t.handleApplicationResource)
}

// parseTemplateVars extracts named variables from a URI using a URI template.
func parseTemplateVars(templateStr, uri string) (map[string]string, error) {
	tmpl, err := uritemplate.New(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", templateStr, err)
	}

	match := tmpl.Match(uri)
	if match == nil {
		return nil, fmt.Errorf("uri %q does not match template %q", uri, templateStr)
	}

	result := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		result[name] = match.Get(name).String()
	}
	return result, nil
}

// handleAccountResource handles algorand://account/{address} requests.
func (t *Toolkit) handleAccountResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(accountTemplateURI, uri)
	if err != nil || !algoclient.IsValidAddress(vars["address"]) {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}
	raw, err := t.client.AccountInfo(ctx, vars["address"])
	return rawResourceResult(uri, raw, err)
}

// handleAssetResource handles algorand://asset/{id} requests.
func (t *Toolkit) handleAssetResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, ok := parseIDResource(assetTemplateURI, uri)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}
	raw, err := t.client.AssetInfo(ctx, id)
	return rawResourceResult(uri, raw, err)
}

// handleApplicationResource handles algorand://application/{id} requests.
func (t *Toolkit) handleApplicationResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, ok := parseIDResource(applicationTemplateURI, uri)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}
	raw, err := t.client.ApplicationInfo(ctx, id)
	return rawResourceResult(uri, raw, err)
}

func parseIDResource(templateStr, uri string) (uint64, bool) {
	vars, err := parseTemplateVars(templateStr, uri)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func rawResourceResult(uri string, raw json.RawMessage, err error) (*mcp.ReadResourceResult, error) {
	if err != nil {
		return nil, fmt.Errorf("reading resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(raw),
			},
		},
	}, nil
}
