package algorand

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	algoclient "github.com/hatif03/algorand-mcp/pkg/algorand"
	"github.com/hatif03/algorand-mcp/pkg/toolkit"
)

const (
	testZeroAddress = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ"
	testSeqKeyHex   = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testSeqAddress  = "AAAQEAYEAUDAOCAJBIFQYDIOB4IBCEQTCQKRMFYYDENBWHA5DYP7MUPJQE"
	testApp123Addr  = "WRBMNT66ECE2AOYKM76YVWIJMBW6Z3XCQZOKG5BL7NISAQC2LBGEKTZLRM"
	testBadAddress  = "NOT-AN-ADDRESS"
	testToolkitName = "testnet"
)

// emptyMsgpackMap is the msgpack encoding of {}.
var emptyMsgpackMap = []byte{0x80}

// upstream is a fake algod/indexer/NFD/faucet server. Calls are recorded as
// method, path and sorted query, leaving out the response format parameter.
type upstream struct {
	mu     sync.Mutex
	paths  []string
	status int
	body   string
}

func newUpstream(t *testing.T) (*upstream, *httptest.Server) {
	t.Helper()
	u := &upstream{status: http.StatusOK, body: `{"amount":1000}`}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		msgpack := query.Get("format") == "msgpack"
		query.Del("format")
		call := r.Method + " " + r.URL.Path
		if len(query) > 0 {
			call += "?" + query.Encode()
		}

		u.mu.Lock()
		u.paths = append(u.paths, call)
		status, body := u.status, []byte(u.body)
		u.mu.Unlock()

		if msgpack && status == http.StatusOK {
			body = emptyMsgpackMap
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return u, srv
}

func (u *upstream) calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.paths...)
}

func newTestToolkit(t *testing.T, network algoclient.Network, base string) *Toolkit {
	t.Helper()
	client, err := algoclient.NewClient(algoclient.Config{
		Network: network,
		Endpoints: algoclient.Endpoints{
			AlgodURL:   base + "/algod",
			IndexerURL: base + "/idx",
			NFDURL:     base + "/nfd-api",
			FaucetURL:  base + "/faucet",
		},
		RequestsPerSecond: -1,
	})
	require.NoError(t, err)
	tk, err := New(testToolkitName, client)
	require.NoError(t, err)
	return tk
}

func connect(t *testing.T, tk *Toolkit) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "0.0.1"}, nil)
	tk.RegisterTools(server)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(testToolkitName, nil)
	assert.Error(t, err)
}

func TestToolkit_Metadata(t *testing.T) {
	_, srv := newUpstream(t)
	tk := newTestToolkit(t, algoclient.Testnet, srv.URL)

	assert.Equal(t, Kind, tk.Kind())
	assert.Equal(t, testToolkitName, tk.Name())
	assert.Contains(t, tk.Tools(), toolFundTestnet)
	assert.NoError(t, tk.Close())
}

func TestToolkit_ListToolsMatchesTools(t *testing.T) {
	_, srv := newUpstream(t)

	for _, network := range []algoclient.Network{algoclient.Testnet, algoclient.Mainnet} {
		t.Run(string(network), func(t *testing.T) {
			tk := newTestToolkit(t, network, srv.URL)
			cs := connect(t, tk)

			res, err := cs.ListTools(context.Background(), nil)
			require.NoError(t, err)
			names := make([]string, 0, len(res.Tools))
			for _, tool := range res.Tools {
				names = append(names, tool.Name)
			}
			assert.ElementsMatch(t, tk.Tools(), names)
		})
	}
}

func TestToolkit_FaucetOnlyOnTestnet(t *testing.T) {
	_, srv := newUpstream(t)
	tk := newTestToolkit(t, algoclient.Mainnet, srv.URL)
	assert.NotContains(t, tk.Tools(), toolFundTestnet)

	cs := connect(t, tk)
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      toolFundTestnet,
		Arguments: map[string]any{"address": testZeroAddress},
	})
	if err == nil {
		assert.True(t, result.IsError, "fund_testnet must not succeed on mainnet")
	}
}

func TestUpstreamTools(t *testing.T) {
	u, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	// passthrough marks services whose bodies are returned as received;
	// algod and indexer responses are decoded into SDK models first.
	tests := []struct {
		tool        string
		args        map[string]any
		want        string
		passthrough bool
	}{
		{toolAlgodAccountInfo, map[string]any{"address": testZeroAddress}, "GET /algod/v2/accounts/" + testZeroAddress, false},
		{toolAlgodTransactionInfo, map[string]any{"txId": "TX1"}, "GET /algod/v2/transactions/pending/TX1", false},
		{toolAlgodAssetInfo, map[string]any{"assetId": 31566704}, "GET /algod/v2/assets/31566704", false},
		{toolAlgodApplicationInfo, map[string]any{"appId": 123}, "GET /algod/v2/applications/123", false},
		{toolAlgodPendingTransactions, map[string]any{"max": 3}, "GET /algod/v2/transactions/pending?max=3", false},
		{toolCompileTEAL, map[string]any{"tealCode": "#pragma version 8\nint 1"}, "POST /algod/v2/teal/compile", false},
		{toolDisassembleTEAL, map[string]any{"bytecode": "CIEB"}, "POST /algod/v2/teal/disassemble", false},
		{toolIndexerLookupAccount, map[string]any{"address": testZeroAddress}, "GET /idx/v2/accounts/" + testZeroAddress, false},
		{toolIndexerLookupAsset, map[string]any{"assetId": 7}, "GET /idx/v2/assets/7", false},
		{toolIndexerLookupTransaction, map[string]any{"txId": "TX2"}, "GET /idx/v2/transactions/TX2", false},
		{toolIndexerSearchAccounts, map[string]any{"assetId": 9, "limit": 2}, "GET /idx/v2/accounts?asset-id=9&limit=2", false},
		{toolIndexerSearchTransactions, map[string]any{"address": testZeroAddress, "limit": 5},
			"GET /idx/v2/transactions?address=" + testZeroAddress + "&limit=5", false},
		{toolNFDGet, map[string]any{"name": "silvio.algo"}, "GET /nfd-api/nfd/silvio.algo", true},
		{toolNFDForAddress, map[string]any{"address": testZeroAddress}, "GET /nfd-api/nfd/lookup?address=" + testZeroAddress, true},
		{toolNFDSearch, map[string]any{"search": "silvio", "limit": 4}, "GET /nfd-api/nfd/search?limit=4&search=silvio", true},
		{toolFundTestnet, map[string]any{"address": testZeroAddress}, "POST /faucet/api/v2/accounts/" + testZeroAddress, true},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			result := call(t, cs, tt.tool, tt.args)
			require.False(t, result.IsError, text(t, result))
			if tt.passthrough {
				assert.JSONEq(t, u.body, text(t, result))
			} else {
				assert.True(t, json.Valid([]byte(text(t, result))), text(t, result))
			}

			calls := u.calls()
			require.NotEmpty(t, calls)
			assert.Equal(t, tt.want, calls[len(calls)-1])
		})
	}
}

func TestAccountInfoCarriesUpstreamFields(t *testing.T) {
	_, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	result := call(t, cs, toolAlgodAccountInfo, map[string]any{"address": testZeroAddress})
	require.False(t, result.IsError, text(t, result))

	var account map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &account))
	assert.InDelta(t, 1000, account["amount"], 0)
}

func TestDisassembleTEAL_RejectsBadBytecode(t *testing.T) {
	u, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	for _, bytecode := range []string{"", "%%%"} {
		result := call(t, cs, toolDisassembleTEAL, map[string]any{"bytecode": bytecode})
		assert.True(t, result.IsError, bytecode)
	}
	assert.Empty(t, u.calls())
}

func TestAddressValidatedBeforeNetwork(t *testing.T) {
	u, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	for _, tool := range []string{
		toolAlgodAccountInfo, toolIndexerLookupAccount, toolNFDForAddress, toolFundTestnet, toolIndexerSearchTransactions,
	} {
		t.Run(tool, func(t *testing.T) {
			result := call(t, cs, tool, map[string]any{"address": testBadAddress})
			assert.True(t, result.IsError)
			assert.Contains(t, toolkit.ErrorMessage(result), "invalid Algorand address")
		})
	}
	assert.Empty(t, u.calls())
}

func TestUpstreamErrorBecomesToolError(t *testing.T) {
	u, srv := newUpstream(t)
	u.status = http.StatusNotFound
	u.body = `{"message":"asset does not exist"}`
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	result := call(t, cs, toolAlgodAssetInfo, map[string]any{"assetId": 1})
	assert.True(t, result.IsError)
	msg := toolkit.ErrorMessage(result)
	assert.Contains(t, msg, "404")
	assert.Contains(t, msg, "asset does not exist")
}

func TestUnavailableServiceBecomesToolError(t *testing.T) {
	client, err := algoclient.NewClient(algoclient.Config{Network: algoclient.Localnet})
	require.NoError(t, err)
	tk, err := New("localnet", client)
	require.NoError(t, err)
	cs := connect(t, tk)

	result := call(t, cs, toolNFDGet, map[string]any{"name": "x.algo"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolkit.ErrorMessage(result), "not available")
}

func TestRequiredStrings(t *testing.T) {
	u, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	tests := []struct {
		tool string
		args map[string]any
	}{
		{toolAlgodTransactionInfo, map[string]any{"txId": ""}},
		{toolIndexerLookupTransaction, map[string]any{"txId": ""}},
		{toolCompileTEAL, map[string]any{"tealCode": ""}},
		{toolNFDGet, map[string]any{"name": ""}},
		{toolNFDSearch, map[string]any{"search": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			assert.True(t, call(t, cs, tt.tool, tt.args).IsError)
		})
	}
	assert.Empty(t, u.calls())
}

func TestLocalTools(t *testing.T) {
	_, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"valid address", toolValidateAddress, map[string]any{"address": testSeqAddress},
			`{"address":"` + testSeqAddress + `","valid":true}`},
		{"invalid address", toolValidateAddress, map[string]any{"address": testBadAddress},
			`{"address":"` + testBadAddress + `","valid":false}`},
		{"encode", toolEncodeAddress, map[string]any{"publicKey": testSeqKeyHex},
			`{"address":"` + testSeqAddress + `"}`},
		{"decode", toolDecodeAddress, map[string]any{"address": testSeqAddress},
			`{"publicKey":"` + testSeqKeyHex + `"}`},
		{"application address", toolApplicationAddress, map[string]any{"appId": 123},
			`{"appId":123,"address":"` + testApp123Addr + `"}`},
		{"uri payment", toolGenerateURI, map[string]any{"address": testZeroAddress, "amount": 1000, "label": "Coffee shop"},
			`{"uri":"algorand://` + testZeroAddress + `?label=Coffee%20shop&amount=1000","kind":"payment"}`},
		{"uri asset", toolGenerateURI, map[string]any{"address": testZeroAddress, "amount": 0, "assetId": 31566704},
			`{"uri":"algorand://` + testZeroAddress + `?amount=0&asset=31566704","kind":"asset_transfer"}`},
		{"encode object", toolEncodeObject, map[string]any{"obj": map[string]any{"a": 1}},
			`{"encoded":"gaFhAQ=="}`},
		{"decode object", toolDecodeObject, map[string]any{"bytes": "gaFhAQ=="},
			`{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, cs, tt.tool, tt.args)
			require.False(t, result.IsError, text(t, result))
			assert.JSONEq(t, tt.want, text(t, result))
		})
	}
}

func TestLocalTools_Errors(t *testing.T) {
	_, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"encode non-hex", toolEncodeAddress, map[string]any{"publicKey": "zz"}},
		{"encode short key", toolEncodeAddress, map[string]any{"publicKey": "0102"}},
		{"decode bad checksum", toolDecodeAddress, map[string]any{"address": testZeroAddress[:57] + "A"}},
		{"uri bad address", toolGenerateURI, map[string]any{"address": testBadAddress}},
		{"verify non-hex", toolVerifyBytes, map[string]any{"bytes": "zz", "signature": "", "address": testZeroAddress}},
		{"verify bad base64", toolVerifyBytes, map[string]any{"bytes": "00", "signature": "%%%", "address": testZeroAddress}},
		{"encode empty object", toolEncodeObject, map[string]any{"obj": map[string]any{}}},
		{"decode bad base64", toolDecodeObject, map[string]any{"bytes": "%%%"}},
		{"decode not msgpack", toolDecodeObject, map[string]any{"bytes": "wQ=="}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, call(t, cs, tt.tool, tt.args).IsError)
		})
	}
}

func TestVerifyBytes(t *testing.T) {
	_, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	priv := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
	address, err := algoclient.EncodeAddress(priv.Public().(ed25519.PublicKey))
	require.NoError(t, err)

	message := []byte("hello algorand")
	sig := ed25519.Sign(priv, append([]byte("MX"), message...))

	result := call(t, cs, toolVerifyBytes, map[string]any{
		"bytes":     hex.EncodeToString(message),
		"signature": base64.StdEncoding.EncodeToString(sig),
		"address":   address,
	})
	require.False(t, result.IsError, text(t, result))
	assert.JSONEq(t, `{"valid":true}`, text(t, result))

	result = call(t, cs, toolVerifyBytes, map[string]any{
		"bytes":     hex.EncodeToString([]byte("tampered")),
		"signature": base64.StdEncoding.EncodeToString(sig),
		"address":   address,
	})
	require.False(t, result.IsError, text(t, result))
	assert.JSONEq(t, `{"valid":false}`, text(t, result))
}

func TestObjectTools_RoundTrip(t *testing.T) {
	_, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))

	obj := map[string]any{"type": "pay", "amt": 5000, "note": "hi", "nested": map[string]any{"list": []any{1, "two"}}}
	result := call(t, cs, toolEncodeObject, map[string]any{"obj": obj})
	require.False(t, result.IsError, text(t, result))

	var encoded struct {
		Encoded string `json:"encoded"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &encoded))

	result = call(t, cs, toolDecodeObject, map[string]any{"bytes": encoded.Encoded})
	require.False(t, result.IsError, text(t, result))

	want, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), text(t, result))
}

func TestResourceTemplates(t *testing.T) {
	u, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))
	ctx := context.Background()

	tests := []struct {
		uri  string
		want string
	}{
		{"algorand://account/" + testZeroAddress, "GET /algod/v2/accounts/" + testZeroAddress},
		{"algorand://asset/31566704", "GET /algod/v2/assets/31566704"},
		{"algorand://application/123", "GET /algod/v2/applications/123"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: tt.uri})
			require.NoError(t, err)
			require.Len(t, res.Contents, 1)
			assert.Equal(t, tt.uri, res.Contents[0].URI)
			assert.Equal(t, "application/json", res.Contents[0].MIMEType)
			assert.True(t, json.Valid([]byte(res.Contents[0].Text)))

			calls := u.calls()
			assert.Equal(t, tt.want, calls[len(calls)-1])
		})
	}
}

func TestResourceTemplates_NotFound(t *testing.T) {
	_, srv := newUpstream(t)
	cs := connect(t, newTestToolkit(t, algoclient.Testnet, srv.URL))
	ctx := context.Background()

	for _, uri := range []string{
		"algorand://account/" + testBadAddress,
		"algorand://asset/abc",
	} {
		_, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
		assert.Error(t, err, uri)
	}
}

func TestParseTemplateVars(t *testing.T) {
	vars, err := parseTemplateVars(assetTemplateURI, "algorand://asset/42")
	require.NoError(t, err)
	assert.Equal(t, "42", vars["id"])

	_, err = parseTemplateVars(assetTemplateURI, "other://asset/42")
	assert.Error(t, err)
}
