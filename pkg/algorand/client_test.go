package algorand

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAlgodToken   = "algod-secret"
	testIndexerToken = "indexer-secret"
	testTxID         = "TXID123"

	algodTokenHeader   = "X-Algo-API-Token"
	indexerTokenHeader = "X-Indexer-API-Token"
)

// emptyMsgpackMap is the msgpack encoding of {}.
var emptyMsgpackMap = []byte{0x80}

// recordedRequest captures what the fake upstream received.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

type fakeUpstream struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func newFakeUpstream(t *testing.T) (*fakeUpstream, *httptest.Server) {
	t.Helper()
	f := &fakeUpstream{status: http.StatusOK, body: `{"ok":true}`}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		status, respBody := f.status, []byte(f.body)
		f.mu.Unlock()

		// Pending transaction endpoints are read as msgpack.
		if r.URL.Query().Get("format") == "msgpack" && status == http.StatusOK {
			respBody = emptyMsgpackMap
		}
		w.WriteHeader(status)
		_, _ = w.Write(respBody)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeUpstream) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, network Network, base string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Network: network,
		Endpoints: Endpoints{
			AlgodURL:   base + "/algod",
			IndexerURL: base + "/idx/",
			NFDURL:     base,
			FaucetURL:  base + "/faucet",
		},
		AlgodToken:        testAlgodToken,
		IndexerToken:      testIndexerToken,
		RequestsPerSecond: -1,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_Presets(t *testing.T) {
	c, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, Testnet, c.Network())
	assert.Equal(t, "https://testnet-api.algonode.cloud", c.Endpoints().AlgodURL)

	c, err = NewClient(Config{Network: Localnet, Endpoints: Endpoints{AlgodURL: "http://node:4001"}})
	require.NoError(t, err)
	assert.Equal(t, "http://node:4001", c.Endpoints().AlgodURL)
	assert.Equal(t, "http://localhost:8980", c.Endpoints().IndexerURL)
	assert.Empty(t, c.Endpoints().NFDURL)

	_, err = NewClient(Config{Network: "betanet"})
	assert.Error(t, err)
}

func TestClient_Paths(t *testing.T) {
	ctx := context.Background()
	upstream, srv := newFakeUpstream(t)
	c := newTestClient(t, Testnet, srv.URL)

	tests := []struct {
		name       string
		call       func() error
		wantMethod string
		wantPath   string
		wantQuery  map[string]string
		absent     []string
	}{
		{"account info", func() error { _, err := c.AccountInfo(ctx, testZeroAddress); return err },
			http.MethodGet, "/algod/v2/accounts/" + testZeroAddress, nil, nil},
		{"asset info", func() error { _, err := c.AssetInfo(ctx, 31566704); return err },
			http.MethodGet, "/algod/v2/assets/31566704", nil, nil},
		{"application info", func() error { _, err := c.ApplicationInfo(ctx, 42); return err },
			http.MethodGet, "/algod/v2/applications/42", nil, nil},
		{"pending transaction", func() error { _, err := c.PendingTransaction(ctx, testTxID); return err },
			http.MethodGet, "/algod/v2/transactions/pending/" + testTxID, nil, nil},
		{"pending transactions", func() error { _, err := c.PendingTransactions(ctx, 5); return err },
			http.MethodGet, "/algod/v2/transactions/pending", map[string]string{"max": "5"}, nil},
		{"pending transactions default", func() error { _, err := c.PendingTransactions(ctx, 0); return err },
			http.MethodGet, "/algod/v2/transactions/pending", nil, []string{"max"}},
		{"disassemble", func() error { _, err := c.DisassembleTEAL(ctx, []byte{0x08, 0x81, 0x01}); return err },
			http.MethodPost, "/algod/v2/teal/disassemble", nil, nil},
		{"indexer account", func() error { _, err := c.LookupAccount(ctx, testZeroAddress); return err },
			http.MethodGet, "/idx/v2/accounts/" + testZeroAddress, nil, nil},
		{"indexer asset", func() error { _, err := c.LookupAsset(ctx, 7); return err },
			http.MethodGet, "/idx/v2/assets/7", nil, nil},
		{"indexer transaction", func() error { _, err := c.LookupTransaction(ctx, testTxID); return err },
			http.MethodGet, "/idx/v2/transactions/" + testTxID, nil, nil},
		{"search accounts", func() error {
			_, err := c.SearchAccounts(ctx, AccountQuery{AssetID: 9, Limit: 3})
			return err
		}, http.MethodGet, "/idx/v2/accounts", map[string]string{"asset-id": "9", "limit": "3"}, []string{"application-id"}},
		{"search transactions", func() error {
			_, err := c.SearchTransactions(ctx, TransactionQuery{Address: testZeroAddress, ApplicationID: 4, Limit: 2})
			return err
		}, http.MethodGet, "/idx/v2/transactions",
			map[string]string{"address": testZeroAddress, "application-id": "4", "limit": "2"}, []string{"asset-id"}},
		{"search transactions no filters", func() error {
			_, err := c.SearchTransactions(ctx, TransactionQuery{})
			return err
		}, http.MethodGet, "/idx/v2/transactions", nil, []string{"address", "asset-id", "application-id", "limit"}},
		{"nfd by name", func() error { _, err := c.NFD(ctx, "silvio.algo"); return err },
			http.MethodGet, "/nfd/silvio.algo", nil, nil},
		{"nfd lookup", func() error { _, err := c.NFDsForAddress(ctx, testZeroAddress); return err },
			http.MethodGet, "/nfd/lookup", map[string]string{"address": testZeroAddress}, nil},
		{"nfd search", func() error { _, err := c.SearchNFDs(ctx, "foo bar", 20); return err },
			http.MethodGet, "/nfd/search", map[string]string{"search": "foo bar", "limit": "20"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			got := upstream.last(t)
			assert.Equal(t, tt.wantMethod, got.Method)
			assert.Equal(t, tt.wantPath, got.Path)
			for k, v := range tt.wantQuery {
				assert.Equal(t, v, got.Query.Get(k), k)
			}
			for _, k := range tt.absent {
				assert.False(t, got.Query.Has(k), k)
			}
		})
	}
}

func TestClient_RendersSDKModelsAsJSON(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	upstream.body = `{"address":"` + testZeroAddress + `","amount":1000,"round":7}`
	c := newTestClient(t, Testnet, srv.URL)

	out, err := c.AccountInfo(context.Background(), testZeroAddress)
	require.NoError(t, err)

	var account map[string]any
	require.NoError(t, json.Unmarshal(out, &account))
	assert.Equal(t, testZeroAddress, account["address"])
	assert.InDelta(t, 1000, account["amount"], 0)
	assert.InDelta(t, 7, account["round"], 0)
}

func TestClient_Tokens(t *testing.T) {
	ctx := context.Background()
	upstream, srv := newFakeUpstream(t)
	c := newTestClient(t, Testnet, srv.URL)

	_, err := c.AccountInfo(ctx, testZeroAddress)
	require.NoError(t, err)
	assert.Equal(t, testAlgodToken, upstream.last(t).Header.Get(algodTokenHeader))

	_, err = c.LookupAccount(ctx, testZeroAddress)
	require.NoError(t, err)
	got := upstream.last(t)
	assert.Equal(t, testIndexerToken, got.Header.Get(indexerTokenHeader))
	assert.Empty(t, got.Header.Get(algodTokenHeader))

	_, err = c.NFD(ctx, "x.algo")
	require.NoError(t, err)
	assert.Empty(t, upstream.last(t).Header.Get(indexerTokenHeader))
}

func TestClient_CompileTEAL(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	upstream.body = `{"hash":"H","result":"AiABAQ=="}`
	c := newTestClient(t, Testnet, srv.URL)

	out, err := c.CompileTEAL(context.Background(), "#pragma version 8\nint 1")
	require.NoError(t, err)

	var compiled map[string]any
	require.NoError(t, json.Unmarshal(out, &compiled))
	assert.Equal(t, "H", compiled["hash"])
	assert.Equal(t, "AiABAQ==", compiled["result"])

	got := upstream.last(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/algod/v2/teal/compile", got.Path)
	assert.Equal(t, "#pragma version 8\nint 1", got.Body)
}

func TestClient_DisassembleTEAL(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	upstream.body = `{"result":"#pragma version 8\nint 1\n"}`
	c := newTestClient(t, Testnet, srv.URL)

	program := []byte{0x08, 0x81, 0x01}
	out, err := c.DisassembleTEAL(context.Background(), program)
	require.NoError(t, err)

	var disassembled map[string]any
	require.NoError(t, json.Unmarshal(out, &disassembled))
	assert.Equal(t, "#pragma version 8\nint 1\n", disassembled["result"])
	assert.Equal(t, string(program), upstream.last(t).Body)
}

func TestClient_Fund(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	c := newTestClient(t, Testnet, srv.URL)

	_, err := c.Fund(context.Background(), testZeroAddress)
	require.NoError(t, err)
	got := upstream.last(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/faucet/api/v2/accounts/"+testZeroAddress, got.Path)
}

func TestClient_FundOutsideTestnet(t *testing.T) {
	_, srv := newFakeUpstream(t)
	c := newTestClient(t, Mainnet, srv.URL)

	_, err := c.Fund(context.Background(), testZeroAddress)
	assert.ErrorIs(t, err, ErrFaucetUnavailable)
}

func TestClient_ServiceUnavailable(t *testing.T) {
	c, err := NewClient(Config{Network: Localnet})
	require.NoError(t, err)

	_, err = c.NFD(context.Background(), "x.algo")
	assert.ErrorIs(t, err, ErrUnavailable)

	c.algod, c.indexer = nil, nil
	_, err = c.AccountInfo(context.Background(), testZeroAddress)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = c.LookupAccount(context.Background(), testZeroAddress)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_APIError(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	upstream.status = http.StatusNotFound
	upstream.body = `{"message":"name not found"}`
	c := newTestClient(t, Testnet, srv.URL)

	_, err := c.NFD(context.Background(), "missing.algo")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ServiceNFD, apiErr.Service)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "name not found")
}

func TestClient_AlgodErrorNamesService(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	upstream.status = http.StatusNotFound
	upstream.body = `{"message":"account not found"}`
	c := newTestClient(t, Testnet, srv.URL)

	_, err := c.AccountInfo(context.Background(), testZeroAddress)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), ServiceAlgod+": "), err.Error())
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "account not found")
}

func TestClient_NonJSONResponse(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	upstream.body = "<html>oops</html>"
	c := newTestClient(t, Testnet, srv.URL)

	_, err := c.NFD(context.Background(), "x.algo")
	assert.ErrorContains(t, err, "non-JSON")

	_, err = c.AccountInfo(context.Background(), testZeroAddress)
	assert.Error(t, err)
}

func TestClient_ResponseTooLarge(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	upstream.body = `"` + strings.Repeat("a", maxResponseBytes) + `"`
	c := newTestClient(t, Testnet, srv.URL)

	_, err := c.NFD(context.Background(), "big.algo")
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestClient_ResponseAtLimit(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	upstream.body = `"` + strings.Repeat("a", maxResponseBytes-2) + `"`
	c := newTestClient(t, Testnet, srv.URL)

	out, err := c.NFD(context.Background(), "big.algo")
	require.NoError(t, err)
	assert.Len(t, out, maxResponseBytes)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// "é" is two bytes; cutting at 2 would split it.
	got := truncate("aé€", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8ValidString(got))

	got = truncate("€€", 4)
	assert.Equal(t, "€...", got)
}

func utf8ValidString(s string) bool {
	return strings.ToValidUTF8(s, "\uFFFD") == s
}

func TestClient_EmptyBody(t *testing.T) {
	upstream, srv := newFakeUpstream(t)
	upstream.body = ""
	c := newTestClient(t, Testnet, srv.URL)

	out, err := c.Fund(context.Background(), testZeroAddress)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(out))
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	_, srv := newFakeUpstream(t)
	c, err := NewClient(Config{
		Network:           Testnet,
		Endpoints:         Endpoints{AlgodURL: srv.URL},
		RequestsPerSecond: 0.001,
	})
	require.NoError(t, err)

	// The first call consumes the single burst token.
	_, err = c.AccountInfo(context.Background(), testZeroAddress)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.AccountInfo(ctx, testZeroAddress)
	assert.ErrorContains(t, err, "rate limiter")
}

func TestPreset_Unknown(t *testing.T) {
	_, err := Preset("devnet")
	assert.Error(t, err)
}

func TestEndpoints_Merge(t *testing.T) {
	base := Endpoints{AlgodURL: "a", IndexerURL: "i", NFDURL: "n", FaucetURL: "f"}
	got := Endpoints{IndexerURL: "custom"}.Merge(base)
	assert.Equal(t, Endpoints{AlgodURL: "a", IndexerURL: "custom", NFDURL: "n", FaucetURL: "f"}, got)
}
