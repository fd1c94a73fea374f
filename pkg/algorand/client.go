package algorand

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/indexer"
	sdkjson "github.com/algorand/go-algorand-sdk/v2/encoding/json"
	"github.com/yosida95/uritemplate/v3"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single upstream call.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond is the shared outbound request budget.
	DefaultRequestsPerSecond = 10

	// maxResponseBytes caps how much of an upstream body is read.
	maxResponseBytes = 10 << 20

	// maxErrorBodyBytes caps the upstream body quoted in an APIError.
	maxErrorBodyBytes = 512
)

// Upstream service names, used in errors.
const (
	ServiceAlgod   = "algod"
	ServiceIndexer = "indexer"
	ServiceNFD     = "nfd"
	ServiceFaucet  = "faucet"
)

// Sentinel errors.
var (
	// ErrUnavailable is returned when a service has no endpoint on the
	// configured network.
	ErrUnavailable = errors.New("service not available on this network")

	// ErrFaucetUnavailable is returned by Fund outside testnet.
	ErrFaucetUnavailable = errors.New("faucet is only available on testnet")

	// ErrResponseTooLarge is returned when an upstream body exceeds the
	// read limit.
	ErrResponseTooLarge = errors.New("response too large")
)

// NFD and faucet endpoint templates. {+base} keeps the configured base URL
// unescaped. Algod and indexer calls go through the SDK clients.
var (
	tmplNFDByName  = uritemplate.MustNew("{+base}/nfd/{name}")
	tmplNFDLookup  = uritemplate.MustNew("{+base}/nfd/lookup{?address}")
	tmplNFDSearch  = uritemplate.MustNew("{+base}/nfd/search{?search,limit}")
	tmplFaucetFund = uritemplate.MustNew("{+base}/api/v2/accounts/{address}")
)

// APIError reports a non-2xx NFD or faucet response.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Config configures a Client.
type Config struct {
	Network   Network
	Endpoints Endpoints

	AlgodToken   string
	IndexerToken string

	// RequestsPerSecond throttles all outbound calls. Zero uses the
	// default; a negative value disables throttling.
	RequestsPerSecond float64

	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the Algorand HTTP APIs of one network. Every call,
// whichever service it targets, draws from one shared rate limiter.
type Client struct {
	network   Network
	endpoints Endpoints
	timeout   time.Duration
	http      *http.Client
	limiter   *rate.Limiter

	// algod and indexer are nil when the network has no such endpoint.
	algod   *algod.Client
	indexer *indexer.Client
}

// NewClient creates a client for cfg.Network, with any explicitly set
// endpoint overriding the network preset.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Network == "" {
		cfg.Network = Testnet
	}
	preset, err := Preset(cfg.Network)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	c := &Client{
		network:   cfg.Network,
		endpoints: cfg.Endpoints.Merge(preset),
		timeout:   cfg.Timeout,
		http:      cfg.HTTPClient,
		limiter:   newLimiter(cfg.RequestsPerSecond),
	}

	if u := c.endpoints.AlgodURL; u != "" {
		if c.algod, err = algod.MakeClient(strings.TrimSuffix(u, "/"), cfg.AlgodToken); err != nil {
			return nil, fmt.Errorf("creating algod client: %w", err)
		}
	}
	if u := c.endpoints.IndexerURL; u != "" {
		if c.indexer, err = indexer.MakeClient(strings.TrimSuffix(u, "/"), cfg.IndexerToken); err != nil {
			return nil, fmt.Errorf("creating indexer client: %w", err)
		}
	}
	return c, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps < 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if rps == 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := max(int(rps), 1)
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Network returns the configured network.
func (c *Client) Network() Network {
	return c.network
}

// Endpoints returns the resolved endpoints.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// AccountInfo returns algod's view of an account.
func (c *Client) AccountInfo(ctx context.Context, address string) (json.RawMessage, error) {
	return c.callAlgod(ctx, func(ctx context.Context, a *algod.Client) (any, error) {
		return a.AccountInformation(address).Do(ctx)
	})
}

// AssetInfo returns algod's view of an asset.
func (c *Client) AssetInfo(ctx context.Context, assetID uint64) (json.RawMessage, error) {
	return c.callAlgod(ctx, func(ctx context.Context, a *algod.Client) (any, error) {
		return a.GetAssetByID(assetID).Do(ctx)
	})
}

// ApplicationInfo returns algod's view of an application.
func (c *Client) ApplicationInfo(ctx context.Context, appID uint64) (json.RawMessage, error) {
	return c.callAlgod(ctx, func(ctx context.Context, a *algod.Client) (any, error) {
		return a.GetApplicationByID(appID).Do(ctx)
	})
}

// PendingTransaction returns a transaction from algod's pending pool or
// its recent confirmations.
func (c *Client) PendingTransaction(ctx context.Context, txID string) (json.RawMessage, error) {
	return c.callAlgod(ctx, func(ctx context.Context, a *algod.Client) (any, error) {
		info, _, err := a.PendingTransactionInformation(txID).Do(ctx)
		return info, err
	})
}

// PendingTransactions lists up to limit pending transactions. Zero means
// the node default.
func (c *Client) PendingTransactions(ctx context.Context, limit uint64) (json.RawMessage, error) {
	return c.callAlgod(ctx, func(ctx context.Context, a *algod.Client) (any, error) {
		q := a.PendingTransactions()
		if limit > 0 {
			q = q.Max(limit)
		}
		total, txns, err := q.Do(ctx)
		return models.PendingTransactionsResponse{TopTransactions: txns, TotalTransactions: total}, err
	})
}

// CompileTEAL compiles TEAL source on the node.
func (c *Client) CompileTEAL(ctx context.Context, source string) (json.RawMessage, error) {
	return c.callAlgod(ctx, func(ctx context.Context, a *algod.Client) (any, error) {
		return a.TealCompile([]byte(source)).Do(ctx)
	})
}

// DisassembleTEAL turns program bytecode back into TEAL source on the node.
func (c *Client) DisassembleTEAL(ctx context.Context, program []byte) (json.RawMessage, error) {
	return c.callAlgod(ctx, func(ctx context.Context, a *algod.Client) (any, error) {
		return a.TealDisassemble(program).Do(ctx)
	})
}

// LookupAccount returns the indexer's view of an account.
func (c *Client) LookupAccount(ctx context.Context, address string) (json.RawMessage, error) {
	return c.callIndexer(ctx, func(ctx context.Context, ix *indexer.Client) (any, error) {
		_, account, err := ix.LookupAccountByID(address).Do(ctx)
		return account, err
	})
}

// LookupAsset returns the indexer's view of an asset.
func (c *Client) LookupAsset(ctx context.Context, assetID uint64) (json.RawMessage, error) {
	return c.callIndexer(ctx, func(ctx context.Context, ix *indexer.Client) (any, error) {
		_, asset, err := ix.LookupAssetByID(assetID).Do(ctx)
		return asset, err
	})
}

// LookupTransaction returns a confirmed transaction from the indexer.
func (c *Client) LookupTransaction(ctx context.Context, txID string) (json.RawMessage, error) {
	return c.callIndexer(ctx, func(ctx context.Context, ix *indexer.Client) (any, error) {
		return ix.LookupTransaction(txID).Do(ctx)
	})
}

// AccountQuery filters an indexer account search. Zero fields are omitted.
type AccountQuery struct {
	AssetID       uint64
	ApplicationID uint64
	Limit         uint64
}

// SearchAccounts searches indexer accounts.
func (c *Client) SearchAccounts(ctx context.Context, q AccountQuery) (json.RawMessage, error) {
	return c.callIndexer(ctx, func(ctx context.Context, ix *indexer.Client) (any, error) {
		s := ix.SearchAccounts()
		if q.AssetID > 0 {
			s = s.AssetID(q.AssetID)
		}
		if q.ApplicationID > 0 {
			s = s.ApplicationId(q.ApplicationID)
		}
		if q.Limit > 0 {
			s = s.Limit(q.Limit)
		}
		return s.Do(ctx)
	})
}

// TransactionQuery filters an indexer transaction search. Zero fields are
// omitted.
type TransactionQuery struct {
	Address       string
	AssetID       uint64
	ApplicationID uint64
	Limit         uint64
}

// SearchTransactions searches indexer transactions.
func (c *Client) SearchTransactions(ctx context.Context, q TransactionQuery) (json.RawMessage, error) {
	return c.callIndexer(ctx, func(ctx context.Context, ix *indexer.Client) (any, error) {
		s := ix.SearchForTransactions()
		if q.Address != "" {
			s = s.AddressString(q.Address)
		}
		if q.AssetID > 0 {
			s = s.AssetID(q.AssetID)
		}
		if q.ApplicationID > 0 {
			s = s.ApplicationId(q.ApplicationID)
		}
		if q.Limit > 0 {
			s = s.Limit(q.Limit)
		}
		return s.Do(ctx)
	})
}

// callAlgod runs fn against the algod client under the shared limiter and
// timeout and renders its result as JSON.
func (c *Client) callAlgod(ctx context.Context, fn func(context.Context, *algod.Client) (any, error)) (json.RawMessage, error) {
	if c.algod == nil {
		return nil, fmt.Errorf("%s: %w", ServiceAlgod, ErrUnavailable)
	}
	return c.call(ctx, ServiceAlgod, func(ctx context.Context) (any, error) {
		return fn(ctx, c.algod)
	})
}

// callIndexer is callAlgod for the indexer.
func (c *Client) callIndexer(ctx context.Context, fn func(context.Context, *indexer.Client) (any, error)) (json.RawMessage, error) {
	if c.indexer == nil {
		return nil, fmt.Errorf("%s: %w", ServiceIndexer, ErrUnavailable)
	}
	return c.call(ctx, ServiceIndexer, func(ctx context.Context) (any, error) {
		return fn(ctx, c.indexer)
	})
}

func (c *Client) call(ctx context.Context, service string, fn func(context.Context) (any, error)) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	v, err := fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", service, err)
	}
	return json.RawMessage(sdkjson.Encode(v)), nil
}

// NFD returns an NFD by name.
func (c *Client) NFD(ctx context.Context, name string) (json.RawMessage, error) {
	return c.get(ctx, ServiceNFD, tmplNFDByName, vars{"name": name})
}

// NFDsForAddress returns the NFDs linked to address.
func (c *Client) NFDsForAddress(ctx context.Context, address string) (json.RawMessage, error) {
	return c.get(ctx, ServiceNFD, tmplNFDLookup, vars{"address": address})
}

// SearchNFDs searches NFDs by name fragment.
func (c *Client) SearchNFDs(ctx context.Context, search string, limit uint64) (json.RawMessage, error) {
	v := vars{"search": search}
	v.setUint("limit", limit)
	return c.get(ctx, ServiceNFD, tmplNFDSearch, v)
}

// Fund asks the testnet dispenser to fund address.
func (c *Client) Fund(ctx context.Context, address string) (json.RawMessage, error) {
	if c.network != Testnet || c.endpoints.FaucetURL == "" {
		return nil, ErrFaucetUnavailable
	}
	return c.do(ctx, request{
		service: ServiceFaucet,
		method:  http.MethodPost,
		tmpl:    tmplFaucetFund,
		vars:    vars{"address": address},
	})
}

// vars are template variables; absent keys are left out of the expansion.
type vars map[string]string

func (v vars) setUint(name string, n uint64) {
	if n > 0 {
		v[name] = strconv.FormatUint(n, 10)
	}
}

type request struct {
	service string
	method  string
	tmpl    *uritemplate.Template
	vars    vars
}

func (c *Client) get(ctx context.Context, service string, tmpl *uritemplate.Template, v vars) (json.RawMessage, error) {
	return c.do(ctx, request{service: service, method: http.MethodGet, tmpl: tmpl, vars: v})
}

// do expands the request's template against the service base URL, waits
// for the rate limiter and returns the JSON body of a 2xx response.
func (c *Client) do(ctx context.Context, req request) (json.RawMessage, error) {
	base := c.baseURL(req.service)
	if base == "" {
		return nil, fmt.Errorf("%s: %w", req.service, ErrUnavailable)
	}

	values := uritemplate.Values{}
	values.Set("base", uritemplate.String(strings.TrimSuffix(base, "/")))
	for k, v := range req.vars {
		values.Set(k, uritemplate.String(v))
	}
	target, err := req.tmpl.Expand(values)
	if err != nil {
		return nil, fmt.Errorf("expanding %s url: %w", req.service, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", req.service, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", req.service, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", req.service, err)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("%s: %w (over %d bytes)", req.service, ErrResponseTooLarge, maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Service:    req.service,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(data)), maxErrorBodyBytes),
		}
	}

	if len(data) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s returned a non-JSON response", req.service)
	}
	return json.RawMessage(data), nil
}

// baseURL resolves the base URL for an HTTP-only service.
func (c *Client) baseURL(service string) string {
	switch service {
	case ServiceNFD:
		return c.endpoints.NFDURL
	case ServiceFaucet:
		return c.endpoints.FaucetURL
	default:
		return ""
	}
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
