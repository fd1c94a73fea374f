package algorand

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// URI kinds reported by BuildURI.
const (
	URIKindAccount       = "account"
	URIKindPayment       = "payment"
	URIKindAssetTransfer = "asset_transfer"
)

// PaymentRequest describes an ARC-26 URI. Nil fields are omitted.
type PaymentRequest struct {
	Address string
	Label   string
	Amount  *uint64
	AssetID *uint64
	Note    string
}

// PaymentURI is a built ARC-26 URI.
type PaymentURI struct {
	URI  string `json:"uri"`
	Kind string `json:"kind"`
}

// BuildURI renders req as algorand://<address>?label=..&amount=..&asset=..&note=..
func BuildURI(req PaymentRequest) (PaymentURI, error) {
	if !IsValidAddress(req.Address) {
		return PaymentURI{}, fmt.Errorf("%w: %q", ErrInvalidAddress, req.Address)
	}

	var query []string
	if req.Label != "" {
		query = append(query, "label="+escapeComponent(req.Label))
	}
	if req.Amount != nil {
		query = append(query, "amount="+strconv.FormatUint(*req.Amount, 10))
	}
	if req.AssetID != nil {
		query = append(query, "asset="+strconv.FormatUint(*req.AssetID, 10))
	}
	if req.Note != "" {
		query = append(query, "note="+escapeComponent(req.Note))
	}

	uri := "algorand://" + req.Address
	if len(query) > 0 {
		uri += "?" + strings.Join(query, "&")
	}

	kind := URIKindAccount
	switch {
	case req.Amount != nil && req.AssetID != nil:
		kind = URIKindAssetTransfer
	case req.Amount != nil:
		kind = URIKindPayment
	}
	return PaymentURI{URI: uri, Kind: kind}, nil
}

// escapeComponent percent-encodes s with spaces as %20 rather than '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
