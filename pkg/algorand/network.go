// Package algorand provides a read-only client for Algorand node (algod),
// indexer, NFD and testnet faucet HTTP APIs, plus local address and
// payment URI helpers.
package algorand

import "fmt"

// Network identifies an Algorand network preset.
type Network string

// Supported networks.
const (
	Testnet  Network = "testnet"
	Mainnet  Network = "mainnet"
	Localnet Network = "localnet"
)

// Endpoints holds the base URLs used by the client. An empty URL marks the
// service as unavailable on the network.
type Endpoints struct {
	AlgodURL   string `yaml:"algod_url"`
	IndexerURL string `yaml:"indexer_url"`
	NFDURL     string `yaml:"nfd_url"`
	FaucetURL  string `yaml:"faucet_url"`
}

var presets = map[Network]Endpoints{
	Testnet: {
		AlgodURL:   "https://testnet-api.algonode.cloud",
		IndexerURL: "https://testnet-idx.algonode.cloud",
		NFDURL:     "https://api.testnet.nf.domains",
		FaucetURL:  "https://bank.testnet.algorand.network",
	},
	Mainnet: {
		AlgodURL:   "https://mainnet-api.algonode.cloud",
		IndexerURL: "https://mainnet-idx.algonode.cloud",
		NFDURL:     "https://api.nf.domains",
	},
	Localnet: {
		AlgodURL:   "http://localhost:4001",
		IndexerURL: "http://localhost:8980",
	},
}

// Preset returns the default endpoints for n.
func Preset(n Network) (Endpoints, error) {
	ep, ok := presets[n]
	if !ok {
		return Endpoints{}, fmt.Errorf("unknown network %q (expected testnet, mainnet or localnet)", n)
	}
	return ep, nil
}

// Merge returns e with every empty field filled from base.
func (e Endpoints) Merge(base Endpoints) Endpoints {
	if e.AlgodURL == "" {
		e.AlgodURL = base.AlgodURL
	}
	if e.IndexerURL == "" {
		e.IndexerURL = base.IndexerURL
	}
	if e.NFDURL == "" {
		e.NFDURL = base.NFDURL
	}
	if e.FaucetURL == "" {
		e.FaucetURL = base.FaucetURL
	}
	return e
}
