package common

import "github.com/btcsuite/btcd/chaincfg"

type Network string

const (
	NetworkBitcoinMainnet Network = "btc-mainnet"
	NetworkBitcoinTestnet Network = "btc-testnet"
	NetworkFractalMainnet Network = "fractal-mainnet"
	NetworkFractalTestnet Network = "fractal-testnet"
)

// Networks lists every supported network in menu order.
var Networks = []Network{
	NetworkBitcoinMainnet,
	NetworkBitcoinTestnet,
	NetworkFractalMainnet,
	NetworkFractalTestnet,
}

type networkInfo struct {
	params      *chaincfg.Params
	symbol      string
	unisatURL   string
	mempoolURL  string
	explorerURL string
}

// Fractal networks share mainnet address encoding.
var networks = map[Network]networkInfo{
	NetworkBitcoinMainnet: {
		params:      &chaincfg.MainNetParams,
		symbol:      "BTC",
		unisatURL:   "https://open-api.unisat.io",
		mempoolURL:  "https://mempool.space/api",
		explorerURL: "https://mempool.space",
	},
	NetworkBitcoinTestnet: {
		params:      &chaincfg.TestNet3Params,
		symbol:      "tBTC",
		unisatURL:   "https://open-api-testnet.unisat.io",
		mempoolURL:  "https://mempool.space/testnet/api",
		explorerURL: "https://mempool.space/testnet",
	},
	NetworkFractalMainnet: {
		params:      &chaincfg.MainNetParams,
		symbol:      "FB",
		unisatURL:   "https://open-api-fractal.unisat.io",
		mempoolURL:  "https://mempool.fractalbitcoin.io/api",
		explorerURL: "https://mempool.fractalbitcoin.io",
	},
	NetworkFractalTestnet: {
		params:      &chaincfg.MainNetParams,
		symbol:      "tFB",
		unisatURL:   "https://open-api-fractal-testnet.unisat.io",
		mempoolURL:  "https://mempool-testnet.fractalbitcoin.io/api",
		explorerURL: "https://mempool-testnet.fractalbitcoin.io",
	},
}

func (n Network) IsSupported() bool {
	_, ok := networks[n]
	return ok
}

// ChainParams returns the address and script params of the network.
func (n Network) ChainParams() *chaincfg.Params {
	return networks[n].params
}

// Symbol returns the ticker of the network's native coin.
func (n Network) Symbol() string {
	return networks[n].symbol
}

// UnisatURL returns the default unisat open-api base url.
func (n Network) UnisatURL() string {
	return networks[n].unisatURL
}

// MempoolURL returns the default mempool REST api base url.
func (n Network) MempoolURL() string {
	return networks[n].mempoolURL
}

// TxURL returns the explorer link of a transaction.
func (n Network) TxURL(txID string) string {
	return networks[n].explorerURL + "/tx/" + txID
}

func (n Network) String() string {
	return string(n)
}
