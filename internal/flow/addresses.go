package flow

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExchangeDirectory maps known exchange wallet addresses to their labels,
// keyed by blockchain. Lookups are case-insensitive on the address.
type ExchangeDirectory struct {
	chains map[string]map[string]string
}

// directoryFile is the YAML shape of an address file:
//
//	ethereum:
//	  "0x28c6c06298d514db089934071355e5743bf21d60": binance
//	bitcoin:
//	  "34xp4vrocgjym3xr7ycvpfhocnxv4twseo": binance
type directoryFile map[string]map[string]string

// defaultAddresses covers the major venues so the pipeline classifies
// something useful out of the box. Production deployments extend this via
// flow.address_file.
var defaultAddresses = directoryFile{
	"ethereum": {
		"0x28c6c06298d514db089934071355e5743bf21d60": "binance",
		"0xdfd5293d8e347dfe59e90efd55b2956a1343963d": "binance",
		"0x21a31ee1afc51d94c2efccaa2092ad1028285549": "binance",
		"0xa910f92acdaf488fa6ef02174fb86208ad7722ba": "poloniex",
		"0x2b5634c42055806a59e9107ed44d43c426e58258": "kucoin",
		"0x689c56aef474df92d44a1b70850f808488f9769c": "kucoin",
		"0x6cc5f688a315f3dc28a7781717a9a798a59fda7b": "okx",
		"0x236f9f97e0e62388479bf9e5ba4889e46b0273c3": "okx",
		"0x77696bb39917c91a0c3908d577d5e322095425ca": "coinbase",
		"0xa9d1e08c7793af67e9d92fe308d5697fb81d3e43": "coinbase",
		"0x2faf487a4414fe77e2327f0bf4ae2a264a776ad2": "ftx",
		"0xe93381fb4c4f14bda253907b18fad305d799241a": "huobi",
		"0xab5c66752a9e8167967685f1450532fb96d5d24f": "huobi",
		"0x66f820a414680b5bcda5eeca5dea238543f42054": "bitfinex",
		"0x742d35cc6634c0532925a3b844bc454e4438f44e": "bitfinex",
		"0x0d0707963952f2fba59dd06f2b425ace40b492fe": "gate.io",
		"0x1c4b70a3968436b9a0a9cf5205c787eb81bb558c": "gate.io",
	},
	"bitcoin": {
		"34xp4vrocgjym3xr7ycvpfhocnxv4twseo": "binance",
		"3lyjtcrastdbzgfrxkvqy5k6t9wfwmadge": "binance",
		"bc1qm34lsc65zpw79lxes69zkqmk6ee3ewf0j77s3h": "binance",
		"3kzh9jsplglwwcgn3nnvmcl1rtqrj7bxpr": "coinbase",
		"1p5zedwtktfgxqjzphgwpqupe554wkdfhq": "bitfinex",
		"3jzq43zvkjnhinlpz6cwvgmuknfyy4nvdj": "kraken",
	},
	"tron": {
		"tnxomsdzgtmzmbacgktpfqju4sm4rvmuxe": "binance",
		"tjdenixcntqpjy3prnkbow9lxx6pqhmcm7": "okx",
	},
}

// NewExchangeDirectory builds the directory from the built-in table, extended
// by an optional YAML file. File entries win on conflict.
func NewExchangeDirectory(path string) (*ExchangeDirectory, error) {
	dir := &ExchangeDirectory{chains: make(map[string]map[string]string)}
	dir.merge(defaultAddresses)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read address file: %w", err)
		}
		var extra directoryFile
		if err := yaml.Unmarshal(data, &extra); err != nil {
			return nil, fmt.Errorf("parse address file: %w", err)
		}
		dir.merge(extra)
	}

	return dir, nil
}

func (d *ExchangeDirectory) merge(src directoryFile) {
	for chain, addrs := range src {
		chain = strings.ToLower(chain)
		if d.chains[chain] == nil {
			d.chains[chain] = make(map[string]string, len(addrs))
		}
		for addr, label := range addrs {
			d.chains[chain][strings.ToLower(addr)] = label
		}
	}
}

// Lookup returns the exchange label for an address, if known.
func (d *ExchangeDirectory) Lookup(blockchain, address string) (string, bool) {
	addrs, ok := d.chains[strings.ToLower(blockchain)]
	if !ok {
		return "", false
	}
	label, ok := addrs[strings.ToLower(address)]
	return label, ok
}

// Size reports the number of known addresses across all chains.
func (d *ExchangeDirectory) Size() int {
	n := 0
	for _, addrs := range d.chains {
		n += len(addrs)
	}
	return n
}
