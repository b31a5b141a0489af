package configs

import (
	"sort"
	"strings"

	"github.com/staketools/offline-election/pkg/address"
)

// Endpoint and address parameters for the networks this tool is usually
// pointed at. Compiled in so the CLI works without any config file.

// NetworkConfig represents a network's connection parameters.
type NetworkConfig struct {
	Name          string `json:"name"`
	RPCURL        string `json:"rpcUrl"`
	SS58Prefix    byte   `json:"ss58Prefix"`
	TokenSymbol   string `json:"tokenSymbol"`
	TokenDecimals uint8  `json:"tokenDecimals"`
}

// Networks maps lowercase network names to their configurations.
var Networks = map[string]*NetworkConfig{
	"polkadot": {
		Name:          "Polkadot",
		RPCURL:        "wss://rpc.polkadot.io",
		SS58Prefix:    address.PolkadotPrefix,
		TokenSymbol:   "DOT",
		TokenDecimals: 10,
	},
	"kusama": {
		Name:          "Kusama",
		RPCURL:        "wss://kusama-rpc.polkadot.io",
		SS58Prefix:    address.KusamaPrefix,
		TokenSymbol:   "KSM",
		TokenDecimals: 12,
	},
	"westend": {
		Name:          "Westend",
		RPCURL:        "wss://westend-rpc.polkadot.io",
		SS58Prefix:    address.GenericPrefix,
		TokenSymbol:   "WND",
		TokenDecimals: 12,
	},
	"local": {
		Name:          "Local",
		RPCURL:        "ws://localhost:9944",
		SS58Prefix:    address.GenericPrefix,
		TokenSymbol:   "UNIT",
		TokenDecimals: 12,
	},
}

// GetNetwork returns the configuration for a named network. The lookup is
// case-insensitive.
func GetNetwork(name string) (*NetworkConfig, bool) {
	config, exists := Networks[strings.ToLower(strings.TrimSpace(name))]
	return config, exists
}

// NetworkNames returns the known network names in sorted order.
func NetworkNames() []string {
	names := make([]string, 0, len(Networks))
	for name := range Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
