package config

import (
	"fmt"
	"os"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// NetworkFlags holds the network configuration, that is which network is selected.
type NetworkFlags struct {
	Testnet bool `long:"testnet" description:"Use the test network"`
	Regtest bool `long:"regtest" description:"Use the regression test network"`
	Simnet  bool `long:"simnet" description:"Use the simulation test network"`

	ActiveNetParams *chaincfg.Params
}

// defaultChainAPIs are the Esplora endpoints used when no chain API is
// configured.
var defaultChainAPIs = map[string]string{
	chaincfg.MainNetParams.Name:  "https://mempool.space/api",
	chaincfg.TestNet3Params.Name: "https://mempool.space/testnet/api",
}

// ResolveNetwork sets ActiveNetParams from the network flags. Mainnet is
// the default. It returns an error if more than one network was selected.
// parser may be nil, in which case no help text is printed.
func (networkFlags *NetworkFlags) ResolveNetwork(parser *flags.Parser) error {
	networkFlags.ActiveNetParams = &chaincfg.MainNetParams
	numNets := 0
	if networkFlags.Testnet {
		numNets++
		networkFlags.ActiveNetParams = &chaincfg.TestNet3Params
	}
	if networkFlags.Regtest {
		numNets++
		networkFlags.ActiveNetParams = &chaincfg.RegressionNetParams
	}
	if networkFlags.Simnet {
		numNets++
		networkFlags.ActiveNetParams = &chaincfg.SimNetParams
	}
	if numNets > 1 {
		message := "Multiple networks parameters (testnet, regtest, simnet) cannot be used " +
			"together. Please choose only one network"
		err := errors.New(message)
		if parser != nil {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
		}
		return err
	}
	return nil
}

// NetParams returns the ActiveNetParams
func (networkFlags *NetworkFlags) NetParams() *chaincfg.Params {
	return networkFlags.ActiveNetParams
}

// DefaultChainAPI returns the public chain API of the active network, or
// "" when the network has none.
func (networkFlags *NetworkFlags) DefaultChainAPI() string {
	if networkFlags.ActiveNetParams == nil {
		return ""
	}
	return defaultChainAPIs[networkFlags.ActiveNetParams.Name]
}
