package net

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"

	"github.com/ayushshrivastv/Summer-of-Bitcoin/logging"
	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
)

var ActiveNetwork Network

type Network struct {
	Name    string
	Params  *chaincfg.Params
	RPCPort int
	// POWHash hashes a serialized block header for the miner.
	POWHash func([]byte) []byte
}

func bitcoin(params *chaincfg.Params, rpcPort int) Network {
	return Network{
		Name:    params.Name,
		Params:  params,
		RPCPort: rpcPort,
		POWHash: codec.DoubleHash,
	}
}

// ForName returns the network called name. Accepted names are mainnet,
// testnet, regtest and signet, plus the chaincfg names of each.
func ForName(name string) (Network, error) {
	switch strings.ToLower(name) {
	case "mainnet", "main", chaincfg.MainNetParams.Name:
		return bitcoin(&chaincfg.MainNetParams, 8332), nil
	case "testnet", "test", chaincfg.TestNet3Params.Name:
		return bitcoin(&chaincfg.TestNet3Params, 18332), nil
	case "regtest", chaincfg.RegressionNetParams.Name:
		return bitcoin(&chaincfg.RegressionNetParams, 18443), nil
	case "signet", chaincfg.SigNetParams.Name:
		return bitcoin(&chaincfg.SigNetParams, 38332), nil
	}
	return Network{}, errors.Errorf("%s is currently not supported", name)
}

// ParamsFor returns the chain parameters of the named network.
func ParamsFor(name string) (*chaincfg.Params, error) {
	n, err := ForName(name)
	if err != nil {
		return nil, err
	}
	return n.Params, nil
}

func SetNetwork(name string) error {
	n, err := ForName(name)
	if err != nil {
		logging.Errorf("%s is currently not supported. Use mainnet, testnet, regtest or signet", name)
		return err
	}
	ActiveNetwork = n
	logging.Debugf("Active network: %s", n.Name)
	return nil
}
