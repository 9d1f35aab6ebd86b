package rpc

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/pkg/errors"

	"github.com/ayushshrivastv/Summer-of-Bitcoin/config"
	"github.com/ayushshrivastv/Summer-of-Bitcoin/logging"
	p2pnet "github.com/ayushshrivastv/Summer-of-Bitcoin/net"
)

// Client talks to a bitcoind compatible node over JSON-RPC.
type Client struct {
	conn *rpcclient.Client
}

// NewClient creates an RPC client from the loaded configuration. The
// network's default port is used when none is configured. No connection is
// made until the first call. Either a password or a cookie file is required.
func NewClient(cfg config.Config, network p2pnet.Network) (*Client, error) {
	if cfg.RPCPass == "" && cfg.RPCCookie == "" {
		return nil, errors.New("node RPC needs --rpcpass or --rpccookie")
	}
	port := cfg.RPCPort
	if port == 0 {
		port = network.RPCPort
	}
	connCfg := &rpcclient.ConnConfig{
		Host:         fmt.Sprintf("%s:%d", cfg.RPCHost, port),
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		CookiePath:   cfg.RPCCookie,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	logging.Infof("Connecting to RPC server %s with user: %s", connCfg.Host, connCfg.User)
	conn, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create RPC client")
	}
	return &Client{conn: conn}, nil
}

// BestBlockHash returns the tip of the node's chain in display order.
func (c *Client) BestBlockHash() (string, error) {
	hash, err := c.conn.GetBestBlockHash()
	if err != nil {
		return "", errors.Wrap(err, "getbestblockhash")
	}
	return hash.String(), nil
}

func (c *Client) BlockCount() (int64, error) {
	count, err := c.conn.GetBlockCount()
	if err != nil {
		return 0, errors.Wrap(err, "getblockcount")
	}
	return count, nil
}

// SubmitBlock hands a fully serialized block to the node.
func (c *Client) SubmitBlock(serialized []byte) error {
	block, err := btcutil.NewBlockFromBytes(serialized)
	if err != nil {
		return errors.Wrap(err, "could not decode block for submission")
	}
	if err := c.conn.SubmitBlock(block, nil); err != nil {
		return errors.Wrapf(err, "submitblock %s", block.Hash())
	}
	logging.Successf("Block %s accepted by the node", block.Hash())
	return nil
}

func (c *Client) Shutdown() {
	c.conn.Shutdown()
	c.conn.WaitForShutdown()
}
