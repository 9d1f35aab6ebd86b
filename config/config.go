package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ayushshrivastv/Summer-of-Bitcoin/logging"
	codec "github.com/ayushshrivastv/Summer-of-Bitcoin/wire"
	"github.com/ayushshrivastv/Summer-of-Bitcoin/work"
)

const (
	defaultConfigFile = "config.yaml"
	defaultMempoolDir = "mempool"
	defaultOutput     = "out.txt"
	defaultNetwork    = "regtest"
	defaultLogLevel   = "info"
	defaultRPCHost    = "127.0.0.1"
)

// Config holds every setting of a run. Values come from the defaults, then
// config.yaml, then the command line.
type Config struct {
	ConfigFile string `short:"C" long:"configfile" yaml:"-" description:"Path to configuration file"`

	Network    string `short:"n" long:"network" yaml:"network" description:"Network for payout addresses and RPC: mainnet, testnet, regtest or signet"`
	Testnet    bool   `long:"testnet" yaml:"testnet" description:"Shorthand for --network=testnet"`
	MempoolDir string `short:"m" long:"mempool" yaml:"mempoolDir" description:"Directory of pending transaction JSON files"`
	Output     string `short:"o" long:"out" yaml:"output" description:"Path of the block artifact"`
	LogLevel   string `long:"loglevel" yaml:"logLevel" description:"Logging level: error, warn, info or debug"`
	LogFile    string `long:"logfile" yaml:"logFile" description:"Also write JSON logs to this file"`
	Workers    int    `short:"w" long:"workers" yaml:"workers" description:"Parallel nonce search workers, 1 searches on the main goroutine"`

	BlockVersion   int32  `long:"blockversion" yaml:"blockVersion" description:"Block and coinbase version"`
	PrevBlockHash  string `long:"prevblock" yaml:"prevBlockHash" description:"Previous block hash in display order"`
	Bits           string `long:"bits" yaml:"bits" description:"Compact difficulty bits, hex"`
	Target         string `long:"target" yaml:"target" description:"Proof-of-work target, big-endian hex; derived from bits when empty"`
	Subsidy        int64  `long:"subsidy" yaml:"subsidy" description:"Coinbase payout in satoshis"`
	MaxBlockWeight uint64 `long:"maxweight" yaml:"maxBlockWeight" description:"Block weight limit"`
	ReservedWeight uint64 `long:"reservedweight" yaml:"reservedWeight" description:"Weight kept free for the header and coinbase"`
	CoinbaseHeight uint32 `long:"height" yaml:"coinbaseHeight" description:"Block height pushed in the coinbase script"`
	PayoutAddress  string `short:"a" long:"payout" yaml:"payoutAddress" description:"Address receiving the subsidy; a zero key hash when empty"`

	RPCUser    string `short:"u" long:"rpcuser" yaml:"rpcUser" description:"Node RPC username"`
	RPCPass    string `short:"p" long:"rpcpass" yaml:"rpcPass" default-mask:"-" description:"Node RPC password"`
	RPCCookie  string `long:"rpccookie" yaml:"rpcCookie" description:"Path to the node's .cookie file, used when rpcpass is empty"`
	RPCHost    string `long:"rpchost" yaml:"rpcHost" description:"Node RPC host"`
	RPCPort    int    `long:"rpcport" yaml:"rpcPort" description:"Node RPC port, network default when 0"`
	UseNodeTip bool   `long:"nodetip" yaml:"useNodeTip" description:"Build on the node's best block instead of prevblock"`
	Submit     bool   `long:"submit" yaml:"submit" description:"Submit the mined block to the node"`

	Serve string `long:"serve" yaml:"serve" description:"Keep running and serve the result on this address"`
}

var Active Config

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		ConfigFile:     defaultConfigFile,
		Network:        defaultNetwork,
		MempoolDir:     defaultMempoolDir,
		Output:         defaultOutput,
		LogLevel:       defaultLogLevel,
		Workers:        1,
		BlockVersion:   work.DefaultVersion,
		PrevBlockHash:  codec.ZeroHashHex,
		Bits:           strconv.FormatUint(uint64(work.DefaultBits), 16),
		Subsidy:        work.DefaultSubsidy,
		MaxBlockWeight: work.DefaultMaxBlockWeight,
		ReservedWeight: work.DefaultReservedWeight,
		CoinbaseHeight: work.DefaultCoinbaseHeight,
		RPCHost:        defaultRPCHost,
	}
}

// LoadConfig reads the configuration file named by -C (config.yaml by
// default) and applies the command line on top of it. Flags carry no
// default tags so values from the file survive the second parse.
func LoadConfig(args []string) (*Config, error) {
	cfg := Default()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}
	cfg.ConfigFile = preCfg.ConfigFile

	if err := loadFile(&cfg, cfg.ConfigFile, cfg.ConfigFile != defaultConfigFile); err != nil {
		return nil, err
	}

	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		return nil, errors.Errorf("unexpected arguments: %s", strings.Join(remaining, " "))
	}

	if cfg.Testnet {
		cfg.Network = "testnet"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	Active = cfg
	return &cfg, nil
}

func loadFile(cfg *Config, path string, required bool) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			logging.Debugf("No %s file found, using defaults", path)
			return nil
		}
		return errors.Wrapf(err, "could not open config file %s", path)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return errors.Wrapf(err, "failed to decode %s", path)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MempoolDir == "" {
		return errors.New("mempool directory is required")
	}
	if c.Output == "" {
		return errors.New("output path is required")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ReservedWeight >= c.MaxBlockWeight {
		return errors.Errorf("reserved weight %d must be below the block weight limit %d", c.ReservedWeight, c.MaxBlockWeight)
	}
	if c.Subsidy < 0 {
		return errors.Errorf("subsidy %d is negative", c.Subsidy)
	}
	return nil
}

// ParseBits reads compact bits written as hex, with or without a 0x prefix.
func ParseBits(s string) (uint32, error) {
	bits, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid bits %q", s)
	}
	return uint32(bits), nil
}

// Params converts the configuration into the immutable parameters of an
// assembly run. chainParams decides which payout addresses are accepted.
func (c *Config) Params(chainParams *chaincfg.Params) (work.Params, error) {
	p := work.DefaultParams()
	p.Version = c.BlockVersion
	p.Subsidy = c.Subsidy
	p.MaxBlockWeight = c.MaxBlockWeight
	p.ReservedWeight = c.ReservedWeight
	p.CoinbaseHeight = c.CoinbaseHeight

	if _, err := codec.DecodeHash32(c.PrevBlockHash); err != nil {
		return p, errors.Wrap(err, "previous block hash")
	}
	p.PrevBlockHash = strings.ToLower(c.PrevBlockHash)

	bits, err := ParseBits(c.Bits)
	if err != nil {
		return p, err
	}
	p.Bits = bits

	if c.Target == "" {
		p.Target = work.TargetFromBits(bits)
	} else {
		if p.Target, err = work.ParseTarget(c.Target); err != nil {
			return p, err
		}
	}
	if p.Target.Sign() <= 0 {
		return p, errors.New("target must be positive")
	}

	if c.PayoutAddress != "" {
		addr, err := btcutil.DecodeAddress(c.PayoutAddress, chainParams)
		if err != nil {
			return p, errors.Wrapf(err, "invalid payout address %s", c.PayoutAddress)
		}
		if !addr.IsForNet(chainParams) {
			return p, errors.Errorf("payout address %s is not for %s", c.PayoutAddress, chainParams.Name)
		}
		if p.PayoutScript, err = txscript.PayToAddrScript(addr); err != nil {
			return p, errors.Wrap(err, "could not build payout script")
		}
	}
	return p, nil
}
