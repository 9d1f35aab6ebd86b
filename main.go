package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/ayushshrivastv/Summer-of-Bitcoin/config"
	"github.com/ayushshrivastv/Summer-of-Bitcoin/logging"
	"github.com/ayushshrivastv/Summer-of-Bitcoin/mempool"
	p2pnet "github.com/ayushshrivastv/Summer-of-Bitcoin/net"
	"github.com/ayushshrivastv/Summer-of-Bitcoin/rpc"
	"github.com/ayushshrivastv/Summer-of-Bitcoin/web"
	"github.com/ayushshrivastv/Summer-of-Bitcoin/work"
)

func formatHashrate(hr float64) string {
	switch {
	case hr > 1e9:
		return fmt.Sprintf("%.2f GH/s", hr/1e9)
	case hr > 1e6:
		return fmt.Sprintf("%.2f MH/s", hr/1e6)
	case hr > 1e3:
		return fmt.Sprintf("%.2f kH/s", hr/1e3)
	default:
		return fmt.Sprintf("%.2f H/s", hr)
	}
}

func main() {
	if err := run(); err != nil {
		logging.Fatalf("MAIN: %v", err)
	}
}

func run() error {
	/* ----- configuration & logging ---------------------------------- */
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return nil
		}
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetLogLevel(level)
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		defer logFile.Close()
		logging.SetLogFile(logFile)
	}

	if err := p2pnet.SetNetwork(cfg.Network); err != nil {
		return err
	}
	network := p2pnet.ActiveNetwork

	/* ----- node RPC (optional) -------------------------------------- */
	var node *rpc.Client
	if cfg.UseNodeTip || cfg.Submit {
		if node, err = rpc.NewClient(*cfg, network); err != nil {
			return err
		}
		defer node.Shutdown()
	}
	if cfg.UseNodeTip {
		tip, err := node.BestBlockHash()
		if err != nil {
			return err
		}
		height, err := node.BlockCount()
		if err != nil {
			return err
		}
		logging.Noticef("MAIN: building on node tip %s at height %d", tip, height)
		cfg.PrevBlockHash = tip
		cfg.CoinbaseHeight = uint32(height + 1)
	}

	params, err := cfg.Params(network.Params)
	if err != nil {
		return err
	}

	/* ----- assemble & mine ------------------------------------------ */
	candidates, _, err := mempool.Load(cfg.MempoolDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	miner := work.NewMiner(cfg.Workers, network.POWHash)
	assembler := work.NewAssembler(params, miner)

	started := time.Now()
	result, err := assembler.Assemble(ctx, candidates)
	if err != nil {
		return err
	}
	elapsed := time.Since(started)

	if err := result.WriteArtifactFile(cfg.Output); err != nil {
		return err
	}
	logging.Successf("MAIN: block %s mined with nonce %d, %d transactions written to %s",
		result.BlockHash, result.Nonce, len(result.TxIDs), cfg.Output)
	logging.Infof("MAIN: %d hashes in %s (%s)", result.Hashes, elapsed.Round(time.Millisecond),
		formatHashrate(float64(result.Hashes)/elapsed.Seconds()))

	if cfg.Submit {
		if err := node.SubmitBlock(result.Block); err != nil {
			return err
		}
	}

	/* ----- serve until shutdown (optional) -------------------------- */
	if cfg.Serve == "" {
		return nil
	}
	logging.Infof("MAIN: serving result on %s. Press Ctrl+C to exit.", cfg.Serve)
	if err := web.ListenAndServe(ctx, cfg.Serve, assembler); err != nil {
		return err
	}
	logging.Warnf("Shutdown signal received, exiting")
	return nil
}
