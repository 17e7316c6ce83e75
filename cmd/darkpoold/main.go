package main

import (
	"context"
	"crypto/rand"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phantompool/darkpool/internal/config"
	"github.com/phantompool/darkpool/internal/engine"
	"github.com/phantompool/darkpool/internal/executor"
	"github.com/phantompool/darkpool/internal/ledger"
	"github.com/phantompool/darkpool/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the node configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load configuration")
	}
	if err := logger.Init(cfg.Logger); err != nil {
		logger.Log.WithError(err).Fatal("failed to initialize logger")
	}
	log := logger.Log

	// Single-operator bootstrap: generate the pool key and hand one share to
	// each local executor. A multi-operator deployment replaces this with a
	// DKG and remote clients.
	poolKey, nodes, clients, err := executor.Bootstrap(rand.Reader, cfg.Threshold.Threshold, cfg.Threshold.Nodes, cfg.Executor.MinStake)
	if err != nil {
		log.WithError(err).Fatal("failed to bootstrap executor network")
	}
	network := executor.NewNetwork(cfg.Executor, cfg.Threshold.Threshold, log)
	for i, node := range nodes {
		if err := network.Register(node, clients[i]); err != nil {
			log.WithError(err).Fatal("failed to register executor")
		}
	}

	var genesis [32]byte
	if _, err := rand.Read(genesis[:]); err != nil {
		log.WithError(err).Fatal("failed to seed genesis")
	}
	led := ledger.NewMemory(genesis)

	eng := engine.New(cfg, log, led, network, poolKey)
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go heartbeatLoop(ctx, network, nodes, cfg.HeartbeatInterval())
	go roundLoop(ctx, eng, cfg)

	log.WithFields(map[string]interface{}{
		"pairs":     cfg.Pairs,
		"threshold": cfg.Threshold.Threshold,
		"nodes":     cfg.Threshold.Nodes,
	}).Info("darkpoold started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
}

// heartbeatLoop drives liveness for in-process executors and sweeps the
// registry for stale ones.
func heartbeatLoop(ctx context.Context, network *executor.Network, nodes []*executor.Node, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, node := range nodes {
				_ = network.Heartbeat(node.ID, now)
			}
			network.CheckLiveness(now)
		}
	}
}

// roundLoop runs a matching round for every pair at the configured cadence.
func roundLoop(ctx context.Context, eng *engine.Engine, cfg *config.Config) {
	ticker := time.NewTicker(cfg.RoundInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, pair := range cfg.Pairs {
				if _, err := eng.RunMatchingRound(ctx, pair); err != nil {
					logger.Log.WithError(err).WithField("pair", pair).Error("matching round failed")
				}
			}
		}
	}
}
