// Package main provides the xrpfleetd daemon - the XRPL fleet management
// backend.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lawas-exchange/xrpfleet/internal/batch"
	"github.com/lawas-exchange/xrpfleet/internal/config"
	"github.com/lawas-exchange/xrpfleet/internal/ledger"
	"github.com/lawas-exchange/xrpfleet/internal/oracle"
	"github.com/lawas-exchange/xrpfleet/internal/reserve"
	"github.com/lawas-exchange/xrpfleet/internal/rpc"
	"github.com/lawas-exchange/xrpfleet/internal/storage"
	"github.com/lawas-exchange/xrpfleet/internal/wallet"
	"github.com/lawas-exchange/xrpfleet/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

// networkSettingKey pins a data directory to one network so mainnet keys
// are never used against testnet state or vice versa.
const networkSettingKey = "network_type"

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.xrpfleet", "Data directory")
		apiAddr     = flag.String("api", "", "JSON-RPC API address, overrides config")
		endpoint    = flag.String("endpoint", "", "XRPL websocket endpoint, overrides config")
		testnet     = flag.Bool("testnet", false, "Run on testnet (separate network and data)")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("xrpfleetd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	// Testnet state lives in its own subdirectory
	effectiveDataDir := *dataDir
	if *testnet {
		effectiveDataDir = filepath.Join(*dataDir, "testnet")
	}

	cfg, err := config.LoadConfig(effectiveDataDir)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// CLI flags take precedence over the config file
	if *testnet {
		cfg.NetworkType = config.Testnet
	}
	if *apiAddr != "" {
		cfg.API.ListenAddr = *apiAddr
	}
	if *endpoint != "" {
		cfg.Ledger.WebsocketEndpoint = *endpoint
	}
	cfg.Logging.Level = *logLevel
	cfg.Storage.DataDir = effectiveDataDir

	log = logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	log.Info("Config loaded", "path", config.ConfigPath(effectiveDataDir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dataPath := config.ExpandPath(cfg.Storage.DataDir)
	store, err := storage.New(&storage.Config{DataDir: dataPath})
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("Storage initialized", "path", dataPath)

	if err := guardNetwork(store, cfg.NetworkType); err != nil {
		log.Fatal("Network mismatch", "error", err)
	}

	walletStore := wallet.NewStore(store, log)

	client := ledger.NewWSClient(cfg.WebsocketEndpoint(), log)
	defer client.Close()

	connectCtx, connectCancel := context.WithTimeout(ctx, 15*time.Second)
	if err := client.Connect(connectCtx); err != nil {
		// Requests reconnect lazily, so a cold start without the ledger is
		// survivable.
		log.Warn("Ledger connection failed, will retry on demand", "endpoint", cfg.WebsocketEndpoint(), "error", err)
	} else {
		log.Info("Ledger connected", "endpoint", cfg.WebsocketEndpoint())
	}
	connectCancel()

	rates := oracle.NewDefault(cfg.Oracle.XPMarketURL, cfg.Oracle.OnTheDEXURL, log)
	reserves := reserve.NewCalculator(client, log)
	orchestrator := batch.New(walletStore, client, rates, reserves, log)

	rpcServer := rpc.NewServer(walletStore, client, rates, reserves, orchestrator)
	if err := rpcServer.Start(cfg.API.ListenAddr); err != nil {
		log.Fatal("Failed to start RPC server", "error", err)
	}

	printBanner(log, cfg, walletStore)

	// Periodic ledger status over the WebSocket hub
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				connected := client.IsConnected()
				log.Info("Status", "ledger_connected", connected)
				if hub := rpcServer.WSHub(); hub != nil {
					hub.Broadcast(rpc.EventLedgerStatus, map[string]interface{}{
						"connected": connected,
						"endpoint":  cfg.WebsocketEndpoint(),
					})
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutting down...")

	cancel()

	if err := rpcServer.Stop(); err != nil {
		log.Error("Error stopping RPC server", "error", err)
	}

	log.Info("Goodbye!")
}

// guardNetwork records the network on first run and refuses to open a data
// directory created for the other network.
func guardNetwork(store *storage.Storage, network config.NetworkType) error {
	stored, err := store.GetSetting(networkSettingKey)
	if errors.Is(err, storage.ErrSettingNotFound) {
		return store.SetSetting(networkSettingKey, string(network))
	}
	if err != nil {
		return err
	}
	if stored != string(network) {
		return &networkMismatchError{stored: stored, requested: string(network)}
	}
	return nil
}

type networkMismatchError struct {
	stored, requested string
}

func (e *networkMismatchError) Error() string {
	return "data directory belongs to " + e.stored + ", refusing to run as " + e.requested
}

func printBanner(log *logging.Logger, cfg *config.DaemonConfig, store *wallet.Store) {
	networkLabel := "mainnet"
	if cfg.IsTestnet() {
		networkLabel = "TESTNET"
	}

	walletCount := 0
	if addresses, err := store.Addresses(); err == nil {
		walletCount = len(addresses)
	}

	log.Info("")
	log.Info("=================================================")
	log.Infof("  xrpfleet daemon (%s)", networkLabel)
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  API: http://%s", cfg.API.ListenAddr)
	log.Infof("  WS:  ws://%s/ws", cfg.API.ListenAddr)
	log.Info("")
	log.Infof("  Ledger:  %s", cfg.WebsocketEndpoint())
	log.Infof("  Wallets: %d", walletCount)
	log.Infof("  Data dir: %s", config.ExpandPath(cfg.Storage.DataDir))
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}
