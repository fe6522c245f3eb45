package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"alphapoints/config"
	"alphapoints/core/points"
	"alphapoints/gateway"
	"alphapoints/gateway/middleware"
	"alphapoints/indexer"
	"alphapoints/native/oracle"
	"alphapoints/observability/logging"
	"alphapoints/observability/metrics"
	"alphapoints/rpc"
	"alphapoints/state"
	"alphapoints/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup(logging.Options{
		Service:    "alphapointsd",
		Env:        cfg.Env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	db, err := openDatabase(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	mgr := state.NewManager(db)
	mgr.Subscribe(metrics.NewSubscriber())

	if cfg.Indexer.Enabled {
		ix, err := indexer.Open(cfg.Indexer.Driver, cfg.Indexer.DSN, logger)
		if err != nil {
			panic(fmt.Sprintf("Failed to open indexer: %v", err))
		}
		defer ix.Close()
		mgr.Subscribe(ix)
	}

	ora := oracle.New(oracle.NewStaticSource(oracle.RateQuote{
		Rate:      cfg.Oracle.Rate,
		Decimals:  cfg.Oracle.Decimals,
		Timestamp: time.Now(),
		Source:    cfg.Oracle.Source,
	}), time.Duration(cfg.Oracle.MaxAgeSeconds)*time.Second)

	svc := points.NewService(mgr, ora)

	genesisPath := strings.TrimSpace(*genesisFlag)
	if genesisPath == "" {
		genesisPath = strings.TrimSpace(cfg.GenesisFile)
	}
	if genesisPath != "" {
		spec, err := loadGenesisSpec(genesisPath)
		if err != nil {
			panic(fmt.Sprintf("Failed to load genesis spec: %v", err))
		}
		if err := applyGenesis(mgr, svc, spec); err != nil {
			panic(fmt.Sprintf("Failed to apply genesis spec: %v", err))
		}
	}

	secret := strings.TrimSpace(os.Getenv(cfg.Auth.JWTSecretEnv))
	if secret == "" {
		panic(fmt.Sprintf("JWT secret required; set %s", cfg.Auth.JWTSecretEnv))
	}
	auth := rpc.NewAuthenticator([]byte(secret), time.Duration(cfg.Auth.TokenTTLSeconds)*time.Second)

	rpcServer := rpc.NewServer(svc, auth, logger)

	router := gateway.New(gateway.Config{
		RPCHandler: rpcServer.Handler(),
		RateLimit: middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- rpcServer.Start(ctx, cfg.RPCAddress)
	}()
	go func() {
		errCh <- gateway.Serve(ctx, cfg.GatewayAddress, router, logger)
	}()

	logger.Info("alphapointsd running",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("gateway", cfg.GatewayAddress),
		slog.String("backend", cfg.StorageBackend))

	received := 0
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		received++
		if err != nil {
			logger.Error("server terminated", slog.Any("error", err))
		}
		stop()
	}

	// give the remaining servers time to drain
	drain := time.NewTimer(10 * time.Second)
	defer drain.Stop()
	for ; received < cap(errCh); received++ {
		select {
		case err := <-errCh:
			if err != nil {
				logger.Error("server shutdown error", slog.Any("error", err))
			}
		case <-drain.C:
			return
		}
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemDB(), nil
	case "leveldb":
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "state.bolt"))
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
