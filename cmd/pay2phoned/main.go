// pay2phone daemon.
//
// Usage:
//
//	pay2phoned [-config pay2phone.yaml]   Run the JSON-RPC server
//
// Environment variables prefixed PAY2PHONE_ override the config file.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/olehkaliuzhnyi/pay2phone/internal/backend"
	"github.com/olehkaliuzhnyi/pay2phone/internal/config"
	klog "github.com/olehkaliuzhnyi/pay2phone/internal/log"
	"github.com/olehkaliuzhnyi/pay2phone/internal/rpc"
	"github.com/olehkaliuzhnyi/pay2phone/internal/service"
	"github.com/olehkaliuzhnyi/pay2phone/internal/storage"
	"github.com/olehkaliuzhnyi/pay2phone/internal/tx"
	"github.com/olehkaliuzhnyi/pay2phone/internal/wallet"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := klog.Init(cfg.LogLevel, cfg.LogJSON, cfg.LogFile); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer klog.Close()
	logger := klog.WithComponent("main")

	deriver, err := wallet.NewPhoneDeriver(cfg.Network)
	if err != nil {
		return err
	}
	builder := tx.NewBuilder(tx.BuilderConfig{UnitsPerCoin: cfg.UnitsPerCoin}, deriver)

	var node backend.PaymentBackend
	switch cfg.Backend {
	case config.BackendRPC:
		node = backend.NewRPCBackend(backend.RPCConfig{
			URL:      cfg.NodeRPCURL,
			User:     cfg.NodeRPCUser,
			Password: cfg.NodeRPCPass,
			Timeout:  cfg.BackendTimeout,
		})
	default:
		node = backend.NewCLIBackend(backend.CLIConfig{
			Path: cfg.CLIPath,
			Args: cfg.CLIArgs,
		})
	}
	pool := backend.NewPool(node, backend.PoolConfig{
		Workers: cfg.BackendWorkers,
		Timeout: cfg.BackendTimeout,
	})

	var payments storage.PaymentStore
	if cfg.PaymentDB != "" {
		payments, err = storage.OpenBoltPaymentStore(cfg.PaymentDB)
		if err != nil {
			return err
		}
	} else {
		payments = storage.NewMemoryPaymentStore()
	}
	defer payments.Close()

	svc := service.New(deriver, builder, pool, payments)
	srv := rpc.New(cfg.ListenAddr, svc)
	if err := srv.Start(); err != nil {
		return err
	}

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("backend", cfg.Backend).
		Int("workers", cfg.BackendWorkers).
		Str("payment_db", cfg.PaymentDB).
		Msg("pay2phone daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("shutting down")
	if err := srv.Stop(); err != nil {
		logger.Error().Err(err).Msg("rpc shutdown")
	}
	return nil
}
