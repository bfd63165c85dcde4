package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

// Backend kinds.
const (
	BackendCLI = "cli"
	BackendRPC = "rpc"
)

// Config holds all configurable parameters for the pay2phone daemon.
type Config struct {
	// Network selects address encoding and is passed to the deriver.
	Network models.Network `yaml:"network"`
	// UnitsPerCoin is passed to the transaction builder.
	UnitsPerCoin int64 `yaml:"units_per_coin"`

	// JSON-RPC server
	ListenAddr string `yaml:"listen_addr"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
	LogFile  string `yaml:"log_file"`

	// Payment backend
	Backend        string        `yaml:"backend"`
	CLIPath        string        `yaml:"cli_path"`
	CLIArgs        []string      `yaml:"cli_args"`
	NodeRPCURL     string        `yaml:"node_rpc_url"`
	NodeRPCUser    string        `yaml:"node_rpc_user"`
	NodeRPCPass    string        `yaml:"node_rpc_pass"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	BackendWorkers int           `yaml:"backend_workers"`

	// PaymentDB is the bbolt file for idempotency receipts. Empty keeps them in memory.
	PaymentDB string `yaml:"payment_db"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Network:      models.NetworkTestnet,
		UnitsPerCoin: 100_000_000,

		ListenAddr: "127.0.0.1:8332",

		LogLevel: "info",

		Backend:        BackendCLI,
		CLIPath:        "bitcoin-cli",
		CLIArgs:        []string{"-regtest"},
		NodeRPCURL:     "http://127.0.0.1:18443",
		BackendTimeout: 15 * time.Second,
		BackendWorkers: 4,
	}
}

// FromEnv returns a Config populated from environment variables,
// falling back to defaults for unset values.
func FromEnv() Config {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

// LoadFile reads a YAML config file over the defaults, then applies
// environment overrides. An empty path behaves like FromEnv.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PAY2PHONE_NETWORK"); v != "" {
		cfg.Network = models.Network(v)
	}
	if v := os.Getenv("PAY2PHONE_UNITS_PER_COIN"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.UnitsPerCoin = n
		}
	}
	if v := os.Getenv("PAY2PHONE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("PAY2PHONE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PAY2PHONE_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}
	if v := os.Getenv("PAY2PHONE_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("PAY2PHONE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("PAY2PHONE_CLI_PATH"); v != "" {
		cfg.CLIPath = v
	}
	if v, ok := os.LookupEnv("PAY2PHONE_CLI_ARGS"); ok {
		cfg.CLIArgs = strings.Fields(v)
	}
	if v := os.Getenv("PAY2PHONE_NODE_RPC_URL"); v != "" {
		cfg.NodeRPCURL = v
	}
	if v := os.Getenv("PAY2PHONE_NODE_RPC_USER"); v != "" {
		cfg.NodeRPCUser = v
	}
	if v := os.Getenv("PAY2PHONE_NODE_RPC_PASS"); v != "" {
		cfg.NodeRPCPass = v
	}
	if v := os.Getenv("PAY2PHONE_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BackendTimeout = d
		}
	}
	if v := os.Getenv("PAY2PHONE_BACKEND_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BackendWorkers = n
		}
	}
	if v := os.Getenv("PAY2PHONE_PAYMENT_DB"); v != "" {
		cfg.PaymentDB = v
	}
}

// Validate checks values that cannot be defaulted at use.
func (c Config) Validate() error {
	switch c.Network {
	case models.NetworkMainnet, models.NetworkTestnet, models.NetworkRegtest, models.NetworkSignet:
	default:
		return fmt.Errorf("unknown network %q", c.Network)
	}
	if c.UnitsPerCoin <= 0 {
		return fmt.Errorf("units_per_coin must be positive, got %d", c.UnitsPerCoin)
	}
	switch c.Backend {
	case BackendCLI:
		if c.CLIPath == "" {
			return fmt.Errorf("cli_path is required for the cli backend")
		}
	case BackendRPC:
		if c.NodeRPCURL == "" {
			return fmt.Errorf("node_rpc_url is required for the rpc backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.BackendWorkers <= 0 {
		return fmt.Errorf("backend_workers must be positive, got %d", c.BackendWorkers)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("backend_timeout must be positive, got %s", c.BackendTimeout)
	}
	return nil
}
