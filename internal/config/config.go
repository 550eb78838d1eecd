// Package config resolves client and agent settings: built-in defaults, then
// an optional YAML file, then SUIZK_* environment variables, then flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/and161185/suizk/internal/game"
)

// Networks with a known public full node.
const (
	Devnet  = "devnet"
	Testnet = "testnet"
	Mainnet = "mainnet"
)

// Config is the full settings tree.
type Config struct {
	Network         string        `yaml:"network"`
	RPCURL          string        `yaml:"rpcURL"`
	FaucetURL       string        `yaml:"faucetURL"`
	SaltURL         string        `yaml:"saltURL"`
	SaltDevResource string        `yaml:"saltDevResource"`
	ProverURL       string        `yaml:"proverURL"`
	GoogleClientID  string        `yaml:"googleClientID"`
	RedirectURI     string        `yaml:"redirectURI"`
	MaxEpochOffset  uint64        `yaml:"maxEpochOffset"`
	StateDir        string        `yaml:"stateDir"`
	Namespace       string        `yaml:"namespace"`
	DSN             string        `yaml:"dsn"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	HTTPTimeout     time.Duration `yaml:"httpTimeout"`
	ProverTimeout   time.Duration `yaml:"proverTimeout"`
	FaucetCooldown  time.Duration `yaml:"faucetCooldown"`
	AgentAddr       string        `yaml:"agentAddr"`
	MetricsAddr     string        `yaml:"metricsAddr"`
	GamePackage     string        `yaml:"gamePackage"`
	GameObject      string        `yaml:"gameObject"`
	Verbose         bool          `yaml:"verbose"`
}

// Default returns the dev-network configuration.
func Default() Config {
	return Config{
		Network:         Devnet,
		SaltURL:         "http://localhost:5173/dummy-salt-service.json",
		SaltDevResource: "/dummy-salt-service.json",
		ProverURL:       "https://prover-dev.mystenlabs.com/v1",
		RedirectURI:     "http://localhost:5173",
		MaxEpochOffset:  2,
		StateDir:        defaultStateDir(),
		Namespace:       "default",
		RefreshInterval: 5 * time.Second,
		HTTPTimeout:     30 * time.Second,
		ProverTimeout:   2 * time.Minute,
		FaucetCooldown:  time.Minute,
		AgentAddr:       "127.0.0.1:7788",
		MetricsAddr:     "127.0.0.1:9788",
		GamePackage:     game.DefaultPackage,
		GameObject:      game.DefaultObject,
	}
}

func defaultStateDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "suizk")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "suizk")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "suizk")
}

// NodeURL returns the full-node URL for a network name.
func NodeURL(network string) (string, error) {
	switch network {
	case Devnet, Testnet, Mainnet:
		return fmt.Sprintf("https://fullnode.%s.sui.io:443", network), nil
	}
	return "", fmt.Errorf("unknown network %q", network)
}

// LoadFile overlays the YAML document at path onto cfg. Keys missing from
// the file keep their current value.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays SUIZK_* variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("SUIZK_NETWORK", &cfg.Network)
	str("SUIZK_RPC_URL", &cfg.RPCURL)
	str("SUIZK_SALT_URL", &cfg.SaltURL)
	str("SUIZK_PROVER_URL", &cfg.ProverURL)
	str("SUIZK_GOOGLE_CLIENT_ID", &cfg.GoogleClientID)
	str("SUIZK_STATE_DIR", &cfg.StateDir)
	str("SUIZK_DSN", &cfg.DSN)

	if v, ok := lookup("SUIZK_MAX_EPOCH_OFFSET"); ok && v != "" {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("SUIZK_MAX_EPOCH_OFFSET: %w", err)
		}
		cfg.MaxEpochOffset = n
	}
	return nil
}

// RegisterFlags binds fs to the fields of cfg.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Network, "network", cfg.Network, "sui network: devnet, testnet or mainnet")
	fs.StringVar(&cfg.RPCURL, "rpc", cfg.RPCURL, "full-node JSON-RPC URL (derived from -network when empty)")
	fs.StringVar(&cfg.FaucetURL, "faucet", cfg.FaucetURL, "faucet URL (devnet default when empty)")
	fs.StringVar(&cfg.SaltURL, "salt-url", cfg.SaltURL, "salt service URL")
	fs.StringVar(&cfg.ProverURL, "prover-url", cfg.ProverURL, "proving service URL")
	fs.StringVar(&cfg.GoogleClientID, "google-client-id", cfg.GoogleClientID, "OAuth client id for Google")
	fs.StringVar(&cfg.RedirectURI, "redirect-uri", cfg.RedirectURI, "OAuth redirect URI")
	fs.Uint64Var(&cfg.MaxEpochOffset, "max-epoch-offset", cfg.MaxEpochOffset, "epochs an ephemeral key stays valid")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for session state")
	fs.StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "session namespace in the database")
	fs.StringVar(&cfg.DSN, "dsn", cfg.DSN, "PostgreSQL DSN; file storage when empty")
	fs.DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "balance refresh interval")
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "timeout of ledger and salt requests")
	fs.StringVar(&cfg.AgentAddr, "agent-addr", cfg.AgentAddr, "agent gRPC listen address")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "agent metrics listen address")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")
}

// Parse resolves configuration for args. Flags win over the environment,
// which wins over the -config file, which wins over defaults.
func Parse(fs *flag.FlagSet, args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	path := fs.String("config", "", "YAML configuration file")
	RegisterFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]string{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })

	if *path != "" {
		if err := LoadFile(&cfg, *path); err != nil {
			return nil, err
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := ApplyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	for name, v := range set {
		if err := fs.Set(name, v); err != nil {
			return nil, err
		}
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finish fills derived fields and validates the result.
func (c *Config) finish() error {
	if c.RPCURL == "" {
		u, err := NodeURL(c.Network)
		if err != nil {
			return err
		}
		c.RPCURL = u
	}
	if c.FaucetURL == "" && c.Network == Devnet {
		c.FaucetURL = "https://faucet.devnet.sui.io/v1/gas"
	}
	if c.MaxEpochOffset == 0 {
		return errors.New("max-epoch-offset must be positive")
	}
	if c.StateDir == "" && c.DSN == "" {
		return errors.New("either state-dir or dsn is required")
	}
	return nil
}

// ExplorerTxURL links a transaction digest in the public explorer.
func (c *Config) ExplorerTxURL(digest string) string {
	return fmt.Sprintf("https://suiscan.xyz/%s/tx/%s", c.Network, digest)
}

// ExplorerAddressURL links an address in the public explorer.
func (c *Config) ExplorerAddressURL(addr string) string {
	return fmt.Sprintf("https://suiscan.xyz/%s/account/%s", c.Network, addr)
}
