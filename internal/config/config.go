package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/ethereum/go-ethereum/common"
)

// EnvConfigDir overrides the config directory.
const EnvConfigDir = "EARN_CONFIG_DIR"

const (
	defaultNetwork        = "base"
	defaultMode           = "mainnet"
	defaultAlgorithm      = "fastest"
	defaultPollInterval   = 30
	defaultDecimals       = 6
	defaultReceiptTimeout = 180
	defaultRateLimit      = 10

	configFile  = "config.json"
	walletsFile = "wallets.json"
	keyringDir  = "keys"
)

// ErrUnknownKey is returned by Set for keys it does not know.
var ErrUnknownKey = errors.New("unknown config key")

// Load reads config from dir (or creates defaults). An empty dir falls back
// to $EARN_CONFIG_DIR, then ~/.earnusdc.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".earnusdc")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if c.NetworkMode != "mainnet" && c.NetworkMode != "testnet" {
		return fmt.Errorf("network_mode must be mainnet or testnet, got %q", c.NetworkMode)
	}
	switch c.RPCAlgorithm {
	case "fastest", "round-robin", "failover":
	default:
		return fmt.Errorf("rpc_algorithm must be fastest, round-robin or failover, got %q", c.RPCAlgorithm)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %d", c.PollInterval)
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 36 {
		return fmt.Errorf("token_decimals out of range: %d", c.TokenDecimals)
	}
	if c.ReceiptTimeout <= 0 {
		return fmt.Errorf("receipt_timeout must be positive, got %d", c.ReceiptTimeout)
	}
	if c.RPCRateLimit < 0 {
		return fmt.Errorf("rpc_rate_limit must not be negative, got %g", c.RPCRateLimit)
	}
	for _, a := range []string{c.VaultAddress, c.TokenAddress} {
		if a != "" && !common.IsHexAddress(a) {
			return fmt.Errorf("invalid contract address %q", a)
		}
	}
	return nil
}

// Set assigns a value by its JSON key, as used by `config set`.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch key {
	case "default_network":
		c.DefaultNetwork = strings.ToLower(value)
	case "network_mode":
		c.NetworkMode = strings.ToLower(value)
	case "default_wallet":
		c.DefaultWallet = value
	case "rpc_algorithm":
		c.RPCAlgorithm = strings.ToLower(value)
	case "poll_interval":
		c.PollInterval, err = strconv.Atoi(value)
	case "required_chain_id":
		c.RequiredChainID, err = strconv.ParseInt(value, 10, 64)
	case "vault_address":
		c.VaultAddress = value
	case "token_address":
		c.TokenAddress = value
	case "token_decimals":
		c.TokenDecimals, err = strconv.Atoi(value)
	case "receipt_timeout":
		c.ReceiptTimeout, err = strconv.Atoi(value)
	case "rpc_rate_limit":
		c.RPCRateLimit, err = strconv.ParseFloat(value, 64)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return c.Validate()
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chain, url string) error {
	rpcs := c.CustomRPCs[chain]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[chain]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is where wallet metadata is stored.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// KeyringDir holds the encrypted-file keyring when no OS keychain exists.
func (c *Config) KeyringDir() string {
	return filepath.Join(c.configDir, keyringDir)
}

// Contracts returns the configured deployment, defaulting to Base.
func (c *Config) Contracts() earn.Contracts {
	out := earn.DefaultContracts()
	if c.VaultAddress != "" {
		out.Vault = common.HexToAddress(c.VaultAddress)
	}
	if c.TokenAddress != "" {
		out.Token = common.HexToAddress(c.TokenAddress)
	}
	return out
}

// PollEvery is the balance refresh interval.
func (c *Config) PollEvery() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// ReceiptWait bounds how long a transaction may take to be mined.
func (c *Config) ReceiptWait() time.Duration {
	return time.Duration(c.ReceiptTimeout) * time.Second
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		DefaultNetwork: defaultNetwork,
		NetworkMode:    defaultMode,
		RPCAlgorithm:   defaultAlgorithm,
		CustomRPCs:     make(map[string][]string),
		PollInterval:   defaultPollInterval,
		TokenDecimals:  defaultDecimals,
		ReceiptTimeout: defaultReceiptTimeout,
		RPCRateLimit:   defaultRateLimit,
		configDir:      dir,
	}
}
