package config

// Config holds all earnusdc configuration.
type Config struct {
	DefaultNetwork string              `json:"default_network"`
	NetworkMode    string              `json:"network_mode"` // "mainnet" | "testnet"
	DefaultWallet  string              `json:"default_wallet"`
	RPCAlgorithm   string              `json:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	CustomRPCs     map[string][]string `json:"custom_rpcs"`

	PollInterval    int     `json:"poll_interval"`               // seconds between balance refreshes
	RequiredChainID int64   `json:"required_chain_id,omitempty"` // 0: derived from network + mode
	VaultAddress    string  `json:"vault_address,omitempty"`     // empty: Base deployment
	TokenAddress    string  `json:"token_address,omitempty"`
	TokenDecimals   int     `json:"token_decimals"`
	ReceiptTimeout  int     `json:"receipt_timeout"` // seconds
	RPCRateLimit    float64 `json:"rpc_rate_limit"`  // requests per second, 0 disables

	// internal: config dir path used for Save()
	configDir string
}
