package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DaemonConfig holds the file-backed configuration for the xrpfleet daemon.
// Ledger and oracle endpoints default to the network parameters and can be
// overridden per deployment.
type DaemonConfig struct {
	// NetworkType is the network type (mainnet or testnet).
	NetworkType NetworkType `yaml:"network_type"`

	// Ledger settings
	Ledger LedgerConfig `yaml:"ledger"`

	// Oracle settings
	Oracle OracleConfig `yaml:"oracle"`

	// API settings
	API APIConfig `yaml:"api"`

	// Storage
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LedgerConfig holds XRPL connection settings.
type LedgerConfig struct {
	// WebsocketEndpoint overrides the default endpoint for the network.
	WebsocketEndpoint string `yaml:"websocket_endpoint"`
}

// OracleConfig holds rate oracle endpoints.
type OracleConfig struct {
	XPMarketURL string `yaml:"xpmarket_url"`
	OnTheDEXURL string `yaml:"onthedex_url"`
}

// APIConfig holds JSON-RPC server settings.
type APIConfig struct {
	// ListenAddr is the host:port the RPC server binds to.
	ListenAddr string `yaml:"listen_addr"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	// DataDir is the directory for all data files.
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`

	// File is the log file path (empty for stdout).
	File string `yaml:"file"`
}

// IsTestnet returns true if running on testnet.
func (c *DaemonConfig) IsTestnet() bool {
	return c.NetworkType == Testnet
}

// WebsocketEndpoint resolves the ledger endpoint: the explicit override if
// set, otherwise the network default.
func (c *DaemonConfig) WebsocketEndpoint() string {
	if c.Ledger.WebsocketEndpoint != "" {
		return c.Ledger.WebsocketEndpoint
	}
	if c.IsTestnet() {
		return TestnetParams.WebsocketEndpoint
	}
	return MainnetParams.WebsocketEndpoint
}

// DefaultDaemonConfig returns a DaemonConfig with sensible defaults.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		NetworkType: Mainnet,
		Oracle: OracleConfig{
			XPMarketURL: XPMarketImpactURL,
			OnTheDEXURL: OnTheDEXTickerURL,
		},
		API: APIConfig{
			ListenAddr: "127.0.0.1:8080",
		},
		Storage: StorageConfig{
			DataDir: "~/.xrpfleet",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// ConfigPath returns the config file path under a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(ExpandPath(dataDir), ConfigFileName)
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it creates one with default values.
func LoadConfig(dataDir string) (*DaemonConfig, error) {
	configPath := ConfigPath(dataDir)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultDaemonConfig()
		cfg.Storage.DataDir = dataDir

		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultDaemonConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *DaemonConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# xrpfleet daemon configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
