package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FeedConfig configures the EIA retail-sales pricing feed.
type FeedConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	PageLength int           `yaml:"page_length"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// ChainConfig configures the wallet and the energy-trade contract.
type ChainConfig struct {
	RPCURL          string `yaml:"rpc_url"`
	ChainID         int64  `yaml:"chain_id"`
	ContractAddress string `yaml:"contract_address"`
	PrivateKey      string `yaml:"private_key"`
	Mnemonic        string `yaml:"mnemonic"`
	DerivationPath  string `yaml:"derivation_path"`
	FallbackGas     uint64 `yaml:"fallback_gas"` // gas limit used when estimation fails
}

// GatewayConfig configures the local HTTP gateway.
type GatewayConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Config is the application configuration.
type Config struct {
	DataDir     string        `yaml:"data_dir"`     // badger listing store
	JournalPath string        `yaml:"journal_path"` // sqlite transaction journal
	Feed        FeedConfig    `yaml:"feed"`
	Chain       ChainConfig   `yaml:"chain"`
	Gateway     GatewayConfig `yaml:"gateway"`
	Log         LogConfig     `yaml:"log"`
}

const (
	defaultFeedBaseURL = "https://api.eia.gov/v2/electricity/retail-sales/data/"
	defaultContract    = "0xA44b7fe1e95Ff74e03faEc086021B7988BAB92Da"
	defaultDerivation  = "m/44'/60'/0'/0/0"
)

// Load reads the YAML config at path (optional), loads a .env file when
// present, and applies environment overrides on top. Precedence:
// environment > config file > defaults.
func Load(path string) (*Config, error) {
	// .env is a convenience for local runs; a missing file is fine.
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:     "data",
		JournalPath: "data/journal.db",
		Feed: FeedConfig{
			BaseURL:    defaultFeedBaseURL,
			PageLength: 100,
			Timeout:    30 * time.Second,
			CacheTTL:   5 * time.Minute,
		},
		Chain: ChainConfig{
			ChainID:         1,
			ContractAddress: defaultContract,
			DerivationPath:  defaultDerivation,
			FallbackGas:     300_000,
		},
		Gateway: GatewayConfig{Listen: ":8787"},
		Log:     LogConfig{Level: "info", MaxSize: 20, MaxBackups: 5, MaxAge: 14},
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.DataDir, "GOWATT_DATA_DIR")
	setString(&cfg.JournalPath, "GOWATT_JOURNAL_PATH")
	setString(&cfg.Feed.APIKey, "EIA_API_KEY")
	setString(&cfg.Feed.BaseURL, "EIA_BASE_URL")
	setInt(&cfg.Feed.PageLength, "EIA_PAGE_LENGTH")
	setString(&cfg.Chain.RPCURL, "GOWATT_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "GOWATT_CHAIN_ID")
	setString(&cfg.Chain.ContractAddress, "GOWATT_CONTRACT_ADDRESS")
	setString(&cfg.Chain.PrivateKey, "WALLET_PRIVATE_KEY")
	setString(&cfg.Chain.Mnemonic, "WALLET_MNEMONIC")
	setString(&cfg.Chain.DerivationPath, "WALLET_DERIVATION_PATH")
	setString(&cfg.Gateway.Listen, "GOWATT_LISTEN")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")
}

// Validate checks the settings the node cannot run without. The feed API key
// is deliberately not required here: its absence is a recoverable runtime
// failure (the marketplace degrades to user listings only).
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.JournalPath == "" {
		return fmt.Errorf("journal_path is required")
	}
	if c.Feed.PageLength <= 0 {
		return fmt.Errorf("feed.page_length must be positive")
	}
	if c.Chain.ContractAddress == "" {
		return fmt.Errorf("chain.contract_address is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
