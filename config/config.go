package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ingotfund/core/types"
	"ingotfund/native/fund"
)

// GenesisAlloc seeds an account balance on the asset ledger at first start.
type GenesisAlloc struct {
	Address string `toml:"Address"`
	Token   string `toml:"Token"`
	Amount  string `toml:"Amount"`
}

// Config carries the daemon configuration.
type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	StorageBackend string `toml:"StorageBackend"`
	LogFile        string `toml:"LogFile"`
	LogMaxSizeMB   int    `toml:"LogMaxSizeMB"`
	Environment    string `toml:"Environment"`

	// EngineAccount is the address holding deposited assets on the ledger.
	EngineAccount string `toml:"EngineAccount"`
	// AdminAddresses receive every administrative capability.
	AdminAddresses []string `toml:"AdminAddresses"`

	PrimaryToken        string `toml:"PrimaryToken"`
	SecondaryToken      string `toml:"SecondaryToken"`
	IngotPrice          string `toml:"IngotPrice"`
	ParityBps           uint64 `toml:"ParityBps"`
	InterestRatePercent uint64 `toml:"InterestRatePercent"`
	MinReferralWithdraw string `toml:"MinReferralWithdraw"`

	Genesis []GenesisAlloc `toml:"Genesis"`
}

// Load reads the configuration from path, creating a default file when none
// exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8545"
	}
	if strings.TrimSpace(c.MetricsAddress) == "" {
		c.MetricsAddress = ":9464"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./ingotfund-data"
	}
	if strings.TrimSpace(c.StorageBackend) == "" {
		c.StorageBackend = "leveldb"
	}
	if c.LogMaxSizeMB <= 0 {
		c.LogMaxSizeMB = 100
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if strings.TrimSpace(c.PrimaryToken) == "" {
		c.PrimaryToken = "GLD"
	}
	if strings.TrimSpace(c.SecondaryToken) == "" {
		c.SecondaryToken = "ZGLD"
	}
	if strings.TrimSpace(c.IngotPrice) == "" {
		c.IngotPrice = "1000"
	}
	if c.ParityBps == 0 {
		c.ParityBps = fund.BpsDenominator
	}
	if c.InterestRatePercent == 0 {
		c.InterestRatePercent = 30
	}
	if strings.TrimSpace(c.MinReferralWithdraw) == "" {
		c.MinReferralWithdraw = "100"
	}
}

// Validate checks the loaded configuration for mistakes a default cannot
// paper over.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "leveldb", "bolt", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if strings.TrimSpace(c.EngineAccount) == "" {
		return fmt.Errorf("EngineAccount must be configured")
	}
	if _, err := types.ParseAddress(c.EngineAccount); err != nil {
		return fmt.Errorf("EngineAccount: %w", err)
	}
	for i, admin := range c.AdminAddresses {
		if _, err := types.ParseAddress(admin); err != nil {
			return fmt.Errorf("AdminAddresses[%d]: %w", i, err)
		}
	}
	if _, err := parseAmount(c.IngotPrice); err != nil {
		return fmt.Errorf("IngotPrice: %w", err)
	}
	if _, err := parseAmount(c.MinReferralWithdraw); err != nil {
		return fmt.Errorf("MinReferralWithdraw: %w", err)
	}
	for i, alloc := range c.Genesis {
		if _, err := types.ParseAddress(alloc.Address); err != nil {
			return fmt.Errorf("Genesis[%d].Address: %w", i, err)
		}
		if strings.TrimSpace(alloc.Token) == "" {
			return fmt.Errorf("Genesis[%d].Token must be set", i)
		}
		if _, err := parseAmount(alloc.Amount); err != nil {
			return fmt.Errorf("Genesis[%d].Amount: %w", i, err)
		}
	}
	params, err := c.FundParams()
	if err != nil {
		return err
	}
	return params.Validate()
}

// FundParams converts the configuration into engine parameters.
func (c *Config) FundParams() (fund.Params, error) {
	price, err := parseAmount(c.IngotPrice)
	if err != nil {
		return fund.Params{}, fmt.Errorf("IngotPrice: %w", err)
	}
	minWithdraw, err := parseAmount(c.MinReferralWithdraw)
	if err != nil {
		return fund.Params{}, fmt.Errorf("MinReferralWithdraw: %w", err)
	}
	params := fund.DefaultParams()
	params.PrimaryToken = c.PrimaryToken
	params.SecondaryToken = c.SecondaryToken
	params.IngotPrice = price
	params.ParityBps = c.ParityBps
	params.InterestRatePercent = c.InterestRatePercent
	params.MinReferralWithdraw = minWithdraw
	return params.Normalize(), nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", s)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", s)
	}
	return amount, nil
}

// createDefault writes and returns a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		EngineAccount: "0x0000000000000000000000000000000000000001",
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
