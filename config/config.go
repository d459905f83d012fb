package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DataDir        string   `toml:"DataDir"`
	NetworkName    string   `toml:"NetworkName"`
	MetricsAddress string   `toml:"MetricsAddress"`
	Environment    string   `toml:"Environment"`
	AdminAccounts  []string `toml:"AdminAccounts"`
	FeeCollector   string   `toml:"FeeCollector"`
	AllowedTokens  []string `toml:"AllowedTokens"`

	Escrow      EscrowConfig      `toml:"Escrow"`
	Arbitration ArbitrationConfig `toml:"Arbitration"`
}

// EscrowConfig carries the escrow policy thresholds. Amounts are decimal
// strings in base units so large values survive TOML round trips.
type EscrowConfig struct {
	FeeBps            uint32 `toml:"FeeBps"`
	MinEscrowAmount   string `toml:"MinEscrowAmount"`
	DisputeFee        string `toml:"DisputeFee"`
	DisputeWindowSecs int64  `toml:"DisputeWindowSecs"`
}

// ArbitrationConfig carries the arbitrator-selection policy knobs.
type ArbitrationConfig struct {
	MinReputation     uint64 `toml:"MinReputation"`
	MaxActiveDisputes uint32 `toml:"MaxActiveDisputes"`
	CandidateCap      int    `toml:"CandidateCap"`
	BaseUnit          string `toml:"BaseUnit"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "pact-local"
	}
	if cfg.AdminAccounts == nil {
		cfg.AdminAccounts = []string{}
	}
	if cfg.AllowedTokens == nil {
		cfg.AllowedTokens = []string{}
	}

	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:        "./pact-data",
		NetworkName:    "pact-local",
		MetricsAddress: ":9464",
		Environment:    "dev",
		AdminAccounts:  []string{},
		AllowedTokens:  []string{},
		Escrow: EscrowConfig{
			FeeBps:            100,
			MinEscrowAmount:   "1",
			DisputeFee:        "0",
			DisputeWindowSecs: 7 * 24 * 3600,
		},
		Arbitration: ArbitrationConfig{
			MinReputation:     40,
			MaxActiveDisputes: 5,
			CandidateCap:      10,
			BaseUnit:          "1000000000000000000",
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// ParseAmount parses a non-negative decimal base-unit amount.
func ParseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

// ParseAddress decodes a 20-byte hex account address, with or without the 0x
// prefix.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", value, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: want %d bytes, got %d", value, len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
