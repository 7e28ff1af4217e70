package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config describes the ledger host: where state lives, which identity holds
// engine custody, and the genesis admin/maintainer identities applied by
// `minerctl init`.
type Config struct {
	DataDir           string   `toml:"DataDir"`
	Environment       string   `toml:"Environment"`
	CustodyAddress    string   `toml:"CustodyAddress"`
	MaintainerAddress string   `toml:"MaintainerAddress"`
	AdminAddresses    []string `toml:"AdminAddresses"`
}

const defaultCustodyAddress = "0x0000000000000000000000000000000000000100"

// Load reads the configuration at path, creating a default file when none
// exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if strings.TrimSpace(cfg.CustodyAddress) == "" {
		cfg.CustodyAddress = defaultCustodyAddress
	}
	if cfg.AdminAddresses == nil {
		cfg.AdminAddresses = []string{}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks address fields for well-formedness.
func (c *Config) Validate() error {
	if _, err := parseAddress(c.CustodyAddress); err != nil {
		return fmt.Errorf("config: custody address: %w", err)
	}
	if strings.TrimSpace(c.MaintainerAddress) != "" {
		if _, err := parseAddress(c.MaintainerAddress); err != nil {
			return fmt.Errorf("config: maintainer address: %w", err)
		}
	}
	for _, admin := range c.AdminAddresses {
		if _, err := parseAddress(admin); err != nil {
			return fmt.Errorf("config: admin address %q: %w", admin, err)
		}
	}
	return nil
}

// Custody returns the engine custody identity.
func (c *Config) Custody() (common.Address, error) {
	addr, err := parseAddress(c.CustodyAddress)
	if err != nil {
		return common.Address{}, fmt.Errorf("config: custody address: %w", err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("config: custody address must not be zero")
	}
	return addr, nil
}

// Maintainer returns the configured claim signer, reporting whether one is
// set.
func (c *Config) Maintainer() (common.Address, bool, error) {
	if strings.TrimSpace(c.MaintainerAddress) == "" {
		return common.Address{}, false, nil
	}
	addr, err := parseAddress(c.MaintainerAddress)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("config: maintainer address: %w", err)
	}
	return addr, true, nil
}

// Admins returns the genesis admin identities.
func (c *Config) Admins() ([]common.Address, error) {
	admins := make([]common.Address, 0, len(c.AdminAddresses))
	for _, raw := range c.AdminAddresses {
		addr, err := parseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("config: admin address %q: %w", raw, err)
		}
		admins = append(admins, addr)
	}
	return admins, nil
}

func parseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}
