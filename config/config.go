// Package config provides configuration loading for alchemist deployments.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/alchemydao/alchemist/governance"
)

// Config is the complete deployment configuration.
type Config struct {
	Governance GovernanceConfig `yaml:"governance"`
	Timelock   TimelockConfig   `yaml:"timelock"`
	Vault      VaultConfig      `yaml:"vault"`
	Liquidity  LiquidityConfig  `yaml:"liquidity"`
	Journal    JournalConfig    `yaml:"journal"`
}

// GovernanceConfig configures the governance engine of new deployments.
type GovernanceConfig struct {
	// QuorumBps is the quorum requirement in basis points of total supply.
	QuorumBps uint64 `yaml:"quorum_bps"`
	// ProposalThresholdBps is the proposal threshold in basis points of
	// total supply.
	ProposalThresholdBps uint64 `yaml:"proposal_threshold_bps"`
	// VotingDelay is the number of checkpoints between proposing and the
	// start of voting.
	VotingDelay uint64 `yaml:"voting_delay"`
	// VotingPeriod is the length of the voting window in checkpoints.
	VotingPeriod uint64 `yaml:"voting_period"`
}

// TimelockConfig configures the execution timelock of new deployments.
type TimelockConfig struct {
	// Delay is the mandatory queue delay in seconds.
	Delay uint64 `yaml:"delay"`
}

// VaultConfig configures vault economics.
type VaultConfig struct {
	// FeeBps is the protocol fee on sales and buyouts, in basis points.
	FeeBps uint64 `yaml:"fee_bps"`
}

// LiquidityConfig configures the simulated liquidity position.
type LiquidityConfig struct {
	// Rate is the fixed token1-per-token0 exchange rate of the simulated
	// position.
	Rate int64 `yaml:"rate"`
}

// JournalConfig configures the event audit log.
type JournalConfig struct {
	// Path is the journal file location (empty = in-memory only).
	Path string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	gov := governance.DefaultConfig()
	return &Config{
		Governance: GovernanceConfig{
			QuorumBps:            gov.QuorumBps,
			ProposalThresholdBps: gov.ProposalThresholdBps,
			VotingDelay:          gov.VotingDelay,
			VotingPeriod:         gov.VotingPeriod,
		},
		Timelock: TimelockConfig{
			Delay: 2 * 24 * 60 * 60,
		},
		Vault: VaultConfig{
			FeeBps: 50,
		},
		Liquidity: LiquidityConfig{
			Rate: 2,
		},
		Journal: JournalConfig{
			Path: "", // In-memory
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.GovernorConfig().Validate(); err != nil {
		return fmt.Errorf("governance: %w", err)
	}
	if c.Timelock.Delay == 0 {
		return fmt.Errorf("timelock.delay is required")
	}
	if c.Vault.FeeBps > 10_000 {
		return fmt.Errorf("vault.fee_bps must not exceed 10000")
	}
	if c.Liquidity.Rate <= 0 {
		return fmt.Errorf("liquidity.rate must be positive")
	}
	return nil
}

// GovernorConfig converts the governance section into the engine's own
// config type.
func (c *Config) GovernorConfig() governance.Config {
	return governance.Config{
		QuorumBps:            c.Governance.QuorumBps,
		ProposalThresholdBps: c.Governance.ProposalThresholdBps,
		VotingDelay:          c.Governance.VotingDelay,
		VotingPeriod:         c.Governance.VotingPeriod,
	}
}

// LoadFromFile loads configuration from a YAML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
