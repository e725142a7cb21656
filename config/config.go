// Package config loads node configuration from a YAML file with
// environment variable overrides.
package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/blockberries/tokenberry/engine"
	"github.com/blockberries/tokenberry/guardian"
	"github.com/blockberries/tokenberry/server"
	"github.com/blockberries/tokenberry/types"
	"github.com/blockberries/tokenberry/voting"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TOKENBERRY_"

var ErrInvalidConfig = errors.New("invalid config")

// Config is the node configuration
type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Engine   EngineConfig   `yaml:"engine" envPrefix:"ENGINE_"`
	Server   server.Config  `yaml:"server" envPrefix:"SERVER_"`
	Voting   VotingConfig   `yaml:"voting" envPrefix:"VOTING_"`
	Guardian GuardianConfig `yaml:"guardian" envPrefix:"GUARDIAN_"`
}

// EngineConfig mirrors engine.Config with string addresses
type EngineConfig struct {
	ChainID          string        `yaml:"chain_id" env:"CHAIN_ID"`
	RegistryAddress  string        `yaml:"registry_address" env:"REGISTRY_ADDRESS"`
	Owner            string        `yaml:"owner" env:"OWNER"`
	EpochWindow      time.Duration `yaml:"epoch_window" env:"EPOCH_WINDOW"`
	Constitutional   []string      `yaml:"constitutional" env:"CONSTITUTIONAL" envSeparator:";"`
	TrustedForwarder string        `yaml:"trusted_forwarder" env:"TRUSTED_FORWARDER"`
	JournalDir       string        `yaml:"journal_dir" env:"JOURNAL_DIR"`
	JournalSync      bool          `yaml:"journal_sync" env:"JOURNAL_SYNC"`
	MaxSegmentSize   int64         `yaml:"max_segment_size" env:"MAX_SEGMENT_SIZE"`
}

// VotingConfig configures the voting extension. A zero quorum selects
// simple majority.
type VotingConfig struct {
	QuorumPercent      uint64 `yaml:"quorum_percent" env:"QUORUM_PERCENT"`
	MinProposerBalance uint64 `yaml:"min_proposer_balance" env:"MIN_PROPOSER_BALANCE"`
	ExecutionWindow    uint64 `yaml:"execution_window" env:"EXECUTION_WINDOW"`
}

// GuardianConfig selects how creation requests are verified: either the
// public half of a local key file or a hex encoded public key
type GuardianConfig struct {
	KeyFile   string `yaml:"key_file" env:"KEY_FILE"`
	PublicKey string `yaml:"public_key" env:"PUBLIC_KEY"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	ec := engine.DefaultConfig()
	vc := voting.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Engine: EngineConfig{
			ChainID:         ec.ChainID,
			RegistryAddress: ec.RegistryAddress.String(),
			EpochWindow:     ec.EpochWindow,
			Constitutional:  ec.Constitutional,
			JournalDir:      ec.JournalDir,
			JournalSync:     ec.JournalSync,
			MaxSegmentSize:  ec.MaxSegmentSize,
		},
		Server: server.DefaultConfig(),
		Voting: VotingConfig{
			MinProposerBalance: vc.MinProposerBalance,
			ExecutionWindow:    vc.ExecutionWindow,
		},
		Guardian: GuardianConfig{
			KeyFile: "data/guardian.json",
		},
	}
}

// Load reads path over the defaults, then applies TOKENBERRY_* environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	ec, err := c.EngineConfig()
	if err != nil {
		return err
	}
	if err := ec.ValidateBasic(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.VotingConfig().ValidateBasic(); err != nil {
		return err
	}
	if c.Guardian.KeyFile == "" && c.Guardian.PublicKey == "" {
		return fmt.Errorf("%w: guardian needs a key file or public key", ErrInvalidConfig)
	}
	return nil
}

// Level parses the log level
func (c *Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, fmt.Errorf("%w: log level: %v", ErrInvalidConfig, err)
	}
	return lvl, nil
}

// EngineConfig converts the engine section
func (c *Config) EngineConfig() (*engine.Config, error) {
	ec := engine.DefaultConfig()
	ec.ChainID = c.Engine.ChainID
	ec.EpochWindow = c.Engine.EpochWindow
	ec.Constitutional = c.Engine.Constitutional
	ec.JournalDir = c.Engine.JournalDir
	ec.JournalSync = c.Engine.JournalSync
	ec.MaxSegmentSize = c.Engine.MaxSegmentSize

	var err error
	if ec.RegistryAddress, err = parseAddress("registry_address", c.Engine.RegistryAddress); err != nil {
		return nil, err
	}
	if ec.Owner, err = parseAddress("owner", c.Engine.Owner); err != nil {
		return nil, err
	}
	if ec.TrustedForwarder, err = parseAddress("trusted_forwarder", c.Engine.TrustedForwarder); err != nil {
		return nil, err
	}
	return ec, nil
}

// VotingConfig converts the voting section
func (c *Config) VotingConfig() voting.Config {
	vc := voting.DefaultConfig()
	vc.MinProposerBalance = c.Voting.MinProposerBalance
	vc.ExecutionWindow = c.Voting.ExecutionWindow
	if c.Voting.QuorumPercent > 0 {
		vc.Policy = voting.Quorum{Percent: c.Voting.QuorumPercent}
	}
	return vc
}

// Verifier builds the guardian verifier. A configured public key wins
// over the key file.
func (c *Config) Verifier(chainID string) (guardian.Verifier, error) {
	if c.Guardian.PublicKey != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(c.Guardian.PublicKey, "0x"))
		if err != nil || len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: guardian public key", ErrInvalidConfig)
		}
		return guardian.NewKeyVerifier(ed25519.PublicKey(raw), chainID), nil
	}
	key, err := guardian.LoadFileKey(c.Guardian.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("guardian key: %w", err)
	}
	return guardian.NewKeyVerifier(key.PublicKey(), chainID), nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func parseAddress(field, s string) (types.Address, error) {
	if s == "" {
		return types.Address{}, nil
	}
	a, err := types.HexToAddress(s)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
	}
	return a, nil
}
