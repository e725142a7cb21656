package engine

import (
	"fmt"
	"time"

	"github.com/blockberries/tokenberry/registry"
	"github.com/blockberries/tokenberry/types"
)

// Config holds configuration for the engine
type Config struct {
	// ChainID binds guardian signatures to this deployment
	ChainID string

	// Registry identity and ownership
	RegistryAddress types.Address
	Owner           types.Address

	// EpochWindow is the snapshot epoch length of new tokens
	EpochWindow time.Duration

	// Constitutional lists operation signatures that need an executed
	// proposal under constitutional monarchy
	Constitutional []string

	// TrustedForwarder enables ERC-2771 caller resolution when set
	TrustedForwarder types.Address

	// Journal configuration; an empty dir disables journaling
	JournalDir     string
	JournalSync    bool // Force sync on every write
	MaxSegmentSize int64
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	reg := registry.DefaultConfig()
	return &Config{
		ChainID:         "tokenberry",
		RegistryAddress: types.BytesToAddress([]byte("tokenberry.registry")),
		EpochWindow:     reg.EpochWindow,
		Constitutional:  reg.Constitutional,
		JournalDir:      "data/journal",
		JournalSync:     true,
		MaxSegmentSize:  64 * 1024 * 1024,
	}
}

// ValidateBasic performs basic validation of the config
func (cfg *Config) ValidateBasic() error {
	if cfg.ChainID == "" {
		return fmt.Errorf("%w: empty chain id", types.ErrInvalidArgument)
	}
	if cfg.MaxSegmentSize < 0 {
		return fmt.Errorf("%w: negative segment size", types.ErrInvalidArgument)
	}
	return cfg.registryConfig().ValidateBasic()
}

func (cfg *Config) registryConfig() registry.Config {
	return registry.Config{
		Address:        cfg.RegistryAddress,
		Owner:          cfg.Owner,
		EpochWindow:    cfg.EpochWindow,
		Constitutional: cfg.Constitutional,
	}
}
