// Command tokenberry runs a governance token node and its tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blockberries/tokenberry/config"
	"github.com/blockberries/tokenberry/engine"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tokenberry",
	Short: "Snapshot-based governance token engine",
	Long: `tokenberry deploys and runs governance tokens with epoch snapshots,
proposal voting and pluggable extensions.

Configuration is read from --config and overridden by TOKENBERRY_*
environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level, err := cfg.Level()
		if err != nil {
			return err
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, replayCmd, exportCmd, addressCmd, guardianCmd)
}

// openEngine builds and starts an engine from the loaded configuration
func openEngine() (*engine.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ec, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	verifier, err := cfg.Verifier(ec.ChainID)
	if err != nil {
		return nil, err
	}
	catalog, err := engine.DefaultCatalog(cfg.VotingConfig())
	if err != nil {
		return nil, err
	}
	eng, err := engine.NewEngine(ec, verifier, catalog, logger)
	if err != nil {
		return nil, err
	}
	if err := eng.Start(); err != nil {
		return nil, err
	}
	return eng, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
