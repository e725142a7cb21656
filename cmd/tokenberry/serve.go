package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blockberries/tokenberry/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Replay the journal and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Stop(); err != nil {
			logger.Error("failed to stop engine", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := eng.GetStatus()
	logger.Info("engine ready",
		zap.String("chain_id", st.ChainID),
		zap.Uint64("height", st.Height),
		zap.Int("tokens", st.Tokens))

	return server.New(cfg.Server, eng, logger).ListenAndServe(ctx)
}
