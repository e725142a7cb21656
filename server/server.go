// Package server exposes the engine over HTTP: read-only token, ledger
// and proposal queries plus transaction submission.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/blockberries/tokenberry/engine"
)

// Config holds HTTP server settings
type Config struct {
	ListenAddr      string        `yaml:"listen_addr" env:"LISTEN_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DefaultConfig returns a configuration listening on localhost
func DefaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8545",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate performs basic validation
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("server: listen address is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("server: shutdown timeout %s", c.ShutdownTimeout)
	}
	return nil
}

// Server serves the HTTP API of one engine
type Server struct {
	cfg    Config
	engine *engine.Engine
	router *gin.Engine
	logger *zap.Logger
}

// New creates a server for eng
func New(cfg Config, eng *engine.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		engine: eng,
		logger: logger.Named("server"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	r.GET("/healthz", s.health)
	r.GET("/address", s.computeAddress)
	r.GET("/tokens", s.listTokens)
	r.GET("/tokens/:address", s.getToken)
	r.GET("/tokens/:address/balances/:account", s.getBalance)
	r.GET("/tokens/:address/supply", s.getSupply)
	r.GET("/tokens/:address/proposals", s.listProposals)
	r.GET("/tokens/:address/proposals/:hash", s.getProposal)
	r.POST("/tx", s.submitTx)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("took", time.Since(start)))
}

// ListenAndServe listens on the configured address until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("serving", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
