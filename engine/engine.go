package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blockberries/tokenberry/guardian"
	"github.com/blockberries/tokenberry/journal"
	"github.com/blockberries/tokenberry/registry"
	"github.com/blockberries/tokenberry/types"
)

// blockClock is the token environment; it reads the timestamp of the
// transaction being applied
type blockClock struct {
	now time.Time
}

func (c *blockClock) Now() time.Time { return c.now }

// Engine is the sequential transaction executor
type Engine struct {
	mu sync.RWMutex

	// Configuration
	config *Config

	// Components
	clock    *blockClock
	registry *registry.Registry
	catalog  *Catalog
	resolver CallerResolver
	journal  journal.Journal
	logger   *zap.Logger

	// now stamps transactions submitted without a timestamp
	now func() time.Time

	// State
	height     uint64
	lastTime   time.Time
	started    bool
	halted     error
	lastReplay *ReplayResult
}

// NewEngine creates an engine. Guardian signatures of create_token
// transactions are checked by verifier; allow_extension transactions pick
// extensions from catalog.
func NewEngine(config *Config, verifier guardian.Verifier, catalog *Catalog, logger *zap.Logger) (*Engine, error) {
	if err := config.ValidateBasic(); err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: nil catalog", types.ErrInvalidArgument)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := &blockClock{}
	reg, err := registry.New(config.registryConfig(), clock, verifier, logger)
	if err != nil {
		return nil, err
	}

	var j journal.Journal = journal.NopJournal{}
	if config.JournalDir != "" {
		fj, err := journal.NewFileJournalWithOptions(config.JournalDir, config.MaxSegmentSize, logger)
		if err != nil {
			return nil, err
		}
		j = fj
	}

	var resolver CallerResolver = DirectCaller{}
	if !config.TrustedForwarder.IsZero() {
		resolver = TrustedForwarder{Forwarder: config.TrustedForwarder}
	}

	return &Engine{
		config:   config,
		clock:    clock,
		registry: reg,
		catalog:  catalog,
		resolver: resolver,
		journal:  j,
		logger:   logger.Named("engine"),
		now:      time.Now,
	}, nil
}

// SetCallerResolver replaces the caller resolver
func (e *Engine) SetCallerResolver(r CallerResolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolver = r
}

// SetNow sets the function used to stamp transactions without a timestamp
func (e *Engine) SetNow(fn func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = fn
}

// Start opens the journal and replays every record above the current
// height, so a stopped engine can be started again.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return ErrAlreadyStarted
	}
	// a halted engine holds state the journal never recorded
	if e.halted != nil {
		return fmt.Errorf("%w: %v", ErrHalted, e.halted)
	}

	if err := e.journal.Start(); err != nil {
		return fmt.Errorf("failed to start journal: %w", err)
	}

	result, err := e.replay()
	if err != nil {
		if stopErr := e.journal.Stop(); stopErr != nil {
			e.logger.Error("failed to stop journal", zap.Error(stopErr))
		}
		return err
	}
	e.lastReplay = result

	e.started = true
	e.logger.Info("engine started",
		zap.String("chain_id", e.config.ChainID),
		zap.Uint64("height", e.height),
		zap.Int("replayed", result.TxsReplayed))
	return nil
}

// Stop closes the journal
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return ErrNotStarted
	}
	e.started = false

	if err := e.journal.Stop(); err != nil {
		return fmt.Errorf("failed to stop journal: %w", err)
	}
	e.logger.Info("engine stopped", zap.Uint64("height", e.height))
	return nil
}

// Apply executes tx atomically. A missing ID or timestamp is filled in; the
// applied transaction is journaled before the receipt is returned.
func (e *Engine) Apply(tx *Tx) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil, ErrNotStarted
	}
	if e.halted != nil {
		return nil, fmt.Errorf("%w: %v", ErrHalted, e.halted)
	}

	stamped := *tx
	if stamped.ID == uuid.Nil {
		stamped.ID = uuid.New()
	}
	if stamped.Time.IsZero() {
		stamped.Time = e.now().UTC().Truncate(time.Second)
		if stamped.Time.Before(e.lastTime) {
			stamped.Time = e.lastTime
		}
	}
	data, err := encodeTx(&stamped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}

	rcpt, err := e.apply(&stamped)
	if err != nil {
		e.logger.Info("tx failed",
			zap.String("tx", stamped.ID.String()),
			zap.Stringer("kind", stamped.Kind),
			zap.Stringer("sender", stamped.Sender),
			zap.Error(err))
		return nil, err
	}

	rec := &journal.Record{Height: rcpt.Height, Data: data}
	if e.config.JournalSync {
		err = e.journal.WriteSync(rec)
	} else {
		err = e.journal.Write(rec)
	}
	if err != nil {
		// memory is ahead of the journal from here on
		e.halted = err
		e.logger.Error("journal write failed, halting",
			zap.Uint64("height", rcpt.Height),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrJournalWrite, err)
	}

	e.logger.Debug("tx applied",
		zap.String("tx", stamped.ID.String()),
		zap.Stringer("kind", stamped.Kind),
		zap.Uint64("height", rcpt.Height))
	return rcpt, nil
}

// apply executes tx without journaling. The caller must hold the lock.
func (e *Engine) apply(tx *Tx) (*Receipt, error) {
	if err := tx.ValidateBasic(); err != nil {
		return nil, err
	}
	if tx.Time.Before(e.lastTime) {
		return nil, fmt.Errorf("%w: %s before %s", ErrTimestampRegression,
			tx.Time.Format(time.RFC3339), e.lastTime.Format(time.RFC3339))
	}

	prev := e.clock.now
	e.clock.now = tx.Time

	rcpt := &Receipt{
		ID:     tx.ID,
		Height: e.height + 1,
		Kind:   tx.Kind,
		Time:   tx.Time,
		Caller: tx.Sender,
	}
	if err := e.execute(tx, rcpt); err != nil {
		e.clock.now = prev
		return nil, err
	}

	e.height = rcpt.Height
	e.lastTime = tx.Time
	return rcpt, nil
}

func (e *Engine) execute(tx *Tx, rcpt *Receipt) error {
	switch tx.Kind {
	case TxCreateToken:
		t, err := e.registry.CreateToken(tx.Sender, *tx.Create, tx.Signature)
		if err != nil {
			return err
		}
		rcpt.Target = t.Address()
		out, err := types.EncodeResult(t.Settings())
		if err != nil {
			return err
		}
		rcpt.Result = out
		return nil

	case TxAllowExtension:
		ext, ok := e.catalog.Get(tx.Extension)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownExtension, tx.Extension)
		}
		return e.registry.AllowExtension(tx.Sender, ext)

	case TxDisallowExtension:
		return e.registry.DisallowExtension(tx.Sender, tx.Extension)

	case TxCall:
		caller, payload := e.resolver.Resolve(tx.Sender, tx.Data)
		rcpt.Caller = caller
		rcpt.Target = tx.Target
		out, err := e.registry.Execute(caller, tx.Target, payload)
		if err != nil {
			return err
		}
		rcpt.Result = out
		return nil

	default:
		return fmt.Errorf("%w: %d", ErrUnknownTxKind, uint8(tx.Kind))
	}
}

// View runs fn with read access to the registry. fn must not keep
// references to tokens after it returns or call token mutators.
func (e *Engine) View(fn func(r *registry.Registry) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.registry)
}

// ComputeTokenAddress returns the address a token would be deployed at
func (e *Engine) ComputeTokenAddress(variant types.Variant, symbol string) types.Address {
	return e.registry.ComputeTokenAddress(variant, symbol)
}

// Catalog returns the extension catalog
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// ChainID returns the chain ID
func (e *Engine) ChainID() string {
	return e.config.ChainID
}

// Height returns the number of applied transactions
func (e *Engine) Height() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.height
}

// LastReplay returns the result of the replay done by Start
func (e *Engine) LastReplay() *ReplayResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastReplay
}

// Status summarizes the engine for monitoring
type Status struct {
	ChainID  string    `json:"chain_id"`
	Height   uint64    `json:"height"`
	LastTime time.Time `json:"last_time"`
	Tokens   int       `json:"tokens"`
	Started  bool      `json:"started"`
	Halted   bool      `json:"halted"`
}

// GetStatus returns the current engine status
func (e *Engine) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Status{
		ChainID:  e.config.ChainID,
		Height:   e.height,
		LastTime: e.lastTime,
		Tokens:   len(e.registry.Tokens()),
		Started:  e.started,
		Halted:   e.halted != nil,
	}
}
