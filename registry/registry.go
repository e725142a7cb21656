// Package registry deploys tokens at deterministic addresses, maintains the
// global extension allow-list and routes outbound calls between tokens.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/governance"
	"github.com/blockberries/tokenberry/guardian"
	"github.com/blockberries/tokenberry/token"
	"github.com/blockberries/tokenberry/types"
)

// Registry errors
var (
	ErrTokenExists              = errors.New("token already exists")
	ErrTokenNotFound            = errors.New("token not found")
	ErrInvalidGuardianSignature = errors.New("invalid guardian signature")
	ErrNotOwner                 = errors.New("caller is not the registry owner")
	ErrUnknownTarget            = errors.New("unknown call target")
	ErrValueNotSupported        = errors.New("value transfers are not supported")
)

// addressDomain separates token address derivation from other hashes
const addressDomain = "tokenberry.token"

// Config holds the registry's fixed parameters
type Config struct {
	// Address is the registry's own identity; it seeds token addresses
	Address types.Address
	// Owner may change the extension allow-list
	Owner types.Address
	// EpochWindow is the snapshot epoch length of new tokens
	EpochWindow time.Duration
	// Constitutional lists operation signatures that need an executed
	// proposal under constitutional monarchy
	Constitutional []string
}

// DefaultConfig returns a registry configuration with one-week epochs
func DefaultConfig() Config {
	return Config{
		EpochWindow: 7 * 24 * time.Hour,
		Constitutional: []string{
			token.SigSetSystem,
			token.SigSetMaintainer,
			token.SigEnableExtension,
			token.SigDisableExtension,
		},
	}
}

// ValidateBasic performs basic validation
func (c Config) ValidateBasic() error {
	if c.Owner.IsZero() {
		return fmt.Errorf("%w: registry owner is required", types.ErrInvalidArgument)
	}
	if c.EpochWindow < time.Second {
		return fmt.Errorf("%w: epoch window %s", types.ErrInvalidArgument, c.EpochWindow)
	}
	return nil
}

// CreateRequest describes a token to deploy. Every field is covered by the
// guardian signature.
type CreateRequest struct {
	Variant    types.Variant  `json:"variant"`
	Maintainer types.Address  `json:"maintainer"`
	Name       string         `json:"name"`
	Symbol     string         `json:"symbol"`
	Extensions []extension.ID `json:"extensions,omitempty"`
}

// Payload returns the structure the guardian signs
func (r CreateRequest) Payload() guardian.Payload {
	return guardian.Payload{
		Variant:    r.Variant,
		Maintainer: r.Maintainer,
		Name:       r.Name,
		Symbol:     r.Symbol,
		Extensions: r.Extensions,
	}
}

// ComputeTokenAddress returns the address a token of variant and symbol
// gets when deployed by the registry at registryAddr:
//
//	last 20 bytes of SHA-256("tokenberry.token" || registryAddr || variant || symbol)
func ComputeTokenAddress(registryAddr types.Address, variant types.Variant, symbol string) types.Address {
	h := types.HashBytes([]byte(addressDomain), registryAddr.Bytes(), []byte{byte(variant)}, []byte(symbol))
	return types.BytesToAddress(h.Bytes())
}

// Registry owns every deployed token. It holds no lock while a token
// executes, so tokens may call each other through Route.
type Registry struct {
	mu sync.RWMutex

	cfg        Config
	env        token.Environment
	verifier   guardian.Verifier
	allow      *extension.AllowList
	dispatcher *extension.Dispatcher
	tokens     map[types.Address]*token.Token

	logger *zap.Logger
}

var _ token.Router = (*Registry)(nil)

// New creates an empty registry
func New(cfg Config, env token.Environment, verifier guardian.Verifier, logger *zap.Logger) (*Registry, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, errors.New("registry: verifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	allow := extension.NewAllowList(token.NativeSignatures()...)
	return &Registry{
		cfg:        cfg,
		env:        env,
		verifier:   verifier,
		allow:      allow,
		dispatcher: extension.NewDispatcher(allow),
		tokens:     make(map[types.Address]*token.Token),
		logger:     logger.Named("registry"),
	}, nil
}

// Config returns the registry configuration
func (r *Registry) Config() Config {
	return r.cfg
}

// AllowList returns the global extension allow-list
func (r *Registry) AllowList() *extension.AllowList {
	return r.allow
}

// ComputeTokenAddress returns the deployment address of variant and symbol
func (r *Registry) ComputeTokenAddress(variant types.Variant, symbol string) types.Address {
	return ComputeTokenAddress(r.cfg.Address, variant, symbol)
}

// CreateToken deploys and initializes a token. The guardian must have
// signed req.
func (r *Registry) CreateToken(caller types.Address, req CreateRequest, signature []byte) (*token.Token, error) {
	if !r.verifier.Verify(req.Payload(), signature) {
		return nil, fmt.Errorf("%w: %s %s", ErrInvalidGuardianSignature, req.Variant, req.Symbol)
	}
	addr := r.ComputeTokenAddress(req.Variant, req.Symbol)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[addr]; ok {
		return nil, fmt.Errorf("%w: %s %s at %s", ErrTokenExists, req.Variant, req.Symbol, addr)
	}

	t := token.New(addr, r.env, r.dispatcher, r)
	err := t.Initialize(token.InitParams{
		Variant:        req.Variant,
		Name:           req.Name,
		Symbol:         req.Symbol,
		Maintainer:     req.Maintainer,
		EpochWindow:    r.cfg.EpochWindow,
		Extensions:     req.Extensions,
		Constitutional: r.cfg.Constitutional,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize %s: %w", req.Symbol, err)
	}
	r.tokens[addr] = t

	r.logger.Info("token created",
		zap.Stringer("address", addr),
		zap.Stringer("variant", req.Variant),
		zap.String("symbol", req.Symbol),
		zap.Stringer("maintainer", req.Maintainer),
		zap.Stringer("caller", caller))
	return t, nil
}

func (r *Registry) requireOwner(caller types.Address) error {
	if caller != r.cfg.Owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	return nil
}

// AllowExtension adds ext to the global allow-list
func (r *Registry) AllowExtension(caller types.Address, ext extension.Extension) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if err := r.allow.Allow(ext); err != nil {
		return err
	}
	r.logger.Info("extension allowed", zap.String("id", string(ext.ID())), zap.Stringer("variant", ext.Variant()))
	return nil
}

// DisallowExtension removes extension id from the global allow-list.
// Tokens that enabled it lose access to its operations.
func (r *Registry) DisallowExtension(caller types.Address, id extension.ID) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if err := r.allow.Disallow(id); err != nil {
		return err
	}
	r.logger.Info("extension disallowed", zap.String("id", string(id)))
	return nil
}

// Token returns the token deployed at addr
func (r *Registry) Token(addr types.Address) (*token.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, addr)
	}
	return t, nil
}

// Tokens returns every deployed token ordered by address
func (r *Registry) Tokens() []*token.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*token.Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address().Less(out[j].Address()) })
	return out
}

// Execute runs payload on the token at target as a top-level call
func (r *Registry) Execute(caller, target types.Address, payload []byte) ([]byte, error) {
	t, err := r.Token(target)
	if err != nil {
		return nil, err
	}
	return t.Execute(caller, payload)
}

// Route implements token.Router. Calls to deployed tokens run inside the
// caller's batch; empty calls to other addresses succeed without effect.
func (r *Registry) Route(f *token.Frame, from, to types.Address, value uint64, data []byte) ([]byte, error) {
	if value != 0 {
		return nil, fmt.Errorf("%w: %d to %s", ErrValueNotSupported, value, to)
	}
	r.mu.RLock()
	t, ok := r.tokens[to]
	r.mu.RUnlock()

	if !ok {
		if len(data) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, to)
	}
	return t.Call(f, governance.Direct(from), data)
}
