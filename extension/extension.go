package extension

import (
	"errors"
	"fmt"
	"time"

	"github.com/blockberries/tokenberry/governance"
	"github.com/blockberries/tokenberry/types"
)

// Extension errors
var (
	ErrSelectorConflict = errors.New("selector conflict")
	ErrNotAllowed       = errors.New("extension not allowed")
	ErrAlreadyAllowed   = errors.New("extension already allowed")
	ErrAlreadyEnabled   = errors.New("extension already enabled")
	ErrNotEnabled       = errors.New("extension not enabled")
	ErrInvalidExtension = errors.New("invalid extension")
)

// ID names an extension, e.g. "voting"
type ID string

// State is the per-token storage of one extension. The token owns it and
// clones it whenever it snapshots itself, so every State must deep copy.
type State interface {
	Clone() State
}

// Handler executes one operation against the token described by ctx
type Handler func(ctx *Context, call types.Call) ([]byte, error)

// Operation is one entry of an extension's capability table
type Operation struct {
	Signature  string
	Selector   types.Selector
	Privileged bool
	Handler    Handler
}

// NewOperation derives the selector from signature
func NewOperation(signature string, privileged bool, h Handler) Operation {
	return Operation{
		Signature:  signature,
		Selector:   types.SelectorOf(signature),
		Privileged: privileged,
		Handler:    h,
	}
}

// Extension is a pluggable unit of token capability
type Extension interface {
	// ID returns the unique extension name
	ID() ID
	// Variant returns the token variants the extension supports
	Variant() types.Variant
	// Operations returns the capability table
	Operations() []Operation
	// NewState returns empty storage for a token enabling the extension
	NewState() State
}

// Host is the token context an operation executes in. It is implemented
// by the token and bound to the call frame the operation runs in.
type Host interface {
	Address() types.Address
	Variant() types.Variant
	TokenState() types.State
	Now() time.Time
	CurrentEpoch() uint64
	BalanceAt(epoch uint64, account types.Address) uint64
	TotalSupplyAt(epoch uint64) uint64

	// IsActive reports whether the extension is activated on the token
	IsActive(id ID) bool
	// State returns the token-owned storage of an active extension
	State(id ID) (State, error)

	// Authorize resolves authority for a privileged operation
	Authorize(auth governance.Authority, op types.Selector) error
	// Invoke runs payload as a nested call on the same token
	Invoke(auth governance.Authority, payload []byte) ([]byte, error)
	// Outbound runs an outbound call with the token as caller
	Outbound(to types.Address, value uint64, data []byte) ([]byte, error)
}

// Context is handed to every Handler
type Context struct {
	Host     Host
	Caller   types.Address
	Mediated bool
}

// Authority returns the authority the call arrived with
func (c *Context) Authority() governance.Authority {
	return governance.Authority{Caller: c.Caller, Mediated: c.Mediated}
}

// StateOf fetches the typed storage of extension id from the host
func StateOf[S State](h Host, id ID) (S, error) {
	var zero S
	st, err := h.State(id)
	if err != nil {
		return zero, err
	}
	s, ok := st.(S)
	if !ok {
		return zero, fmt.Errorf("%w: unexpected state type %T for %s", ErrInvalidExtension, st, id)
	}
	return s, nil
}
