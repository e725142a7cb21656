// Package tokentest provides an adjustable clock and a minimal outbound
// router for tests of tokens and extensions.
package tokentest

import (
	"errors"
	"fmt"
	"time"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/governance"
	"github.com/blockberries/tokenberry/token"
	"github.com/blockberries/tokenberry/types"
)

// ErrUnknownTarget is returned by Router for unregistered addresses
var ErrUnknownTarget = errors.New("unknown target")

// Genesis is the default deployment time used by tests
var Genesis = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Week is a seven day epoch window
const Week = 7 * 24 * time.Hour

// Clock is a manually advanced token.Environment
type Clock struct {
	now time.Time
}

// NewClock creates a clock reading start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now implements token.Environment
func (c *Clock) Now() time.Time { return c.now }

// Set moves the clock to t
func (c *Clock) Set(t time.Time) { c.now = t }

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// Router delivers outbound calls to the tokens added to it
type Router struct {
	tokens map[types.Address]*token.Token
}

var _ token.Router = (*Router)(nil)

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{tokens: make(map[types.Address]*token.Token)}
}

// Add makes t reachable
func (r *Router) Add(t *token.Token) {
	r.tokens[t.Address()] = t
}

// Route implements token.Router
func (r *Router) Route(f *token.Frame, from, to types.Address, value uint64, data []byte) ([]byte, error) {
	t, ok := r.tokens[to]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, to)
	}
	if value != 0 {
		return nil, errors.New("value transfers are not supported")
	}
	return t.Call(f, governance.Direct(from), data)
}

// Env bundles what a test needs to deploy tokens
type Env struct {
	Clock      *Clock
	Allow      *extension.AllowList
	Dispatcher *extension.Dispatcher
	Router     *Router
}

// NewEnv creates an environment at Genesis with the given extensions allowed
func NewEnv(exts ...extension.Extension) (*Env, error) {
	allow := extension.NewAllowList(token.NativeSignatures()...)
	for _, ext := range exts {
		if err := allow.Allow(ext); err != nil {
			return nil, err
		}
	}
	return &Env{
		Clock:      NewClock(Genesis),
		Allow:      allow,
		Dispatcher: extension.NewDispatcher(allow),
		Router:     NewRouter(),
	}, nil
}

// Deploy creates and initializes a token at an address derived from its symbol
func (e *Env) Deploy(p token.InitParams) (*token.Token, error) {
	addr := types.BytesToAddress(types.HashBytes([]byte(p.Symbol)).Bytes())
	t := token.New(addr, e.Clock, e.Dispatcher, e.Router)
	if err := t.Initialize(p); err != nil {
		return nil, err
	}
	e.Router.Add(t)
	return t, nil
}

// Epoch moves the clock to the start of epoch for t
func (e *Env) Epoch(t *token.Token, epoch uint64) {
	s := t.Settings()
	e.Clock.Set(s.DeployedAt.Add(time.Duration(epoch) * s.EpochWindow))
}
