package token

import (
	"fmt"
	"sort"
	"time"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/governance"
	"github.com/blockberries/tokenberry/ledger"
	"github.com/blockberries/tokenberry/types"
)

// Environment supplies the block timestamp of the transaction being executed
type Environment interface {
	Now() time.Time
}

// Router delivers outbound calls made with a token's identity
type Router interface {
	Route(f *Frame, from, to types.Address, value uint64, data []byte) ([]byte, error)
}

// core is everything a batch snapshots and restores
type core struct {
	initialized bool
	variant     types.Variant
	name        string
	symbol      string
	clock       ledger.Clock

	gov    *governance.Machine
	ledger *ledger.Ledger

	balances map[types.Address]uint64
	supply   uint64
	owners   map[uint64]types.Address

	active  *extension.Activation
	storage map[extension.ID]extension.State
}

func newCore() *core {
	return &core{
		gov:      governance.NewMachine(types.ZeroAddress, nil),
		ledger:   ledger.New(ledger.Clock{}),
		balances: make(map[types.Address]uint64),
		owners:   make(map[uint64]types.Address),
		active:   extension.NewActivation(),
		storage:  make(map[extension.ID]extension.State),
	}
}

func (c *core) clone() *core {
	cp := *c
	cp.gov = c.gov.Clone()
	cp.ledger = c.ledger.Clone()
	cp.balances = make(map[types.Address]uint64, len(c.balances))
	for a, v := range c.balances {
		cp.balances[a] = v
	}
	cp.owners = make(map[uint64]types.Address, len(c.owners))
	for id, a := range c.owners {
		cp.owners[id] = a
	}
	cp.active = c.active.Clone()
	cp.storage = make(map[extension.ID]extension.State, len(c.storage))
	for id, st := range c.storage {
		cp.storage[id] = st.Clone()
	}
	return &cp
}

// Token is one deployed token instance: balances, governance, snapshot
// ledger and the storage of its extensions.
//
// Token is not safe for concurrent use. The engine executes transactions
// one at a time and guards reads with its own lock.
type Token struct {
	address    types.Address
	env        Environment
	dispatcher *extension.Dispatcher
	router     Router

	core *core
}

// New creates an uninitialized token at address. router may be nil, in
// which case outbound calls fail.
func New(address types.Address, env Environment, dispatcher *extension.Dispatcher, router Router) *Token {
	return &Token{
		address:    address,
		env:        env,
		dispatcher: dispatcher,
		router:     router,
		core:       newCore(),
	}
}

// Initialize sets the token up exactly once. The deployment timestamp is
// the environment time. Any second call fails with ErrAlreadyInitialized,
// whatever the arguments.
func (t *Token) Initialize(p InitParams) error {
	if t.core.initialized {
		return fmt.Errorf("%w: %s", types.ErrAlreadyInitialized, t.address)
	}
	if err := p.ValidateBasic(); err != nil {
		return err
	}
	clock, err := ledger.NewClock(t.env.Now(), p.EpochWindow)
	if err != nil {
		return err
	}

	constitutional := make([]types.Selector, len(p.Constitutional))
	for i, sig := range p.Constitutional {
		constitutional[i] = types.SelectorOf(sig)
	}

	c := newCore()
	c.initialized = true
	c.variant = p.Variant
	c.name = p.Name
	c.symbol = p.Symbol
	c.clock = clock
	c.gov = governance.NewMachine(p.Maintainer, constitutional)
	c.ledger = ledger.New(clock)

	for _, id := range p.Extensions {
		if err := t.enableExtension(c, id); err != nil {
			return err
		}
	}

	t.core = c
	return nil
}

func (t *Token) enableExtension(c *core, id extension.ID) error {
	allow := t.dispatcher.AllowList()
	ext, ok := allow.Get(id)
	if !ok || !ext.Variant().Permits(c.variant) {
		return fmt.Errorf("%w: %s for %s tokens", extension.ErrNotAllowed, id, c.variant)
	}
	if err := c.active.Enable(id); err != nil {
		return err
	}
	// storage survives disable/enable cycles
	if _, ok := c.storage[id]; !ok {
		c.storage[id] = ext.NewState()
	}
	return nil
}

// Execute runs payload as a top-level call from caller. Either every
// effect of the call commits, on this token and on any token reached
// through outbound calls, or none does.
func (t *Token) Execute(caller types.Address, payload []byte) ([]byte, error) {
	b := NewBatch()
	out, err := t.Call(b.Frame(), governance.Direct(caller), payload)
	if err != nil {
		b.Rollback()
		return nil, err
	}
	return out, nil
}

// Call runs payload on the token within frame f. Native operations are
// resolved first, everything else goes to the extension dispatcher.
// Rolling back on failure is the job of whoever owns the batch.
func (t *Token) Call(f *Frame, auth governance.Authority, payload []byte) ([]byte, error) {
	f, err := f.enter()
	if err != nil {
		return nil, err
	}
	f.batch.touch(t)

	call, err := types.DecodeCall(payload)
	if err != nil {
		return nil, err
	}
	h := &host{t: t, frame: f}

	if n, ok := natives[call.Selector]; ok {
		if !t.core.initialized && call.Selector != selInitialize {
			return nil, fmt.Errorf("%w: %s", types.ErrNotInitialized, t.address)
		}
		if n.privileged {
			if err := t.core.gov.Authorize(auth, call.Selector); err != nil {
				return nil, err
			}
		}
		return n.fn(h, auth, call)
	}

	if !t.core.initialized {
		return nil, fmt.Errorf("%w: %s", types.ErrNotInitialized, t.address)
	}
	return t.dispatcher.Dispatch(&extension.Context{
		Host:     h,
		Caller:   auth.Caller,
		Mediated: auth.Mediated,
	}, call)
}

// Address returns the token address
func (t *Token) Address() types.Address {
	return t.address
}

// Initialized reports whether Initialize succeeded
func (t *Token) Initialized() bool {
	return t.core.initialized
}

// Settings returns the token description
func (t *Token) Settings() Settings {
	c := t.core
	return Settings{
		Address:        t.address,
		Variant:        c.variant,
		Name:           c.name,
		Symbol:         c.symbol,
		Maintainer:     c.gov.Maintainer(),
		State:          c.gov.State(),
		System:         c.gov.System(),
		DeployedAt:     c.clock.DeployedAt(),
		EpochWindow:    c.clock.Window(),
		Extensions:     c.active.IDs(),
		Constitutional: c.gov.Constitutional(),
	}
}

// BalanceOf returns the current balance of account
func (t *Token) BalanceOf(account types.Address) uint64 {
	return t.core.balances[account]
}

// TotalSupply returns the current total supply
func (t *Token) TotalSupply() uint64 {
	return t.core.supply
}

// OwnerOf returns the owner of a non-fungible token id
func (t *Token) OwnerOf(id uint64) (types.Address, error) {
	owner, ok := t.core.owners[id]
	if !ok {
		return types.ZeroAddress, fmt.Errorf("%w: %d", ErrTokenIDNotFound, id)
	}
	return owner, nil
}

// Holders returns every account with a non-zero balance, sorted
func (t *Token) Holders() []types.Address {
	out := make([]types.Address, 0, len(t.core.balances))
	for a := range t.core.balances {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// CurrentEpoch returns the epoch of the environment time
func (t *Token) CurrentEpoch() uint64 {
	return t.core.clock.EpochAt(t.env.Now())
}

// BalanceAt returns account's balance as of epoch
func (t *Token) BalanceAt(epoch uint64, account types.Address) uint64 {
	return t.core.ledger.BalanceAt(epoch, account)
}

// TotalSupplyAt returns the total supply as of epoch
func (t *Token) TotalSupplyAt(epoch uint64) uint64 {
	return t.core.ledger.TotalSupplyAt(epoch)
}

// Ledger returns a copy of the snapshot ledger
func (t *Token) Ledger() *ledger.Ledger {
	return t.core.ledger.Clone()
}

// ExtensionState returns the storage of extension id, if the token ever
// enabled it
func (t *Token) ExtensionState(id extension.ID) (extension.State, bool) {
	st, ok := t.core.storage[id]
	return st, ok
}
