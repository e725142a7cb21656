package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/blockberries/tokenberry/types"
)

// Ledger stores per-account balance checkpoints and one total-supply
// checkpoint sequence, all keyed by epoch. It never initiates a mutation:
// the owning token records every balance and supply change while tracked.
//
// Ledger is not safe for concurrent use; the engine serializes access.
type Ledger struct {
	clock    Clock
	balances map[types.Address]*Checkpoints
	supply   Checkpoints
}

// New creates an empty ledger driven by clock
func New(clock Clock) *Ledger {
	return &Ledger{
		clock:    clock,
		balances: make(map[types.Address]*Checkpoints),
	}
}

// Clock returns the epoch clock
func (l *Ledger) Clock() Clock {
	return l.clock
}

// CurrentEpoch returns the epoch containing now
func (l *Ledger) CurrentEpoch(now time.Time) uint64 {
	return l.clock.EpochAt(now)
}

// RecordBalanceChange records account's new balance for the epoch containing now
func (l *Ledger) RecordBalanceChange(now time.Time, account types.Address, balance uint64) error {
	cp, ok := l.balances[account]
	if !ok {
		cp = &Checkpoints{}
		l.balances[account] = cp
	}
	if err := cp.Record(l.clock.EpochAt(now), balance); err != nil {
		return fmt.Errorf("balance of %s: %w", account, err)
	}
	return nil
}

// RecordSupplyChange records the new total supply for the epoch containing now
func (l *Ledger) RecordSupplyChange(now time.Time, supply uint64) error {
	if err := l.supply.Record(l.clock.EpochAt(now), supply); err != nil {
		return fmt.Errorf("total supply: %w", err)
	}
	return nil
}

// BalanceAt returns account's balance as of epoch. Accounts without
// history, and epochs before the first checkpoint, return 0.
func (l *Ledger) BalanceAt(epoch uint64, account types.Address) uint64 {
	cp, ok := l.balances[account]
	if !ok {
		return 0
	}
	return cp.ValueAt(epoch)
}

// TotalSupplyAt returns the total supply as of epoch
func (l *Ledger) TotalSupplyAt(epoch uint64) uint64 {
	return l.supply.ValueAt(epoch)
}

// Accounts returns every account with at least one checkpoint, sorted
func (l *Ledger) Accounts() []types.Address {
	out := make([]types.Address, 0, len(l.balances))
	for a := range l.balances {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// History returns a copy of account's checkpoints
func (l *Ledger) History(account types.Address) []Checkpoint {
	cp, ok := l.balances[account]
	if !ok {
		return nil
	}
	return cp.Entries()
}

// SupplyHistory returns a copy of the total-supply checkpoints
func (l *Ledger) SupplyHistory() []Checkpoint {
	return l.supply.Entries()
}

// Clone returns a deep copy sharing the same clock
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		clock:    l.clock,
		balances: make(map[types.Address]*Checkpoints, len(l.balances)),
		supply:   *l.supply.Clone(),
	}
	for a, cp := range l.balances {
		c.balances[a] = cp.Clone()
	}
	return c
}
