package token

import (
	"fmt"
	"time"

	"github.com/blockberries/tokenberry/types"
)

func (c *core) requireUnlocked() error {
	if c.gov.State() == types.StateLocked {
		return fmt.Errorf("%w: %s", ErrTokenLocked, c.symbol)
	}
	return nil
}

func (c *core) credit(account types.Address, amount uint64) error {
	bal, err := types.AddUint64(c.balances[account], amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	c.setBalance(account, bal)
	return nil
}

func (c *core) debit(account types.Address, amount uint64) error {
	bal, err := types.SubUint64(c.balances[account], amount)
	if err != nil {
		return fmt.Errorf("debit %s: %w", account, err)
	}
	c.setBalance(account, bal)
	return nil
}

func (c *core) setBalance(account types.Address, bal uint64) {
	if bal == 0 {
		delete(c.balances, account)
		return
	}
	c.balances[account] = bal
}

// mint creates amount units (fungible) or token id amount (non-fungible)
// for to. Allowed in every state.
func (c *core) mint(now time.Time, to types.Address, amount uint64) error {
	if to.IsZero() {
		return fmt.Errorf("%w: mint to zero address", types.ErrInvalidArgument)
	}

	var units uint64 = 1
	if c.variant == types.VariantNonFungible {
		if _, ok := c.owners[amount]; ok {
			return fmt.Errorf("%w: %d", ErrTokenIDExists, amount)
		}
		c.owners[amount] = to
	} else {
		if amount == 0 {
			return fmt.Errorf("%w: zero amount", types.ErrInvalidArgument)
		}
		units = amount
	}

	supply, err := types.AddUint64(c.supply, units)
	if err != nil {
		return fmt.Errorf("total supply: %w", err)
	}
	if err := c.credit(to, units); err != nil {
		return err
	}
	c.supply = supply
	return c.record(now, to)
}

func (c *core) transfer(now time.Time, from, to types.Address, amount uint64) error {
	if err := c.requireUnlocked(); err != nil {
		return err
	}
	if to.IsZero() {
		return fmt.Errorf("%w: transfer to zero address", types.ErrInvalidArgument)
	}

	units := amount
	if c.variant == types.VariantNonFungible {
		owner, ok := c.owners[amount]
		if !ok {
			return fmt.Errorf("%w: %d", ErrTokenIDNotFound, amount)
		}
		if owner != from {
			return fmt.Errorf("%w: %s does not own %d", ErrNotOwner, from, amount)
		}
		c.owners[amount] = to
		units = 1
	}

	if err := c.debit(from, units); err != nil {
		return err
	}
	if err := c.credit(to, units); err != nil {
		return err
	}
	return c.record(now, from, to)
}

func (c *core) burn(now time.Time, from types.Address, amount uint64) error {
	if err := c.requireUnlocked(); err != nil {
		return err
	}

	units := amount
	if c.variant == types.VariantNonFungible {
		owner, ok := c.owners[amount]
		if !ok {
			return fmt.Errorf("%w: %d", ErrTokenIDNotFound, amount)
		}
		if owner != from {
			return fmt.Errorf("%w: %s does not own %d", ErrNotOwner, from, amount)
		}
		delete(c.owners, amount)
		units = 1
	}

	if err := c.debit(from, units); err != nil {
		return err
	}
	supply, err := types.SubUint64(c.supply, units)
	if err != nil {
		return fmt.Errorf("total supply: %w", err)
	}
	c.supply = supply
	return c.record(now, from)
}

// record writes the new balances of accounts and the new supply to the
// ledger. Untracked tokens keep no history.
func (c *core) record(now time.Time, accounts ...types.Address) error {
	if c.gov.State() != types.StateTracked {
		return nil
	}
	for _, a := range accounts {
		if err := c.ledger.RecordBalanceChange(now, a, c.balances[a]); err != nil {
			return err
		}
	}
	return c.ledger.RecordSupplyChange(now, c.supply)
}

// seedLedger checkpoints every holder and the supply when tracking
// starts, so the ledger sums to the supply from the first tracked epoch.
func (c *core) seedLedger(now time.Time) error {
	for a, bal := range c.balances {
		if err := c.ledger.RecordBalanceChange(now, a, bal); err != nil {
			return err
		}
	}
	return c.ledger.RecordSupplyChange(now, c.supply)
}
