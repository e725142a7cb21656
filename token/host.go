package token

import (
	"fmt"
	"time"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/governance"
	"github.com/blockberries/tokenberry/types"
)

// host binds a token to the frame an operation runs in
type host struct {
	t     *Token
	frame *Frame
}

var _ extension.Host = (*host)(nil)

func (h *host) Address() types.Address  { return h.t.address }
func (h *host) Variant() types.Variant  { return h.t.core.variant }
func (h *host) TokenState() types.State { return h.t.core.gov.State() }
func (h *host) Now() time.Time          { return h.t.env.Now() }
func (h *host) CurrentEpoch() uint64    { return h.t.CurrentEpoch() }

func (h *host) BalanceAt(epoch uint64, account types.Address) uint64 {
	return h.t.core.ledger.BalanceAt(epoch, account)
}

func (h *host) TotalSupplyAt(epoch uint64) uint64 {
	return h.t.core.ledger.TotalSupplyAt(epoch)
}

func (h *host) IsActive(id extension.ID) bool {
	return h.t.core.active.Active(id)
}

func (h *host) State(id extension.ID) (extension.State, error) {
	if !h.t.core.active.Active(id) {
		return nil, fmt.Errorf("%w: %s", extension.ErrNotEnabled, id)
	}
	st, ok := h.t.core.storage[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no storage", extension.ErrNotEnabled, id)
	}
	return st, nil
}

func (h *host) Authorize(auth governance.Authority, op types.Selector) error {
	return h.t.core.gov.Authorize(auth, op)
}

func (h *host) Invoke(auth governance.Authority, payload []byte) ([]byte, error) {
	return h.t.Call(h.frame, auth, payload)
}

func (h *host) Outbound(to types.Address, value uint64, data []byte) ([]byte, error) {
	if h.t.router == nil {
		return nil, ErrNoRouter
	}
	return h.t.router.Route(h.frame, h.t.address, to, value, data)
}
