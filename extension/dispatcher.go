package extension

import (
	"fmt"

	"github.com/blockberries/tokenberry/types"
)

// Dispatcher routes calls that miss the native token interface to the
// extension that owns their selector.
type Dispatcher struct {
	allow *AllowList
}

// NewDispatcher creates a dispatcher backed by the global allow-list
func NewDispatcher(allow *AllowList) *Dispatcher {
	return &Dispatcher{allow: allow}
}

// AllowList returns the allow-list the dispatcher resolves against
func (d *Dispatcher) AllowList() *AllowList {
	return d.allow
}

// Resolve finds the operation for sel on the token behind host. The
// extension must be allowed for the token variant and active on the token.
func (d *Dispatcher) Resolve(host Host, sel types.Selector) (Extension, Operation, error) {
	ext, op, ok := d.allow.Lookup(sel)
	if !ok {
		return nil, Operation{}, fmt.Errorf("%w: %s", types.ErrUnknownOperation, sel)
	}
	if !ext.Variant().Permits(host.Variant()) {
		return nil, Operation{}, fmt.Errorf("%w: %s.%s is not available for %s tokens",
			types.ErrUnknownOperation, ext.ID(), op.Signature, host.Variant())
	}
	if !host.IsActive(ext.ID()) {
		return nil, Operation{}, fmt.Errorf("%w: %s.%s is not enabled on %s",
			types.ErrUnknownOperation, ext.ID(), op.Signature, host.Address())
	}
	return ext, op, nil
}

// Dispatch resolves call, checks authority for privileged operations and
// runs the handler. Authority is resolved before the handler runs, so a
// rejected call has no effect.
func (d *Dispatcher) Dispatch(ctx *Context, call types.Call) ([]byte, error) {
	_, op, err := d.Resolve(ctx.Host, call.Selector)
	if err != nil {
		return nil, err
	}
	if op.Privileged {
		if err := ctx.Host.Authorize(ctx.Authority(), call.Selector); err != nil {
			return nil, err
		}
	}
	return op.Handler(ctx, call)
}
