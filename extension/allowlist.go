package extension

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blockberries/tokenberry/types"
)

type entry struct {
	ext Extension
	op  Operation
}

// AllowList is the global, registry-maintained set of allowed extensions,
// indexed by operation selector. Selectors are unique across the token's
// native interface and every allowed extension.
type AllowList struct {
	mu       sync.RWMutex
	exts     map[ID]Extension
	ops      map[types.Selector]entry
	reserved map[types.Selector]string
}

// NewAllowList creates an empty allow-list. reserved lists the native
// operation signatures no extension may shadow.
func NewAllowList(reserved ...string) *AllowList {
	l := &AllowList{
		exts:     make(map[ID]Extension),
		ops:      make(map[types.Selector]entry),
		reserved: make(map[types.Selector]string, len(reserved)),
	}
	for _, sig := range reserved {
		l.reserved[types.SelectorOf(sig)] = sig
	}
	return l
}

// Allow adds ext. Either every operation is added or none is.
func (l *AllowList) Allow(ext Extension) error {
	if ext == nil || ext.ID() == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidExtension)
	}
	if v := ext.Variant(); v != types.VariantAny && !v.IsTokenVariant() {
		return fmt.Errorf("%w: %s has unknown variant %d", ErrInvalidExtension, ext.ID(), ext.Variant())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.exts[ext.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyAllowed, ext.ID())
	}

	ops := ext.Operations()
	seen := make(map[types.Selector]string, len(ops))
	for _, op := range ops {
		if op.Handler == nil {
			return fmt.Errorf("%w: %s has no handler for %s", ErrInvalidExtension, ext.ID(), op.Signature)
		}
		if op.Selector != types.SelectorOf(op.Signature) {
			return fmt.Errorf("%w: %s selector does not match %s", ErrInvalidExtension, ext.ID(), op.Signature)
		}
		if sig, ok := l.reserved[op.Selector]; ok {
			return fmt.Errorf("%w: %s.%s shadows native %s", ErrSelectorConflict, ext.ID(), op.Signature, sig)
		}
		if other, ok := l.ops[op.Selector]; ok {
			return fmt.Errorf("%w: %s.%s collides with %s.%s",
				ErrSelectorConflict, ext.ID(), op.Signature, other.ext.ID(), other.op.Signature)
		}
		if sig, ok := seen[op.Selector]; ok {
			return fmt.Errorf("%w: %s declares %s and %s", ErrSelectorConflict, ext.ID(), sig, op.Signature)
		}
		seen[op.Selector] = op.Signature
	}

	l.exts[ext.ID()] = ext
	for _, op := range ops {
		l.ops[op.Selector] = entry{ext: ext, op: op}
	}
	return nil
}

// Disallow removes extension id and all of its operations. Tokens that
// activated it can no longer reach its operations.
func (l *AllowList) Disallow(id ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ext, ok := l.exts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAllowed, id)
	}
	for _, op := range ext.Operations() {
		delete(l.ops, op.Selector)
	}
	delete(l.exts, id)
	return nil
}

// Lookup resolves a selector to its extension and operation
func (l *AllowList) Lookup(sel types.Selector) (Extension, Operation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.ops[sel]
	if !ok {
		return nil, Operation{}, false
	}
	return e.ext, e.op, true
}

// Get returns the allowed extension with the given id
func (l *AllowList) Get(id ID) (Extension, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ext, ok := l.exts[id]
	return ext, ok
}

// IsAllowed reports whether id is allowed for tokens of the given variant
func (l *AllowList) IsAllowed(id ID, variant types.Variant) bool {
	ext, ok := l.Get(id)
	return ok && ext.Variant().Permits(variant)
}

// IsReserved reports whether sel belongs to the native token interface
func (l *AllowList) IsReserved(sel types.Selector) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.reserved[sel]
	return ok
}

// IDs returns the allowed extension ids, sorted
func (l *AllowList) IDs() []ID {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ID, 0, len(l.exts))
	for id := range l.exts {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
