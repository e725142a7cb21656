package extension

import (
	"fmt"
	"sort"
)

// Activation is the set of extensions a single token has enabled.
// The zero value is not usable; use NewActivation.
type Activation struct {
	ids map[ID]struct{}
}

// NewActivation creates an empty activation set
func NewActivation() *Activation {
	return &Activation{ids: make(map[ID]struct{})}
}

// Enable activates id
func (a *Activation) Enable(id ID) error {
	if _, ok := a.ids[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyEnabled, id)
	}
	a.ids[id] = struct{}{}
	return nil
}

// Disable deactivates id
func (a *Activation) Disable(id ID) error {
	if _, ok := a.ids[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotEnabled, id)
	}
	delete(a.ids, id)
	return nil
}

// Active reports whether id is enabled
func (a *Activation) Active(id ID) bool {
	_, ok := a.ids[id]
	return ok
}

// IDs returns the enabled ids, sorted
func (a *Activation) IDs() []ID {
	out := make([]ID, 0, len(a.ids))
	for id := range a.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a copy
func (a *Activation) Clone() *Activation {
	c := &Activation{ids: make(map[ID]struct{}, len(a.ids))}
	for id := range a.ids {
		c.ids[id] = struct{}{}
	}
	return c
}
