package governance

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/blockberries/tokenberry/types"
)

// Authority describes how a privileged call reached the token.
type Authority struct {
	// Caller is the resolved identity of the immediate caller
	Caller types.Address
	// Mediated is set only when the voting extension dispatches the
	// payload of an executed, accepted proposal
	Mediated bool
}

// Direct returns the authority of a plain call from caller
func Direct(caller types.Address) Authority {
	return Authority{Caller: caller}
}

// Machine tracks a token's lifecycle state and governance system and
// resolves who may invoke privileged operations.
type Machine struct {
	state      types.State
	system     types.System
	maintainer types.Address

	// operations that require mediation under constitutional monarchy
	constitutional map[types.Selector]struct{}
}

// NewMachine creates a machine in the Locked state under absolute monarchy
func NewMachine(maintainer types.Address, constitutional []types.Selector) *Machine {
	m := &Machine{
		state:          types.StateLocked,
		system:         types.SystemAbsoluteMonarchy,
		maintainer:     maintainer,
		constitutional: make(map[types.Selector]struct{}, len(constitutional)),
	}
	for _, sel := range constitutional {
		m.constitutional[sel] = struct{}{}
	}
	return m
}

// State returns the lifecycle state
func (m *Machine) State() types.State {
	return m.state
}

// System returns the governance system
func (m *Machine) System() types.System {
	return m.system
}

// Maintainer returns the maintainer identity
func (m *Machine) Maintainer() types.Address {
	return m.maintainer
}

// IsConstitutional reports whether op needs mediation under constitutional monarchy
func (m *Machine) IsConstitutional(op types.Selector) bool {
	_, ok := m.constitutional[op]
	return ok
}

// Authorize resolves authority for privileged operation op:
//
//	Democracy              → only mediated calls
//	ConstitutionalMonarchy → mediated calls for constitutional ops, maintainer otherwise
//	AbsoluteMonarchy       → maintainer
func (m *Machine) Authorize(auth Authority, op types.Selector) error {
	switch m.system {
	case types.SystemDemocracy:
		if !auth.Mediated {
			return fmt.Errorf("%w: %s requires an executed proposal under %s",
				types.ErrInvalidAuthority, op, m.system)
		}
		return nil

	case types.SystemConstitutionalMonarchy:
		if m.IsConstitutional(op) {
			if !auth.Mediated {
				return fmt.Errorf("%w: %s requires an executed proposal under %s",
					types.ErrInvalidAuthority, op, m.system)
			}
			return nil
		}
		return m.requireMaintainer(auth, op)

	default:
		return m.requireMaintainer(auth, op)
	}
}

func (m *Machine) requireMaintainer(auth Authority, op types.Selector) error {
	if auth.Caller != m.maintainer {
		return fmt.Errorf("%w: %s is not the maintainer (op %s)",
			types.ErrInvalidAuthority, auth.Caller, op)
	}
	return nil
}

// SetState moves the lifecycle forward by exactly one step. Authority is
// checked against the system in effect before the change.
func (m *Machine) SetState(auth Authority, op types.Selector, next types.State) error {
	if err := m.Authorize(auth, op); err != nil {
		return err
	}
	if err := CheckTransition(m.state, next); err != nil {
		return err
	}
	m.state = next
	return nil
}

// SetSystem switches the governance system
func (m *Machine) SetSystem(auth Authority, op types.Selector, next types.System) error {
	if err := m.Authorize(auth, op); err != nil {
		return err
	}
	if !next.IsValid() {
		return fmt.Errorf("%w: unknown system %d", types.ErrInvalidArgument, uint8(next))
	}
	m.system = next
	return nil
}

// SetMaintainer hands maintainer standing to a new identity
func (m *Machine) SetMaintainer(auth Authority, op types.Selector, next types.Address) error {
	if err := m.Authorize(auth, op); err != nil {
		return err
	}
	if next.IsZero() {
		return fmt.Errorf("%w: zero maintainer", types.ErrInvalidArgument)
	}
	m.maintainer = next
	return nil
}

// RequireState fails unless the lifecycle reached min
func (m *Machine) RequireState(min types.State) error {
	if m.state < min {
		return fmt.Errorf("%w: token is %s, requires %s", types.ErrInvalidStateTransition, m.state, min)
	}
	return nil
}

// CheckTransition allows Locked→Active and Active→Tracked only
func CheckTransition(from, to types.State) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown state %d", types.ErrInvalidStateTransition, uint8(to))
	}
	if to != from+1 {
		return fmt.Errorf("%w: %s → %s", types.ErrInvalidStateTransition, from, to)
	}
	return nil
}

// Clone returns a copy
func (m *Machine) Clone() *Machine {
	c := *m
	c.constitutional = make(map[types.Selector]struct{}, len(m.constitutional))
	for k := range m.constitutional {
		c.constitutional[k] = struct{}{}
	}
	return &c
}

// Constitutional returns the constitutional operation selectors, sorted
func (m *Machine) Constitutional() []types.Selector {
	out := make([]types.Selector, 0, len(m.constitutional))
	for k := range m.constitutional {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
