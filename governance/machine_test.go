package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/tokenberry/types"
)

var (
	maintainer = types.BytesToAddress([]byte{0x01})
	stranger   = types.BytesToAddress([]byte{0x02})

	opSetState  = types.SelectorOf("setState(uint8)")
	opSetSystem = types.SelectorOf("setSystem(uint8)")
	opMint      = types.SelectorOf("mint(address,uint64)")
)

func TestNewMachineDefaults(t *testing.T) {
	m := NewMachine(maintainer, nil)
	assert.Equal(t, types.StateLocked, m.State())
	assert.Equal(t, types.SystemAbsoluteMonarchy, m.System())
	assert.Equal(t, maintainer, m.Maintainer())
}

func TestStateTransitionsForwardOnly(t *testing.T) {
	m := NewMachine(maintainer, nil)
	auth := Direct(maintainer)

	require.NoError(t, m.SetState(auth, opSetState, types.StateActive))
	require.NoError(t, m.SetState(auth, opSetState, types.StateTracked))
	assert.Equal(t, types.StateTracked, m.State())

	for _, next := range []types.State{types.StateLocked, types.StateActive, types.StateTracked} {
		err := m.SetState(auth, opSetState, next)
		assert.ErrorIs(t, err, types.ErrInvalidStateTransition, "tracked → %s", next)
	}
}

func TestCheckTransition(t *testing.T) {
	cases := []struct {
		from, to types.State
		ok       bool
	}{
		{types.StateLocked, types.StateActive, true},
		{types.StateActive, types.StateTracked, true},
		{types.StateLocked, types.StateTracked, false},
		{types.StateActive, types.StateLocked, false},
		{types.StateTracked, types.StateLocked, false},
		{types.StateTracked, types.StateActive, false},
		{types.StateLocked, types.StateLocked, false},
		{types.StateTracked, types.State(3), false},
	}
	for _, c := range cases {
		err := CheckTransition(c.from, c.to)
		if c.ok {
			assert.NoError(t, err, "%s → %s", c.from, c.to)
		} else {
			assert.ErrorIs(t, err, types.ErrInvalidStateTransition, "%s → %s", c.from, c.to)
		}
	}
}

func TestMonarchyRequiresMaintainer(t *testing.T) {
	m := NewMachine(maintainer, nil)

	err := m.SetState(Direct(stranger), opSetState, types.StateActive)
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)
	assert.Equal(t, types.StateLocked, m.State(), "failed check has no effect")

	// A mediated call is not the maintainer either
	err = m.Authorize(Authority{Caller: stranger, Mediated: true}, opMint)
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)
}

func TestDemocracyRevokesMaintainer(t *testing.T) {
	m := NewMachine(maintainer, nil)
	require.NoError(t, m.SetSystem(Direct(maintainer), opSetSystem, types.SystemDemocracy))

	err := m.Authorize(Direct(maintainer), opMint)
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)

	err = m.SetSystem(Direct(maintainer), opSetSystem, types.SystemAbsoluteMonarchy)
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)
	assert.Equal(t, types.SystemDemocracy, m.System())

	mediated := Authority{Caller: stranger, Mediated: true}
	assert.NoError(t, m.Authorize(mediated, opMint))
	require.NoError(t, m.SetSystem(mediated, opSetSystem, types.SystemAbsoluteMonarchy))
	assert.Equal(t, types.SystemAbsoluteMonarchy, m.System())
}

func TestConstitutionalMonarchy(t *testing.T) {
	m := NewMachine(maintainer, []types.Selector{opMint})
	require.NoError(t, m.SetSystem(Direct(maintainer), opSetSystem, types.SystemConstitutionalMonarchy))

	// Constitutional op needs mediation
	assert.ErrorIs(t, m.Authorize(Direct(maintainer), opMint), types.ErrInvalidAuthority)
	assert.NoError(t, m.Authorize(Authority{Mediated: true}, opMint))

	// Everything else stays with the maintainer
	assert.NoError(t, m.Authorize(Direct(maintainer), opSetState))
	assert.ErrorIs(t, m.Authorize(Authority{Mediated: true}, opSetState), types.ErrInvalidAuthority)
}

func TestSetSystemRejectsUnknown(t *testing.T) {
	m := NewMachine(maintainer, nil)
	err := m.SetSystem(Direct(maintainer), opSetSystem, types.System(9))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestSetMaintainer(t *testing.T) {
	m := NewMachine(maintainer, nil)
	op := types.SelectorOf("setMaintainer(address)")

	assert.ErrorIs(t, m.SetMaintainer(Direct(maintainer), op, types.ZeroAddress), types.ErrInvalidArgument)
	require.NoError(t, m.SetMaintainer(Direct(maintainer), op, stranger))
	assert.Equal(t, stranger, m.Maintainer())
	assert.ErrorIs(t, m.Authorize(Direct(maintainer), opMint), types.ErrInvalidAuthority)
}

func TestRequireState(t *testing.T) {
	m := NewMachine(maintainer, nil)
	assert.ErrorIs(t, m.RequireState(types.StateActive), types.ErrInvalidStateTransition)
	require.NoError(t, m.SetState(Direct(maintainer), opSetState, types.StateActive))
	assert.NoError(t, m.RequireState(types.StateActive))
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewMachine(maintainer, []types.Selector{opMint})
	c := m.Clone()
	require.NoError(t, m.SetState(Direct(maintainer), opSetState, types.StateActive))
	assert.Equal(t, types.StateLocked, c.State())
	assert.True(t, c.IsConstitutional(opMint))
}
