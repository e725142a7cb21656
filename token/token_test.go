package token_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/token"
	"github.com/blockberries/tokenberry/token/tokentest"
	"github.com/blockberries/tokenberry/types"
)

var (
	maintainer = types.BytesToAddress([]byte{0xaa})
	alice      = types.BytesToAddress([]byte{0x0a})
	bob        = types.BytesToAddress([]byte{0x0b})
	carol      = types.BytesToAddress([]byte{0x0c})
)

func fungible(symbol string) token.InitParams {
	return token.InitParams{
		Variant:     types.VariantFungible,
		Name:        symbol + " token",
		Symbol:      symbol,
		Maintainer:  maintainer,
		EpochWindow: tokentest.Week,
	}
}

func deploy(t *testing.T, env *tokentest.Env, p token.InitParams) *token.Token {
	t.Helper()
	tok, err := env.Deploy(p)
	require.NoError(t, err)
	return tok
}

func exec(t *testing.T, tok *token.Token, caller types.Address, payload []byte) []byte {
	t.Helper()
	out, err := tok.Execute(caller, payload)
	require.NoError(t, err)
	return out
}

// requireSumInvariant checks that tracked balances add up to the tracked
// supply for every epoch in [0, last]
func requireSumInvariant(t *testing.T, tok *token.Token, last uint64) {
	t.Helper()
	l := tok.Ledger()
	for e := uint64(0); e <= last; e++ {
		var sum uint64
		for _, a := range l.Accounts() {
			sum += l.BalanceAt(e, a)
		}
		require.Equal(t, l.TotalSupplyAt(e), sum, "epoch %d", e)
	}
}

func TestInitializeOnce(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))

	assert.ErrorIs(t, tok.Initialize(fungible("GOV")), types.ErrAlreadyInitialized)
	assert.ErrorIs(t, tok.Initialize(fungible("OTHER")), types.ErrAlreadyInitialized)
	assert.ErrorIs(t, tok.Initialize(token.InitParams{}), types.ErrAlreadyInitialized)

	payload := types.MustEncodeCall(token.SigInitialize, fungible("OTHER"))
	_, err = tok.Execute(alice, payload)
	assert.ErrorIs(t, err, types.ErrAlreadyInitialized)

	s := tok.Settings()
	assert.Equal(t, "GOV", s.Symbol)
	assert.Equal(t, types.StateLocked, s.State)
	assert.Equal(t, types.SystemAbsoluteMonarchy, s.System)
	assert.Equal(t, tokentest.Genesis, s.DeployedAt)
	assert.Equal(t, tokentest.Week, s.EpochWindow)
}

func TestInitializeValidates(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)

	cases := map[string]func(p *token.InitParams){
		"variant":    func(p *token.InitParams) { p.Variant = types.VariantAny },
		"symbol":     func(p *token.InitParams) { p.Symbol = " " },
		"maintainer": func(p *token.InitParams) { p.Maintainer = types.ZeroAddress },
		"window":     func(p *token.InitParams) { p.EpochWindow = 0 },
		"extension":  func(p *token.InitParams) { p.Extensions = []extension.ID{"missing"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := fungible("BAD")
			mutate(&p)
			tok := token.New(alice, env.Clock, env.Dispatcher, nil)
			assert.Error(t, tok.Initialize(p))
			assert.False(t, tok.Initialized())
		})
	}
}

func TestUninitializedTokenRejectsCalls(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := token.New(alice, env.Clock, env.Dispatcher, nil)

	_, err = tok.Execute(maintainer, token.Mint(alice, 1))
	assert.ErrorIs(t, err, types.ErrNotInitialized)

	// initialization through the native operation
	payload := types.MustEncodeCall(token.SigInitialize, fungible("LATE"))
	exec(t, tok, maintainer, payload)
	assert.True(t, tok.Initialized())
}

func TestLockedTokenRejectsTransfers(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))

	exec(t, tok, maintainer, token.Mint(alice, 100))

	_, err = tok.Execute(alice, token.Transfer(bob, 10))
	assert.ErrorIs(t, err, token.ErrTokenLocked)
	_, err = tok.Execute(alice, token.Burn(10))
	assert.ErrorIs(t, err, token.ErrTokenLocked)

	exec(t, tok, maintainer, token.SetState(types.StateActive))
	exec(t, tok, alice, token.Transfer(bob, 10))
	exec(t, tok, bob, token.Burn(4))

	assert.Equal(t, uint64(90), tok.BalanceOf(alice))
	assert.Equal(t, uint64(6), tok.BalanceOf(bob))
	assert.Equal(t, uint64(96), tok.TotalSupply())
	assert.Equal(t, []types.Address{alice, bob}, tok.Holders())
}

func TestMintRequiresMaintainer(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))

	_, err = tok.Execute(alice, token.Mint(alice, 100))
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)
	assert.Zero(t, tok.TotalSupply())
}

func TestTransferFailureHasNoEffect(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))
	exec(t, tok, maintainer, token.Mint(alice, 5))
	exec(t, tok, maintainer, token.SetState(types.StateActive))

	_, err = tok.Execute(alice, token.Transfer(bob, 6))
	assert.ErrorIs(t, err, types.ErrUnderflow)
	assert.Equal(t, uint64(5), tok.BalanceOf(alice))
	assert.Zero(t, tok.BalanceOf(bob))

	_, err = tok.Execute(alice, token.Transfer(types.ZeroAddress, 1))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestMalformedPayloads(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))

	_, err = tok.Execute(alice, []byte{0x01})
	assert.ErrorIs(t, err, types.ErrUnknownOperation)

	_, err = tok.Execute(alice, types.MustEncodeCall("unknown()", nil))
	assert.ErrorIs(t, err, types.ErrUnknownOperation)

	_, err = tok.Execute(maintainer, types.MustEncodeCall(token.SigMint, map[string]any{"to": alice.String(), "bogus": 1}))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestGovernanceTransitions(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))

	_, err = tok.Execute(maintainer, token.SetState(types.StateTracked))
	assert.ErrorIs(t, err, types.ErrInvalidStateTransition)

	exec(t, tok, maintainer, token.SetState(types.StateActive))
	exec(t, tok, maintainer, token.SetState(types.StateTracked))

	_, err = tok.Execute(maintainer, token.SetState(types.StateLocked))
	assert.ErrorIs(t, err, types.ErrInvalidStateTransition)
	_, err = tok.Execute(maintainer, token.SetState(types.StateActive))
	assert.ErrorIs(t, err, types.ErrInvalidStateTransition)

	exec(t, tok, maintainer, token.SetSystem(types.SystemDemocracy))
	assert.Equal(t, types.SystemDemocracy, tok.Settings().System)

	// the maintainer lost its standing
	_, err = tok.Execute(maintainer, token.Mint(alice, 1))
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)
	_, err = tok.Execute(maintainer, token.SetSystem(types.SystemAbsoluteMonarchy))
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)
}

func TestSetMaintainer(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))

	exec(t, tok, maintainer, token.SetMaintainer(bob))
	assert.Equal(t, bob, tok.Settings().Maintainer)

	_, err = tok.Execute(maintainer, token.Mint(alice, 1))
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)
	exec(t, tok, bob, token.Mint(alice, 1))
}

func TestViewOperations(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))
	exec(t, tok, maintainer, token.Mint(alice, 42))

	assert.JSONEq(t, `42`, string(exec(t, tok, bob, token.BalanceOfCall(alice))))
	assert.JSONEq(t, `42`, string(exec(t, tok, bob, types.MustEncodeCall(token.SigTotalSupply, nil))))
	assert.JSONEq(t, `0`, string(exec(t, tok, bob, types.MustEncodeCall(token.SigGetCurrentEpoch, nil))))

	// untracked: no history yet
	assert.JSONEq(t, `0`, string(exec(t, tok, bob, token.GetBalanceAt(0, alice))))
	assert.JSONEq(t, `0`, string(exec(t, tok, bob, token.GetTotalSupplyAt(0))))

	out := exec(t, tok, bob, token.GetSettings())
	assert.Contains(t, string(out), `"symbol":"GOV"`)
}

func TestSupplyScenario(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))

	exec(t, tok, maintainer, token.SetState(types.StateActive))
	exec(t, tok, maintainer, token.SetState(types.StateTracked))
	exec(t, tok, maintainer, token.Mint(alice, 10_000_000))

	for e := uint64(1); e <= 7; e++ {
		env.Epoch(tok, e)
		require.Equal(t, e, tok.CurrentEpoch())
		exec(t, tok, maintainer, token.Mint(carol, 100))
	}

	assert.Equal(t, uint64(10_000_300), tok.TotalSupplyAt(3))
	assert.Equal(t, uint64(10_000_000), tok.TotalSupplyAt(0))
	assert.Equal(t, uint64(10_000_700), tok.TotalSupplyAt(7))
	assert.Equal(t, uint64(10_000_700), tok.TotalSupplyAt(100), "forward projection")
	assert.Equal(t, uint64(300), tok.BalanceAt(3, carol))
	assert.Zero(t, tok.BalanceAt(0, carol))
	requireSumInvariant(t, tok, 8)
}

func TestTrackingSeedsLedger(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))

	exec(t, tok, maintainer, token.Mint(alice, 500))
	exec(t, tok, maintainer, token.SetState(types.StateActive))
	exec(t, tok, alice, token.Transfer(bob, 200))

	env.Epoch(tok, 2)
	exec(t, tok, maintainer, token.SetState(types.StateTracked))

	// no history before tracking began
	assert.Zero(t, tok.BalanceAt(1, alice))
	assert.Zero(t, tok.TotalSupplyAt(1))

	assert.Equal(t, uint64(300), tok.BalanceAt(2, alice))
	assert.Equal(t, uint64(200), tok.BalanceAt(2, bob))
	assert.Equal(t, uint64(500), tok.TotalSupplyAt(2))

	env.Epoch(tok, 3)
	exec(t, tok, bob, token.Transfer(carol, 50))
	exec(t, tok, alice, token.Burn(100))
	assert.Equal(t, uint64(200), tok.BalanceAt(2, bob))
	assert.Equal(t, uint64(150), tok.BalanceAt(3, bob))
	assert.Equal(t, uint64(400), tok.TotalSupplyAt(3))
	requireSumInvariant(t, tok, 4)
}

func TestNonFungible(t *testing.T) {
	env, err := tokentest.NewEnv()
	require.NoError(t, err)
	p := fungible("ART")
	p.Variant = types.VariantNonFungible
	tok := deploy(t, env, p)

	exec(t, tok, maintainer, token.Mint(alice, 7))
	exec(t, tok, maintainer, token.Mint(alice, 9))
	_, err = tok.Execute(maintainer, token.Mint(bob, 7))
	assert.ErrorIs(t, err, token.ErrTokenIDExists)

	exec(t, tok, maintainer, token.SetState(types.StateActive))
	exec(t, tok, maintainer, token.SetState(types.StateTracked))

	_, err = tok.Execute(bob, token.Transfer(carol, 7))
	assert.ErrorIs(t, err, token.ErrNotOwner)
	_, err = tok.Execute(alice, token.Transfer(carol, 8))
	assert.ErrorIs(t, err, token.ErrTokenIDNotFound)

	exec(t, tok, alice, token.Transfer(bob, 7))
	owner, err := tok.OwnerOf(7)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
	assert.Equal(t, uint64(1), tok.BalanceOf(alice))
	assert.Equal(t, uint64(1), tok.BalanceOf(bob))

	exec(t, tok, alice, token.Burn(9))
	_, err = tok.OwnerOf(9)
	assert.ErrorIs(t, err, token.ErrTokenIDNotFound)
	assert.Equal(t, uint64(1), tok.TotalSupply())
	assert.Equal(t, uint64(1), tok.TotalSupplyAt(0))
	requireSumInvariant(t, tok, 1)
}

func TestEnableExtensionRequiresAllowList(t *testing.T) {
	probe := newProbe(types.VariantAny)
	nftOnly := &probeExtension{id: "nft-only", variant: types.VariantNonFungible}
	env, err := tokentest.NewEnv(probe, nftOnly)
	require.NoError(t, err)
	tok := deploy(t, env, fungible("GOV"))

	_, err = tok.Execute(maintainer, token.EnableExtension("missing"))
	assert.ErrorIs(t, err, extension.ErrNotAllowed)
	_, err = tok.Execute(maintainer, token.EnableExtension("nft-only"))
	assert.ErrorIs(t, err, extension.ErrNotAllowed)
	_, err = tok.Execute(alice, token.EnableExtension(probe.id))
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)

	// not enabled yet
	_, err = tok.Execute(alice, probeCall(sigProbeCount, nil))
	assert.ErrorIs(t, err, types.ErrUnknownOperation)

	exec(t, tok, maintainer, token.EnableExtension(probe.id))
	assert.Equal(t, []extension.ID{probe.id}, tok.Settings().Extensions)
	exec(t, tok, alice, probeCall(sigProbeCount, nil))
	_, err = tok.Execute(maintainer, token.EnableExtension(probe.id))
	assert.ErrorIs(t, err, extension.ErrAlreadyEnabled)

	exec(t, tok, maintainer, token.DisableExtension(probe.id))
	_, err = tok.Execute(alice, probeCall(sigProbeCount, nil))
	assert.ErrorIs(t, err, types.ErrUnknownOperation)

	// storage survives a disable/enable cycle
	exec(t, tok, maintainer, token.EnableExtension(probe.id))
	exec(t, tok, alice, probeCall(sigProbeCount, nil))
	assert.Equal(t, 2, probeCount(t, tok))

	// revoking the global allowance cuts the token off
	require.NoError(t, env.Allow.Disallow(probe.id))
	_, err = tok.Execute(alice, probeCall(sigProbeCount, nil))
	assert.ErrorIs(t, err, types.ErrUnknownOperation)
}

func TestNestedFailureRollsBackEverything(t *testing.T) {
	probe := newProbe(types.VariantAny)
	env, err := tokentest.NewEnv(probe)
	require.NoError(t, err)
	p := fungible("GOV")
	p.Extensions = []extension.ID{probe.id}
	tok := deploy(t, env, p)

	exec(t, tok, maintainer, token.Mint(alice, 100))
	exec(t, tok, maintainer, token.SetState(types.StateActive))
	exec(t, tok, maintainer, token.SetState(types.StateTracked))

	_, err = tok.Execute(alice, probeCall(sigProbeTransferThenFail, probeArgs{To: bob, Amount: 40}))
	assert.ErrorIs(t, err, errProbe)

	assert.Equal(t, uint64(100), tok.BalanceOf(alice))
	assert.Zero(t, tok.BalanceOf(bob))
	assert.Zero(t, tok.BalanceAt(0, bob))
	assert.Zero(t, probeCount(t, tok), "extension storage restored")
	assert.Equal(t, []types.Address{alice}, tok.Ledger().Accounts())

	// the same nested transfer commits when the handler succeeds
	exec(t, tok, alice, probeCall(sigProbeTransfer, probeArgs{To: bob, Amount: 40}))
	assert.Equal(t, uint64(40), tok.BalanceOf(bob))
	assert.Equal(t, 1, probeCount(t, tok))
}

func TestNestedCallsRecheckAuthority(t *testing.T) {
	probe := newProbe(types.VariantAny)
	env, err := tokentest.NewEnv(probe)
	require.NoError(t, err)
	p := fungible("GOV")
	p.Extensions = []extension.ID{probe.id}
	tok := deploy(t, env, p)

	// alice can reach the extension, but the nested mint still needs authority
	_, err = tok.Execute(alice, probeCall(sigProbeInvoke, token.Mint(alice, 1)))
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)

	exec(t, tok, maintainer, probeCall(sigProbeInvoke, token.Mint(alice, 1)))
	assert.Equal(t, uint64(1), tok.BalanceOf(alice))
}

func TestCallDepthIsBounded(t *testing.T) {
	probe := newProbe(types.VariantAny)
	env, err := tokentest.NewEnv(probe)
	require.NoError(t, err)
	p := fungible("GOV")
	p.Extensions = []extension.ID{probe.id}
	tok := deploy(t, env, p)

	_, err = tok.Execute(alice, probeCall(sigProbeRecurse, nil))
	assert.ErrorIs(t, err, token.ErrCallDepthExceeded)
	assert.Zero(t, probeCount(t, tok))
}

func TestOutboundFailureRollsBackOtherTokens(t *testing.T) {
	probe := newProbe(types.VariantAny)
	env, err := tokentest.NewEnv(probe)
	require.NoError(t, err)
	p := fungible("DAO")
	p.Extensions = []extension.ID{probe.id}
	dao := deploy(t, env, p)
	usd := deploy(t, env, fungible("USD"))

	// the DAO token holds USD
	exec(t, usd, maintainer, token.Mint(dao.Address(), 1_000))
	exec(t, usd, maintainer, token.SetState(types.StateActive))

	out := probeArgs{To: usd.Address(), Data: token.Transfer(bob, 300)}
	exec(t, dao, alice, probeCall(sigProbeOutbound, out))
	assert.Equal(t, uint64(300), usd.BalanceOf(bob))
	assert.Equal(t, uint64(700), usd.BalanceOf(dao.Address()))

	out.Fail = true
	_, err = dao.Execute(alice, probeCall(sigProbeOutbound, out))
	assert.ErrorIs(t, err, errProbe)
	assert.Equal(t, uint64(300), usd.BalanceOf(bob), "transfer on the other token reverted")
	assert.Equal(t, uint64(700), usd.BalanceOf(dao.Address()))

	_, err = dao.Execute(alice, probeCall(sigProbeOutbound, probeArgs{To: carol, Data: []byte{1, 2, 3, 4}}))
	assert.True(t, errors.Is(err, tokentest.ErrUnknownTarget))
}
