package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/token"
	"github.com/blockberries/tokenberry/token/tokentest"
	"github.com/blockberries/tokenberry/types"
	"github.com/blockberries/tokenberry/voting"
)

var (
	maintainer = types.BytesToAddress([]byte{0xaa})
	alice      = types.BytesToAddress([]byte{0x0a})
	carol      = types.BytesToAddress([]byte{0x0c})
)

type fixture struct {
	env    *tokentest.Env
	vote   *voting.Extension
	gov    *token.Token
	art    *token.Token
	store  *Store
	export *Exporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vote, err := voting.New(voting.DefaultConfig())
	require.NoError(t, err)
	env, err := tokentest.NewEnv(vote)
	require.NoError(t, err)

	gov, err := env.Deploy(token.InitParams{
		Variant:     types.VariantFungible,
		Name:        "Governance",
		Symbol:      "GOV",
		Maintainer:  maintainer,
		EpochWindow: tokentest.Week,
		Extensions:  []extension.ID{voting.ID},
	})
	require.NoError(t, err)
	art, err := env.Deploy(token.InitParams{
		Variant:     types.VariantNonFungible,
		Symbol:      "ART",
		Maintainer:  maintainer,
		EpochWindow: tokentest.Week,
	})
	require.NoError(t, err)

	s, err := Open(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	exp := NewExporter(s, vote, zaptest.NewLogger(t))
	exp.now = func() time.Time { return tokentest.Genesis }
	return &fixture{env: env, vote: vote, gov: gov, art: art, store: s, export: exp}
}

func (f *fixture) exec(t *testing.T, tok *token.Token, caller types.Address, payload []byte) {
	t.Helper()
	_, err := tok.Execute(caller, payload)
	require.NoError(t, err)
}

// supplyScenario mints 10,000,000 to alice at epoch 0 and 100 to carol in
// each of epochs 1 to 3
func (f *fixture) supplyScenario(t *testing.T) {
	t.Helper()
	f.exec(t, f.gov, maintainer, token.SetState(types.StateActive))
	f.exec(t, f.gov, maintainer, token.SetState(types.StateTracked))
	f.exec(t, f.gov, maintainer, token.Mint(alice, 10_000_000))
	for e := uint64(1); e <= 3; e++ {
		f.env.Epoch(f.gov, e)
		f.exec(t, f.gov, maintainer, token.Mint(carol, 100))
	}
}

func TestExportMatchesLedger(t *testing.T) {
	f := newFixture(t)
	f.supplyScenario(t)
	ctx := context.Background()

	info, err := f.export.Export(ctx, 7, []*token.Token{f.gov, f.art})
	require.NoError(t, err)
	assert.EqualValues(t, 7, info.Height)
	assert.Equal(t, 2, info.Tokens)

	for e := uint64(0); e <= 5; e++ {
		supply, err := f.store.TotalSupplyAt(ctx, f.gov.Address(), e)
		require.NoError(t, err)
		assert.Equal(t, f.gov.TotalSupplyAt(e), supply, "supply at epoch %d", e)

		for _, a := range []types.Address{alice, carol, maintainer} {
			bal, err := f.store.BalanceAt(ctx, f.gov.Address(), e, a)
			require.NoError(t, err)
			assert.Equal(t, f.gov.BalanceAt(e, a), bal, "balance of %s at epoch %d", a, e)
		}
	}
	supply, err := f.store.TotalSupplyAt(ctx, f.gov.Address(), 3)
	require.NoError(t, err)
	assert.EqualValues(t, 10_000_300, supply)

	last, err := f.store.LastExport(ctx)
	require.NoError(t, err)
	assert.Equal(t, info, last)
}

func TestExportTokens(t *testing.T) {
	f := newFixture(t)
	f.supplyScenario(t)
	ctx := context.Background()

	_, err := f.export.Export(ctx, 1, []*token.Token{f.gov, f.art})
	require.NoError(t, err)

	row, err := f.store.Token(ctx, f.gov.Address())
	require.NoError(t, err)
	assert.Equal(t, "Governance", row.Name)
	assert.Equal(t, "fungible", row.Variant)
	assert.Equal(t, "tracked", row.State)
	assert.Equal(t, "absolute-monarchy", row.System)
	assert.Equal(t, maintainer, row.Maintainer)
	assert.Equal(t, tokentest.Genesis, row.DeployedAt)
	assert.Equal(t, tokentest.Week, row.EpochWindow)
	assert.EqualValues(t, 10_000_300, row.Supply)
	assert.Equal(t, []string{"voting"}, row.Extensions)

	rows, err := f.store.Tokens(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Address.Less(rows[1].Address))

	_, err = f.store.Token(ctx, alice)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.store.BalanceAt(ctx, alice, 0, alice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuildSnapshotCheckpoints(t *testing.T) {
	f := newFixture(t)
	f.supplyScenario(t)

	snap, err := BuildSnapshot(f.gov, f.vote)
	require.NoError(t, err)

	var supply []CheckpointRow
	for _, cp := range snap.Checkpoints {
		if cp.Supply {
			supply = append(supply, cp)
		}
	}
	want := []CheckpointRow{
		{Supply: true, Epoch: 0, Value: 10_000_000},
		{Supply: true, Epoch: 1, Value: 10_000_100},
		{Supply: true, Epoch: 2, Value: 10_000_200},
		{Supply: true, Epoch: 3, Value: 10_000_300},
	}
	if diff := cmp.Diff(want, supply); diff != "" {
		t.Errorf("supply checkpoints mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, snap.Proposals)
}

func TestExportReplacesRows(t *testing.T) {
	f := newFixture(t)
	f.supplyScenario(t)
	ctx := context.Background()

	first, err := f.export.Export(ctx, 1, []*token.Token{f.gov})
	require.NoError(t, err)

	f.env.Epoch(f.gov, 4)
	f.exec(t, f.gov, alice, token.Transfer(carol, 1_000))
	f.exec(t, f.gov, alice, voting.SubmitProposal(token.Mint(alice, 1)))

	second, err := f.export.Export(ctx, 2, []*token.Token{f.gov})
	require.NoError(t, err)
	// alice and carol each gained one checkpoint, supply none
	assert.Equal(t, first.Checkpoints+2, second.Checkpoints)

	bal, err := f.store.BalanceAt(ctx, f.gov.Address(), 4, carol)
	require.NoError(t, err)
	assert.EqualValues(t, 1_300, bal)
	bal, err = f.store.BalanceAt(ctx, f.gov.Address(), 3, carol)
	require.NoError(t, err)
	assert.EqualValues(t, 300, bal)

	props, err := f.store.Proposals(ctx, f.gov.Address())
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, alice, props[0].Proposer)
	assert.EqualValues(t, 5, props[0].VotingEpoch)
	assert.Equal(t, "pending", props[0].Status)
	assert.Equal(t, token.Mint(alice, 1), props[0].Payload)

	last, err := f.store.LastExport(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, last.Height)
}

func TestLargeAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	big := uint64(1<<63 + 5)

	f.exec(t, f.gov, maintainer, token.SetState(types.StateActive))
	f.exec(t, f.gov, maintainer, token.SetState(types.StateTracked))
	f.exec(t, f.gov, maintainer, token.Mint(alice, big))

	_, err := f.export.Export(ctx, 1, []*token.Token{f.gov})
	require.NoError(t, err)

	bal, err := f.store.BalanceAt(ctx, f.gov.Address(), 0, alice)
	require.NoError(t, err)
	assert.Equal(t, big, bal)

	// far future epochs read the latest value
	supply, err := f.store.TotalSupplyAt(ctx, f.gov.Address(), ^uint64(0))
	require.NoError(t, err)
	assert.Equal(t, big, supply)
}

func TestLastExportEmpty(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.LastExport(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.export.Export(ctx, 1, []*token.Token{f.gov, f.art})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
