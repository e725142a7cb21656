package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blockberries/tokenberry/token"
	"github.com/blockberries/tokenberry/voting"
)

const defaultExportWorkers = 4

// BuildSnapshot collects the exported rows of t. Proposals are included
// when t has voting storage and v is not nil.
func BuildSnapshot(t *token.Token, v *voting.Extension) (Snapshot, error) {
	s := t.Settings()
	exts := make([]string, len(s.Extensions))
	for i, id := range s.Extensions {
		exts[i] = string(id)
	}
	snap := Snapshot{
		Token: TokenRow{
			Address:     s.Address,
			Variant:     s.Variant.String(),
			Name:        s.Name,
			Symbol:      s.Symbol,
			Maintainer:  s.Maintainer,
			State:       s.State.String(),
			System:      s.System.String(),
			DeployedAt:  s.DeployedAt,
			EpochWindow: s.EpochWindow,
			Supply:      t.TotalSupply(),
			Extensions:  exts,
		},
	}

	l := t.Ledger()
	for _, cp := range l.SupplyHistory() {
		snap.Checkpoints = append(snap.Checkpoints, CheckpointRow{Supply: true, Epoch: cp.Epoch, Value: cp.Value})
	}
	for _, account := range l.Accounts() {
		for _, cp := range l.History(account) {
			snap.Checkpoints = append(snap.Checkpoints, CheckpointRow{Account: account, Epoch: cp.Epoch, Value: cp.Value})
		}
	}

	if v == nil {
		return snap, nil
	}
	if _, ok := t.ExtensionState(voting.ID); !ok {
		return snap, nil
	}
	views, err := v.Views(t)
	if err != nil {
		return Snapshot{}, fmt.Errorf("proposals of %s: %w", s.Address, err)
	}
	for _, pv := range views {
		snap.Proposals = append(snap.Proposals, ProposalRow{
			Hash:         pv.Hash,
			Proposer:     pv.Proposer,
			Payload:      pv.Payload,
			CreatedEpoch: pv.CreatedEpoch,
			VotingEpoch:  pv.VotingEpoch,
			Accept:       pv.Accept,
			Reject:       pv.Reject,
			Executed:     pv.Executed,
			Status:       pv.Status.String(),
		})
	}
	return snap, nil
}

// Exporter writes token snapshots to a Store. Snapshots are built
// concurrently and written in one transaction.
type Exporter struct {
	store   *Store
	voting  *voting.Extension
	workers int
	now     func() time.Time
	logger  *zap.Logger
}

// NewExporter creates an exporter. v may be nil to skip proposals.
func NewExporter(s *Store, v *voting.Extension, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		store:   s,
		voting:  v,
		workers: defaultExportWorkers,
		now:     time.Now,
		logger:  logger.Named("export"),
	}
}

// SetWorkers limits how many snapshots are built at once
func (e *Exporter) SetWorkers(n int) {
	if n > 0 {
		e.workers = n
	}
}

// Export snapshots tokens at engine height and writes them. Tokens must
// not be mutated until Export returns.
func (e *Exporter) Export(ctx context.Context, height uint64, tokens []*token.Token) (ExportInfo, error) {
	snaps := make([]Snapshot, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, t := range tokens {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snap, err := BuildSnapshot(t, e.voting)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExportInfo{}, err
	}

	info, err := e.store.Write(ctx, height, snaps, e.now())
	if err != nil {
		return ExportInfo{}, err
	}
	e.logger.Info("exported tokens",
		zap.Uint64("height", info.Height),
		zap.Int("tokens", info.Tokens),
		zap.Int("checkpoints", info.Checkpoints))
	return info, nil
}
