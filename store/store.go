// Package store exports token snapshots to SQLite for offline queries.
//
// The in-memory ledger stays the source of truth. An export replaces every
// row of each exported token, so the database always reflects one
// consistent engine height per token.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blockberries/tokenberry/types"
)

//go:embed schema.sql
var schema string

// supplyAccount marks total-supply rows in the checkpoints table
const supplyAccount = ""

// ErrNotFound is returned when a token has not been exported
var ErrNotFound = errors.New("not found")

// Store persists token snapshots in SQLite
type Store struct {
	db *sql.DB
}

// Open opens a SQLite store at path and applies the embedded schema
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// TokenRow is the exported description of a token
type TokenRow struct {
	Address     types.Address
	Variant     string
	Name        string
	Symbol      string
	Maintainer  types.Address
	State       string
	System      string
	DeployedAt  time.Time
	EpochWindow time.Duration
	Supply      uint64
	Extensions  []string
}

// CheckpointRow is one balance or supply checkpoint. Account is zero for
// total-supply rows.
type CheckpointRow struct {
	Account types.Address
	Supply  bool
	Epoch   uint64
	Value   uint64
}

// ProposalRow is one exported proposal
type ProposalRow struct {
	Hash         types.Hash
	Proposer     types.Address
	Payload      []byte
	CreatedEpoch uint64
	VotingEpoch  uint64
	Accept       uint64
	Reject       uint64
	Executed     bool
	Status       string
}

// Snapshot is everything exported for one token
type Snapshot struct {
	Token       TokenRow
	Checkpoints []CheckpointRow
	Proposals   []ProposalRow
}

// ExportInfo describes one completed export
type ExportInfo struct {
	Height      uint64
	Tokens      int
	Checkpoints int
	ExportedAt  time.Time
}

// Write replaces the rows of every snapshot's token in one transaction and
// records the export
func (s *Store) Write(ctx context.Context, height uint64, snaps []Snapshot, at time.Time) (ExportInfo, error) {
	info := ExportInfo{Height: height, Tokens: len(snaps), ExportedAt: at.UTC()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ExportInfo{}, fmt.Errorf("begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range snaps {
		n, err := writeSnapshot(ctx, tx, &snaps[i])
		if err != nil {
			return ExportInfo{}, fmt.Errorf("export %s: %w", snaps[i].Token.Address, err)
		}
		info.Checkpoints += n
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO exports (height, tokens, checkpoints, exported_at) VALUES (?, ?, ?, ?)`,
		int64(height), info.Tokens, info.Checkpoints, info.ExportedAt.UnixMilli(),
	); err != nil {
		return ExportInfo{}, fmt.Errorf("record export: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ExportInfo{}, fmt.Errorf("commit export: %w", err)
	}
	return info, nil
}

func writeSnapshot(ctx context.Context, tx *sql.Tx, snap *Snapshot) (int, error) {
	t := snap.Token
	addr := t.Address.String()

	for _, q := range []string{
		`DELETE FROM checkpoints WHERE token = ?`,
		`DELETE FROM proposals WHERE token = ?`,
		`DELETE FROM tokens WHERE address = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, addr); err != nil {
			return 0, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tokens (
		   address, variant, name, symbol, maintainer, state, system,
		   deployed_at, epoch_window, supply, extensions
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		addr, t.Variant, t.Name, t.Symbol, t.Maintainer.String(), t.State, t.System,
		t.DeployedAt.Unix(), int64(t.EpochWindow/time.Second), formatAmount(t.Supply),
		strings.Join(t.Extensions, ","),
	); err != nil {
		return 0, err
	}

	cpStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO checkpoints (token, account, epoch, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer cpStmt.Close()
	for _, cp := range snap.Checkpoints {
		account := supplyAccount
		if !cp.Supply {
			account = cp.Account.String()
		}
		if _, err := cpStmt.ExecContext(ctx, addr, account, int64(cp.Epoch), formatAmount(cp.Value)); err != nil {
			return 0, err
		}
	}

	for _, p := range snap.Proposals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO proposals (
			   token, hash, proposer, payload, created_epoch, voting_epoch,
			   accept, reject, executed, status
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			addr, p.Hash.String(), p.Proposer.String(), p.Payload,
			int64(p.CreatedEpoch), int64(p.VotingEpoch),
			formatAmount(p.Accept), formatAmount(p.Reject), p.Executed, p.Status,
		); err != nil {
			return 0, err
		}
	}
	return len(snap.Checkpoints), nil
}

// Token returns the exported token at addr
func (s *Store) Token(ctx context.Context, addr types.Address) (TokenRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT address, variant, name, symbol, maintainer, state, system,
		        deployed_at, epoch_window, supply, extensions
		   FROM tokens WHERE address = ?`, addr.String())
	t, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TokenRow{}, fmt.Errorf("%w: token %s", ErrNotFound, addr)
	}
	return t, err
}

// Tokens returns every exported token ordered by address
func (s *Store) Tokens(ctx context.Context) ([]TokenRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT address, variant, name, symbol, maintainer, state, system,
		        deployed_at, epoch_window, supply, extensions
		   FROM tokens ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var out []TokenRow
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(row scanner) (TokenRow, error) {
	var (
		t                  TokenRow
		addr, maintainer   string
		deployedAt, window int64
		supply, extensions string
	)
	if err := row.Scan(&addr, &t.Variant, &t.Name, &t.Symbol, &maintainer, &t.State, &t.System,
		&deployedAt, &window, &supply, &extensions); err != nil {
		return TokenRow{}, err
	}
	var err error
	if t.Address, err = types.HexToAddress(addr); err != nil {
		return TokenRow{}, err
	}
	if t.Maintainer, err = types.HexToAddress(maintainer); err != nil {
		return TokenRow{}, err
	}
	if t.Supply, err = parseAmount(supply); err != nil {
		return TokenRow{}, err
	}
	t.DeployedAt = time.Unix(deployedAt, 0).UTC()
	t.EpochWindow = time.Duration(window) * time.Second
	if extensions != "" {
		t.Extensions = strings.Split(extensions, ",")
	}
	return t, nil
}

// BalanceAt returns account's exported balance as of epoch, with the same
// semantics as the in-memory ledger
func (s *Store) BalanceAt(ctx context.Context, tok types.Address, epoch uint64, account types.Address) (uint64, error) {
	return s.valueAt(ctx, tok, account.String(), epoch)
}

// TotalSupplyAt returns the exported total supply as of epoch
func (s *Store) TotalSupplyAt(ctx context.Context, tok types.Address, epoch uint64) (uint64, error) {
	return s.valueAt(ctx, tok, supplyAccount, epoch)
}

func (s *Store) valueAt(ctx context.Context, tok types.Address, account string, epoch uint64) (uint64, error) {
	if _, err := s.Token(ctx, tok); err != nil {
		return 0, err
	}
	if epoch > uint64(1<<63-1) {
		epoch = 1<<63 - 1
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM checkpoints
		  WHERE token = ? AND account = ? AND epoch <= ?
		  ORDER BY epoch DESC LIMIT 1`,
		tok.String(), account, int64(epoch),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query checkpoint: %w", err)
	}
	return parseAmount(value)
}

// Proposals returns the exported proposals of tok ordered by voting epoch
// then hash
func (s *Store) Proposals(ctx context.Context, tok types.Address) ([]ProposalRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, proposer, payload, created_epoch, voting_epoch, accept, reject, executed, status
		   FROM proposals WHERE token = ?
		  ORDER BY voting_epoch, hash`, tok.String())
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	var out []ProposalRow
	for rows.Next() {
		var (
			p               ProposalRow
			hash, proposer  string
			created, voting int64
			accept, reject  string
		)
		if err := rows.Scan(&hash, &proposer, &p.Payload, &created, &voting,
			&accept, &reject, &p.Executed, &p.Status); err != nil {
			return nil, err
		}
		if p.Hash, err = types.HexToHash(hash); err != nil {
			return nil, err
		}
		if p.Proposer, err = types.HexToAddress(proposer); err != nil {
			return nil, err
		}
		if p.Accept, err = parseAmount(accept); err != nil {
			return nil, err
		}
		if p.Reject, err = parseAmount(reject); err != nil {
			return nil, err
		}
		p.CreatedEpoch, p.VotingEpoch = uint64(created), uint64(voting)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LastExport returns the most recent export
func (s *Store) LastExport(ctx context.Context) (ExportInfo, error) {
	var (
		info       ExportInfo
		height, at int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT height, tokens, checkpoints, exported_at FROM exports ORDER BY id DESC LIMIT 1`,
	).Scan(&height, &info.Tokens, &info.Checkpoints, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportInfo{}, fmt.Errorf("%w: no export", ErrNotFound)
	}
	if err != nil {
		return ExportInfo{}, err
	}
	info.Height = uint64(height)
	info.ExportedAt = time.UnixMilli(at).UTC()
	return info, nil
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}
