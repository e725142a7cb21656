package engine

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/blockberries/tokenberry/journal"
)

// ReplayResult contains the result of a journal replay
type ReplayResult struct {
	// Height we recovered to
	Height uint64
	// Number of transactions replayed
	TxsReplayed int
	// Timestamp of the last replayed transaction
	LastTime time.Time
}

// replay re-applies journaled transactions above the current height in
// order. The caller must hold the lock.
func (e *Engine) replay() (*ReplayResult, error) {
	result := &ReplayResult{}
	if e.config.JournalDir == "" {
		return result, nil
	}

	reader, err := journal.OpenForReading(e.config.JournalDir)
	if errors.Is(err, journal.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReplayFailed, err)
	}
	defer reader.Close()

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read: %w", ErrReplayFailed, err)
		}
		// already applied before a Stop
		if rec.Height <= e.height {
			continue
		}
		if rec.Height != e.height+1 {
			return nil, fmt.Errorf("%w: record height %d, expected %d", ErrReplayFailed, rec.Height, e.height+1)
		}

		tx, err := decodeTx(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode height %d: %w", ErrReplayFailed, rec.Height, err)
		}
		if _, err := e.apply(tx); err != nil {
			// execution is deterministic, so a journaled tx cannot fail
			// unless the journal or the code changed underneath it
			return nil, fmt.Errorf("%w: apply height %d (tx %s): %w", ErrReplayFailed, rec.Height, tx.ID, err)
		}
		result.TxsReplayed++
	}

	result.Height = e.height
	result.LastTime = e.lastTime
	if result.TxsReplayed > 0 {
		e.logger.Info("replayed journal",
			zap.Int("txs", result.TxsReplayed),
			zap.Uint64("height", result.Height),
			zap.Time("last_time", result.LastTime))
	}
	return result, nil
}
