package ledger

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEpochRegression is returned when a checkpoint is recorded for an epoch
// older than the last recorded one
var ErrEpochRegression = errors.New("checkpoint epoch regression")

// Checkpoint is the value of a balance or supply as of an epoch
type Checkpoint struct {
	Epoch uint64 `json:"epoch"`
	Value uint64 `json:"value"`
}

// Checkpoints is a sparse, append-only sequence sorted by epoch with no
// duplicate epochs. The zero value is an empty sequence.
type Checkpoints struct {
	entries []Checkpoint
}

// Record sets the value for epoch. Within the last recorded epoch the
// value is overwritten in place; a later epoch appends.
func (c *Checkpoints) Record(epoch, value uint64) error {
	n := len(c.entries)
	if n > 0 {
		last := &c.entries[n-1]
		if epoch < last.Epoch {
			return fmt.Errorf("%w: %d < %d", ErrEpochRegression, epoch, last.Epoch)
		}
		if epoch == last.Epoch {
			last.Value = value
			return nil
		}
	}
	c.entries = append(c.entries, Checkpoint{Epoch: epoch, Value: value})
	return nil
}

// ValueAt returns the value of the latest checkpoint with Epoch <= epoch,
// or 0 if none exists. Epochs past the last checkpoint return its value.
func (c *Checkpoints) ValueAt(epoch uint64) uint64 {
	// First index whose epoch is strictly greater than the query
	i := sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].Epoch > epoch
	})
	if i == 0 {
		return 0
	}
	return c.entries[i-1].Value
}

// Latest returns the most recent value, or 0 for an empty sequence
func (c *Checkpoints) Latest() uint64 {
	if len(c.entries) == 0 {
		return 0
	}
	return c.entries[len(c.entries)-1].Value
}

// Len returns the number of checkpoints
func (c *Checkpoints) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the checkpoints in epoch order
func (c *Checkpoints) Entries() []Checkpoint {
	out := make([]Checkpoint, len(c.entries))
	copy(out, c.entries)
	return out
}

// Clone returns a deep copy
func (c *Checkpoints) Clone() *Checkpoints {
	return &Checkpoints{entries: c.Entries()}
}
