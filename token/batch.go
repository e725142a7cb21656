package token

import (
	"fmt"

	"github.com/blockberries/tokenberry/types"
)

// MaxCallDepth bounds nested calls (extension → token → extension ...)
const MaxCallDepth = 32

// Batch makes one top-level call atomic across every token it reaches.
// A token is snapshotted the first time the batch touches it; Rollback
// restores all snapshots.
type Batch struct {
	saved map[*Token]*core
	order []*Token
}

// NewBatch creates an empty batch
func NewBatch() *Batch {
	return &Batch{saved: make(map[*Token]*core)}
}

// Frame returns the root call frame of the batch
func (b *Batch) Frame() *Frame {
	return &Frame{batch: b}
}

func (b *Batch) touch(t *Token) {
	if _, ok := b.saved[t]; ok {
		return
	}
	b.saved[t] = t.core.clone()
	b.order = append(b.order, t)
}

// Touched returns the addresses of the tokens touched so far, in order
func (b *Batch) Touched() []types.Address {
	out := make([]types.Address, len(b.order))
	for i, t := range b.order {
		out[i] = t.address
	}
	return out
}

// Rollback restores every touched token to its state before the batch
func (b *Batch) Rollback() {
	for i := len(b.order) - 1; i >= 0; i-- {
		t := b.order[i]
		t.core = b.saved[t]
	}
	b.saved = make(map[*Token]*core)
	b.order = nil
}

// Frame is one level of a (possibly nested) call
type Frame struct {
	batch *Batch
	depth int
}

// Batch returns the batch the frame belongs to
func (f *Frame) Batch() *Batch {
	return f.batch
}

// Depth returns the nesting depth; the root frame has depth 0
func (f *Frame) Depth() int {
	return f.depth
}

func (f *Frame) enter() (*Frame, error) {
	if f.depth >= MaxCallDepth {
		return nil, fmt.Errorf("%w: %d", ErrCallDepthExceeded, MaxCallDepth)
	}
	return &Frame{batch: f.batch, depth: f.depth + 1}, nil
}
