package voting

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/types"
)

// VoteKind is the direction of a vote
type VoteKind uint8

const (
	VoteAccept VoteKind = 1
	VoteReject VoteKind = 2
)

func (k VoteKind) String() string {
	switch k {
	case VoteAccept:
		return "accept"
	case VoteReject:
		return "reject"
	default:
		return fmt.Sprintf("vote(%d)", uint8(k))
	}
}

// IsValid reports whether k is Accept or Reject
func (k VoteKind) IsValid() bool {
	return k == VoteAccept || k == VoteReject
}

// Status is the derived lifecycle state of a proposal
type Status uint8

const (
	StatusPending Status = iota
	StatusVotingOpen
	StatusAccepted
	StatusRejected
	StatusExecuted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusVotingOpen:
		return "voting-open"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusExecuted:
		return "executed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// VoteRecord is one voter's current vote on a proposal
type VoteRecord struct {
	Voter  types.Address `json:"voter"`
	Kind   VoteKind      `json:"kind"`
	Epoch  uint64        `json:"epoch"`
	Weight uint64        `json:"weight"`
}

// Proposal is a call payload scheduled for a vote. Only the tallies, the
// vote records and the execution mark ever change.
type Proposal struct {
	Hash          types.Hash    `json:"hash"`
	Payload       []byte        `json:"payload"`
	Proposer      types.Address `json:"proposer"`
	CreatedEpoch  uint64        `json:"created_epoch"`
	VotingEpoch   uint64        `json:"voting_epoch"`
	Accept        uint64        `json:"accept"`
	Reject        uint64        `json:"reject"`
	Executed      bool          `json:"executed"`
	ExecutedEpoch uint64        `json:"executed_epoch,omitempty"`

	votes map[types.Address]VoteRecord
}

// ProposalHash binds payload to the epoch its vote takes place in
func ProposalHash(votingEpoch uint64, payload []byte) types.Hash {
	var epoch [8]byte
	binary.BigEndian.PutUint64(epoch[:], votingEpoch)
	return types.HashBytes(epoch[:], payload)
}

// SnapshotEpoch is the epoch whose closing balances weigh the votes: the
// last epoch before voting opens. Balances moved during the voting epoch
// carry no weight.
func (p *Proposal) SnapshotEpoch() uint64 {
	return p.VotingEpoch - 1
}

// Vote returns voter's current vote
func (p *Proposal) Vote(voter types.Address) (VoteRecord, bool) {
	r, ok := p.votes[voter]
	return r, ok
}

// Votes returns every vote, ordered by voter
func (p *Proposal) Votes() []VoteRecord {
	out := make([]VoteRecord, 0, len(p.votes))
	for _, r := range p.votes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Voter.Less(out[j].Voter) })
	return out
}

// castVote records r, replacing the voter's previous contribution
func (p *Proposal) castVote(r VoteRecord) error {
	accept, reject := p.Accept, p.Reject
	var err error
	if prev, ok := p.votes[r.Voter]; ok {
		switch prev.Kind {
		case VoteAccept:
			accept, err = types.SubUint64(accept, prev.Weight)
		case VoteReject:
			reject, err = types.SubUint64(reject, prev.Weight)
		}
		if err != nil {
			return err
		}
	}
	switch r.Kind {
	case VoteAccept:
		accept, err = types.AddUint64(accept, r.Weight)
	case VoteReject:
		reject, err = types.AddUint64(reject, r.Weight)
	}
	if err != nil {
		return err
	}
	p.Accept, p.Reject = accept, reject
	p.votes[r.Voter] = r
	return nil
}

func (p *Proposal) clone() *Proposal {
	cp := *p
	cp.Payload = append([]byte(nil), p.Payload...)
	cp.votes = make(map[types.Address]VoteRecord, len(p.votes))
	for a, r := range p.votes {
		cp.votes[a] = r
	}
	return &cp
}

// Book is the voting extension's per-token storage: every proposal ever
// submitted, in submission order. Proposals are never deleted.
type Book struct {
	proposals map[types.Hash]*Proposal
	order     []types.Hash
}

var _ extension.State = (*Book)(nil)

// NewBook creates an empty book
func NewBook() *Book {
	return &Book{proposals: make(map[types.Hash]*Proposal)}
}

// Clone implements extension.State
func (b *Book) Clone() extension.State {
	c := &Book{
		proposals: make(map[types.Hash]*Proposal, len(b.proposals)),
		order:     append([]types.Hash(nil), b.order...),
	}
	for h, p := range b.proposals {
		c.proposals[h] = p.clone()
	}
	return c
}

// Len returns the number of proposals
func (b *Book) Len() int {
	return len(b.order)
}

// Proposal returns a copy of the proposal with the given hash
func (b *Book) Proposal(hash types.Hash) (*Proposal, bool) {
	p, ok := b.proposals[hash]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// Proposals returns copies of every proposal in submission order
func (b *Book) Proposals() []*Proposal {
	out := make([]*Proposal, len(b.order))
	for i, h := range b.order {
		out[i] = b.proposals[h].clone()
	}
	return out
}

func (b *Book) add(p *Proposal) error {
	if _, ok := b.proposals[p.Hash]; ok {
		return fmt.Errorf("%w: %s", ErrProposalExists, p.Hash)
	}
	if p.votes == nil {
		p.votes = make(map[types.Address]VoteRecord)
	}
	b.proposals[p.Hash] = p
	b.order = append(b.order, p.Hash)
	return nil
}

func (b *Book) get(hash types.Hash) (*Proposal, error) {
	p, ok := b.proposals[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, hash)
	}
	return p, nil
}
