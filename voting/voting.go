package voting

import (
	"errors"
	"fmt"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/governance"
	"github.com/blockberries/tokenberry/types"
)

// ID is the extension id of the voting extension
const ID extension.ID = "voting"

// Operation signatures
const (
	SigSubmitProposal  = "submitProposal(bytes)"
	SigSubmitVote      = "submitVote(bytes32,uint8)"
	SigExecuteProposal = "executeProposal(bytes32)"
	SigGetProposal     = "getProposal(bytes32)"
	SigListProposals   = "listProposals()"
)

// Voting errors
var (
	ErrNotTracked       = errors.New("token is not tracked")
	ErrProposalExists   = errors.New("proposal already exists")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrNoVotingPower    = errors.New("no voting power")
	ErrInvalidConfig    = errors.New("invalid voting config")
)

// Config holds the voting policy parameters
type Config struct {
	// MinProposerBalance is the snapshot balance a proposer needs in the
	// submission epoch
	MinProposerBalance uint64

	// ExecutionWindow is the number of epochs after the voting epoch in
	// which an accepted proposal may still be executed. 0 means no limit.
	ExecutionWindow uint64

	// Policy decides acceptance once voting closes
	Policy Policy
}

// DefaultConfig returns simple-majority voting open to any holder
func DefaultConfig() Config {
	return Config{
		MinProposerBalance: 1,
		ExecutionWindow:    0,
		Policy:             Majority{},
	}
}

// ValidateBasic performs basic validation
func (c Config) ValidateBasic() error {
	if c.Policy == nil {
		return fmt.Errorf("%w: no policy", ErrInvalidConfig)
	}
	if q, ok := c.Policy.(Quorum); ok && (q.Percent == 0 || q.Percent > 100) {
		return fmt.Errorf("%w: quorum percent %d", ErrInvalidConfig, q.Percent)
	}
	return nil
}

// Argument and result shapes
type (
	ProposalArgs struct {
		Payload []byte `json:"payload"`
	}
	VoteArgs struct {
		Hash types.Hash `json:"hash"`
		Kind VoteKind   `json:"kind"`
	}
	HashArgs struct {
		Hash types.Hash `json:"hash"`
	}
	SubmitResult struct {
		Hash        types.Hash `json:"hash"`
		VotingEpoch uint64     `json:"voting_epoch"`
	}
	ExecuteResult struct {
		Hash   types.Hash `json:"hash"`
		Result []byte     `json:"result,omitempty"`
	}
)

// View is a proposal together with its derived status
type View struct {
	*Proposal
	Status Status       `json:"status"`
	Votes  []VoteRecord `json:"votes"`
}

// Extension is the voting extension
type Extension struct {
	cfg Config
	ops []extension.Operation
}

var _ extension.Extension = (*Extension)(nil)

// New creates the extension
func New(cfg Config) (*Extension, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	e := &Extension{cfg: cfg}
	e.ops = []extension.Operation{
		extension.NewOperation(SigSubmitProposal, false, e.submitProposal),
		extension.NewOperation(SigSubmitVote, false, e.submitVote),
		extension.NewOperation(SigExecuteProposal, false, e.executeProposal),
		extension.NewOperation(SigGetProposal, false, e.getProposal),
		extension.NewOperation(SigListProposals, false, e.listProposals),
	}
	return e, nil
}

func (e *Extension) ID() extension.ID                  { return ID }
func (e *Extension) Variant() types.Variant            { return types.VariantAny }
func (e *Extension) Operations() []extension.Operation { return e.ops }
func (e *Extension) NewState() extension.State         { return NewBook() }

// Config returns the extension configuration
func (e *Extension) Config() Config {
	return e.cfg
}

// Status derives p's status at epoch. supply is the total supply at the
// proposal's snapshot epoch.
func (e *Extension) Status(p *Proposal, epoch, supply uint64) Status {
	switch {
	case p.Executed:
		return StatusExecuted
	case epoch < p.VotingEpoch:
		return StatusPending
	case epoch == p.VotingEpoch:
		return StatusVotingOpen
	case e.expired(p, epoch):
		return StatusRejected
	case e.cfg.Policy.Accepted(Tally{Accept: p.Accept, Reject: p.Reject, Supply: supply}):
		return StatusAccepted
	default:
		return StatusRejected
	}
}

func (e *Extension) expired(p *Proposal, epoch uint64) bool {
	return e.cfg.ExecutionWindow > 0 && epoch-p.VotingEpoch > e.cfg.ExecutionWindow
}

func (e *Extension) view(h extension.Host, p *Proposal) View {
	supply := h.TotalSupplyAt(p.SnapshotEpoch())
	return View{
		Proposal: p,
		Status:   e.Status(p, h.CurrentEpoch(), supply),
		Votes:    p.Votes(),
	}
}

func book(h extension.Host) (*Book, error) {
	return extension.StateOf[*Book](h, ID)
}

func requireTracked(h extension.Host) error {
	if s := h.TokenState(); s != types.StateTracked {
		return fmt.Errorf("%w: token is %s", ErrNotTracked, s)
	}
	return nil
}

func (e *Extension) submitProposal(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args ProposalArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	if len(args.Payload) < types.SelectorSize {
		return nil, fmt.Errorf("%w: payload too short", types.ErrInvalidArgument)
	}
	h := ctx.Host
	if err := requireTracked(h); err != nil {
		return nil, err
	}
	b, err := book(h)
	if err != nil {
		return nil, err
	}

	epoch := h.CurrentEpoch()
	if bal := h.BalanceAt(epoch, ctx.Caller); bal < e.cfg.MinProposerBalance {
		return nil, fmt.Errorf("%w: proposer %s holds %d, needs %d",
			types.ErrInvalidAuthority, ctx.Caller, bal, e.cfg.MinProposerBalance)
	}
	votingEpoch, err := types.AddUint64(epoch, 1)
	if err != nil {
		return nil, err
	}

	p := &Proposal{
		Hash:         ProposalHash(votingEpoch, args.Payload),
		Payload:      append([]byte(nil), args.Payload...),
		Proposer:     ctx.Caller,
		CreatedEpoch: epoch,
		VotingEpoch:  votingEpoch,
	}
	if err := b.add(p); err != nil {
		return nil, err
	}
	return types.EncodeResult(SubmitResult{Hash: p.Hash, VotingEpoch: votingEpoch})
}

func (e *Extension) submitVote(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args VoteArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	if !args.Kind.IsValid() {
		return nil, fmt.Errorf("%w: vote kind %d", types.ErrInvalidArgument, uint8(args.Kind))
	}
	h := ctx.Host
	if err := requireTracked(h); err != nil {
		return nil, err
	}
	b, err := book(h)
	if err != nil {
		return nil, err
	}
	p, err := b.get(args.Hash)
	if err != nil {
		return nil, err
	}

	epoch := h.CurrentEpoch()
	if epoch != p.VotingEpoch {
		return nil, fmt.Errorf("%w: voting on %s is open in epoch %d only, now %d",
			types.ErrEpochWindowViolation, p.Hash, p.VotingEpoch, epoch)
	}
	weight := h.BalanceAt(p.SnapshotEpoch(), ctx.Caller)
	if weight == 0 {
		return nil, fmt.Errorf("%w: %s at epoch %d", ErrNoVotingPower, ctx.Caller, p.SnapshotEpoch())
	}
	if err := p.castVote(VoteRecord{Voter: ctx.Caller, Kind: args.Kind, Epoch: epoch, Weight: weight}); err != nil {
		return nil, err
	}
	return nil, nil
}

func (e *Extension) executeProposal(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args HashArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	h := ctx.Host
	if err := requireTracked(h); err != nil {
		return nil, err
	}
	b, err := book(h)
	if err != nil {
		return nil, err
	}
	p, err := b.get(args.Hash)
	if err != nil {
		return nil, err
	}
	if p.Executed {
		return nil, fmt.Errorf("%w: %s already executed", types.ErrInvalidStateTransition, p.Hash)
	}

	epoch := h.CurrentEpoch()
	if epoch <= p.VotingEpoch {
		return nil, fmt.Errorf("%w: voting on %s closes after epoch %d, now %d",
			types.ErrEpochWindowViolation, p.Hash, p.VotingEpoch, epoch)
	}
	if e.expired(p, epoch) {
		return nil, fmt.Errorf("%w: execution window of %s closed after epoch %d",
			types.ErrEpochWindowViolation, p.Hash, p.VotingEpoch+e.cfg.ExecutionWindow)
	}
	tally := Tally{Accept: p.Accept, Reject: p.Reject, Supply: h.TotalSupplyAt(p.SnapshotEpoch())}
	if !e.cfg.Policy.Accepted(tally) {
		return nil, fmt.Errorf("%w: %s was not accepted (%d for, %d against, %s)",
			types.ErrInvalidStateTransition, p.Hash, p.Accept, p.Reject, e.cfg.Policy)
	}

	// Marked before the payload runs so a re-entrant execute fails
	p.Executed = true
	p.ExecutedEpoch = epoch

	auth := governance.Authority{Caller: h.Address(), Mediated: true}
	out, err := h.Invoke(auth, p.Payload)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", p.Hash, err)
	}
	return types.EncodeResult(ExecuteResult{Hash: p.Hash, Result: out})
}

func (e *Extension) getProposal(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args HashArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	b, err := book(ctx.Host)
	if err != nil {
		return nil, err
	}
	p, ok := b.Proposal(args.Hash)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, args.Hash)
	}
	return types.EncodeResult(e.view(ctx.Host, p))
}

func (e *Extension) listProposals(ctx *extension.Context, _ types.Call) ([]byte, error) {
	b, err := book(ctx.Host)
	if err != nil {
		return nil, err
	}
	ps := b.Proposals()
	out := make([]View, len(ps))
	for i, p := range ps {
		out[i] = e.view(ctx.Host, p)
	}
	return types.EncodeResult(out)
}

// SubmitProposal encodes submitProposal(payload)
func SubmitProposal(payload []byte) []byte {
	return types.MustEncodeCall(SigSubmitProposal, ProposalArgs{Payload: payload})
}

// SubmitVote encodes submitVote(hash, kind)
func SubmitVote(hash types.Hash, kind VoteKind) []byte {
	return types.MustEncodeCall(SigSubmitVote, VoteArgs{Hash: hash, Kind: kind})
}

// ExecuteProposal encodes executeProposal(hash)
func ExecuteProposal(hash types.Hash) []byte {
	return types.MustEncodeCall(SigExecuteProposal, HashArgs{Hash: hash})
}

// GetProposal encodes getProposal(hash)
func GetProposal(hash types.Hash) []byte {
	return types.MustEncodeCall(SigGetProposal, HashArgs{Hash: hash})
}

// ListProposals encodes listProposals()
func ListProposals() []byte {
	return types.MustEncodeCall(SigListProposals, nil)
}

// Reader is the read-only token access needed to list proposals outside
// of a call. *token.Token implements it.
type Reader interface {
	CurrentEpoch() uint64
	TotalSupplyAt(epoch uint64) uint64
	ExtensionState(id extension.ID) (extension.State, bool)
}

// Views returns every proposal of the token with its status
func (e *Extension) Views(r Reader) ([]View, error) {
	b, err := readerBook(r)
	if err != nil {
		return nil, err
	}
	epoch := r.CurrentEpoch()
	ps := b.Proposals()
	out := make([]View, len(ps))
	for i, p := range ps {
		out[i] = View{
			Proposal: p,
			Status:   e.Status(p, epoch, r.TotalSupplyAt(p.SnapshotEpoch())),
			Votes:    p.Votes(),
		}
	}
	return out, nil
}

// ViewOf returns one proposal of the token with its status
func (e *Extension) ViewOf(r Reader, hash types.Hash) (View, error) {
	b, err := readerBook(r)
	if err != nil {
		return View{}, err
	}
	p, ok := b.Proposal(hash)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrProposalNotFound, hash)
	}
	return View{
		Proposal: p,
		Status:   e.Status(p, r.CurrentEpoch(), r.TotalSupplyAt(p.SnapshotEpoch())),
		Votes:    p.Votes(),
	}, nil
}

func readerBook(r Reader) (*Book, error) {
	st, ok := r.ExtensionState(ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", extension.ErrNotEnabled, ID)
	}
	b, ok := st.(*Book)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected state type %T", extension.ErrInvalidExtension, st)
	}
	return b, nil
}
