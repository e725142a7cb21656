package token_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/token"
	"github.com/blockberries/tokenberry/types"
)

const (
	sigProbeCount            = "probe.count()"
	sigProbeTransfer         = "probe.transfer(address,uint64)"
	sigProbeTransferThenFail = "probe.transferThenFail(address,uint64)"
	sigProbeInvoke           = "probe.invoke(bytes)"
	sigProbeRecurse          = "probe.recurse()"
	sigProbeOutbound         = "probe.outbound(address,bytes)"
)

var errProbe = errors.New("probe failure")

type probeArgs struct {
	To     types.Address `json:"to"`
	Amount uint64        `json:"amount"`
	Data   []byte        `json:"data"`
	Fail   bool          `json:"fail"`
}

type probeState struct{ calls int }

func (s *probeState) Clone() extension.State {
	cp := *s
	return &cp
}

// probeExtension exercises the host contract from inside a handler
type probeExtension struct {
	id      extension.ID
	variant types.Variant
	ops     []extension.Operation
}

func newProbe(variant types.Variant) *probeExtension {
	p := &probeExtension{id: "probe", variant: variant}
	p.ops = []extension.Operation{
		extension.NewOperation(sigProbeCount, false, p.count),
		extension.NewOperation(sigProbeTransfer, false, p.transfer),
		extension.NewOperation(sigProbeTransferThenFail, false, p.transfer),
		extension.NewOperation(sigProbeInvoke, false, p.invoke),
		extension.NewOperation(sigProbeRecurse, false, p.recurse),
		extension.NewOperation(sigProbeOutbound, false, p.outbound),
	}
	return p
}

func (p *probeExtension) ID() extension.ID                  { return p.id }
func (p *probeExtension) Variant() types.Variant            { return p.variant }
func (p *probeExtension) Operations() []extension.Operation { return p.ops }
func (p *probeExtension) NewState() extension.State         { return &probeState{} }

func (p *probeExtension) bump(ctx *extension.Context) error {
	st, err := extension.StateOf[*probeState](ctx.Host, p.id)
	if err != nil {
		return err
	}
	st.calls++
	return nil
}

func (p *probeExtension) count(ctx *extension.Context, _ types.Call) ([]byte, error) {
	return nil, p.bump(ctx)
}

func (p *probeExtension) transfer(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args probeArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	if _, err := ctx.Host.Invoke(ctx.Authority(), token.Transfer(args.To, args.Amount)); err != nil {
		return nil, err
	}
	if err := p.bump(ctx); err != nil {
		return nil, err
	}
	if call.Selector == types.SelectorOf(sigProbeTransferThenFail) {
		return nil, errProbe
	}
	return nil, nil
}

func (p *probeExtension) invoke(ctx *extension.Context, call types.Call) ([]byte, error) {
	var payload []byte
	if err := call.Bind(&payload); err != nil {
		return nil, err
	}
	return ctx.Host.Invoke(ctx.Authority(), payload)
}

func (p *probeExtension) recurse(ctx *extension.Context, call types.Call) ([]byte, error) {
	if err := p.bump(ctx); err != nil {
		return nil, err
	}
	return ctx.Host.Invoke(ctx.Authority(), call.Encode())
}

func (p *probeExtension) outbound(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args probeArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	out, err := ctx.Host.Outbound(args.To, 0, args.Data)
	if err != nil {
		return nil, err
	}
	if args.Fail {
		return nil, errProbe
	}
	return out, nil
}

func probeCall(sig string, args any) []byte {
	return types.MustEncodeCall(sig, args)
}

func probeCount(t *testing.T, tok *token.Token) int {
	t.Helper()
	st, ok := tok.ExtensionState("probe")
	require.True(t, ok)
	return st.(*probeState).calls
}
