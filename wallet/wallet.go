// Package wallet implements the wallet extension: outbound calls made with
// the token's own identity, e.g. moving other tokens the token holds.
// executeTransaction is privileged, so under Democracy only an executed
// proposal can reach it.
package wallet

import (
	"fmt"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/types"
)

// ID is the extension id of the wallet extension
const ID extension.ID = "wallet"

// Operation signatures
const (
	SigExecuteTransaction = "executeTransaction(address,uint64,bytes)"
	SigGetNonce           = "getNonce()"
)

// Account is the wallet extension's per-token storage
type Account struct {
	Nonce uint64 `json:"nonce"`
}

var _ extension.State = (*Account)(nil)

// Clone implements extension.State
func (a *Account) Clone() extension.State {
	cp := *a
	return &cp
}

// TransactionArgs are the arguments of executeTransaction
type TransactionArgs struct {
	To    types.Address `json:"to"`
	Value uint64        `json:"value"`
	Data  []byte        `json:"data"`
}

// TransactionResult is returned by executeTransaction
type TransactionResult struct {
	Nonce  uint64 `json:"nonce"`
	Result []byte `json:"result,omitempty"`
}

// Extension is the wallet extension
type Extension struct {
	ops []extension.Operation
}

var _ extension.Extension = (*Extension)(nil)

// New creates the extension
func New() *Extension {
	e := &Extension{}
	e.ops = []extension.Operation{
		extension.NewOperation(SigExecuteTransaction, true, e.executeTransaction),
		extension.NewOperation(SigGetNonce, false, e.getNonce),
	}
	return e
}

func (e *Extension) ID() extension.ID                  { return ID }
func (e *Extension) Variant() types.Variant            { return types.VariantAny }
func (e *Extension) Operations() []extension.Operation { return e.ops }
func (e *Extension) NewState() extension.State         { return &Account{} }

func (e *Extension) executeTransaction(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args TransactionArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	if args.To.IsZero() {
		return nil, fmt.Errorf("%w: zero target", types.ErrInvalidArgument)
	}
	acct, err := extension.StateOf[*Account](ctx.Host, ID)
	if err != nil {
		return nil, err
	}
	nonce := acct.Nonce
	if acct.Nonce, err = types.AddUint64(acct.Nonce, 1); err != nil {
		return nil, err
	}

	out, err := ctx.Host.Outbound(args.To, args.Value, args.Data)
	if err != nil {
		return nil, fmt.Errorf("transaction %d to %s: %w", nonce, args.To, err)
	}
	return types.EncodeResult(TransactionResult{Nonce: nonce, Result: out})
}

func (e *Extension) getNonce(ctx *extension.Context, _ types.Call) ([]byte, error) {
	acct, err := extension.StateOf[*Account](ctx.Host, ID)
	if err != nil {
		return nil, err
	}
	return types.EncodeResult(acct.Nonce)
}

// ExecuteTransaction encodes executeTransaction(to, value, data)
func ExecuteTransaction(to types.Address, value uint64, data []byte) []byte {
	return types.MustEncodeCall(SigExecuteTransaction, TransactionArgs{To: to, Value: value, Data: data})
}
