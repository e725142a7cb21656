package token

import (
	"fmt"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/governance"
	"github.com/blockberries/tokenberry/types"
)

// Native operation signatures
const (
	SigInitialize       = "initialize(bytes)"
	SigTransfer         = "transfer(address,uint64)"
	SigMint             = "mint(address,uint64)"
	SigBurn             = "burn(uint64)"
	SigSetState         = "setState(uint8)"
	SigSetSystem        = "setSystem(uint8)"
	SigSetMaintainer    = "setMaintainer(address)"
	SigEnableExtension  = "enableExtension(string)"
	SigDisableExtension = "disableExtension(string)"
	SigGetSettings      = "getSettings()"
	SigBalanceOf        = "balanceOf(address)"
	SigTotalSupply      = "totalSupply()"
	SigOwnerOf          = "ownerOf(uint64)"
	SigGetCurrentEpoch  = "getCurrentEpoch()"
	SigGetBalanceAt     = "getBalanceAt(uint64,address)"
	SigGetTotalSupplyAt = "getTotalSupplyAt(uint64)"
)

var selInitialize = types.SelectorOf(SigInitialize)

// Argument shapes of the native operations. For non-fungible tokens the
// amount of transfer, mint and burn is the token id.
type (
	TransferArgs struct {
		To     types.Address `json:"to"`
		Amount uint64        `json:"amount"`
	}
	MintArgs struct {
		To     types.Address `json:"to"`
		Amount uint64        `json:"amount"`
	}
	BurnArgs struct {
		Amount uint64 `json:"amount"`
	}
	StateArgs struct {
		State types.State `json:"state"`
	}
	SystemArgs struct {
		System types.System `json:"system"`
	}
	MaintainerArgs struct {
		Maintainer types.Address `json:"maintainer"`
	}
	ExtensionArgs struct {
		ID extension.ID `json:"id"`
	}
	AccountArgs struct {
		Account types.Address `json:"account"`
	}
	TokenIDArgs struct {
		ID uint64 `json:"id"`
	}
	EpochArgs struct {
		Epoch   uint64        `json:"epoch"`
		Account types.Address `json:"account"`
	}
)

type nativeFunc func(h *host, auth governance.Authority, call types.Call) ([]byte, error)

type native struct {
	signature  string
	privileged bool
	fn         nativeFunc
}

var (
	nativeTable = []native{
		{SigInitialize, false, opInitialize},
		{SigTransfer, false, opTransfer},
		{SigMint, true, opMint},
		{SigBurn, false, opBurn},
		{SigSetState, true, opSetState},
		{SigSetSystem, true, opSetSystem},
		{SigSetMaintainer, true, opSetMaintainer},
		{SigEnableExtension, true, opEnableExtension},
		{SigDisableExtension, true, opDisableExtension},
		{SigGetSettings, false, opGetSettings},
		{SigBalanceOf, false, opBalanceOf},
		{SigTotalSupply, false, opTotalSupply},
		{SigOwnerOf, false, opOwnerOf},
		{SigGetCurrentEpoch, false, opGetCurrentEpoch},
		{SigGetBalanceAt, false, opGetBalanceAt},
		{SigGetTotalSupplyAt, false, opGetTotalSupplyAt},
	}
	natives = make(map[types.Selector]native, len(nativeTable))
)

func init() {
	for _, n := range nativeTable {
		natives[types.SelectorOf(n.signature)] = n
	}
}

// NativeSignatures returns the signatures of the native token interface.
// No extension may claim their selectors.
func NativeSignatures() []string {
	out := make([]string, len(nativeTable))
	for i, n := range nativeTable {
		out[i] = n.signature
	}
	return out
}

// IsPrivileged reports whether a native operation needs governing authority
func IsPrivileged(sel types.Selector) bool {
	n, ok := natives[sel]
	return ok && n.privileged
}

func opInitialize(h *host, _ governance.Authority, call types.Call) ([]byte, error) {
	if h.t.core.initialized {
		return nil, fmt.Errorf("%w: %s", types.ErrAlreadyInitialized, h.t.address)
	}
	var p InitParams
	if err := call.Bind(&p); err != nil {
		return nil, err
	}
	return nil, h.t.Initialize(p)
}

func opTransfer(h *host, auth governance.Authority, call types.Call) ([]byte, error) {
	var args TransferArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return nil, h.t.core.transfer(h.Now(), auth.Caller, args.To, args.Amount)
}

func opMint(h *host, _ governance.Authority, call types.Call) ([]byte, error) {
	var args MintArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return nil, h.t.core.mint(h.Now(), args.To, args.Amount)
}

func opBurn(h *host, auth governance.Authority, call types.Call) ([]byte, error) {
	var args BurnArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return nil, h.t.core.burn(h.Now(), auth.Caller, args.Amount)
}

func opSetState(h *host, auth governance.Authority, call types.Call) ([]byte, error) {
	var args StateArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	c := h.t.core
	if err := c.gov.SetState(auth, call.Selector, args.State); err != nil {
		return nil, err
	}
	if args.State == types.StateTracked {
		if err := c.seedLedger(h.Now()); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func opSetSystem(h *host, auth governance.Authority, call types.Call) ([]byte, error) {
	var args SystemArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return nil, h.t.core.gov.SetSystem(auth, call.Selector, args.System)
}

func opSetMaintainer(h *host, auth governance.Authority, call types.Call) ([]byte, error) {
	var args MaintainerArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return nil, h.t.core.gov.SetMaintainer(auth, call.Selector, args.Maintainer)
}

func opEnableExtension(h *host, _ governance.Authority, call types.Call) ([]byte, error) {
	var args ExtensionArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return nil, h.t.enableExtension(h.t.core, args.ID)
}

func opDisableExtension(h *host, _ governance.Authority, call types.Call) ([]byte, error) {
	var args ExtensionArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return nil, h.t.core.active.Disable(args.ID)
}

func opGetSettings(h *host, _ governance.Authority, _ types.Call) ([]byte, error) {
	return types.EncodeResult(h.t.Settings())
}

func opBalanceOf(h *host, _ governance.Authority, call types.Call) ([]byte, error) {
	var args AccountArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return types.EncodeResult(h.t.BalanceOf(args.Account))
}

func opTotalSupply(h *host, _ governance.Authority, _ types.Call) ([]byte, error) {
	return types.EncodeResult(h.t.TotalSupply())
}

func opOwnerOf(h *host, _ governance.Authority, call types.Call) ([]byte, error) {
	var args TokenIDArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	owner, err := h.t.OwnerOf(args.ID)
	if err != nil {
		return nil, err
	}
	return types.EncodeResult(owner)
}

func opGetCurrentEpoch(h *host, _ governance.Authority, _ types.Call) ([]byte, error) {
	return types.EncodeResult(h.CurrentEpoch())
}

func opGetBalanceAt(h *host, _ governance.Authority, call types.Call) ([]byte, error) {
	var args EpochArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return types.EncodeResult(h.BalanceAt(args.Epoch, args.Account))
}

func opGetTotalSupplyAt(h *host, _ governance.Authority, call types.Call) ([]byte, error) {
	var args EpochArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	return types.EncodeResult(h.TotalSupplyAt(args.Epoch))
}

// Payload builders for the native interface

// Transfer encodes transfer(to, amount)
func Transfer(to types.Address, amount uint64) []byte {
	return types.MustEncodeCall(SigTransfer, TransferArgs{To: to, Amount: amount})
}

// Mint encodes mint(to, amount)
func Mint(to types.Address, amount uint64) []byte {
	return types.MustEncodeCall(SigMint, MintArgs{To: to, Amount: amount})
}

// Burn encodes burn(amount)
func Burn(amount uint64) []byte {
	return types.MustEncodeCall(SigBurn, BurnArgs{Amount: amount})
}

// SetState encodes setState(state)
func SetState(s types.State) []byte {
	return types.MustEncodeCall(SigSetState, StateArgs{State: s})
}

// SetSystem encodes setSystem(system)
func SetSystem(s types.System) []byte {
	return types.MustEncodeCall(SigSetSystem, SystemArgs{System: s})
}

// SetMaintainer encodes setMaintainer(maintainer)
func SetMaintainer(m types.Address) []byte {
	return types.MustEncodeCall(SigSetMaintainer, MaintainerArgs{Maintainer: m})
}

// EnableExtension encodes enableExtension(id)
func EnableExtension(id extension.ID) []byte {
	return types.MustEncodeCall(SigEnableExtension, ExtensionArgs{ID: id})
}

// DisableExtension encodes disableExtension(id)
func DisableExtension(id extension.ID) []byte {
	return types.MustEncodeCall(SigDisableExtension, ExtensionArgs{ID: id})
}

// BalanceOfCall encodes balanceOf(account)
func BalanceOfCall(account types.Address) []byte {
	return types.MustEncodeCall(SigBalanceOf, AccountArgs{Account: account})
}

// GetBalanceAt encodes getBalanceAt(epoch, account)
func GetBalanceAt(epoch uint64, account types.Address) []byte {
	return types.MustEncodeCall(SigGetBalanceAt, EpochArgs{Epoch: epoch, Account: account})
}

// GetTotalSupplyAt encodes getTotalSupplyAt(epoch)
func GetTotalSupplyAt(epoch uint64) []byte {
	return types.MustEncodeCall(SigGetTotalSupplyAt, EpochArgs{Epoch: epoch})
}

// GetSettings encodes getSettings()
func GetSettings() []byte {
	return types.MustEncodeCall(SigGetSettings, nil)
}
