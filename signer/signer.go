// Package signer implements the signature extension: a token-owned store
// of message hashes the token vouches for, answering ERC-1271 style
// isValidSignature queries without a live cryptographic signature. The
// stored record is the authorization, so writing it is privileged.
package signer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/types"
)

// ID is the extension id of the signer extension
const ID extension.ID = "signer"

// Operation signatures
const (
	SigSetSignature      = "setSignature(bytes32,int64,int64,uint8)"
	SigRemoveSignature   = "removeSignature(bytes32)"
	SigIsValidSignature  = "isValidSignature(bytes32,bytes)"
	SigValidateSignature = "validateSignature(bytes32)"
)

// Answers of isValidSignature
var (
	MagicValid   = [4]byte{0x16, 0x26, 0xba, 0x7e}
	MagicInvalid = [4]byte{0xff, 0xff, 0xff, 0xff}
)

// ErrSignatureNotFound is returned when removing an unknown hash
var ErrSignatureNotFound = errors.New("signature not found")

// Mode selects which queries a record answers
type Mode uint8

const (
	// ModeMessage records answer isValidSignature
	ModeMessage Mode = 1 << iota
	// ModeOperation records answer validateSignature
	ModeOperation

	modeMask = ModeMessage | ModeOperation
)

// Record is the stored validity of one message hash. ValidUntil 0 never
// expires. Bounds are unix seconds and inclusive.
type Record struct {
	ValidAfter int64 `json:"valid_after"`
	ValidUntil int64 `json:"valid_until"`
	Mode       Mode  `json:"mode"`
}

// ValidAt reports whether r answers a query in mode at now
func (r Record) ValidAt(now time.Time, mode Mode) bool {
	if r.Mode&mode == 0 {
		return false
	}
	ts := now.Unix()
	if ts < r.ValidAfter {
		return false
	}
	return r.ValidUntil == 0 || ts <= r.ValidUntil
}

// Store is the signer extension's per-token storage
type Store struct {
	records map[types.Hash]Record
}

var _ extension.State = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{records: make(map[types.Hash]Record)}
}

// Clone implements extension.State
func (s *Store) Clone() extension.State {
	c := NewStore()
	for h, r := range s.records {
		c.records[h] = r
	}
	return c
}

// Get returns the record of hash
func (s *Store) Get(hash types.Hash) (Record, bool) {
	r, ok := s.records[hash]
	return r, ok
}

// Hashes returns every stored hash, sorted
func (s *Store) Hashes() []types.Hash {
	out := make([]types.Hash, 0, len(s.records))
	for h := range s.records {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Argument and result shapes
type (
	SetArgs struct {
		Hash       types.Hash `json:"hash"`
		ValidAfter int64      `json:"valid_after"`
		ValidUntil int64      `json:"valid_until"`
		Mode       Mode       `json:"mode"`
	}
	HashArgs struct {
		Hash types.Hash `json:"hash"`
	}
	IsValidArgs struct {
		Hash      types.Hash `json:"hash"`
		Signature []byte     `json:"signature"`
	}
	IsValidResult struct {
		Magic string `json:"magic"`
	}
	ValidateResult struct {
		Valid      bool  `json:"valid"`
		ValidAfter int64 `json:"valid_after"`
		ValidUntil int64 `json:"valid_until"`
	}
)

// Extension is the signer extension
type Extension struct {
	ops []extension.Operation
}

var _ extension.Extension = (*Extension)(nil)

// New creates the extension
func New() *Extension {
	e := &Extension{}
	e.ops = []extension.Operation{
		extension.NewOperation(SigSetSignature, true, e.setSignature),
		extension.NewOperation(SigRemoveSignature, true, e.removeSignature),
		extension.NewOperation(SigIsValidSignature, false, e.isValidSignature),
		extension.NewOperation(SigValidateSignature, false, e.validateSignature),
	}
	return e
}

func (e *Extension) ID() extension.ID                  { return ID }
func (e *Extension) Variant() types.Variant            { return types.VariantAny }
func (e *Extension) Operations() []extension.Operation { return e.ops }
func (e *Extension) NewState() extension.State         { return NewStore() }

func (e *Extension) setSignature(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args SetArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	if args.Mode == 0 || args.Mode&^modeMask != 0 {
		return nil, fmt.Errorf("%w: mode %d", types.ErrInvalidArgument, args.Mode)
	}
	if args.ValidUntil != 0 && args.ValidUntil < args.ValidAfter {
		return nil, fmt.Errorf("%w: valid until %d before valid after %d",
			types.ErrInvalidArgument, args.ValidUntil, args.ValidAfter)
	}
	s, err := extension.StateOf[*Store](ctx.Host, ID)
	if err != nil {
		return nil, err
	}
	s.records[args.Hash] = Record{ValidAfter: args.ValidAfter, ValidUntil: args.ValidUntil, Mode: args.Mode}
	return nil, nil
}

func (e *Extension) removeSignature(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args HashArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	s, err := extension.StateOf[*Store](ctx.Host, ID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.records[args.Hash]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrSignatureNotFound, args.Hash)
	}
	delete(s.records, args.Hash)
	return nil, nil
}

func (e *Extension) isValidSignature(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args IsValidArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	s, err := extension.StateOf[*Store](ctx.Host, ID)
	if err != nil {
		return nil, err
	}
	magic := MagicInvalid
	if r, ok := s.records[args.Hash]; ok && r.ValidAt(ctx.Host.Now(), ModeMessage) {
		magic = MagicValid
	}
	return types.EncodeResult(IsValidResult{Magic: fmt.Sprintf("0x%x", magic[:])})
}

func (e *Extension) validateSignature(ctx *extension.Context, call types.Call) ([]byte, error) {
	var args HashArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	s, err := extension.StateOf[*Store](ctx.Host, ID)
	if err != nil {
		return nil, err
	}
	r, ok := s.records[args.Hash]
	if !ok {
		return types.EncodeResult(ValidateResult{})
	}
	return types.EncodeResult(ValidateResult{
		Valid:      r.ValidAt(ctx.Host.Now(), ModeOperation),
		ValidAfter: r.ValidAfter,
		ValidUntil: r.ValidUntil,
	})
}

// SetSignature encodes setSignature(hash, validAfter, validUntil, mode)
func SetSignature(hash types.Hash, validAfter, validUntil int64, mode Mode) []byte {
	return types.MustEncodeCall(SigSetSignature, SetArgs{
		Hash:       hash,
		ValidAfter: validAfter,
		ValidUntil: validUntil,
		Mode:       mode,
	})
}

// RemoveSignature encodes removeSignature(hash)
func RemoveSignature(hash types.Hash) []byte {
	return types.MustEncodeCall(SigRemoveSignature, HashArgs{Hash: hash})
}

// IsValidSignature encodes isValidSignature(hash, signature)
func IsValidSignature(hash types.Hash, signature []byte) []byte {
	return types.MustEncodeCall(SigIsValidSignature, IsValidArgs{Hash: hash, Signature: signature})
}

// ValidateSignature encodes validateSignature(hash)
func ValidateSignature(hash types.Hash) []byte {
	return types.MustEncodeCall(SigValidateSignature, HashArgs{Hash: hash})
}
