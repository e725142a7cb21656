package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// SelectorSize is the size of an operation selector in bytes
const SelectorSize = 4

// Selector identifies an operation: the first four bytes of the SHA-256
// of its signature, e.g. "transfer(address,uint64)".
type Selector [SelectorSize]byte

// SelectorOf derives the selector of an operation signature
func SelectorOf(signature string) Selector {
	sum := sha256.Sum256([]byte(signature))
	var s Selector
	copy(s[:], sum[:SelectorSize])
	return s
}

// String returns the 0x-prefixed hex encoding
func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// MarshalText implements encoding.TextMarshaler
func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Selector) UnmarshalText(text []byte) error {
	data, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return fmt.Errorf("invalid selector %q: %w", text, err)
	}
	if len(data) != SelectorSize {
		return fmt.Errorf("selector must be %d bytes, got %d", SelectorSize, len(data))
	}
	copy(s[:], data)
	return nil
}

// Call is a decoded operation payload: a selector followed by JSON encoded
// arguments. Payloads stay opaque to everything but the handler that owns
// the selector.
type Call struct {
	Selector Selector
	Args     []byte
}

// NewCall builds a call for signature with args encoded as JSON.
// A nil args value produces an empty argument list.
func NewCall(signature string, args any) (Call, error) {
	c := Call{Selector: SelectorOf(signature)}
	if args == nil {
		return c, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return Call{}, fmt.Errorf("encode args for %s: %w", signature, err)
	}
	c.Args = data
	return c, nil
}

// EncodeCall builds and encodes a call payload
func EncodeCall(signature string, args any) ([]byte, error) {
	c, err := NewCall(signature, args)
	if err != nil {
		return nil, err
	}
	return c.Encode(), nil
}

// MustEncodeCall is EncodeCall for trusted arguments; it panics on error
func MustEncodeCall(signature string, args any) []byte {
	payload, err := EncodeCall(signature, args)
	if err != nil {
		panic(err)
	}
	return payload
}

// DecodeCall splits a payload into selector and arguments.
// The returned call owns a copy of the argument bytes.
func DecodeCall(payload []byte) (Call, error) {
	if len(payload) < SelectorSize {
		return Call{}, fmt.Errorf("%w: payload shorter than selector (%d bytes)", ErrUnknownOperation, len(payload))
	}
	var c Call
	copy(c.Selector[:], payload[:SelectorSize])
	if rest := payload[SelectorSize:]; len(rest) > 0 {
		c.Args = make([]byte, len(rest))
		copy(c.Args, rest)
	}
	return c, nil
}

// Encode returns selector || args
func (c Call) Encode() []byte {
	out := make([]byte, 0, SelectorSize+len(c.Args))
	out = append(out, c.Selector[:]...)
	return append(out, c.Args...)
}

// Bind decodes the call arguments into v, rejecting unknown fields and
// anything after the first JSON value
func (c Call) Bind(v any) error {
	if len(c.Args) == 0 {
		return fmt.Errorf("%w: missing arguments for %s", ErrInvalidArgument, c.Selector)
	}
	dec := json.NewDecoder(bytes.NewReader(c.Args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode arguments for %s: %v", ErrInvalidArgument, c.Selector, err)
	}
	if err := dec.Decode(&json.RawMessage{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data after arguments for %s", ErrInvalidArgument, c.Selector)
	}
	return nil
}

// EncodeResult JSON encodes an operation result
func EncodeResult(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}
